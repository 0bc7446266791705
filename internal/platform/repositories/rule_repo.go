package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"leadflow/internal/platform/models"
)

type RuleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) Create(rule *models.AutomationRule) error {
	now := time.Now().Unix()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	triggerJSON, err := json.Marshal(rule.TriggerConfig)
	if err != nil {
		return err
	}
	actionJSON, err := json.Marshal(rule.ActionConfig)
	if err != nil {
		return err
	}

	res, err := r.db.Exec(`
		INSERT INTO automation_rules (name, description, trigger_type, trigger_config, action_type, action_config, is_active, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rule.Name, rule.Description, rule.TriggerType, string(triggerJSON), rule.ActionType, string(actionJSON), rule.IsActive, rule.CreatedBy, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return err
	}

	rule.ID, err = res.LastInsertId()
	return err
}

func (r *RuleRepository) GetByID(id int64) (*models.AutomationRule, error) {
	row := r.db.QueryRow(`
		SELECT id, name, description, trigger_type, trigger_config, action_type, action_config, is_active, created_by, created_at, updated_at
		FROM automation_rules WHERE id = ?
	`, id)

	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rule, err
}

func (r *RuleRepository) List() ([]*models.AutomationRule, error) {
	return r.query(`
		SELECT id, name, description, trigger_type, trigger_config, action_type, action_config, is_active, created_by, created_at, updated_at
		FROM automation_rules ORDER BY id
	`)
}

// ListActive returns rules eligible to fire, in creation order. The
// registry loads from here; inactive rules never reach it.
func (r *RuleRepository) ListActive() ([]*models.AutomationRule, error) {
	return r.query(`
		SELECT id, name, description, trigger_type, trigger_config, action_type, action_config, is_active, created_by, created_at, updated_at
		FROM automation_rules WHERE is_active = 1 ORDER BY id
	`)
}

func (r *RuleRepository) Update(rule *models.AutomationRule) error {
	triggerJSON, err := json.Marshal(rule.TriggerConfig)
	if err != nil {
		return err
	}
	actionJSON, err := json.Marshal(rule.ActionConfig)
	if err != nil {
		return err
	}
	rule.UpdatedAt = time.Now().Unix()

	_, err = r.db.Exec(`
		UPDATE automation_rules
		SET name = ?, description = ?, trigger_type = ?, trigger_config = ?, action_type = ?, action_config = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`, rule.Name, rule.Description, rule.TriggerType, string(triggerJSON), rule.ActionType, string(actionJSON), rule.IsActive, rule.UpdatedAt, rule.ID)
	return err
}

func (r *RuleRepository) SetActive(id int64, active bool) error {
	_, err := r.db.Exec(`UPDATE automation_rules SET is_active = ?, updated_at = ? WHERE id = ?`, active, time.Now().Unix(), id)
	return err
}

func (r *RuleRepository) Delete(id int64) error {
	_, err := r.db.Exec(`DELETE FROM automation_rules WHERE id = ?`, id)
	return err
}

func (r *RuleRepository) query(q string, args ...interface{}) ([]*models.AutomationRule, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*models.AutomationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*models.AutomationRule, error) {
	var rule models.AutomationRule
	var description sql.NullString
	var triggerStr, actionStr string

	err := row.Scan(&rule.ID, &rule.Name, &description, &rule.TriggerType, &triggerStr, &rule.ActionType, &actionStr, &rule.IsActive, &rule.CreatedBy, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		rule.Description = description.String
	}
	// Configs are validated at save time; a row that no longer parses
	// would otherwise degrade to an all-wildcard predicate unnoticed.
	if err := json.Unmarshal([]byte(triggerStr), &rule.TriggerConfig); err != nil {
		log.Warn().Err(err).Int64("rule_id", rule.ID).Msg("corrupt trigger_config, treating as empty")
	}
	if err := json.Unmarshal([]byte(actionStr), &rule.ActionConfig); err != nil {
		log.Warn().Err(err).Int64("rule_id", rule.ID).Msg("corrupt action_config, treating as empty")
	}

	return &rule, nil
}
