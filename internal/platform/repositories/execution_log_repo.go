package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"leadflow/internal/platform/models"
)

// statsWindow is the trailing window Stats aggregates over.
const statsWindow = 30 * 24 * time.Hour

// ExecutionLogRepository is the append-only audit trail of action
// executions. Rows are never updated or deleted.
type ExecutionLogRepository struct {
	db *sql.DB
}

func NewExecutionLogRepository(db *sql.DB) *ExecutionLogRepository {
	return &ExecutionLogRepository{db: db}
}

func (r *ExecutionLogRepository) Append(entry *models.ExecutionLogEntry) error {
	entry.ID = "exec_" + uuid.New().String()
	entry.ExecutedAt = time.Now().Unix()

	_, err := r.db.Exec(`
		INSERT INTO automation_logs (id, rule_id, rule_name, trigger_type, action_type, lead_id, status, error_message, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.RuleID, entry.RuleName, entry.TriggerType, entry.ActionType, nullableID(entry.LeadID), entry.Status, entry.ErrorMessage, entry.ExecutedAt)
	return err
}

func (r *ExecutionLogRepository) Recent(limit int) ([]*models.ExecutionLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT id, rule_id, rule_name, trigger_type, action_type, lead_id, status, error_message, executed_at
		FROM automation_logs ORDER BY executed_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.ExecutionLogEntry
	for rows.Next() {
		var e models.ExecutionLogEntry
		var leadID sql.NullInt64
		var errMsg sql.NullString

		if err := rows.Scan(&e.ID, &e.RuleID, &e.RuleName, &e.TriggerType, &e.ActionType, &leadID, &e.Status, &errMsg, &e.ExecutedAt); err != nil {
			return nil, err
		}
		if leadID.Valid {
			e.LeadID = leadID.Int64
		}
		if errMsg.Valid {
			e.ErrorMessage = errMsg.String
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *ExecutionLogRepository) Stats() (*models.ExecutionStats, error) {
	since := time.Now().Add(-statsWindow).Unix()

	var stats models.ExecutionStats
	err := r.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT rule_id)
		FROM automation_logs WHERE executed_at >= ?
	`, models.ExecSuccess, models.ExecError, since).Scan(&stats.Total, &stats.Successes, &stats.Failures, &stats.DistinctRules)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
