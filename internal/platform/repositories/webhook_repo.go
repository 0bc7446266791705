package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"leadflow/internal/platform/models"
)

type WebhookRepository struct {
	db *sql.DB
}

func NewWebhookRepository(db *sql.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func (r *WebhookRepository) Create(sub *models.WebhookSubscription) error {
	now := time.Now().Unix()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	eventsJSON, err := json.Marshal(sub.Events)
	if err != nil {
		return err
	}
	headersJSON, err := json.Marshal(sub.Headers)
	if err != nil {
		return err
	}

	res, err := r.db.Exec(`
		INSERT INTO webhook_subscriptions (name, url, events, secret, headers, is_active, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sub.Name, sub.URL, string(eventsJSON), sub.Secret, string(headersJSON), sub.IsActive, sub.CreatedBy, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return err
	}

	sub.ID, err = res.LastInsertId()
	return err
}

func (r *WebhookRepository) GetByID(id int64) (*models.WebhookSubscription, error) {
	row := r.db.QueryRow(`
		SELECT id, name, url, events, secret, headers, is_active, created_by, created_at, updated_at
		FROM webhook_subscriptions WHERE id = ?
	`, id)

	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sub, err
}

func (r *WebhookRepository) List() ([]*models.WebhookSubscription, error) {
	return r.query(`
		SELECT id, name, url, events, secret, headers, is_active, created_by, created_at, updated_at
		FROM webhook_subscriptions ORDER BY id
	`)
}

func (r *WebhookRepository) ListActive() ([]*models.WebhookSubscription, error) {
	return r.query(`
		SELECT id, name, url, events, secret, headers, is_active, created_by, created_at, updated_at
		FROM webhook_subscriptions WHERE is_active = 1 ORDER BY id
	`)
}

func (r *WebhookRepository) Update(sub *models.WebhookSubscription) error {
	eventsJSON, err := json.Marshal(sub.Events)
	if err != nil {
		return err
	}
	headersJSON, err := json.Marshal(sub.Headers)
	if err != nil {
		return err
	}
	sub.UpdatedAt = time.Now().Unix()

	_, err = r.db.Exec(`
		UPDATE webhook_subscriptions
		SET name = ?, url = ?, events = ?, secret = ?, headers = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`, sub.Name, sub.URL, string(eventsJSON), sub.Secret, string(headersJSON), sub.IsActive, sub.UpdatedAt, sub.ID)
	return err
}

func (r *WebhookRepository) SetActive(id int64, active bool) error {
	_, err := r.db.Exec(`UPDATE webhook_subscriptions SET is_active = ?, updated_at = ? WHERE id = ?`, active, time.Now().Unix(), id)
	return err
}

func (r *WebhookRepository) Delete(id int64) error {
	_, err := r.db.Exec(`DELETE FROM webhook_subscriptions WHERE id = ?`, id)
	return err
}

func (r *WebhookRepository) query(q string, args ...interface{}) ([]*models.WebhookSubscription, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*models.WebhookSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func scanSubscription(row rowScanner) (*models.WebhookSubscription, error) {
	var sub models.WebhookSubscription
	var eventsStr string
	var headersStr sql.NullString
	var secret sql.NullString

	err := row.Scan(&sub.ID, &sub.Name, &sub.URL, &eventsStr, &secret, &headersStr, &sub.IsActive, &sub.CreatedBy, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if secret.Valid {
		sub.Secret = secret.String
	}
	if err := json.Unmarshal([]byte(eventsStr), &sub.Events); err != nil {
		log.Warn().Err(err).Int64("webhook_id", sub.ID).Msg("corrupt events list, subscription matches nothing")
	}
	if headersStr.Valid && headersStr.String != "" {
		if err := json.Unmarshal([]byte(headersStr.String), &sub.Headers); err != nil {
			log.Warn().Err(err).Int64("webhook_id", sub.ID).Msg("corrupt headers, delivering without custom headers")
		}
	}

	return &sub, nil
}
