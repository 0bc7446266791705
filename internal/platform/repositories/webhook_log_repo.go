package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"leadflow/internal/platform/models"
)

// WebhookLogRepository is the append-only delivery trail, one row per
// delivery attempt.
type WebhookLogRepository struct {
	db *sql.DB
}

func NewWebhookLogRepository(db *sql.DB) *WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

func (r *WebhookLogRepository) Append(entry *models.WebhookLogEntry) error {
	entry.ID = "del_" + uuid.New().String()
	entry.ExecutedAt = time.Now().Unix()

	_, err := r.db.Exec(`
		INSERT INTO webhook_logs (id, webhook_id, event_type, payload, status, response, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.WebhookID, entry.EventType, entry.Payload, entry.Status, entry.Response, entry.ExecutedAt)
	return err
}

func (r *WebhookLogRepository) Recent(limit int) ([]*models.WebhookLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT id, webhook_id, event_type, payload, status, response, executed_at
		FROM webhook_logs ORDER BY executed_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.WebhookLogEntry
	for rows.Next() {
		var e models.WebhookLogEntry
		var response sql.NullString

		if err := rows.Scan(&e.ID, &e.WebhookID, &e.EventType, &e.Payload, &e.Status, &response, &e.ExecutedAt); err != nil {
			return nil, err
		}
		if response.Valid {
			e.Response = response.String
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *WebhookLogRepository) Stats() (*models.DeliveryStats, error) {
	since := time.Now().Add(-statsWindow).Unix()

	var stats models.DeliveryStats
	err := r.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT webhook_id)
		FROM webhook_logs WHERE executed_at >= ?
	`, models.DeliverySuccess, models.DeliveryFailed, since).Scan(&stats.Total, &stats.Successes, &stats.Failures, &stats.DistinctWebhooks)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
