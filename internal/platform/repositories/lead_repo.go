package repositories

import (
	"context"
	"database/sql"
	"time"

	"leadflow/internal/platform/models"
)

// LeadRepository is the record-store collaborator the engine reads and
// writes: lead lookup, status/owner updates, tag associations, follow-up
// tasks, in-app notifications, and the stale-lead query behind
// time-based rules. Every call takes the caller's context so the
// action-timeout deadline bounds store I/O too.
type LeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	now := time.Now().Unix()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	if lead.Status == "" {
		lead.Status = "new"
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO leads (name, email, phone, business_name, source, status, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, lead.Name, lead.Email, lead.Phone, lead.BusinessName, lead.Source, lead.Status, nullableID(lead.OwnerID), lead.CreatedAt, lead.UpdatedAt)
	if err != nil {
		return err
	}

	lead.ID, err = res.LastInsertId()
	return err
}

func (r *LeadRepository) GetByID(ctx context.Context, id int64) (*models.Lead, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, business_name, source, status, owner_id, created_at, updated_at
		FROM leads WHERE id = ?
	`, id)

	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return lead, err
}

func (r *LeadRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE leads SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now().Unix(), id)
	return err
}

func (r *LeadRepository) UpdateOwner(ctx context.Context, id, ownerID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE leads SET owner_id = ?, updated_at = ? WHERE id = ?`, ownerID, time.Now().Unix(), id)
	return err
}

// AddTag associates a tag with a lead. The association is at-most-one
// per (lead, tag) pair: a duplicate insert is a silent no-op.
func (r *LeadRepository) AddTag(ctx context.Context, leadID, tagID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO lead_tags (lead_id, tag_id, created_at) VALUES (?, ?, ?)
	`, leadID, tagID, time.Now().Unix())
	return err
}

func (r *LeadRepository) HasTag(ctx context.Context, leadID, tagID int64) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lead_tags WHERE lead_id = ? AND tag_id = ?`, leadID, tagID).Scan(&count)
	return count > 0, err
}

func (r *LeadRepository) CreateTask(ctx context.Context, task *models.Task) error {
	task.CreatedAt = time.Now().Unix()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (lead_id, title, description, priority, assigned_to, due_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, task.LeadID, task.Title, task.Description, task.Priority, nullableID(task.AssignedTo), task.DueAt, task.CreatedAt)
	if err != nil {
		return err
	}

	task.ID, err = res.LastInsertId()
	return err
}

func (r *LeadRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	n.CreatedAt = time.Now().Unix()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, lead_id, title, message, read, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, n.UserID, nullableID(n.LeadID), n.Title, n.Message, n.CreatedAt)
	if err != nil {
		return err
	}

	n.ID, err = res.LastInsertId()
	return err
}

// ListStale returns leads whose last update is older than staleDays and
// whose status is not terminal, oldest first.
func (r *LeadRepository) ListStale(ctx context.Context, staleDays, limit int) ([]*models.Lead, error) {
	cutoff := time.Now().Add(-time.Duration(staleDays) * 24 * time.Hour).Unix()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, phone, business_name, source, status, owner_id, created_at, updated_at
		FROM leads
		WHERE updated_at < ? AND status NOT IN (?, ?)
		ORDER BY updated_at
		LIMIT ?
	`, cutoff, models.StatusWon, models.StatusLost, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func scanLead(row rowScanner) (*models.Lead, error) {
	var lead models.Lead
	var email, phone, businessName, source sql.NullString
	var ownerID sql.NullInt64

	err := row.Scan(&lead.ID, &lead.Name, &email, &phone, &businessName, &source, &lead.Status, &ownerID, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		return nil, err
	}

	lead.Email = email.String
	lead.Phone = phone.String
	lead.BusinessName = businessName.String
	lead.Source = source.String
	if ownerID.Valid {
		lead.OwnerID = ownerID.Int64
	}

	return &lead, nil
}

func nullableID(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}
