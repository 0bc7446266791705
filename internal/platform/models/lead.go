package models

// Terminal lead statuses. Leads in these states are never considered
// stale by time-based rules.
const (
	StatusWon  = "won"
	StatusLost = "lost"
)

type Lead struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
	Source       string `json:"source,omitempty"`
	Status       string `json:"status"`
	OwnerID      int64  `json:"owner_id,omitempty"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

type Task struct {
	ID          int64  `json:"id"`
	LeadID      int64  `json:"lead_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority"`
	AssignedTo  int64  `json:"assigned_to,omitempty"`
	DueAt       int64  `json:"due_at"`
	CreatedAt   int64  `json:"created_at"`
}

type Notification struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	LeadID    int64  `json:"lead_id,omitempty"`
	Title     string `json:"title"`
	Message   string `json:"message,omitempty"`
	Read      bool   `json:"read"`
	CreatedAt int64  `json:"created_at"`
}
