package models

import "fmt"

// Trigger types
const (
	TriggerStatusChange = "status_change"
	TriggerTagAdded     = "tag_added"
	TriggerLeadCreated  = "lead_created"
	TriggerTimeBased    = "time_based"
)

// Action types
const (
	ActionSendEmail        = "send_email"
	ActionAssignUser       = "assign_user"
	ActionAddTag           = "add_tag"
	ActionChangeStatus     = "change_status"
	ActionCreateTask       = "create_task"
	ActionSendNotification = "send_notification"
	ActionWebhook          = "webhook"
)

type AutomationRule struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	TriggerType   string        `json:"trigger_type"`
	TriggerConfig TriggerConfig `json:"trigger_config"` // JSON column in DB
	ActionType    string        `json:"action_type"`
	ActionConfig  ActionConfig  `json:"action_config"` // JSON column in DB
	IsActive      bool          `json:"is_active"`
	CreatedBy     string        `json:"created_by,omitempty"`
	CreatedAt     int64         `json:"created_at"`
	UpdatedAt     int64         `json:"updated_at"`
}

// TriggerConfig is the predicate attached to a rule. A nil field is a
// wildcard: it matches any value in the incoming event context. A set
// field must match the context field exactly.
type TriggerConfig struct {
	FromStatus *string `json:"fromStatus,omitempty"`
	ToStatus   *string `json:"toStatus,omitempty"`
	TagID      *int64  `json:"tagId,omitempty"`
	Source     *string `json:"source,omitempty"`

	// time_based only
	Cron      string `json:"cron,omitempty"`
	StaleDays int    `json:"staleDays,omitempty"`
}

// ActionConfig holds the parameters for every action type in one shape;
// Validate checks the fields the given action type requires so that a
// malformed rule is rejected at save time, not silently skipped at
// evaluation time.
type ActionConfig struct {
	// send_email
	To      string `json:"to,omitempty"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`

	// assign_user, send_notification
	UserID int64 `json:"userId,omitempty"`

	// add_tag
	TagID int64 `json:"tagId,omitempty"`

	// change_status
	Status string `json:"status,omitempty"`

	// create_task
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	DaysFromNow int    `json:"daysFromNow,omitempty"`
	Priority    string `json:"priority,omitempty"`
	AssignTo    int64  `json:"assignTo,omitempty"`

	// send_notification
	Message string `json:"message,omitempty"`

	// webhook
	URL string `json:"url,omitempty"`
}

// Validate checks that the rule's enums are known and that its action
// config carries the fields its action type requires.
func (r *AutomationRule) Validate() error {
	switch r.TriggerType {
	case TriggerStatusChange, TriggerTagAdded, TriggerLeadCreated, TriggerTimeBased:
	default:
		return fmt.Errorf("unknown trigger type %q", r.TriggerType)
	}

	switch r.ActionType {
	case ActionSendEmail:
		if r.ActionConfig.Subject == "" || r.ActionConfig.Body == "" {
			return fmt.Errorf("send_email requires subject and body")
		}
	case ActionAssignUser:
		if r.ActionConfig.UserID == 0 {
			return fmt.Errorf("assign_user requires userId")
		}
	case ActionAddTag:
		if r.ActionConfig.TagID == 0 {
			return fmt.Errorf("add_tag requires tagId")
		}
	case ActionChangeStatus:
		if r.ActionConfig.Status == "" {
			return fmt.Errorf("change_status requires status")
		}
	case ActionCreateTask:
		if r.ActionConfig.Title == "" {
			return fmt.Errorf("create_task requires title")
		}
	case ActionSendNotification:
		if r.ActionConfig.UserID == 0 || r.ActionConfig.Title == "" {
			return fmt.Errorf("send_notification requires userId and title")
		}
	case ActionWebhook:
		if r.ActionConfig.URL == "" {
			return fmt.Errorf("webhook requires url")
		}
	default:
		return fmt.Errorf("unknown action type %q", r.ActionType)
	}

	return nil
}
