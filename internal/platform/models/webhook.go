package models

// EventWildcard in a subscription's event list matches every fired event.
const EventWildcard = "*"

type WebhookSubscription struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Events    []string          `json:"events"`            // JSON array in DB
	Secret    string            `json:"secret,omitempty"`  // empty = unsigned delivery
	Headers   map[string]string `json:"headers,omitempty"` // JSON object in DB
	IsActive  bool              `json:"is_active"`
	CreatedBy string            `json:"created_by,omitempty"`
	CreatedAt int64             `json:"created_at"`
	UpdatedAt int64             `json:"updated_at"`
}

// Matches reports whether the subscription wants the given event name.
func (w *WebhookSubscription) Matches(event string) bool {
	for _, e := range w.Events {
		if e == event || e == EventWildcard {
			return true
		}
	}
	return false
}

// WebhookEnvelope is the outer structure POSTed to subscribers.
type WebhookEnvelope struct {
	Event     string      `json:"event"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}
