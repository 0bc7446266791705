package models

// Execution outcomes
const (
	ExecSuccess = "success"
	ExecError   = "error"
)

// Delivery outcomes
const (
	DeliverySuccess = "success"
	DeliveryFailed  = "failed"
)

// ExecutionLogEntry records one action execution attempt. Rule name and
// types are denormalized so the row stays meaningful after the rule is
// deleted.
type ExecutionLogEntry struct {
	ID           string `json:"id"`
	RuleID       int64  `json:"rule_id"`
	RuleName     string `json:"rule_name"`
	TriggerType  string `json:"trigger_type"`
	ActionType   string `json:"action_type"`
	LeadID       int64  `json:"lead_id,omitempty"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	ExecutedAt   int64  `json:"executed_at"`
}

// WebhookLogEntry records one delivery attempt to one subscription.
type WebhookLogEntry struct {
	ID         string `json:"id"`
	WebhookID  int64  `json:"webhook_id"`
	EventType  string `json:"event_type"`
	Payload    string `json:"payload"` // serialized envelope
	Status     string `json:"status"`
	Response   string `json:"response,omitempty"`
	ExecutedAt int64  `json:"executed_at"`
}

// ExecutionStats aggregates a trailing 30-day window of the execution log.
type ExecutionStats struct {
	Total         int64 `json:"total"`
	Successes     int64 `json:"successes"`
	Failures      int64 `json:"failures"`
	DistinctRules int64 `json:"distinct_rules"`
}

// DeliveryStats aggregates a trailing 30-day window of the webhook log.
type DeliveryStats struct {
	Total            int64 `json:"total"`
	Successes        int64 `json:"successes"`
	Failures         int64 `json:"failures"`
	DistinctWebhooks int64 `json:"distinct_webhooks"`
}
