package automation

// Context is the transient event data evaluated against rule predicates
// and handed to action handlers. The collaborator that detected the
// business event builds it; it is never persisted.
type Context struct {
	Event      string `json:"event"`
	LeadID     int64  `json:"leadId"`
	FromStatus string `json:"fromStatus,omitempty"`
	ToStatus   string `json:"toStatus,omitempty"`
	TagID      int64  `json:"tagId,omitempty"`
	Source     string `json:"source,omitempty"`
}
