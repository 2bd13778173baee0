package entities

// Lead sources
const (
	LeadSourceChat         = "chat"
	LeadSourceContact      = "contact"
	LeadSourceRegistration = "registration"
)

// LeadAuditLog records a sales-relevant interaction. It is append-only and
// has no soft-delete flag.
type LeadAuditLog struct {
	Base
	SessionID string `json:"sessionId,omitempty"`
	Source    string `json:"source"`
	Intent    string `json:"intent,omitempty"`
	Goal      string `json:"goal,omitempty"`
	Message   string `json:"message,omitempty"`
	Email     string `json:"email,omitempty"`
	ClientIP  string `json:"clientIp,omitempty"`
}
