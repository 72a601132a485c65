package domain

import "time"

// Moderation audit event types
const (
	AuditMaliciousEditDetected = "malicious_edit_detected"
	AuditEditReverted          = "edit_reverted"
	AuditRevertFailed          = "revert_failed"
)

type AuditEvent struct {
	EventID    string                 `json:"event_id"`
	Service    string                 `json:"service"`
	EventType  string                 `json:"event_type"`
	EntityID   string                 `json:"entity_id"`
	Actor      string                 `json:"actor,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload"`
}
