package domain

import "time"

// AuditEventType names a security-relevant occurrence.
type AuditEventType string

const (
	AuditAccessDenied   AuditEventType = "access.denied"
	AuditLoginSucceeded AuditEventType = "login.succeeded"
	AuditLoginFailed    AuditEventType = "login.failed"
	AuditTokenRevoked   AuditEventType = "token.revoked"
	AuditTokensRevoked  AuditEventType = "token.revoked_all"
	AuditPasswordChange AuditEventType = "user.password_changed"
	AuditMembership     AuditEventType = "membership.changed"
)

// AuditEvent is emitted for every denial and credential lifecycle change.
type AuditEvent struct {
	Type         AuditEventType `json:"type"`
	UserID       string         `json:"user_id,omitempty"`
	AccountID    string         `json:"account_id,omitempty"`
	Action       Action         `json:"action,omitempty"`
	ResourceType string         `json:"resource_type,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Detail       string         `json:"detail,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}
