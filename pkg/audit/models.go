// Package audit keeps an append-only log of security-relevant events:
// rejected authorization, exceeded rate limits, rejected input, unsafe
// content and integrity failures.
package audit

import (
	"time"

	"github.com/menuforge/menuforge/pkg/db"
)

// Event types.
const (
	EventAuthorizationFailure = "authorization_failure"
	EventRateLimitExceeded    = "rate_limit_exceeded"
	EventValidationFailure    = "validation_failure"
	EventUnsafeContent        = "unsafe_content"
	EventIntegrityFailure     = "integrity_failure"
	EventRestoreRejected      = "restore_rejected"
	EventImportRejected       = "import_rejected"
)

// Severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// SecurityEvent is the GORM model for one audit entry.
type SecurityEvent struct {
	ID         string     `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	EventType  string     `gorm:"column:event_type;index:idx_security_event_type;not null" json:"event_type"`
	Severity   string     `gorm:"column:severity;not null" json:"severity"`
	Actor      string     `gorm:"column:actor;index:idx_security_event_actor" json:"actor,omitempty"`
	RemoteAddr string     `gorm:"column:remote_addr" json:"remote_addr,omitempty"`
	Method     string     `gorm:"column:method" json:"method,omitempty"`
	Route      string     `gorm:"column:route" json:"route,omitempty"`
	RequestID  string     `gorm:"column:request_id" json:"request_id,omitempty"`
	StatusCode int        `gorm:"column:status_code" json:"status_code,omitempty"`
	Details    db.JSONAny `gorm:"column:details;type:text" json:"details,omitempty"`
	CreatedAt  time.Time  `gorm:"column:created_at;index:idx_security_event_created;not null" json:"created_at"`
}

// TableName returns the GORM table name.
func (SecurityEvent) TableName() string { return "security_events" }

// QueryFilter narrows Query results. Zero fields match everything.
type QueryFilter struct {
	EventType string
	Severity  string
	Actor     string
	Since     time.Time
}
