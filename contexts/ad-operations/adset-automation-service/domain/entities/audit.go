package entities

import "time"

const (
	DefaultAuditLimit = 20
	MaxAuditLimit     = 50
	AutomationActor   = "automation"
)

// AuditLogEntry is immutable once written.
type AuditLogEntry struct {
	ID        string
	Actor     string
	Message   string
	Cause     TransitionCause
	AdSetID   string
	Timestamp time.Time
}

// ClampAuditLimit bounds "most recent N" reads.
func ClampAuditLimit(limit int) int {
	if limit <= 0 {
		return DefaultAuditLimit
	}
	if limit > MaxAuditLimit {
		return MaxAuditLimit
	}
	return limit
}
