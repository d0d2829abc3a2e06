package entities

import (
	"strings"
	"time"

	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
)

type ScheduledActionState string

const (
	ActionPending ScheduledActionState = "PENDING"
	ActionRunning ScheduledActionState = "RUNNING"
	ActionDone    ScheduledActionState = "DONE"
	ActionFailed  ScheduledActionState = "FAILED"
)

// ScheduledAction is a one-shot run/pause request for a single ad set. It
// runs once ExecuteAt has passed and is never retried by the action job;
// a failed platform call is left to the automation cycle like any manual
// override.
type ScheduledAction struct {
	ID         string
	AdSetID    string
	Desired    RunState
	ExecuteAt  time.Time
	Actor      string
	Message    string
	CreatedAt  time.Time
	State      ScheduledActionState
	ExecutedAt time.Time
	Error      string
}

func (a ScheduledAction) Due(now time.Time) bool {
	return a.State == ActionPending && !a.ExecuteAt.After(now)
}

var executeAtLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseExecuteAt accepts RFC 3339 timestamps and zone-less local times,
// which are read in loc.
func ParseExecuteAt(raw string, loc *time.Location) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, domainerrors.ErrInvalidExecuteAt
	}
	if at, err := time.Parse(time.RFC3339, value); err == nil {
		return at.UTC(), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range executeAtLayouts {
		if at, err := time.ParseInLocation(layout, value, loc); err == nil {
			return at.UTC(), nil
		}
	}
	return time.Time{}, domainerrors.ErrInvalidExecuteAt
}
