package entities

import "time"

// AutomationRecord is the scheduler's internal view of one ad set: the state
// it last targeted, when automation last moved it, and whether the platform
// has caught up.
type AutomationRecord struct {
	AdSetID          string
	State            AutomationState
	Cause            TransitionCause
	Direction        RunState
	LastTransitionAt time.Time
	ShadowTarget     AutomationState
	Reconciled       bool
	LastError        string
	Attempts         int
	UpdatedAt        time.Time
}

// AutomationFlag is the master kill switch.
type AutomationFlag struct {
	Enabled   bool
	UpdatedAt time.Time
}
