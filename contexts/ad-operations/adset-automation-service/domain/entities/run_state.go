package entities

import (
	"strings"

	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
)

// RunState is the platform-level delivery status of an ad set.
type RunState string

const (
	RunStateActive RunState = "ACTIVE"
	RunStatePaused RunState = "PAUSED"
)

func ParseRunState(raw string) (RunState, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(RunStateActive):
		return RunStateActive, nil
	case string(RunStatePaused):
		return RunStatePaused, nil
	default:
		return "", domainerrors.ErrInvalidRunState
	}
}

// NormalizePlatformStatus folds the wider platform vocabulary (ARCHIVED,
// CAMPAIGN_PAUSED, ...) into the two states automation reasons about.
func NormalizePlatformStatus(raw string) RunState {
	if strings.EqualFold(strings.TrimSpace(raw), string(RunStateActive)) {
		return RunStateActive
	}
	return RunStatePaused
}

func (s RunState) Opposite() RunState {
	if s == RunStateActive {
		return RunStatePaused
	}
	return RunStateActive
}

type AutomationState string

const (
	StateActive         AutomationState = "ACTIVE"
	StatePausedSchedule AutomationState = "PAUSED_SCHEDULE"
	StatePausedStopLoss AutomationState = "PAUSED_STOPLOSS"
	StateFrozenHold     AutomationState = "FROZEN_HOLD"
	StateManualHold     AutomationState = "MANUAL_HOLD"
)

type TransitionCause string

const (
	CauseSchedule TransitionCause = "schedule"
	CauseStopLoss TransitionCause = "stop-loss"
	CauseManual   TransitionCause = "manual"
	CauseFreeze   TransitionCause = "freeze"
)
