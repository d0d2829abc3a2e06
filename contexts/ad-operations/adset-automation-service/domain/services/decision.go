package services

import (
	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
)

// SpendPercent converts spend against a budget expressed in minor currency
// units. An unknown or zero budget yields 0 without dividing.
func SpendPercent(spend float64, dailyBudgetMinor int64) float64 {
	if dailyBudgetMinor <= 0 {
		return 0
	}
	budget := float64(dailyBudgetMinor) / 100
	return spend / budget * 100
}

// StopLossBreached is the conservative comparison: ties pause. Ad sets with no
// known budget are never over budget.
func StopLossBreached(settings entities.AdSetSettings) bool {
	if settings.DailyBudgetMinor <= 0 {
		return false
	}
	return SpendPercent(settings.Spend, settings.DailyBudgetMinor) >= settings.StopLossPercent
}

type DecisionInput struct {
	Settings          entities.AdSetSettings
	Observed          entities.RunState
	AutomationEnabled bool
	InSession         bool
	Prior             entities.AutomationRecord
}

type Decision struct {
	Target  entities.AutomationState
	Cause   entities.TransitionCause
	Desired entities.RunState
	Percent float64

	// Shadow marks a decision computed while automation is disabled; it is
	// recorded for diagnostics and never applied.
	Shadow bool
	// CrossesBoundary is set when the effective run direction changes
	// relative to the previous decision.
	CrossesBoundary bool
	// Apply is set when the platform has to be moved to Desired.
	Apply bool
	// ClearManual is set when a pending manual override has been consumed by
	// a shift boundary or a stop-loss breach.
	ClearManual bool
	// EnteredFreeze is set on the first evaluation after a freeze.
	EnteredFreeze bool
}

// Decide evaluates the ordered automation rules for one ad set:
// freeze, kill switch, manual hold, stop-loss, schedule. A stop-loss breach
// overrides a manual hold.
func Decide(in DecisionInput) Decision {
	settings := in.Settings
	decision := Decision{
		Percent: SpendPercent(settings.Spend, settings.DailyBudgetMinor),
	}

	if settings.IsFrozen {
		decision.Target = entities.StateFrozenHold
		decision.Cause = entities.CauseFreeze
		decision.Desired = in.Observed
		decision.EnteredFreeze = in.Prior.State != entities.StateFrozenHold
		return decision
	}

	decision.Target, decision.Cause, decision.Desired, decision.ClearManual = evaluateRules(in)

	if !in.AutomationEnabled {
		decision.Shadow = true
		decision.ClearManual = false
		return decision
	}

	decision.CrossesBoundary = previousDirection(in) != decision.Desired
	decision.Apply = in.Observed != decision.Desired
	return decision
}

func evaluateRules(in DecisionInput) (entities.AutomationState, entities.TransitionCause, entities.RunState, bool) {
	settings := in.Settings
	breached := StopLossBreached(settings)
	clearManual := false

	if manual := settings.Manual; manual != nil && manual.IssuedAt.After(in.Prior.LastTransitionAt) {
		boundaryCrossed := manual.InSessionAtIssue != in.InSession
		switch {
		case breached:
			clearManual = true
		case !boundaryCrossed:
			return entities.StateManualHold, entities.CauseManual, manual.Status, false
		default:
			clearManual = true
		}
	}

	if breached {
		return entities.StatePausedStopLoss, entities.CauseStopLoss, entities.RunStatePaused, clearManual
	}
	if in.InSession {
		return entities.StateActive, entities.CauseSchedule, entities.RunStateActive, clearManual
	}
	return entities.StatePausedSchedule, entities.CauseSchedule, entities.RunStatePaused, clearManual
}

func previousDirection(in DecisionInput) entities.RunState {
	if in.Prior.Direction != "" && in.Prior.State != entities.StateFrozenHold {
		return in.Prior.Direction
	}
	return in.Observed
}
