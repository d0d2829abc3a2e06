package services

import (
	"errors"
	"testing"

	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
)

func settingsWithSpend(spend float64, budgetMinor int64) entities.AdSetSettings {
	settings := entities.DefaultSettings("as-1", at(3, 0, 0))
	settings.Spend = spend
	settings.DailyBudgetMinor = budgetMinor
	return settings
}

func TestSpendPercentZeroBudget(t *testing.T) {
	if got := SpendPercent(500, 0); got != 0 {
		t.Fatalf("expected 0 for unknown budget, got %v", got)
	}
	if got := SpendPercent(30, 10000); got != 30 {
		t.Fatalf("expected 30%%, got %v", got)
	}
	if StopLossBreached(settingsWithSpend(500, 0)) {
		t.Fatalf("zero budget must never breach")
	}
}

func TestStopLossTieBreaches(t *testing.T) {
	settings := settingsWithSpend(50, 10000)
	if !StopLossBreached(settings) {
		t.Fatalf("expected breach at exactly the threshold")
	}
}

func TestDecideStopLossDuringSession(t *testing.T) {
	decision := Decide(DecisionInput{
		Settings:          settingsWithSpend(60, 10000),
		Observed:          entities.RunStateActive,
		AutomationEnabled: true,
		InSession:         true,
	})
	if decision.Target != entities.StatePausedStopLoss || decision.Desired != entities.RunStatePaused {
		t.Fatalf("unexpected decision %+v", decision)
	}
	if !decision.Apply || !decision.CrossesBoundary {
		t.Fatalf("expected a boundary crossing that applies, got %+v", decision)
	}
	if decision.Percent != 60 {
		t.Fatalf("expected 60%%, got %v", decision.Percent)
	}
}

func TestDecideOutsideSchedule(t *testing.T) {
	decision := Decide(DecisionInput{
		Settings:          settingsWithSpend(10, 10000),
		Observed:          entities.RunStateActive,
		AutomationEnabled: true,
		InSession:         false,
	})
	if decision.Target != entities.StatePausedSchedule || decision.Cause != entities.CauseSchedule {
		t.Fatalf("unexpected decision %+v", decision)
	}
}

func TestDecideAlreadyInTargetDoesNotApply(t *testing.T) {
	decision := Decide(DecisionInput{
		Settings:          settingsWithSpend(10, 10000),
		Observed:          entities.RunStateActive,
		AutomationEnabled: true,
		InSession:         true,
		Prior:             entities.AutomationRecord{State: entities.StateActive, Direction: entities.RunStateActive},
	})
	if decision.Apply || decision.CrossesBoundary {
		t.Fatalf("expected a no-op, got %+v", decision)
	}
}

func TestDecideFrozenKeepsObservedState(t *testing.T) {
	settings := settingsWithSpend(90, 10000)
	settings.IsFrozen = true
	decision := Decide(DecisionInput{
		Settings:          settings,
		Observed:          entities.RunStateActive,
		AutomationEnabled: true,
		InSession:         false,
	})
	if decision.Target != entities.StateFrozenHold || decision.Apply {
		t.Fatalf("frozen ad set must never be moved, got %+v", decision)
	}
	if !decision.EnteredFreeze {
		t.Fatalf("expected first frozen evaluation to be flagged")
	}
}

func TestDecideDisabledIsShadowOnly(t *testing.T) {
	decision := Decide(DecisionInput{
		Settings:          settingsWithSpend(90, 10000),
		Observed:          entities.RunStateActive,
		AutomationEnabled: false,
		InSession:         true,
	})
	if !decision.Shadow || decision.Apply {
		t.Fatalf("expected shadow decision, got %+v", decision)
	}
	if decision.Target != entities.StatePausedStopLoss {
		t.Fatalf("shadow target should still be computed, got %s", decision.Target)
	}
}

func TestDecideManualHoldUntilBoundary(t *testing.T) {
	settings := settingsWithSpend(10, 10000)
	settings.Manual = &entities.ManualOverride{
		Status:           entities.RunStatePaused,
		IssuedAt:         at(3, 10, 0),
		InSessionAtIssue: true,
	}
	prior := entities.AutomationRecord{State: entities.StateActive, Direction: entities.RunStateActive, LastTransitionAt: at(3, 8, 0)}

	held := Decide(DecisionInput{Settings: settings, Observed: entities.RunStatePaused, AutomationEnabled: true, InSession: true, Prior: prior})
	if held.Target != entities.StateManualHold || held.Desired != entities.RunStatePaused || held.Apply {
		t.Fatalf("expected manual hold, got %+v", held)
	}

	crossed := Decide(DecisionInput{Settings: settings, Observed: entities.RunStatePaused, AutomationEnabled: true, InSession: false, Prior: prior})
	if crossed.Target != entities.StatePausedSchedule || !crossed.ClearManual {
		t.Fatalf("expected boundary to consume the manual hold, got %+v", crossed)
	}
}

func TestDecideStopLossBeatsManualRun(t *testing.T) {
	settings := settingsWithSpend(80, 10000)
	settings.Manual = &entities.ManualOverride{
		Status:           entities.RunStateActive,
		IssuedAt:         at(3, 10, 0),
		InSessionAtIssue: true,
	}
	decision := Decide(DecisionInput{
		Settings:          settings,
		Observed:          entities.RunStateActive,
		AutomationEnabled: true,
		InSession:         true,
		Prior:             entities.AutomationRecord{LastTransitionAt: at(3, 8, 0)},
	})
	if decision.Target != entities.StatePausedStopLoss || !decision.ClearManual || !decision.Apply {
		t.Fatalf("expected stop-loss to override manual run, got %+v", decision)
	}
}

func TestDecideIgnoresManualOlderThanLastTransition(t *testing.T) {
	settings := settingsWithSpend(10, 10000)
	settings.Manual = &entities.ManualOverride{Status: entities.RunStatePaused, IssuedAt: at(3, 7, 0), InSessionAtIssue: true}
	decision := Decide(DecisionInput{
		Settings:          settings,
		Observed:          entities.RunStateActive,
		AutomationEnabled: true,
		InSession:         true,
		Prior:             entities.AutomationRecord{State: entities.StateActive, Direction: entities.RunStateActive, LastTransitionAt: at(3, 8, 0)},
	})
	if decision.Target != entities.StateActive {
		t.Fatalf("stale manual override must be ignored, got %+v", decision)
	}
}

func TestParseStopLoss(t *testing.T) {
	accepted := map[string]struct {
		in   any
		want float64
	}{
		"float":          {35.5, 35.5},
		"numeric string": {" 20 ", 20},
		"zero":           {0, 0},
		"capped":         {150.0, 100},
	}
	for name, tc := range accepted {
		got, err := ParseStopLoss(tc.in)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, got)
		}
	}

	for _, in := range []any{-5.0, "abc", "-1", nil, true} {
		_, err := ParseStopLoss(in)
		if !errors.Is(err, domainerrors.ErrValidation) || !errors.Is(err, domainerrors.ErrInvalidStopLoss) {
			t.Fatalf("expected validation error for %#v, got %v", in, err)
		}
	}
}

func TestBuildFieldPatchTurns(t *testing.T) {
	turns := IndexTurns([]entities.TurnConfig{mustTurn(t, "Morning", 8, 14, "Mon-Fri")})

	patch, err := BuildFieldPatch(entities.FieldTurns, "Morning, morning,", turns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patch.Turns) != 1 || patch.Turns[0] != "morning" {
		t.Fatalf("expected deduplicated folded names, got %v", patch.Turns)
	}

	_, err = BuildFieldPatch(entities.FieldTurns, []any{"morning", "night"}, turns)
	if !errors.Is(err, domainerrors.ErrUnknownTurn) {
		t.Fatalf("expected unknown turn, got %v", err)
	}

	_, err = BuildFieldPatch(entities.FieldIsFrozen, "yes please", turns)
	if !errors.Is(err, domainerrors.ErrInvalidFrozen) {
		t.Fatalf("expected invalid frozen, got %v", err)
	}

	_, err = BuildFieldPatch(entities.SettingField("budget"), 1, turns)
	if !errors.Is(err, domainerrors.ErrInvalidField) {
		t.Fatalf("expected invalid field, got %v", err)
	}
}
