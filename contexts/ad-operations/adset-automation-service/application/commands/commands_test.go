package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"adshift/contexts/ad-operations/adset-automation-service/adapters/memory"
	"adshift/contexts/ad-operations/adset-automation-service/adapters/platform"
	application "adshift/contexts/ad-operations/adset-automation-service/application"
	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
)

type stepClock struct{ at time.Time }

func (c *stepClock) Now() time.Time {
	c.at = c.at.Add(time.Second)
	return c.at
}

type fixture struct {
	store    *memory.Store
	platform *memory.Platform
	clock    *stepClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	days, _ := entities.ParseWeekdays("all")
	morning, err := entities.NewTurnConfig("morning", 8, 17, days)
	if err != nil {
		t.Fatalf("new turn: %v", err)
	}
	store := memory.NewStore([]entities.TurnConfig{morning})
	fake := memory.NewPlatform([]entities.PlatformAdSet{
		{ID: "as-1", Name: "Prospecting", RunState: entities.RunStateActive},
		{ID: "as-2", Name: "Retargeting", RunState: entities.RunStatePaused},
	})
	clock := &stepClock{at: time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)}
	adSets, _ := fake.ListAdSets(context.Background())
	if _, err := store.ObserveAdSets(context.Background(), adSets, clock.at); err != nil {
		t.Fatalf("observe: %v", err)
	}
	return fixture{store: store, platform: fake, clock: clock}
}

func (f fixture) setField() SetFieldUseCase {
	return SetFieldUseCase{Settings: f.store, Turns: f.store, Audit: f.store, Outbox: f.store, Clock: f.clock, IDGen: f.store}
}

func (f fixture) toggleRunState() ToggleRunStateUseCase {
	return ToggleRunStateUseCase{
		Settings: f.store,
		Turns:    f.store,
		Bridge:   &platform.Bridge{Platform: f.platform, MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
		Audit:    f.store,
		Outbox:   f.store,
		Clock:    f.clock,
		IDGen:    f.store,
		Location: time.UTC,
	}
}

func TestSetFieldRejectsInvalidStopLossWithoutWriting(t *testing.T) {
	f := newFixture(t)
	uc := f.setField()
	for _, value := range []any{-5.0, "abc"} {
		_, err := uc.Execute(context.Background(), SetFieldCommand{AdSetID: "as-1", Field: "stopLossPercent", Value: value, Actor: "ops"})
		if !errors.Is(err, domainerrors.ErrInvalidStopLoss) {
			t.Fatalf("expected invalid stop-loss for %v, got %v", value, err)
		}
	}
	row, _ := f.store.GetSettings(context.Background(), "as-1")
	if row.StopLossPercent != entities.DefaultStopLossPercent || !row.StopLossUpdatedAt.IsZero() {
		t.Fatalf("rejected writes must leave the row untouched, got %+v", row)
	}
}

func TestSetFieldStampsOnlyItsField(t *testing.T) {
	f := newFixture(t)
	result, err := f.setField().Execute(context.Background(), SetFieldCommand{
		AdSetID: "as-1", Field: "turno", Value: "Morning", Actor: "ops", Message: "assign morning",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Field != entities.FieldTurns || len(result.Settings.Turns) != 1 || result.Settings.Turns[0] != "morning" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.UpdatedAt.IsZero() || !result.Settings.StopLossUpdatedAt.IsZero() {
		t.Fatalf("expected only the turns timestamp to move, got %+v", result.Settings)
	}
	logs, _ := f.store.ListRecentAudit(context.Background(), 1)
	if len(logs) != 1 || logs[0].Message != "assign morning" || logs[0].Actor != "ops" {
		t.Fatalf("expected operator message in audit log, got %+v", logs)
	}
}

func TestSetFieldRequiresActorAndKnownAdSet(t *testing.T) {
	f := newFixture(t)
	uc := f.setField()
	if _, err := uc.Execute(context.Background(), SetFieldCommand{AdSetID: "as-1", Field: "isFrozen", Value: true}); !errors.Is(err, domainerrors.ErrActorRequired) {
		t.Fatalf("expected actor required, got %v", err)
	}
	if _, err := uc.Execute(context.Background(), SetFieldCommand{AdSetID: "as-404", Field: "isFrozen", Value: true, Actor: "ops"}); !errors.Is(err, domainerrors.ErrAdSetNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBulkSetFieldContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	uc := BulkSetFieldUseCase{Settings: f.store, Turns: f.store, Audit: f.store, Outbox: f.store, Clock: f.clock, IDGen: f.store}

	result, err := uc.Execute(context.Background(), BulkSetFieldCommand{
		AdSetIDs: []string{"as-1", "as-404", "as-2"},
		Field:    "isFrozen",
		Value:    true,
		Actor:    "ops",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("unexpected counts %+v", result)
	}
	if !errors.Is(result.Outcomes[1].Err, domainerrors.ErrAdSetNotFound) {
		t.Fatalf("expected as-404 to fail with not found, got %v", result.Outcomes[1].Err)
	}
	for _, id := range []string{"as-1", "as-2"} {
		row, _ := f.store.GetSettings(context.Background(), id)
		if !row.IsFrozen {
			t.Fatalf("%s should be frozen", id)
		}
	}

	all, err := uc.Execute(context.Background(), BulkSetFieldCommand{All: true, Field: "isFrozen", Value: "false", Actor: "ops"})
	if err != nil || all.Succeeded != 2 {
		t.Fatalf("expected --all to reach every known ad set, got %+v err=%v", all, err)
	}
}

func TestToggleRunStateRecordsManualOverride(t *testing.T) {
	f := newFixture(t)
	result, err := f.toggleRunState().Execute(context.Background(), ToggleRunStateCommand{AdSetID: "as-1", Actor: "ops"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Desired != entities.RunStatePaused || !result.Ack.Changed {
		t.Fatalf("expected flip to PAUSED, got %+v", result)
	}
	if f.platform.RunState("as-1") != entities.RunStatePaused {
		t.Fatalf("platform should be paused")
	}
	row, _ := f.store.GetSettings(context.Background(), "as-1")
	if row.Manual == nil || row.Manual.Actor != "ops" || !row.Manual.InSessionAtIssue {
		t.Fatalf("expected manual override with session flag, got %+v", row.Manual)
	}
}

func TestToggleRunStateRejectsFrozenAdSet(t *testing.T) {
	f := newFixture(t)
	patch := entities.FieldPatch{Field: entities.FieldIsFrozen, IsFrozen: true}
	if _, err := f.store.UpdateSettingField(context.Background(), "as-2", patch, f.clock.Now()); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	_, err := f.toggleRunState().Execute(context.Background(), ToggleRunStateCommand{AdSetID: "as-2", Status: "ACTIVE", Actor: "ops"})
	if !errors.Is(err, domainerrors.ErrAdSetFrozen) {
		t.Fatalf("expected frozen rejection, got %v", err)
	}
	if len(f.platform.Calls()) != 0 {
		t.Fatalf("frozen ad set must not reach the platform")
	}
}

func TestToggleRunStateKeepsOverrideWhenPlatformFails(t *testing.T) {
	f := newFixture(t)
	f.platform.FailNext("as-2", domainerrors.ErrTransientBridge, domainerrors.ErrTransientBridge)

	_, err := f.toggleRunState().Execute(context.Background(), ToggleRunStateCommand{AdSetID: "as-2", Status: "active", Actor: "ops"})
	if !errors.Is(err, domainerrors.ErrTransientBridge) {
		t.Fatalf("expected transient bridge error, got %v", err)
	}
	row, _ := f.store.GetSettings(context.Background(), "as-2")
	if row.Manual == nil || row.Manual.Status != entities.RunStateActive {
		t.Fatalf("override should persist for the next cycle, got %+v", row.Manual)
	}
}

func TestUpsertTurnValidatesAndAudits(t *testing.T) {
	f := newFixture(t)
	uc := UpsertTurnUseCase{Turns: f.store, Audit: f.store, Outbox: f.store, Clock: f.clock, IDGen: f.store}

	turn, err := uc.Execute(context.Background(), UpsertTurnCommand{Name: "Night", Start: 22, End: 6, Days: "L-V", Actor: "ops"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.Name != "night" || !turn.WrapsMidnight() {
		t.Fatalf("unexpected turn %+v", turn)
	}
	if _, err := uc.Execute(context.Background(), UpsertTurnCommand{Name: "bad", Start: 8.25, End: 12, Days: "Mon", Actor: "ops"}); !errors.Is(err, domainerrors.ErrInvalidTurn) {
		t.Fatalf("expected invalid turn, got %v", err)
	}
	logs, _ := f.store.ListRecentAudit(context.Background(), 5)
	if len(logs) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(logs))
	}
}

func TestToggleAutomationFlips(t *testing.T) {
	f := newFixture(t)
	uc := ToggleAutomationUseCase{Flags: f.store, Audit: f.store, Outbox: f.store, Clock: f.clock, IDGen: f.store}
	first, err := uc.Execute(context.Background(), "ops")
	if err != nil || !first.Enabled {
		t.Fatalf("expected enabled, got %+v err=%v", first, err)
	}
	second, _ := uc.Execute(context.Background(), "ops")
	if second.Enabled {
		t.Fatalf("expected disabled after second toggle")
	}
	if _, err := uc.Execute(context.Background(), " "); !errors.Is(err, domainerrors.ErrActorRequired) {
		t.Fatalf("expected actor required, got %v", err)
	}
}

func TestBulkToggleRunStateReportsEachID(t *testing.T) {
	f := newFixture(t)
	patch := entities.FieldPatch{Field: entities.FieldIsFrozen, IsFrozen: true}
	if _, err := f.store.UpdateSettingField(context.Background(), "as-2", patch, f.clock.Now()); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	uc := BulkToggleRunStateUseCase{Toggle: f.toggleRunState()}

	result, err := uc.Execute(context.Background(), BulkToggleRunStateCommand{
		AdSetIDs: []string{"as-1", "as-2", "missing"},
		Status:   "paused",
		Actor:    "ops",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Desired != entities.RunStatePaused || result.Succeeded != 1 || result.Failed != 2 {
		t.Fatalf("unexpected counts %+v", result)
	}
	if result.Outcomes[0].Err != nil || result.Outcomes[0].UpdatedAt.IsZero() {
		t.Fatalf("as-1 should succeed with a timestamp, got %+v", result.Outcomes[0])
	}
	if !errors.Is(result.Outcomes[1].Err, domainerrors.ErrAdSetFrozen) {
		t.Fatalf("as-2 should be rejected as frozen, got %v", result.Outcomes[1].Err)
	}
	if !errors.Is(result.Outcomes[2].Err, domainerrors.ErrAdSetNotFound) {
		t.Fatalf("unknown id should report not found, got %v", result.Outcomes[2].Err)
	}
	if f.platform.RunState("as-1") != entities.RunStatePaused {
		t.Fatalf("platform should be paused for as-1")
	}
	for _, call := range f.platform.Calls() {
		if call.AdSetID != "as-1" {
			t.Fatalf("only as-1 may reach the platform, got %+v", call)
		}
	}
}

func TestBulkToggleRunStateRequiresStatusAndIDs(t *testing.T) {
	f := newFixture(t)
	uc := BulkToggleRunStateUseCase{Toggle: f.toggleRunState()}
	if _, err := uc.Execute(context.Background(), BulkToggleRunStateCommand{AdSetIDs: []string{"as-1"}, Actor: "ops"}); !errors.Is(err, domainerrors.ErrInvalidRunState) {
		t.Fatalf("expected invalid run state, got %v", err)
	}
	if _, err := uc.Execute(context.Background(), BulkToggleRunStateCommand{Status: "ACTIVE", Actor: "ops"}); !errors.Is(err, domainerrors.ErrAdSetIDsRequired) {
		t.Fatalf("expected ids required, got %v", err)
	}
	if len(f.platform.Calls()) != 0 {
		t.Fatalf("rejected requests must not reach the platform")
	}
}

func (f fixture) scheduleRunState() ScheduleRunStateUseCase {
	return ScheduleRunStateUseCase{
		Settings: f.store,
		Actions:  f.store,
		Audit:    f.store,
		Outbox:   f.store,
		Clock:    f.clock,
		IDGen:    f.store,
		Location: time.UTC,
	}
}

func TestScheduleRunStateStoresPendingActions(t *testing.T) {
	f := newFixture(t)
	result, err := f.scheduleRunState().Execute(context.Background(), ScheduleRunStateCommand{
		AdSetIDs:  []string{"as-1", " as-2 ", "as-1"},
		Status:    "PAUSED",
		ExecuteAt: "2024-06-03T12:00",
		Actor:     "ops",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Actions) != 2 || result.Delay <= 0 || result.Delay > 2*time.Hour {
		t.Fatalf("unexpected result %+v", result)
	}
	stored, _ := f.store.ListScheduledActions(context.Background(), true)
	if len(stored) != 2 {
		t.Fatalf("expected two pending actions, got %+v", stored)
	}
	for _, action := range stored {
		if action.State != entities.ActionPending || action.Desired != entities.RunStatePaused || action.Actor != "ops" {
			t.Fatalf("unexpected action %+v", action)
		}
		if !action.ExecuteAt.Equal(time.Date(2024, time.June, 3, 12, 0, 0, 0, time.UTC)) {
			t.Fatalf("unexpected execute_at %s", action.ExecuteAt)
		}
	}
	if len(f.platform.Calls()) != 0 {
		t.Fatalf("scheduling must not touch the platform")
	}
	pending, _ := f.store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 2 || pending[0].EventType != application.EventActionScheduled {
		t.Fatalf("expected one scheduled event per action, got %+v", pending)
	}
	logs, _ := f.store.ListRecentAudit(context.Background(), 5)
	if len(logs) != 1 || logs[0].Cause != entities.CauseManual {
		t.Fatalf("expected one manual audit entry, got %+v", logs)
	}
}

func TestScheduleRunStateRejectsBadRequestsWithoutWriting(t *testing.T) {
	f := newFixture(t)
	uc := f.scheduleRunState()
	cases := []struct {
		name string
		cmd  ScheduleRunStateCommand
		want error
	}{
		{"past", ScheduleRunStateCommand{AdSetIDs: []string{"as-1"}, Status: "ACTIVE", ExecuteAt: "2024-06-03T09:00", Actor: "ops"}, domainerrors.ErrExecuteAtInPast},
		{"garbage time", ScheduleRunStateCommand{AdSetIDs: []string{"as-1"}, Status: "ACTIVE", ExecuteAt: "tomorrow", Actor: "ops"}, domainerrors.ErrInvalidExecuteAt},
		{"bad status", ScheduleRunStateCommand{AdSetIDs: []string{"as-1"}, Status: "STOPPED", ExecuteAt: "2024-06-03T12:00", Actor: "ops"}, domainerrors.ErrInvalidRunState},
		{"unknown id", ScheduleRunStateCommand{AdSetIDs: []string{"as-1", "missing"}, Status: "ACTIVE", ExecuteAt: "2024-06-03T12:00", Actor: "ops"}, domainerrors.ErrAdSetNotFound},
		{"no ids", ScheduleRunStateCommand{Status: "ACTIVE", ExecuteAt: "2024-06-03T12:00", Actor: "ops"}, domainerrors.ErrAdSetIDsRequired},
		{"no actor", ScheduleRunStateCommand{AdSetIDs: []string{"as-1"}, Status: "ACTIVE", ExecuteAt: "2024-06-03T12:00"}, domainerrors.ErrActorRequired},
	}
	for _, tc := range cases {
		if _, err := uc.Execute(context.Background(), tc.cmd); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if stored, _ := f.store.ListScheduledActions(context.Background(), false); len(stored) != 0 {
		t.Fatalf("rejected requests must not store actions, got %+v", stored)
	}
}

func TestRequestEvaluationQueuesEvent(t *testing.T) {
	f := newFixture(t)
	uc := RequestEvaluationUseCase{Outbox: f.store, Clock: f.clock, IDGen: f.store}
	if _, err := uc.Execute(context.Background(), ""); !errors.Is(err, domainerrors.ErrActorRequired) {
		t.Fatalf("expected actor required, got %v", err)
	}
	queuedAt, err := uc.Execute(context.Background(), "ops")
	if err != nil || queuedAt.IsZero() {
		t.Fatalf("unexpected result %s err=%v", queuedAt, err)
	}
	pending, _ := f.store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 1 || pending[0].EventType != application.EventEvaluationRequested {
		t.Fatalf("expected one evaluation request, got %+v", pending)
	}
}
