package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"adshift/contexts/ad-operations/auditor-session/domain/entities"
	domainerrors "adshift/contexts/ad-operations/auditor-session/domain/errors"
	"adshift/contexts/ad-operations/auditor-session/ports"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

// fakeStore keeps one row per ad set and stamps every field write with a
// strictly increasing server time, like the real store.
type fakeStore struct {
	mu          sync.Mutex
	now         time.Time
	rows        map[string]entities.AdSetView
	frozenView  *entities.Snapshot
	setErr      error
	snapshotErr error
	onSet       func()
	pulled      chan struct{}
	actions     []ports.ScheduledAction
}

func newFakeStore(ids ...string) *fakeStore {
	store := &fakeStore{
		now:  time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		rows: make(map[string]entities.AdSetView),
	}
	for _, id := range ids {
		store.rows[id] = entities.AdSetView{
			AdSetID:           id,
			Name:              "Ad set " + id,
			StopLossPercent:   50,
			RunState:          "ACTIVE",
			StopLossUpdatedAt: store.now,
		}
	}
	return store
}

func (f *fakeStore) Snapshot(ctx context.Context) (entities.Snapshot, error) {
	f.mu.Lock()
	defer func() {
		f.mu.Unlock()
		if f.pulled != nil {
			select {
			case f.pulled <- struct{}{}:
			default:
			}
		}
	}()
	if f.snapshotErr != nil {
		return entities.Snapshot{}, f.snapshotErr
	}
	if f.frozenView != nil {
		return f.frozenView.Clone(), nil
	}
	return f.snapshotLocked(), nil
}

func (f *fakeStore) snapshotLocked() entities.Snapshot {
	ids := make([]string, 0, len(f.rows))
	for id := range f.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := entities.Snapshot{GeneratedAt: f.now, RunStates: map[string]string{}}
	for _, id := range ids {
		out.AdSets = append(out.AdSets, f.rows[id].Clone())
		out.RunStates[id] = f.rows[id].RunState
	}
	return out
}

// freeze makes later pulls return the current state regardless of writes.
func (f *fakeStore) freeze() {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := f.snapshotLocked()
	f.frozenView = &snapshot
}

func (f *fakeStore) SetField(ctx context.Context, actor string, adSetID string, field entities.Field, value any, message string) (ports.FieldAck, error) {
	if f.onSet != nil {
		f.onSet()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return ports.FieldAck{}, f.setErr
	}
	row, ok := f.rows[adSetID]
	if !ok {
		return ports.FieldAck{}, &domainerrors.StoreError{Status: 404, Code: "adset_not_found", Message: "not found"}
	}
	f.now = f.now.Add(time.Second)
	switch field {
	case entities.FieldStopLossPercent:
		percent := value.(float64)
		if percent > 100 {
			percent = 100
		}
		row.StopLossPercent = percent
		row.StopLossUpdatedAt = f.now
	case entities.FieldIsFrozen:
		row.IsFrozen = value.(bool)
		row.FrozenUpdatedAt = f.now
	case entities.FieldTurns:
		row.Turns = append([]string(nil), value.([]string)...)
		row.TurnsUpdatedAt = f.now
	}
	f.rows[adSetID] = row
	return ports.FieldAck{AdSetID: adSetID, Field: field, UpdatedAt: f.now, Settings: row.Clone()}, nil
}

func (f *fakeStore) BulkSetField(ctx context.Context, actor string, adSetIDs []string, all bool, field entities.Field, value any) (ports.BulkResult, error) {
	result := ports.BulkResult{Field: field}
	for _, id := range adSetIDs {
		ack, err := f.SetField(ctx, actor, id, field, value, "")
		if err != nil {
			result.Failed++
			result.Items = append(result.Items, ports.BulkItem{AdSetID: id, Error: err.Error()})
			continue
		}
		result.Succeeded++
		result.Items = append(result.Items, ports.BulkItem{AdSetID: id, Success: true, UpdatedAt: ack.UpdatedAt})
	}
	return result, nil
}

func (f *fakeStore) ToggleAutomation(ctx context.Context, actor string) (bool, error) {
	return true, nil
}

func (f *fakeStore) ToggleRunState(ctx context.Context, actor string, adSetID string, status string, message string) (ports.RunStateAck, error) {
	return ports.RunStateAck{AdSetID: adSetID, Desired: status, Changed: true, Attempts: 1}, nil
}

func (f *fakeStore) BulkToggleRunState(ctx context.Context, actor string, adSetIDs []string, status string, message string) (ports.BulkResult, error) {
	result := ports.BulkResult{Desired: status}
	for _, id := range adSetIDs {
		f.mu.Lock()
		_, ok := f.rows[id]
		f.mu.Unlock()
		if !ok {
			result.Failed++
			result.Items = append(result.Items, ports.BulkItem{AdSetID: id, ErrorCode: "adset_not_found"})
			continue
		}
		result.Succeeded++
		result.Items = append(result.Items, ports.BulkItem{AdSetID: id, Success: true})
	}
	return result, nil
}

func (f *fakeStore) ScheduleRunState(ctx context.Context, actor string, adSetIDs []string, status string, executeAt string, message string) ([]ports.ScheduledAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, err := time.Parse(time.RFC3339, executeAt)
	if err != nil {
		return nil, &domainerrors.StoreError{Status: 422, Code: "validation_failed", Message: err.Error()}
	}
	created := make([]ports.ScheduledAction, 0, len(adSetIDs))
	for _, id := range adSetIDs {
		created = append(created, ports.ScheduledAction{ID: "act-" + id, AdSetID: id, Status: status, ExecuteAt: at, Actor: actor, State: "PENDING"})
	}
	f.actions = append(f.actions, created...)
	return created, nil
}

func (f *fakeStore) ListScheduledActions(ctx context.Context, pendingOnly bool) ([]ports.ScheduledAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.ScheduledAction(nil), f.actions...), nil
}

func (f *fakeStore) UpsertTurn(ctx context.Context, actor string, turn entities.Turn) (entities.Turn, error) {
	return turn, nil
}

func (f *fakeStore) Evaluate(ctx context.Context, actor string) (ports.EvaluateSummary, error) {
	return ports.EvaluateSummary{}, nil
}

func stopLoss(value float64) entities.FieldValue {
	return entities.FieldValue{Field: entities.FieldStopLossPercent, StopLossPercent: value}
}

func mustPull(t *testing.T, session *Session) entities.SessionView {
	t.Helper()
	view, err := session.Pull(context.Background())
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	return view
}

func rowOf(t *testing.T, view entities.SessionView, adSetID string) entities.AdSetView {
	t.Helper()
	row, ok := view.Snapshot.Find(adSetID)
	if !ok {
		t.Fatalf("ad set %s missing from view", adSetID)
	}
	return row
}

func TestSessionWriteIsVisibleBeforeStoreAnswers(t *testing.T) {
	store := newFakeStore("as-1")
	session := &Session{Store: store, Actor: "ana@example.com"}
	mustPull(t, session)

	var during entities.SessionView
	store.onSet = func() { during = session.View() }

	if _, err := session.Write(context.Background(), "as-1", stopLoss(70), ""); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := rowOf(t, during, "as-1").StopLossPercent; got != 70 {
		t.Fatalf("expected optimistic stop-loss 70 while in flight, got %v", got)
	}
	key := entities.OverlayKey{AdSetID: "as-1", Field: entities.FieldStopLossPercent}
	if !during.Pending[key] {
		t.Fatalf("expected overlay pending while the write is in flight")
	}
	after := session.View()
	if pending, ok := after.Pending[key]; !ok || pending {
		t.Fatalf("expected confirmed overlay after ack, got present=%v pending=%v", ok, pending)
	}
}

func TestSessionRollsBackRejectedWrite(t *testing.T) {
	store := newFakeStore("as-1")
	store.setErr = &domainerrors.StoreError{Status: 422, Code: "validation_failed", Message: "stop-loss must be >= 0"}
	var seen []entities.Notice
	session := &Session{Store: store, Actor: "ana@example.com", OnNotice: func(n entities.Notice) { seen = append(seen, n) }}
	mustPull(t, session)

	_, err := session.Write(context.Background(), "as-1", stopLoss(-5), "")
	if !errors.Is(err, domainerrors.ErrWriteRejected) {
		t.Fatalf("expected ErrWriteRejected, got %v", err)
	}
	if !errors.Is(err, domainerrors.ErrStoreRejected) {
		t.Fatalf("expected the store error to stay in the chain, got %v", err)
	}

	view := session.View()
	if got := rowOf(t, view, "as-1").StopLossPercent; got != 50 {
		t.Fatalf("expected rollback to 50, got %v", got)
	}
	if len(view.Pending) != 0 {
		t.Fatalf("expected no overlays after rollback, got %v", view.Pending)
	}
	if len(seen) != 1 || seen[0].Kind != entities.NoticeWriteRejected {
		t.Fatalf("expected one write_rejected notice, got %+v", seen)
	}
	if diff := cmp.Diff(stopLoss(50), seen[0].Server); diff != "" {
		t.Fatalf("rejected notice pre-write value mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionRollbackRestoresEarlierOverlay(t *testing.T) {
	store := newFakeStore("as-1")
	store.freeze()
	session := &Session{Store: store, Actor: "ana@example.com"}
	mustPull(t, session)

	if _, err := session.Write(context.Background(), "as-1", stopLoss(60), ""); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	store.setErr = errors.New("connection reset")
	if _, err := session.Write(context.Background(), "as-1", stopLoss(80), ""); err == nil {
		t.Fatalf("expected second write to fail")
	}
	if got := rowOf(t, session.View(), "as-1").StopLossPercent; got != 60 {
		t.Fatalf("expected the confirmed 60 to survive the failed write, got %v", got)
	}
}

func TestTwoSessionsConvergeOnLastWrite(t *testing.T) {
	store := newFakeStore("as-1")
	sessionA := &Session{Store: store, Actor: "ana@example.com"}
	sessionB := &Session{Store: store, Actor: "beto@example.com"}
	mustPull(t, sessionA)
	mustPull(t, sessionB)

	if _, err := sessionA.Write(context.Background(), "as-1", stopLoss(60), ""); err != nil {
		t.Fatalf("session A write failed: %v", err)
	}
	if _, err := sessionB.Write(context.Background(), "as-1", stopLoss(40), ""); err != nil {
		t.Fatalf("session B write failed: %v", err)
	}

	viewA := mustPull(t, sessionA)
	viewB := mustPull(t, sessionB)
	if got := rowOf(t, viewA, "as-1").StopLossPercent; got != 40 {
		t.Fatalf("session A expected 40 after pull, got %v", got)
	}
	if got := rowOf(t, viewB, "as-1").StopLossPercent; got != 40 {
		t.Fatalf("session B expected 40 after pull, got %v", got)
	}

	noticesA := sessionA.Notices()
	if len(noticesA) != 1 || noticesA[0].Kind != entities.NoticeConflictOverwrite {
		t.Fatalf("expected one conflict notice for session A, got %+v", noticesA)
	}
	if noticesA[0].Local.StopLossPercent != 60 || noticesA[0].Server.StopLossPercent != 40 {
		t.Fatalf("unexpected conflict values: %+v", noticesA[0])
	}
	if noticesB := sessionB.Notices(); len(noticesB) != 0 {
		t.Fatalf("expected no notices for the last writer, got %+v", noticesB)
	}
	if len(viewA.Pending) != 0 || len(viewB.Pending) != 0 {
		t.Fatalf("expected overlays retired, got A=%v B=%v", viewA.Pending, viewB.Pending)
	}
}

func TestConfirmedOverlaySurvivesLaggingPull(t *testing.T) {
	store := newFakeStore("as-1")
	session := &Session{Store: store, Actor: "ana@example.com"}
	mustPull(t, session)
	store.freeze()

	if _, err := session.Write(context.Background(), "as-1", stopLoss(150), ""); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	view := mustPull(t, session)
	if got := rowOf(t, view, "as-1").StopLossPercent; got != 100 {
		t.Fatalf("expected the store-clamped 100 to stay visible over a lagging pull, got %v", got)
	}
	if notices := session.Notices(); len(notices) != 0 {
		t.Fatalf("expected no notices, got %+v", notices)
	}
}

func TestPullFailureKeepsLastSnapshot(t *testing.T) {
	store := newFakeStore("as-1", "as-2")
	session := &Session{Store: store, Actor: "ana@example.com"}
	mustPull(t, session)

	store.snapshotErr = errors.New("dial tcp: connection refused")
	view, err := session.Pull(context.Background())
	var stale *domainerrors.StaleReadError
	if !errors.As(err, &stale) {
		t.Fatalf("expected StaleReadError, got %v", err)
	}
	if !errors.Is(err, domainerrors.ErrStaleRead) {
		t.Fatalf("expected errors.Is ErrStaleRead")
	}
	if stale.Failures != 1 {
		t.Fatalf("expected failure count 1, got %d", stale.Failures)
	}
	if !view.Stale || len(view.Snapshot.AdSets) != 2 {
		t.Fatalf("expected stale view with the previous two ad sets, got stale=%v adsets=%d", view.Stale, len(view.Snapshot.AdSets))
	}

	store.snapshotErr = nil
	if view := mustPull(t, session); view.Stale || view.Failures != 0 {
		t.Fatalf("expected fresh view after recovery, got %+v", view)
	}
}

func TestWriteGuards(t *testing.T) {
	store := newFakeStore("as-1")

	anonymous := &Session{Store: store}
	if _, err := anonymous.Write(context.Background(), "as-1", stopLoss(10), ""); !errors.Is(err, domainerrors.ErrActorRequired) {
		t.Fatalf("expected ErrActorRequired, got %v", err)
	}

	session := &Session{Store: store, Actor: "ana@example.com"}
	if _, err := session.Write(context.Background(), "as-1", stopLoss(10), ""); !errors.Is(err, domainerrors.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot before the first pull, got %v", err)
	}
	mustPull(t, session)
	if _, err := session.Write(context.Background(), "missing", stopLoss(10), ""); !errors.Is(err, domainerrors.ErrUnknownAdSet) {
		t.Fatalf("expected ErrUnknownAdSet, got %v", err)
	}
}

func TestBulkSetRefreshesView(t *testing.T) {
	store := newFakeStore("as-1", "as-2")
	session := &Session{Store: store, Actor: "ana@example.com"}
	mustPull(t, session)

	result, err := session.BulkSet(context.Background(), []string{"as-1", "ghost", "as-2"}, false,
		entities.FieldValue{Field: entities.FieldIsFrozen, IsFrozen: true})
	if err != nil {
		t.Fatalf("bulk set failed: %v", err)
	}
	if result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("expected 2 succeeded and 1 failed, got %+v", result)
	}
	view := session.View()
	for _, id := range []string{"as-1", "as-2"} {
		if !rowOf(t, view, id).IsFrozen {
			t.Fatalf("expected %s frozen after refresh", id)
		}
	}
}

func TestBulkRunStateAndSchedule(t *testing.T) {
	store := newFakeStore("as-1", "as-2")
	anonymous := &Session{Store: store}
	if _, err := anonymous.BulkToggleRunState(context.Background(), []string{"as-1"}, "PAUSED", ""); !errors.Is(err, domainerrors.ErrActorRequired) {
		t.Fatalf("expected ErrActorRequired, got %v", err)
	}
	if _, err := anonymous.ScheduleRunState(context.Background(), []string{"as-1"}, "PAUSED", "2026-03-02T18:00:00Z", ""); !errors.Is(err, domainerrors.ErrActorRequired) {
		t.Fatalf("expected ErrActorRequired, got %v", err)
	}

	session := &Session{Store: store, Actor: "ana@example.com"}
	mustPull(t, session)
	result, err := session.BulkToggleRunState(context.Background(), []string{"as-1", "ghost"}, "PAUSED", "")
	if err != nil {
		t.Fatalf("bulk run state failed: %v", err)
	}
	if result.Desired != "PAUSED" || result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("unexpected bulk result %+v", result)
	}

	created, err := session.ScheduleRunState(context.Background(), []string{"as-1", "as-2"}, "ACTIVE", " 2026-03-02T18:00:00Z ", "")
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	listed, err := session.ScheduledActions(context.Background(), true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if diff := cmp.Diff(created, listed); diff != "" {
		t.Fatalf("listed actions differ (-created +listed):\n%s", diff)
	}
	if listed[0].Actor != "ana@example.com" || listed[0].ExecuteAt.Hour() != 18 {
		t.Fatalf("unexpected action %+v", listed[0])
	}
}

func TestClampInterval(t *testing.T) {
	cases := map[time.Duration]time.Duration{
		0:                DefaultInterval,
		time.Second:      MinInterval,
		time.Minute:      time.Minute,
		time.Hour:        MaxInterval,
		-5 * time.Second: DefaultInterval,
	}
	for input, want := range cases {
		if got := ClampInterval(input); got != want {
			t.Fatalf("ClampInterval(%s) = %s, want %s", input, got, want)
		}
	}
}

func TestRunPullsImmediatelyAndStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newFakeStore("as-1")
	store.pulled = make(chan struct{}, 1)
	session := &Session{Store: store, Actor: "ana@example.com", Interval: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	select {
	case <-store.pulled:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an immediate pull")
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
	if len(session.View().Snapshot.AdSets) != 1 {
		t.Fatalf("expected the pulled ad set in the view")
	}
}
