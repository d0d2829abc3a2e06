package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"adshift/contexts/ad-operations/auditor-session/domain/entities"
	domainerrors "adshift/contexts/ad-operations/auditor-session/domain/errors"
	"adshift/contexts/ad-operations/auditor-session/ports"
)

const (
	DefaultPullTimeout  = 15 * time.Second
	DefaultWriteTimeout = 30 * time.Second
)

// Session is one operator's view of the settings store. Reads are served
// from the last pulled snapshot with local overlays on top; writes go to the
// store and are shown optimistically until a pull confirms or replaces them.
type Session struct {
	Store        ports.StoreAPI
	Clock        ports.Clock
	Actor        string
	Interval     time.Duration
	PullTimeout  time.Duration
	WriteTimeout time.Duration
	OnNotice     func(entities.Notice)
	Logger       *slog.Logger

	mu       sync.Mutex
	base     entities.Snapshot
	hasBase  bool
	lastPull time.Time
	failures int
	overlays map[entities.OverlayKey]*entities.Overlay
	notices  []entities.Notice
}

// Pull replaces the base snapshot and retires overlays the store has caught
// up with. On failure the previous snapshot stays in place and a
// StaleReadError is returned.
func (s *Session) Pull(ctx context.Context) (entities.SessionView, error) {
	logger := ResolveLogger(s.Logger)
	pullCtx, cancel := context.WithTimeout(ctx, durationOr(s.PullTimeout, DefaultPullTimeout))
	defer cancel()

	snapshot, err := s.Store.Snapshot(pullCtx)
	if err != nil {
		s.mu.Lock()
		s.failures++
		staleErr := &domainerrors.StaleReadError{LastSuccess: s.lastPull, Failures: s.failures, Err: err}
		var emitted []entities.Notice
		if s.failures == 1 {
			emitted = s.noticeLocked(entities.Notice{
				Kind:    entities.NoticeStaleRead,
				Message: staleErr.Error(),
				At:      s.now(),
			})
		}
		view := s.viewLocked()
		s.mu.Unlock()
		s.dispatch(emitted)

		logger.Warn("snapshot pull failed",
			"event", "auditor_snapshot_pull_failed",
			"module", "ad-operations/auditor-session",
			"layer", "application",
			"failures", staleErr.Failures,
			"error", err.Error(),
		)
		return view, staleErr
	}

	s.mu.Lock()
	s.base = snapshot.Clone()
	s.hasBase = true
	s.lastPull = s.now()
	s.failures = 0
	emitted := s.reconcileLocked()
	view := s.viewLocked()
	s.mu.Unlock()
	s.dispatch(emitted)

	logger.Debug("snapshot pulled",
		"event", "auditor_snapshot_pulled",
		"module", "ad-operations/auditor-session",
		"layer", "application",
		"adsets", len(snapshot.AdSets),
		"overlays", len(view.Pending),
	)
	return view, nil
}

// Write sets one settings field. The overlay is visible in View before the
// store answers; a rejected write is rolled back to the pre-write value.
func (s *Session) Write(ctx context.Context, adSetID string, value entities.FieldValue, message string) (ports.FieldAck, error) {
	logger := ResolveLogger(s.Logger)
	actor, err := s.actor()
	if err != nil {
		return ports.FieldAck{}, err
	}
	adSetID = strings.TrimSpace(adSetID)
	key := entities.OverlayKey{AdSetID: adSetID, Field: value.Field}

	s.mu.Lock()
	if !s.hasBase {
		s.mu.Unlock()
		return ports.FieldAck{}, domainerrors.ErrNoSnapshot
	}
	row, ok := s.base.Find(adSetID)
	if !ok {
		s.mu.Unlock()
		return ports.FieldAck{}, domainerrors.ErrUnknownAdSet
	}
	if s.overlays == nil {
		s.overlays = make(map[entities.OverlayKey]*entities.Overlay)
	}
	previous := s.overlays[key]
	preWrite := row.Value(value.Field)
	if previous != nil {
		preWrite = previous.Value
	}
	overlay := &entities.Overlay{
		Key:      key,
		Value:    value,
		PreWrite: preWrite,
		Previous: previous,
		LocalAt:  s.now(),
	}
	s.overlays[key] = overlay
	s.mu.Unlock()

	writeCtx, cancel := context.WithTimeout(ctx, durationOr(s.WriteTimeout, DefaultWriteTimeout))
	defer cancel()
	ack, err := s.Store.SetField(writeCtx, actor, adSetID, value.Field, value.Wire(), message)
	if err != nil {
		s.mu.Lock()
		s.rollbackLocked(overlay)
		emitted := s.noticeLocked(entities.Notice{
			Kind:    entities.NoticeWriteRejected,
			AdSetID: adSetID,
			Field:   value.Field,
			Local:   value,
			Server:  preWrite,
			Message: err.Error(),
			At:      s.now(),
		})
		s.mu.Unlock()
		s.dispatch(emitted)

		logger.Warn("settings write rejected",
			"event", "auditor_write_rejected",
			"module", "ad-operations/auditor-session",
			"layer", "application",
			"adset_id", adSetID,
			"field", string(value.Field),
			"error", err.Error(),
		)
		return ports.FieldAck{}, fmt.Errorf("%w: %w", domainerrors.ErrWriteRejected, err)
	}

	s.mu.Lock()
	if s.overlays[key] == overlay {
		overlay.ConfirmedAt = ack.UpdatedAt
		if ack.Settings.AdSetID != "" {
			overlay.Value = ack.Settings.Value(value.Field)
		}
		overlay.Previous = nil
	}
	s.mu.Unlock()

	logger.Info("settings write confirmed",
		"event", "auditor_write_confirmed",
		"module", "ad-operations/auditor-session",
		"layer", "application",
		"adset_id", adSetID,
		"field", string(value.Field),
		"updated_at", ack.UpdatedAt,
	)
	return ack, nil
}

// BulkSet writes one field across many ad sets (or all of them) and pulls
// so the view reflects every per-id outcome.
func (s *Session) BulkSet(ctx context.Context, adSetIDs []string, all bool, value entities.FieldValue) (ports.BulkResult, error) {
	actor, err := s.actor()
	if err != nil {
		return ports.BulkResult{}, err
	}
	writeCtx, cancel := context.WithTimeout(ctx, durationOr(s.WriteTimeout, DefaultWriteTimeout))
	defer cancel()
	result, err := s.Store.BulkSetField(writeCtx, actor, adSetIDs, all, value.Field, value.Wire())
	if err != nil {
		return ports.BulkResult{}, err
	}
	s.refresh(ctx, "bulk_set")
	return result, nil
}

func (s *Session) ToggleAutomation(ctx context.Context) (bool, error) {
	actor, err := s.actor()
	if err != nil {
		return false, err
	}
	writeCtx, cancel := context.WithTimeout(ctx, durationOr(s.WriteTimeout, DefaultWriteTimeout))
	defer cancel()
	enabled, err := s.Store.ToggleAutomation(writeCtx, actor)
	if err != nil {
		return false, err
	}
	s.refresh(ctx, "toggle_automation")
	return enabled, nil
}

// ToggleRunState flips an ad set when status is empty, or forces it.
func (s *Session) ToggleRunState(ctx context.Context, adSetID string, status string, message string) (ports.RunStateAck, error) {
	actor, err := s.actor()
	if err != nil {
		return ports.RunStateAck{}, err
	}
	writeCtx, cancel := context.WithTimeout(ctx, durationOr(s.WriteTimeout, DefaultWriteTimeout))
	defer cancel()
	ack, err := s.Store.ToggleRunState(writeCtx, actor, strings.TrimSpace(adSetID), status, message)
	// The store records the hold before calling the platform, so the view
	// changes even when the platform call failed.
	s.refresh(ctx, "toggle_run_state")
	return ack, err
}

// BulkToggleRunState forces one status on many ad sets. Every successful id
// becomes a manual hold, so the view is refreshed even on partial failure.
func (s *Session) BulkToggleRunState(ctx context.Context, adSetIDs []string, status string, message string) (ports.BulkResult, error) {
	actor, err := s.actor()
	if err != nil {
		return ports.BulkResult{}, err
	}
	writeCtx, cancel := context.WithTimeout(ctx, durationOr(s.WriteTimeout, DefaultWriteTimeout))
	defer cancel()
	result, err := s.Store.BulkToggleRunState(writeCtx, actor, adSetIDs, status, message)
	if err != nil {
		return ports.BulkResult{}, err
	}
	s.refresh(ctx, "bulk_run_state")
	return result, nil
}

// ScheduleRunState queues a one-shot run or pause. executeAt is passed as
// typed by the operator; the store interprets zone-less times.
func (s *Session) ScheduleRunState(ctx context.Context, adSetIDs []string, status string, executeAt string, message string) ([]ports.ScheduledAction, error) {
	actor, err := s.actor()
	if err != nil {
		return nil, err
	}
	writeCtx, cancel := context.WithTimeout(ctx, durationOr(s.WriteTimeout, DefaultWriteTimeout))
	defer cancel()
	return s.Store.ScheduleRunState(writeCtx, actor, adSetIDs, status, strings.TrimSpace(executeAt), message)
}

func (s *Session) ScheduledActions(ctx context.Context, pendingOnly bool) ([]ports.ScheduledAction, error) {
	readCtx, cancel := context.WithTimeout(ctx, durationOr(s.WriteTimeout, DefaultWriteTimeout))
	defer cancel()
	return s.Store.ListScheduledActions(readCtx, pendingOnly)
}

func (s *Session) UpsertTurn(ctx context.Context, turn entities.Turn) (entities.Turn, error) {
	actor, err := s.actor()
	if err != nil {
		return entities.Turn{}, err
	}
	writeCtx, cancel := context.WithTimeout(ctx, durationOr(s.WriteTimeout, DefaultWriteTimeout))
	defer cancel()
	saved, err := s.Store.UpsertTurn(writeCtx, actor, turn)
	if err != nil {
		return entities.Turn{}, err
	}
	s.refresh(ctx, "upsert_turn")
	return saved, nil
}

func (s *Session) Evaluate(ctx context.Context) (ports.EvaluateSummary, error) {
	actor, err := s.actor()
	if err != nil {
		return ports.EvaluateSummary{}, err
	}
	writeCtx, cancel := context.WithTimeout(ctx, durationOr(s.WriteTimeout, DefaultWriteTimeout))
	defer cancel()
	summary, err := s.Store.Evaluate(writeCtx, actor)
	if err != nil {
		return ports.EvaluateSummary{}, err
	}
	s.refresh(ctx, "evaluate")
	return summary, nil
}

// View returns the merged snapshot. It never blocks on the network.
func (s *Session) View() entities.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Notices drains the notices gathered since the last call.
func (s *Session) Notices() []entities.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notices
	s.notices = nil
	return out
}

func (s *Session) refresh(ctx context.Context, cause string) {
	if _, err := s.Pull(ctx); err != nil && !errors.Is(err, context.Canceled) {
		ResolveLogger(s.Logger).Debug("refresh after write failed",
			"event", "auditor_refresh_failed",
			"module", "ad-operations/auditor-session",
			"layer", "application",
			"cause", cause,
			"error", err.Error(),
		)
	}
}

func (s *Session) reconcileLocked() []entities.Notice {
	var emitted []entities.Notice
	for key, overlay := range s.overlays {
		row, ok := s.base.Find(key.AdSetID)
		if !ok || !overlay.SupersededBy(row) {
			continue
		}
		delete(s.overlays, key)
		server := row.Value(key.Field)
		if server.Equal(overlay.Value) {
			continue
		}
		emitted = append(emitted, s.noticeLocked(entities.Notice{
			Kind:    entities.NoticeConflictOverwrite,
			AdSetID: key.AdSetID,
			Field:   key.Field,
			Local:   overlay.Value,
			Server:  server,
			Message: fmt.Sprintf("%s on %s changed to %s by a later write", key.Field, key.AdSetID, server.String()),
			At:      s.now(),
		})...)
	}
	return emitted
}

// rollbackLocked removes a failed overlay. A write issued on the same key
// while this one was in flight keeps its place.
func (s *Session) rollbackLocked(failed *entities.Overlay) {
	current, ok := s.overlays[failed.Key]
	if !ok {
		return
	}
	if current == failed {
		if failed.Previous != nil {
			s.overlays[failed.Key] = failed.Previous
		} else {
			delete(s.overlays, failed.Key)
		}
		return
	}
	for node := current; node != nil; node = node.Previous {
		if node.Previous == failed {
			node.Previous = failed.Previous
			node.PreWrite = failed.PreWrite
			return
		}
	}
}

func (s *Session) viewLocked() entities.SessionView {
	view := entities.SessionView{
		Snapshot:   s.base.Clone(),
		Pending:    make(map[entities.OverlayKey]bool, len(s.overlays)),
		LastPullAt: s.lastPull,
		Stale:      s.failures > 0,
		Failures:   s.failures,
	}
	for idx, row := range view.Snapshot.AdSets {
		for _, field := range []entities.Field{entities.FieldTurns, entities.FieldStopLossPercent, entities.FieldIsFrozen} {
			overlay, ok := s.overlays[entities.OverlayKey{AdSetID: row.AdSetID, Field: field}]
			if !ok {
				continue
			}
			row = row.With(overlay.Value)
			view.Pending[overlay.Key] = !overlay.Confirmed()
		}
		view.Snapshot.AdSets[idx] = row
	}
	return view
}

func (s *Session) noticeLocked(notice entities.Notice) []entities.Notice {
	s.notices = append(s.notices, notice)
	return []entities.Notice{notice}
}

func (s *Session) dispatch(notices []entities.Notice) {
	if s.OnNotice == nil {
		return
	}
	for _, notice := range notices {
		s.OnNotice(notice)
	}
}

func (s *Session) actor() (string, error) {
	actor := strings.TrimSpace(s.Actor)
	if actor == "" {
		return "", domainerrors.ErrActorRequired
	}
	return actor, nil
}

func (s *Session) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func durationOr(value time.Duration, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}
