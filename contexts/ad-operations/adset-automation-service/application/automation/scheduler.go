package automation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	application "adshift/contexts/ad-operations/adset-automation-service/application"
	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	"adshift/contexts/ad-operations/adset-automation-service/domain/services"
	"adshift/contexts/ad-operations/adset-automation-service/ports"

	"golang.org/x/sync/errgroup"
)

const (
	defaultParallelism  = 4
	defaultApplyTimeout = 20 * time.Second
)

// Scheduler is the decision engine. One RunCycle reads platform truth,
// evaluates every ad set independently and hands boundary crossings to the
// status bridge.
type Scheduler struct {
	Settings     ports.SettingsRepository
	Turns        ports.TurnRepository
	Records      ports.AutomationRecordRepository
	Audit        ports.AuditLog
	Flags        ports.AutomationFlagStore
	Platform     ports.PlatformClient
	Bridge       ports.StatusBridge
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	Location     *time.Location
	AllowedIDs   []string
	Parallelism  int
	ApplyTimeout time.Duration
	Logger       *slog.Logger
}

// Outcome is the per-ad-set result of one cycle.
type Outcome struct {
	AdSetID  string
	Decision services.Decision
	Ack      *ports.Ack
	Err      error
}

type CycleReport struct {
	StartedAt         time.Time
	AutomationEnabled bool
	Evaluated         int
	Transitions       int
	Applied           int
	Failed            int
	Outcomes          []Outcome
}

func (s Scheduler) RunCycle(ctx context.Context) (CycleReport, error) {
	logger := application.ResolveLogger(s.Logger)
	now := s.now()
	report := CycleReport{StartedAt: now}

	adSets, err := s.Platform.ListAdSets(ctx)
	if err != nil {
		logger.Warn("automation cycle platform read failed",
			"event", "automation_cycle_platform_read_failed",
			"module", "ad-operations/adset-automation-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return report, err
	}
	adSets = s.filterAllowed(adSets)

	settings, err := s.Settings.ObserveAdSets(ctx, adSets, now)
	if err != nil {
		logger.Error("automation cycle observation write failed",
			"event", "automation_cycle_observe_failed",
			"module", "ad-operations/adset-automation-service",
			"layer", "worker",
			"adset_count", len(adSets),
			"error", err.Error(),
		)
		return report, err
	}

	turns, err := s.Turns.ListTurns(ctx)
	if err != nil {
		return report, err
	}
	flag, err := s.Flags.GetAutomationFlag(ctx)
	if err != nil {
		return report, err
	}
	records, err := s.Records.ListAutomationRecords(ctx)
	if err != nil {
		return report, err
	}
	report.AutomationEnabled = flag.Enabled

	turnIndex := services.IndexTurns(turns)
	recordIndex := make(map[string]entities.AutomationRecord, len(records))
	for _, record := range records {
		recordIndex[record.AdSetID] = record
	}

	outcomes := make([]Outcome, len(settings))
	var group errgroup.Group
	group.SetLimit(s.parallelism())
	for idx := range settings {
		row := settings[idx]
		prior := recordIndex[row.AdSetID]
		group.Go(func() error {
			outcomes[idx] = s.evaluate(ctx, row, prior, turnIndex, flag.Enabled, now)
			return nil
		})
	}
	_ = group.Wait()

	report.Outcomes = outcomes
	report.Evaluated = len(outcomes)
	for _, outcome := range outcomes {
		if outcome.Decision.CrossesBoundary {
			report.Transitions++
		}
		if outcome.Ack != nil {
			report.Applied++
		}
		if outcome.Err != nil {
			report.Failed++
		}
	}

	logger.Info("automation cycle completed",
		"event", "automation_cycle_completed",
		"module", "ad-operations/adset-automation-service",
		"layer", "worker",
		"automation_enabled", flag.Enabled,
		"evaluated", report.Evaluated,
		"transitions", report.Transitions,
		"applied", report.Applied,
		"failed", report.Failed,
	)
	return report, nil
}

func (s Scheduler) evaluate(
	ctx context.Context,
	settings entities.AdSetSettings,
	prior entities.AutomationRecord,
	turns map[string]entities.TurnConfig,
	enabled bool,
	now time.Time,
) Outcome {
	logger := application.ResolveLogger(s.Logger)
	outcome := Outcome{AdSetID: settings.AdSetID}

	inSession := services.AnyInSession(settings.Turns, turns, now, s.Location)
	decision := services.Decide(services.DecisionInput{
		Settings:          settings,
		Observed:          settings.LastKnownStatus,
		AutomationEnabled: enabled,
		InSession:         inSession,
		Prior:             prior,
	})
	outcome.Decision = decision

	record := prior
	record.AdSetID = settings.AdSetID
	record.UpdatedAt = now

	if decision.Shadow {
		record.ShadowTarget = decision.Target
		s.saveRecord(ctx, record)
		return outcome
	}
	record.ShadowTarget = ""

	if decision.ClearManual && settings.Manual != nil {
		if err := s.Settings.ClearManualOverride(ctx, settings.AdSetID, settings.Manual.IssuedAt); err != nil {
			logger.Warn("automation manual override clear failed",
				"event", "automation_manual_clear_failed",
				"module", "ad-operations/adset-automation-service",
				"layer", "worker",
				"adset_id", settings.AdSetID,
				"error", err.Error(),
			)
		}
	}

	previousState := prior.State
	if decision.Target != previousState || decision.Desired != prior.Direction {
		record.State = decision.Target
		record.Cause = decision.Cause
		record.Direction = decision.Desired
		if decision.Target != entities.StateManualHold {
			record.LastTransitionAt = now
		}
	}

	// A manual hold was audited by the operator's toggle when it was issued.
	if (decision.CrossesBoundary && decision.Target != entities.StateManualHold) || decision.EnteredFreeze {
		s.recordTransition(ctx, settings, previousState, decision, now)
	}

	if decision.Target == entities.StateFrozenHold {
		record.Reconciled = true
		record.LastError = ""
		record.Attempts = 0
		s.saveRecord(ctx, record)
		return outcome
	}

	if !decision.Apply {
		record.Reconciled = true
		record.LastError = ""
		record.Attempts = 0
		s.saveRecord(ctx, record)
		return outcome
	}

	applyCtx, cancel := context.WithTimeout(ctx, s.applyTimeout())
	ack, err := s.Bridge.Apply(applyCtx, settings.AdSetID, decision.Desired)
	cancel()
	if err != nil {
		record.Reconciled = false
		record.LastError = err.Error()
		record.Attempts++
		outcome.Err = err
		logger.Warn("automation apply failed",
			"event", "automation_apply_failed",
			"module", "ad-operations/adset-automation-service",
			"layer", "worker",
			"adset_id", settings.AdSetID,
			"desired", string(decision.Desired),
			"target_state", string(decision.Target),
			"attempts", record.Attempts,
			"error", err.Error(),
		)
		s.saveRecord(ctx, record)
		return outcome
	}

	record.Reconciled = true
	record.LastError = ""
	record.Attempts = 0
	outcome.Ack = &ack
	s.saveRecord(ctx, record)
	logger.Info("automation apply succeeded",
		"event", "automation_apply_succeeded",
		"module", "ad-operations/adset-automation-service",
		"layer", "worker",
		"adset_id", settings.AdSetID,
		"desired", string(decision.Desired),
		"target_state", string(decision.Target),
		"changed", ack.Changed,
	)
	return outcome
}

func (s Scheduler) recordTransition(
	ctx context.Context,
	settings entities.AdSetSettings,
	previous entities.AutomationState,
	decision services.Decision,
	now time.Time,
) {
	logger := application.ResolveLogger(s.Logger)
	from := string(previous)
	if from == "" {
		from = "UNTRACKED"
	}
	message := fmt.Sprintf("%s: %s -> %s (%s, spend %.0f%%)",
		displayName(settings), from, decision.Target, decision.Cause, decision.Percent)

	entry := entities.AuditLogEntry{
		Actor:     entities.AutomationActor,
		Message:   message,
		Cause:     decision.Cause,
		AdSetID:   settings.AdSetID,
		Timestamp: now,
	}
	if s.IDGen != nil {
		if id, err := s.IDGen.NewID(ctx); err == nil {
			entry.ID = id
		}
	}
	if err := s.Audit.AppendAudit(ctx, entry); err != nil {
		logger.Error("automation transition audit failed",
			"event", "automation_transition_audit_failed",
			"module", "ad-operations/adset-automation-service",
			"layer", "worker",
			"adset_id", settings.AdSetID,
			"error", err.Error(),
		)
	}

	_ = application.AppendEvent(ctx, s.Outbox, s.IDGen, now, application.EventRunStateChanged, settings.AdSetID, map[string]any{
		"adset_id":     settings.AdSetID,
		"from_state":   from,
		"to_state":     string(decision.Target),
		"desired":      string(decision.Desired),
		"cause":        string(decision.Cause),
		"spend_pct":    decision.Percent,
		"applies_call": decision.Apply,
	}, logger)

	logger.Info("automation transition recorded",
		"event", "automation_transition_recorded",
		"module", "ad-operations/adset-automation-service",
		"layer", "worker",
		"adset_id", settings.AdSetID,
		"from_state", from,
		"to_state", string(decision.Target),
		"cause", string(decision.Cause),
	)
}

func (s Scheduler) saveRecord(ctx context.Context, record entities.AutomationRecord) {
	if err := s.Records.SaveAutomationRecord(ctx, record); err != nil {
		application.ResolveLogger(s.Logger).Error("automation record save failed",
			"event", "automation_record_save_failed",
			"module", "ad-operations/adset-automation-service",
			"layer", "worker",
			"adset_id", record.AdSetID,
			"error", err.Error(),
		)
	}
}

func (s Scheduler) filterAllowed(adSets []entities.PlatformAdSet) []entities.PlatformAdSet {
	if len(s.AllowedIDs) == 0 {
		return adSets
	}
	allowed := make(map[string]struct{}, len(s.AllowedIDs))
	for _, id := range s.AllowedIDs {
		allowed[id] = struct{}{}
	}
	filtered := make([]entities.PlatformAdSet, 0, len(adSets))
	for _, adSet := range adSets {
		if _, ok := allowed[adSet.ID]; ok {
			filtered = append(filtered, adSet)
		}
	}
	return filtered
}

func (s Scheduler) parallelism() int {
	if s.Parallelism <= 0 {
		return defaultParallelism
	}
	return s.Parallelism
}

func (s Scheduler) applyTimeout() time.Duration {
	if s.ApplyTimeout <= 0 {
		return defaultApplyTimeout
	}
	return s.ApplyTimeout
}

func (s Scheduler) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func displayName(settings entities.AdSetSettings) string {
	if settings.Name != "" {
		return settings.Name
	}
	return settings.AdSetID
}

// Runner serialises the cycles of one process. Only the worker process owns a
// Runner in production; the API queues explicit evaluations for it.
type Runner struct {
	Scheduler Scheduler
	mu        sync.Mutex
}

func (r *Runner) RunCycle(ctx context.Context) (CycleReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Scheduler.RunCycle(ctx)
}
