package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "adshift/contexts/ad-operations/adset-automation-service/application"
	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
	"adshift/contexts/ad-operations/adset-automation-service/ports"
)

type ScheduleRunStateCommand struct {
	AdSetIDs  []string
	Status    string
	ExecuteAt string
	Actor     string
	Message   string
}

type ScheduleRunStateResult struct {
	Actions []entities.ScheduledAction
	Delay   time.Duration
}

// ScheduleRunStateUseCase stores a one-shot run/pause for a list of ad sets.
// The request is all or nothing: one unknown id rejects every action. Freeze
// is checked when the action runs, not here.
type ScheduleRunStateUseCase struct {
	Settings ports.SettingsRepository
	Actions  ports.ScheduledActionRepository
	Audit    ports.AuditLog
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Location *time.Location
	Logger   *slog.Logger
}

func (u ScheduleRunStateUseCase) Execute(ctx context.Context, cmd ScheduleRunStateCommand) (ScheduleRunStateResult, error) {
	logger := application.ResolveLogger(u.Logger)
	actor := strings.TrimSpace(cmd.Actor)
	if actor == "" {
		return ScheduleRunStateResult{}, domainerrors.NewValidationError("actor", cmd.Actor, domainerrors.ErrActorRequired)
	}
	desired, err := entities.ParseRunState(cmd.Status)
	if err != nil {
		return ScheduleRunStateResult{}, domainerrors.NewValidationError("status", cmd.Status, err)
	}
	executeAt, err := entities.ParseExecuteAt(cmd.ExecuteAt, u.Location)
	if err != nil {
		return ScheduleRunStateResult{}, domainerrors.NewValidationError("execute_at", cmd.ExecuteAt, err)
	}
	now := u.now()
	if !executeAt.After(now) {
		return ScheduleRunStateResult{}, domainerrors.NewValidationError("execute_at", cmd.ExecuteAt, domainerrors.ErrExecuteAtInPast)
	}
	ids := uniqueIDs(cmd.AdSetIDs)
	if len(ids) == 0 {
		return ScheduleRunStateResult{}, domainerrors.NewValidationError("ids", cmd.AdSetIDs, domainerrors.ErrAdSetIDsRequired)
	}

	actions := make([]entities.ScheduledAction, 0, len(ids))
	for _, adSetID := range ids {
		if _, err := u.Settings.GetSettings(ctx, adSetID); err != nil {
			return ScheduleRunStateResult{}, fmt.Errorf("ad set %s: %w", adSetID, err)
		}
		action := entities.ScheduledAction{
			AdSetID:   adSetID,
			Desired:   desired,
			ExecuteAt: executeAt,
			Actor:     actor,
			Message:   strings.TrimSpace(cmd.Message),
			CreatedAt: now,
			State:     entities.ActionPending,
		}
		if u.IDGen != nil {
			id, err := u.IDGen.NewID(ctx)
			if err != nil {
				return ScheduleRunStateResult{}, err
			}
			action.ID = id
		}
		actions = append(actions, action)
	}

	if err := u.Actions.CreateScheduledActions(ctx, actions); err != nil {
		logger.Error("scheduled action create failed",
			"event", "adset_schedule_create_failed",
			"module", "ad-operations/adset-automation-service",
			"layer", "application",
			"actor", actor,
			"error", err.Error(),
		)
		return ScheduleRunStateResult{}, err
	}

	appendAudit(ctx, u.Audit, u.IDGen, entities.AuditLogEntry{
		Actor:     actor,
		Message:   fmt.Sprintf("Scheduled %s for %s at %s", desired, strings.Join(ids, ", "), executeAt.Format(time.RFC3339)),
		Cause:     entities.CauseManual,
		Timestamp: now,
	}, logger)
	for _, action := range actions {
		_ = application.AppendEvent(ctx, u.Outbox, u.IDGen, now, application.EventActionScheduled, action.AdSetID, map[string]any{
			"action_id":  action.ID,
			"adset_id":   action.AdSetID,
			"desired":    string(desired),
			"execute_at": executeAt.Format(time.RFC3339),
			"actor":      actor,
		}, logger)
	}

	logger.Info("run state scheduled",
		"event", "adset_schedule_created",
		"module", "ad-operations/adset-automation-service",
		"layer", "application",
		"actor", actor,
		"desired", string(desired),
		"execute_at", executeAt.Format(time.RFC3339),
		"adset_count", len(actions),
	)
	return ScheduleRunStateResult{Actions: actions, Delay: executeAt.Sub(now)}, nil
}

func (u ScheduleRunStateUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}

func uniqueIDs(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	ids := make([]string, 0, len(raw))
	for _, item := range raw {
		id := strings.TrimSpace(item)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
