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
	"adshift/contexts/ad-operations/adset-automation-service/domain/services"
	"adshift/contexts/ad-operations/adset-automation-service/ports"
)

type ToggleRunStateCommand struct {
	AdSetID string
	// Status is optional; empty flips the last known platform state.
	Status  string
	Actor   string
	Message string
}

type ToggleRunStateResult struct {
	Settings entities.AdSetSettings
	Desired  entities.RunState
	Ack      ports.Ack
}

// ToggleRunStateUseCase records an operator run/pause as a manual override and
// pushes it through the status bridge. The override is persisted before the
// platform call, so a failed call is retried by the next automation cycle.
type ToggleRunStateUseCase struct {
	Settings ports.SettingsRepository
	Turns    ports.TurnRepository
	Bridge   ports.StatusBridge
	Audit    ports.AuditLog
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Location *time.Location
	Logger   *slog.Logger
}

func (u ToggleRunStateUseCase) Execute(ctx context.Context, cmd ToggleRunStateCommand) (ToggleRunStateResult, error) {
	logger := application.ResolveLogger(u.Logger)
	adSetID := strings.TrimSpace(cmd.AdSetID)
	actor := strings.TrimSpace(cmd.Actor)
	if actor == "" {
		return ToggleRunStateResult{}, domainerrors.NewValidationError("actor", cmd.Actor, domainerrors.ErrActorRequired)
	}
	if adSetID == "" {
		return ToggleRunStateResult{}, domainerrors.NewValidationError("adset_id", cmd.AdSetID, domainerrors.ErrAdSetIDRequired)
	}

	current, err := u.Settings.GetSettings(ctx, adSetID)
	if err != nil {
		return ToggleRunStateResult{}, err
	}
	if current.IsFrozen {
		logger.Warn("manual toggle rejected for frozen ad set",
			"event", "adset_manual_toggle_frozen",
			"module", "ad-operations/adset-automation-service",
			"layer", "application",
			"adset_id", adSetID,
			"actor", actor,
		)
		return ToggleRunStateResult{}, domainerrors.ErrAdSetFrozen
	}

	desired := current.LastKnownStatus.Opposite()
	if status := strings.TrimSpace(cmd.Status); status != "" {
		desired, err = entities.ParseRunState(status)
		if err != nil {
			return ToggleRunStateResult{}, domainerrors.NewValidationError("status", cmd.Status, err)
		}
	}

	turns, err := u.Turns.ListTurns(ctx)
	if err != nil {
		return ToggleRunStateResult{}, err
	}
	now := u.now()
	override := entities.ManualOverride{
		Status:           desired,
		Actor:            actor,
		IssuedAt:         now,
		InSessionAtIssue: services.AnyInSession(current.Turns, services.IndexTurns(turns), now, u.Location),
	}
	updated, err := u.Settings.SetManualOverride(ctx, adSetID, override)
	if err != nil {
		return ToggleRunStateResult{}, err
	}

	message := strings.TrimSpace(cmd.Message)
	if message == "" {
		message = fmt.Sprintf("%s set to %s manually", displayName(updated), desired)
	}
	appendAudit(ctx, u.Audit, u.IDGen, entities.AuditLogEntry{
		Actor:     actor,
		Message:   message,
		Cause:     entities.CauseManual,
		AdSetID:   adSetID,
		Timestamp: now,
	}, logger)
	_ = application.AppendEvent(ctx, u.Outbox, u.IDGen, now, application.EventRunStateChanged, adSetID, map[string]any{
		"adset_id": adSetID,
		"desired":  string(desired),
		"cause":    string(entities.CauseManual),
		"actor":    actor,
	}, logger)

	result := ToggleRunStateResult{Settings: updated, Desired: desired}
	ack, err := u.Bridge.Apply(ctx, adSetID, desired)
	if err != nil {
		logger.Warn("manual toggle platform call failed",
			"event", "adset_manual_toggle_bridge_failed",
			"module", "ad-operations/adset-automation-service",
			"layer", "application",
			"adset_id", adSetID,
			"desired", string(desired),
			"error", err.Error(),
		)
		return result, err
	}
	result.Ack = ack

	logger.Info("manual toggle applied",
		"event", "adset_manual_toggle_applied",
		"module", "ad-operations/adset-automation-service",
		"layer", "application",
		"adset_id", adSetID,
		"desired", string(desired),
		"actor", actor,
		"changed", ack.Changed,
	)
	return result, nil
}

func (u ToggleRunStateUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}

func displayName(settings entities.AdSetSettings) string {
	if settings.Name != "" {
		return settings.Name
	}
	return settings.AdSetID
}
