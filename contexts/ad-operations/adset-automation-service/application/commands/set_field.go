package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "adshift/contexts/ad-operations/adset-automation-service/application"
	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
	"adshift/contexts/ad-operations/adset-automation-service/domain/services"
	"adshift/contexts/ad-operations/adset-automation-service/ports"
)

type SetFieldCommand struct {
	AdSetID string
	Field   string
	Value   any
	Actor   string
	Message string
}

type SetFieldResult struct {
	Settings  entities.AdSetSettings
	Field     entities.SettingField
	UpdatedAt time.Time
}

type SetFieldUseCase struct {
	Settings ports.SettingsRepository
	Turns    ports.TurnRepository
	Audit    ports.AuditLog
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

// Execute validates before touching storage; a rejected value leaves the
// stored row untouched.
func (u SetFieldUseCase) Execute(ctx context.Context, cmd SetFieldCommand) (SetFieldResult, error) {
	logger := application.ResolveLogger(u.Logger)
	adSetID := strings.TrimSpace(cmd.AdSetID)
	actor := strings.TrimSpace(cmd.Actor)
	if actor == "" {
		return SetFieldResult{}, domainerrors.NewValidationError("actor", cmd.Actor, domainerrors.ErrActorRequired)
	}
	if adSetID == "" {
		return SetFieldResult{}, domainerrors.NewValidationError("adset_id", cmd.AdSetID, domainerrors.ErrAdSetIDRequired)
	}

	patch, err := resolvePatch(ctx, u.Turns, cmd.Field, cmd.Value)
	if err != nil {
		logger.Warn("set field rejected",
			"event", "adset_set_field_rejected",
			"module", "ad-operations/adset-automation-service",
			"layer", "application",
			"adset_id", adSetID,
			"field", cmd.Field,
			"actor", actor,
			"error", err.Error(),
		)
		return SetFieldResult{}, err
	}

	now := u.now()
	updated, err := u.Settings.UpdateSettingField(ctx, adSetID, patch, now)
	if err != nil {
		logger.Warn("set field persistence failed",
			"event", "adset_set_field_persist_failed",
			"module", "ad-operations/adset-automation-service",
			"layer", "application",
			"adset_id", adSetID,
			"field", string(patch.Field),
			"error", err.Error(),
		)
		return SetFieldResult{}, err
	}

	if message := strings.TrimSpace(cmd.Message); message != "" {
		appendAudit(ctx, u.Audit, u.IDGen, entities.AuditLogEntry{
			Actor:     actor,
			Message:   message,
			AdSetID:   adSetID,
			Timestamp: now,
		}, logger)
	}
	_ = application.AppendEvent(ctx, u.Outbox, u.IDGen, now, application.EventSettingsChanged, adSetID, map[string]any{
		"adset_id": adSetID,
		"field":    string(patch.Field),
		"value":    patch.Value(),
		"actor":    actor,
	}, logger)

	logger.Info("set field applied",
		"event", "adset_set_field_applied",
		"module", "ad-operations/adset-automation-service",
		"layer", "application",
		"adset_id", adSetID,
		"field", string(patch.Field),
		"actor", actor,
	)
	return SetFieldResult{
		Settings:  updated,
		Field:     patch.Field,
		UpdatedAt: updated.FieldUpdatedAt(patch.Field),
	}, nil
}

func (u SetFieldUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}

func resolvePatch(ctx context.Context, turnsRepo ports.TurnRepository, rawField string, value any) (entities.FieldPatch, error) {
	field, err := entities.ParseSettingField(strings.TrimSpace(rawField))
	if err != nil {
		return entities.FieldPatch{}, domainerrors.NewValidationError("field", rawField, err)
	}
	var turns map[string]entities.TurnConfig
	if field == entities.FieldTurns {
		configured, err := turnsRepo.ListTurns(ctx)
		if err != nil {
			return entities.FieldPatch{}, err
		}
		turns = services.IndexTurns(configured)
	}
	return services.BuildFieldPatch(field, value, turns)
}

func appendAudit(
	ctx context.Context,
	audit ports.AuditLog,
	ids ports.IDGenerator,
	entry entities.AuditLogEntry,
	logger *slog.Logger,
) {
	if audit == nil {
		return
	}
	if entry.ID == "" && ids != nil {
		if id, err := ids.NewID(ctx); err == nil {
			entry.ID = id
		}
	}
	if err := audit.AppendAudit(ctx, entry); err != nil {
		logger.Error("audit append failed",
			"event", "adset_audit_append_failed",
			"module", "ad-operations/adset-automation-service",
			"layer", "application",
			"adset_id", entry.AdSetID,
			"actor", entry.Actor,
			"error", err.Error(),
		)
	}
}
