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

type BulkSetFieldCommand struct {
	AdSetIDs []string
	// All expands to every known ad set.
	All   bool
	Field string
	Value any
	Actor string
}

type BulkOutcome struct {
	AdSetID   string
	UpdatedAt time.Time
	Err       error
}

type BulkSetFieldResult struct {
	Field     entities.SettingField
	Outcomes  []BulkOutcome
	Succeeded int
	Failed    int
}

type BulkSetFieldUseCase struct {
	Settings ports.SettingsRepository
	Turns    ports.TurnRepository
	Audit    ports.AuditLog
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

// Execute validates the shared value once, then writes each id
// independently. A failing id is reported in its own outcome and never stops
// the remaining writes.
func (u BulkSetFieldUseCase) Execute(ctx context.Context, cmd BulkSetFieldCommand) (BulkSetFieldResult, error) {
	logger := application.ResolveLogger(u.Logger)
	actor := strings.TrimSpace(cmd.Actor)
	if actor == "" {
		return BulkSetFieldResult{}, domainerrors.NewValidationError("actor", cmd.Actor, domainerrors.ErrActorRequired)
	}

	patch, err := resolvePatch(ctx, u.Turns, cmd.Field, cmd.Value)
	if err != nil {
		logger.Warn("bulk set field rejected",
			"event", "adset_bulk_set_field_rejected",
			"module", "ad-operations/adset-automation-service",
			"layer", "application",
			"field", cmd.Field,
			"actor", actor,
			"error", err.Error(),
		)
		return BulkSetFieldResult{}, err
	}

	ids, err := u.resolveIDs(ctx, cmd)
	if err != nil {
		return BulkSetFieldResult{}, err
	}

	now := u.now()
	result := BulkSetFieldResult{Field: patch.Field, Outcomes: make([]BulkOutcome, 0, len(ids))}
	for _, raw := range ids {
		adSetID := strings.TrimSpace(raw)
		outcome := BulkOutcome{AdSetID: adSetID}
		if adSetID == "" {
			outcome.Err = domainerrors.NewValidationError("adset_id", raw, domainerrors.ErrAdSetIDRequired)
		} else if updated, err := u.Settings.UpdateSettingField(ctx, adSetID, patch, now); err != nil {
			outcome.Err = err
		} else {
			outcome.UpdatedAt = updated.FieldUpdatedAt(patch.Field)
		}

		if outcome.Err != nil {
			result.Failed++
			logger.Warn("bulk set field item failed",
				"event", "adset_bulk_set_field_item_failed",
				"module", "ad-operations/adset-automation-service",
				"layer", "application",
				"adset_id", adSetID,
				"field", string(patch.Field),
				"error", outcome.Err.Error(),
			)
		} else {
			result.Succeeded++
			_ = application.AppendEvent(ctx, u.Outbox, u.IDGen, now, application.EventSettingsChanged, adSetID, map[string]any{
				"adset_id": adSetID,
				"field":    string(patch.Field),
				"value":    patch.Value(),
				"actor":    actor,
			}, logger)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if result.Succeeded > 0 {
		appendAudit(ctx, u.Audit, u.IDGen, entities.AuditLogEntry{
			Actor:     actor,
			Message:   fmt.Sprintf("Set %s to %v on %d ad sets", patch.Field, patch.Value(), result.Succeeded),
			Timestamp: now,
		}, logger)
	}

	logger.Info("bulk set field completed",
		"event", "adset_bulk_set_field_completed",
		"module", "ad-operations/adset-automation-service",
		"layer", "application",
		"field", string(patch.Field),
		"actor", actor,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
	return result, nil
}

func (u BulkSetFieldUseCase) resolveIDs(ctx context.Context, cmd BulkSetFieldCommand) ([]string, error) {
	if !cmd.All {
		return cmd.AdSetIDs, nil
	}
	rows, err := u.Settings.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.AdSetID)
	}
	return ids, nil
}

func (u BulkSetFieldUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
