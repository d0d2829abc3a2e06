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

// UpsertTurnCommand carries the full shift triple; there is no partial patch.
type UpsertTurnCommand struct {
	Name  string
	Start any
	End   any
	Days  string
	Actor string
}

type UpsertTurnUseCase struct {
	Turns  ports.TurnRepository
	Audit  ports.AuditLog
	Outbox ports.OutboxWriter
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (u UpsertTurnUseCase) Execute(ctx context.Context, cmd UpsertTurnCommand) (entities.TurnConfig, error) {
	logger := application.ResolveLogger(u.Logger)
	actor := strings.TrimSpace(cmd.Actor)
	if actor == "" {
		return entities.TurnConfig{}, domainerrors.NewValidationError("actor", cmd.Actor, domainerrors.ErrActorRequired)
	}

	turn, err := buildTurn(cmd)
	if err != nil {
		logger.Warn("turn upsert rejected",
			"event", "turn_upsert_rejected",
			"module", "ad-operations/adset-automation-service",
			"layer", "application",
			"turn", cmd.Name,
			"actor", actor,
			"error", err.Error(),
		)
		return entities.TurnConfig{}, err
	}
	now := u.now()
	turn.UpdatedAt = now

	saved, err := u.Turns.UpsertTurn(ctx, turn)
	if err != nil {
		return entities.TurnConfig{}, err
	}

	appendAudit(ctx, u.Audit, u.IDGen, entities.AuditLogEntry{
		Actor: actor,
		Message: fmt.Sprintf("Turn %s set to %s-%s on %s",
			saved.Name, formatHour(saved.StartHour), formatHour(saved.EndHour), saved.ActiveDays),
		Timestamp: now,
	}, logger)
	_ = application.AppendEvent(ctx, u.Outbox, u.IDGen, now, application.EventTurnUpserted, saved.Name, map[string]any{
		"name":        saved.Name,
		"start_hour":  saved.StartHour,
		"end_hour":    saved.EndHour,
		"active_days": saved.ActiveDays.String(),
		"actor":       actor,
	}, logger)

	logger.Info("turn upserted",
		"event", "turn_upserted",
		"module", "ad-operations/adset-automation-service",
		"layer", "application",
		"turn", saved.Name,
		"actor", actor,
	)
	return saved, nil
}

func (u UpsertTurnUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}

func buildTurn(cmd UpsertTurnCommand) (entities.TurnConfig, error) {
	start, err := services.ParseHour(cmd.Start)
	if err != nil {
		return entities.TurnConfig{}, domainerrors.NewValidationError("start", cmd.Start, domainerrors.ErrInvalidTurn)
	}
	end, err := services.ParseHour(cmd.End)
	if err != nil {
		return entities.TurnConfig{}, domainerrors.NewValidationError("end", cmd.End, domainerrors.ErrInvalidTurn)
	}
	days, err := entities.ParseWeekdays(cmd.Days)
	if err != nil {
		return entities.TurnConfig{}, err
	}
	return entities.NewTurnConfig(cmd.Name, start, end, days)
}

func formatHour(hour float64) string {
	whole := int(hour)
	minutes := int((hour - float64(whole)) * 60)
	return fmt.Sprintf("%02d:%02d", whole, minutes)
}
