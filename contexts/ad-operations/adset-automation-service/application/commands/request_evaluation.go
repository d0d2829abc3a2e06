package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "adshift/contexts/ad-operations/adset-automation-service/application"
	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
	"adshift/contexts/ad-operations/adset-automation-service/ports"
)

// RequestEvaluationUseCase hands an explicit evaluation to the worker
// through the outbox, so cycles only ever run in the worker process.
type RequestEvaluationUseCase struct {
	Outbox ports.OutboxWriter
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (u RequestEvaluationUseCase) Execute(ctx context.Context, actor string) (time.Time, error) {
	logger := application.ResolveLogger(u.Logger)
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return time.Time{}, domainerrors.NewValidationError("actor", actor, domainerrors.ErrActorRequired)
	}
	now := time.Now().UTC()
	if u.Clock != nil {
		now = u.Clock.Now().UTC()
	}
	if err := application.AppendEvent(ctx, u.Outbox, u.IDGen, now, application.EventEvaluationRequested, "automation", map[string]any{
		"actor": actor,
	}, logger); err != nil {
		return time.Time{}, err
	}
	logger.Info("automation evaluation queued",
		"event", "automation_evaluation_queued",
		"module", "ad-operations/adset-automation-service",
		"layer", "application",
		"actor", actor,
	)
	return now, nil
}
