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

type ToggleAutomationUseCase struct {
	Flags  ports.AutomationFlagStore
	Audit  ports.AuditLog
	Outbox ports.OutboxWriter
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (u ToggleAutomationUseCase) Execute(ctx context.Context, actor string) (entities.AutomationFlag, error) {
	logger := application.ResolveLogger(u.Logger)
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return entities.AutomationFlag{}, domainerrors.NewValidationError("actor", actor, domainerrors.ErrActorRequired)
	}

	now := u.now()
	flag, err := u.Flags.ToggleAutomation(ctx, now)
	if err != nil {
		logger.Error("automation toggle failed",
			"event", "automation_toggle_failed",
			"module", "ad-operations/adset-automation-service",
			"layer", "application",
			"actor", actor,
			"error", err.Error(),
		)
		return entities.AutomationFlag{}, err
	}

	state := "OFF"
	if flag.Enabled {
		state = "ON"
	}
	appendAudit(ctx, u.Audit, u.IDGen, entities.AuditLogEntry{
		Actor:     actor,
		Message:   fmt.Sprintf("Automation turned %s", state),
		Timestamp: now,
	}, logger)
	_ = application.AppendEvent(ctx, u.Outbox, u.IDGen, now, application.EventAutomationToggled, "automation", map[string]any{
		"enabled": flag.Enabled,
		"actor":   actor,
	}, logger)

	logger.Info("automation toggled",
		"event", "automation_toggled",
		"module", "ad-operations/adset-automation-service",
		"layer", "application",
		"actor", actor,
		"enabled", flag.Enabled,
	)
	return flag, nil
}

func (u ToggleAutomationUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
