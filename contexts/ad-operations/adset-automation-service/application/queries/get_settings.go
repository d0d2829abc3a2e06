package queries

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "adshift/contexts/ad-operations/adset-automation-service/application"
	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
	"adshift/contexts/ad-operations/adset-automation-service/ports"
)

type GetSettingsUseCase struct {
	Settings ports.SettingsRepository
	Clock    ports.Clock
	Logger   *slog.Logger
}

// Execute returns default settings for ad sets that have not been observed
// yet; nothing is persisted for them.
func (uc GetSettingsUseCase) Execute(ctx context.Context, adSetID string) (entities.AdSetSettings, error) {
	adSetID = strings.TrimSpace(adSetID)
	if adSetID == "" {
		return entities.AdSetSettings{}, domainerrors.NewValidationError("adset_id", adSetID, domainerrors.ErrAdSetIDRequired)
	}
	item, err := uc.Settings.GetSettings(ctx, adSetID)
	if errors.Is(err, domainerrors.ErrAdSetNotFound) {
		now := time.Now().UTC()
		if uc.Clock != nil {
			now = uc.Clock.Now().UTC()
		}
		application.ResolveLogger(uc.Logger).Debug("settings defaulted for unobserved ad set",
			"event", "adset_settings_defaulted",
			"module", "ad-operations/adset-automation-service",
			"layer", "application",
			"adset_id", adSetID,
		)
		return entities.DefaultSettings(adSetID, now), nil
	}
	return item, err
}

type ListTurnsUseCase struct {
	Turns ports.TurnRepository
}

func (uc ListTurnsUseCase) Execute(ctx context.Context) ([]entities.TurnConfig, error) {
	items, err := uc.Turns.ListTurns(ctx)
	if err != nil {
		return nil, err
	}
	entities.SortTurns(items)
	return items, nil
}

type ListLogsUseCase struct {
	Audit        ports.AuditLog
	DefaultLimit int
}

func (uc ListLogsUseCase) Execute(ctx context.Context, limit int) ([]entities.AuditLogEntry, error) {
	if limit <= 0 {
		limit = uc.DefaultLimit
	}
	return uc.Audit.ListRecentAudit(ctx, entities.ClampAuditLimit(limit))
}

type ListScheduledActionsUseCase struct {
	Actions ports.ScheduledActionRepository
}

func (uc ListScheduledActionsUseCase) Execute(ctx context.Context, pendingOnly bool) ([]entities.ScheduledAction, error) {
	return uc.Actions.ListScheduledActions(ctx, pendingOnly)
}
