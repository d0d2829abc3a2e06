package queries

import (
	"context"
	"log/slog"
	"sort"
	"time"

	application "adshift/contexts/ad-operations/adset-automation-service/application"
	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	"adshift/contexts/ad-operations/adset-automation-service/domain/services"
	"adshift/contexts/ad-operations/adset-automation-service/ports"
)

// AdSetView is one settings row with its derived display values.
type AdSetView struct {
	Settings     entities.AdSetSettings
	SpendPercent float64
	Record       *entities.AutomationRecord
}

// Snapshot is the aggregate read pulled by every operator session.
type Snapshot struct {
	GeneratedAt       time.Time
	AutomationEnabled bool
	AdSets            []AdSetView
	Turns             []entities.TurnConfig
	Logs              []entities.AuditLogEntry
	RunStates         map[string]entities.RunState
}

type SnapshotUseCase struct {
	Settings ports.SettingsRepository
	Turns    ports.TurnRepository
	Audit    ports.AuditLog
	Flags    ports.AutomationFlagStore
	Records  ports.AutomationRecordRepository
	Clock    ports.Clock
	LogLimit int
	Logger   *slog.Logger
}

func (uc SnapshotUseCase) Execute(ctx context.Context) (Snapshot, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}

	rows, err := uc.Settings.ListSettings(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	turns, err := uc.Turns.ListTurns(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	flag, err := uc.Flags.GetAutomationFlag(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	logs, err := uc.Audit.ListRecentAudit(ctx, entities.ClampAuditLimit(uc.LogLimit))
	if err != nil {
		return Snapshot{}, err
	}
	records := map[string]entities.AutomationRecord{}
	if uc.Records != nil {
		items, err := uc.Records.ListAutomationRecords(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		for _, item := range items {
			records[item.AdSetID] = item
		}
	}

	snapshot := Snapshot{
		GeneratedAt:       now,
		AutomationEnabled: flag.Enabled,
		AdSets:            make([]AdSetView, 0, len(rows)),
		Turns:             turns,
		Logs:              logs,
		RunStates:         make(map[string]entities.RunState, len(rows)),
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].AdSetID < rows[j].AdSetID })
	for _, row := range rows {
		view := AdSetView{
			Settings:     row,
			SpendPercent: services.SpendPercent(row.Spend, row.DailyBudgetMinor),
		}
		if record, ok := records[row.AdSetID]; ok {
			view.Record = &record
		}
		snapshot.AdSets = append(snapshot.AdSets, view)
		snapshot.RunStates[row.AdSetID] = row.LastKnownStatus
	}
	entities.SortTurns(snapshot.Turns)

	logger.Debug("automation snapshot built",
		"event", "automation_snapshot_built",
		"module", "ad-operations/adset-automation-service",
		"layer", "application",
		"adset_count", len(snapshot.AdSets),
		"turn_count", len(snapshot.Turns),
		"log_count", len(snapshot.Logs),
	)
	return snapshot, nil
}
