package adsetautomation

import (
	"log/slog"
	"time"

	httpadapter "adshift/contexts/ad-operations/adset-automation-service/adapters/http"
	"adshift/contexts/ad-operations/adset-automation-service/adapters/memory"
	"adshift/contexts/ad-operations/adset-automation-service/adapters/platform"
	"adshift/contexts/ad-operations/adset-automation-service/application/automation"
	"adshift/contexts/ad-operations/adset-automation-service/application/commands"
	"adshift/contexts/ad-operations/adset-automation-service/application/queries"
	"adshift/contexts/ad-operations/adset-automation-service/application/workers"
	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	"adshift/contexts/ad-operations/adset-automation-service/ports"
)

type Module struct {
	Handler          httpadapter.Handler
	Runner           *automation.Runner
	ScheduledActions workers.ScheduledActionJob
	Store            *memory.Store
	Platform         *memory.Platform
}

type Dependencies struct {
	Settings     ports.SettingsRepository
	Turns        ports.TurnRepository
	Audit        ports.AuditLog
	Flags        ports.AutomationFlagStore
	Records      ports.AutomationRecordRepository
	Actions      ports.ScheduledActionRepository
	Outbox       ports.OutboxWriter
	Platform     ports.PlatformClient
	Bridge       ports.StatusBridge
	Clock        ports.Clock
	IDGenerator  ports.IDGenerator
	Location     *time.Location
	AllowedIDs   []string
	Parallelism  int
	ApplyTimeout time.Duration
	AuditLimit   int
	// QueueEvaluations makes explicit evaluations go through the outbox to
	// the worker instead of running a cycle in this process.
	QueueEvaluations bool
	Logger           *slog.Logger
}

func NewModule(deps Dependencies) Module {
	runner := &automation.Runner{
		Scheduler: automation.Scheduler{
			Settings:     deps.Settings,
			Turns:        deps.Turns,
			Records:      deps.Records,
			Audit:        deps.Audit,
			Flags:        deps.Flags,
			Platform:     deps.Platform,
			Bridge:       deps.Bridge,
			Outbox:       deps.Outbox,
			Clock:        deps.Clock,
			IDGen:        deps.IDGenerator,
			Location:     deps.Location,
			AllowedIDs:   append([]string(nil), deps.AllowedIDs...),
			Parallelism:  deps.Parallelism,
			ApplyTimeout: deps.ApplyTimeout,
			Logger:       deps.Logger,
		},
	}

	toggle := commands.ToggleRunStateUseCase{
		Settings: deps.Settings,
		Turns:    deps.Turns,
		Bridge:   deps.Bridge,
		Audit:    deps.Audit,
		Outbox:   deps.Outbox,
		Clock:    deps.Clock,
		IDGen:    deps.IDGenerator,
		Location: deps.Location,
		Logger:   deps.Logger,
	}

	return Module{
		Runner: runner,
		ScheduledActions: workers.ScheduledActionJob{
			Actions: deps.Actions,
			Toggle:  toggle,
			Clock:   deps.Clock,
			Logger:  deps.Logger,
		},
		Handler: httpadapter.Handler{
			Snapshot: queries.SnapshotUseCase{
				Settings: deps.Settings,
				Turns:    deps.Turns,
				Audit:    deps.Audit,
				Flags:    deps.Flags,
				Records:  deps.Records,
				Clock:    deps.Clock,
				LogLimit: deps.AuditLimit,
				Logger:   deps.Logger,
			},
			GetSettings: queries.GetSettingsUseCase{
				Settings: deps.Settings,
				Clock:    deps.Clock,
				Logger:   deps.Logger,
			},
			ListTurns: queries.ListTurnsUseCase{Turns: deps.Turns},
			ListLogs: queries.ListLogsUseCase{
				Audit:        deps.Audit,
				DefaultLimit: deps.AuditLimit,
			},
			SetField: commands.SetFieldUseCase{
				Settings: deps.Settings,
				Turns:    deps.Turns,
				Audit:    deps.Audit,
				Outbox:   deps.Outbox,
				Clock:    deps.Clock,
				IDGen:    deps.IDGenerator,
				Logger:   deps.Logger,
			},
			BulkSetField: commands.BulkSetFieldUseCase{
				Settings: deps.Settings,
				Turns:    deps.Turns,
				Audit:    deps.Audit,
				Outbox:   deps.Outbox,
				Clock:    deps.Clock,
				IDGen:    deps.IDGenerator,
				Logger:   deps.Logger,
			},
			UpsertTurn: commands.UpsertTurnUseCase{
				Turns:  deps.Turns,
				Audit:  deps.Audit,
				Outbox: deps.Outbox,
				Clock:  deps.Clock,
				IDGen:  deps.IDGenerator,
				Logger: deps.Logger,
			},
			ToggleAutomation: commands.ToggleAutomationUseCase{
				Flags:  deps.Flags,
				Audit:  deps.Audit,
				Outbox: deps.Outbox,
				Clock:  deps.Clock,
				IDGen:  deps.IDGenerator,
				Logger: deps.Logger,
			},
			ToggleRunState:     toggle,
			BulkToggleRunState: commands.BulkToggleRunStateUseCase{Toggle: toggle, Logger: deps.Logger},
			ScheduleRunState: commands.ScheduleRunStateUseCase{
				Settings: deps.Settings,
				Actions:  deps.Actions,
				Audit:    deps.Audit,
				Outbox:   deps.Outbox,
				Clock:    deps.Clock,
				IDGen:    deps.IDGenerator,
				Location: deps.Location,
				Logger:   deps.Logger,
			},
			ListScheduledActions: queries.ListScheduledActionsUseCase{Actions: deps.Actions},
			RequestEvaluation: commands.RequestEvaluationUseCase{
				Outbox: deps.Outbox,
				Clock:  deps.Clock,
				IDGen:  deps.IDGenerator,
				Logger: deps.Logger,
			},
			QueueEvaluations: deps.QueueEvaluations,
			Runner:           runner,
			Logger:           deps.Logger,
		},
	}
}

// NewInMemoryModule wires the memory store and the in-process platform. The
// bridge retries quickly so failure paths stay fast in local runs.
func NewInMemoryModule(turns []entities.TurnConfig, adSets []entities.PlatformAdSet, logger *slog.Logger) Module {
	store := memory.NewStore(turns)
	fake := memory.NewPlatform(adSets)
	bridge := &platform.Bridge{
		Platform:        fake,
		MaxAttempts:     3,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
		Logger:          logger,
	}
	module := NewModule(Dependencies{
		Settings:    store,
		Turns:       store,
		Audit:       store,
		Flags:       store,
		Records:     store,
		Actions:     store,
		Outbox:      store,
		Platform:    fake,
		Bridge:      bridge,
		Clock:       store,
		IDGenerator: store,
		Location:    time.UTC,
		Logger:      logger,
	})
	module.Store = store
	module.Platform = fake
	return module
}
