package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	adsetautomation "adshift/contexts/ad-operations/adset-automation-service"
	"adshift/contexts/ad-operations/adset-automation-service/adapters/platform"
	postgresadapter "adshift/contexts/ad-operations/adset-automation-service/adapters/postgres"
	"adshift/contexts/ad-operations/adset-automation-service/adapters/seed"
	workerapp "adshift/contexts/ad-operations/adset-automation-service/application/workers"
	"adshift/internal/platform/config"
	"adshift/internal/platform/db"
	"adshift/internal/platform/httpserver"
	"adshift/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	database *db.Database
	logger   *slog.Logger
}

type WorkerApp struct {
	database     *db.Database
	scheduled    workerapp.ScheduledActionJob
	automation   workerapp.AutomationJob
	outboxRelay  workerapp.OutboxRelay
	reevaluation *workerapp.ReevaluationConsumer
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	// Cycles run in the worker only; explicit evaluations are queued for it.
	database, module, _, err := buildAutomation(cfg, true, logger)
	if err != nil {
		return nil, err
	}

	server := httpserver.New(module, cfg.MetaAdAccountID, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		database: database,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	database, module, repo, err := buildAutomation(cfg, false, logger)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	scheduled := module.ScheduledActions
	scheduled.BatchSize = 100

	return &WorkerApp{
		database:  database,
		scheduled: scheduled,
		automation: workerapp.AutomationJob{
			Runner: module.Runner,
			Logger: logger,
		},
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		reevaluation: workerapp.NewReevaluationConsumer(kafka, module.Runner, logger),
		pollInterval: cfg.Interval,
		logger:       logger,
	}, nil
}

// buildAutomation opens the configured database, migrates it, seeds shift
// definitions and wires the automation module against the Graph API.
func buildAutomation(cfg config.Config, queueEvaluations bool, logger *slog.Logger) (*db.Database, adsetautomation.Module, *postgresadapter.Repository, error) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, adsetautomation.Module{}, nil, fmt.Errorf("load AUTOMATION_TIMEZONE %q: %w", cfg.Timezone, err)
	}

	database, err := db.Open(cfg.DatabaseDriver, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		return nil, adsetautomation.Module{}, nil, err
	}
	if err := postgresadapter.AutoMigrate(database.DB); err != nil {
		_ = database.Close()
		return nil, adsetautomation.Module{}, nil, fmt.Errorf("migrate automation schema: %w", err)
	}

	repo := postgresadapter.NewRepository(database.DB, logger)
	if err := seedTurns(context.Background(), repo, cfg.TurnsSeed, logger); err != nil {
		_ = database.Close()
		return nil, adsetautomation.Module{}, nil, err
	}

	if strings.TrimSpace(cfg.MetaAccessToken) == "" || strings.TrimSpace(cfg.MetaAdAccountID) == "" {
		logger.Warn("ad platform credentials missing; platform reads will fail",
			"event", "bootstrap_platform_credentials_missing",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	graph := platform.NewGraphClient(cfg.MetaAdAccountID, cfg.MetaAccessToken, cfg.MetaAPIVersion, logger)
	bridge := platform.NewBridge(graph, cfg.BridgeMaxAttempts, logger)

	module := adsetautomation.NewModule(adsetautomation.Dependencies{
		Settings:     repo,
		Turns:        repo,
		Audit:        repo,
		Flags:        repo,
		Records:      repo,
		Actions:      repo,
		Outbox:       repo,
		Platform:     graph,
		Bridge:       bridge,
		Clock:        postgresadapter.SystemClock{},
		IDGenerator:  postgresadapter.UUIDGenerator{},
		Location:     location,
		AllowedIDs:   cfg.AllowedIDs,
		Parallelism:  cfg.Parallelism,
		ApplyTimeout: cfg.BridgeTimeout,
		AuditLimit:   cfg.AuditLimit,

		QueueEvaluations: queueEvaluations,
		Logger:           logger,
	})
	return database, module, repo, nil
}

// seedTurns inserts shifts from the seed file that are not defined yet.
// Existing definitions belong to operators and are left untouched.
func seedTurns(ctx context.Context, repo *postgresadapter.Repository, path string, logger *slog.Logger) error {
	turns, err := seed.LoadTurnsFile(path, time.Now().UTC())
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		return nil
	}
	existing, err := repo.ListTurns(ctx)
	if err != nil {
		return fmt.Errorf("list turns for seeding: %w", err)
	}
	defined := make(map[string]struct{}, len(existing))
	for _, turn := range existing {
		defined[turn.Name] = struct{}{}
	}

	inserted := 0
	for _, turn := range turns {
		if _, ok := defined[turn.Name]; ok {
			continue
		}
		if _, err := repo.UpsertTurn(ctx, turn); err != nil {
			return fmt.Errorf("seed turn %s: %w", turn.Name, err)
		}
		inserted++
	}
	logger.Info("turn seeds applied",
		"event", "bootstrap_turns_seeded",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"file", path,
		"inserted", inserted,
		"skipped", len(turns)-inserted,
	)
	return nil
}

func (a *APIApp) Run(ctx context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}

	errs := make(chan error, 1)
	go func() { errs <- a.server.Start() }()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errs
	}
}

func (a *APIApp) Close() error {
	if a.database != nil {
		return a.database.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	if w.reevaluation != nil {
		if err := w.reevaluation.Start(ctx); err != nil {
			return err
		}
	}

	for {
		if err := w.scheduled.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("scheduled actions failed",
				"event", "bootstrap_scheduled_actions_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		if err := w.automation.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("automation cycle failed",
				"event", "bootstrap_automation_cycle_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		if err := w.outboxRelay.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("outbox relay failed",
				"event", "bootstrap_outbox_relay_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.database != nil {
		return w.database.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
