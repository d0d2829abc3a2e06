package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	adsetautomation "adshift/contexts/ad-operations/adset-automation-service"
	postgresadapter "adshift/contexts/ad-operations/adset-automation-service/adapters/postgres"
	workerapp "adshift/contexts/ad-operations/adset-automation-service/application/workers"
	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	"adshift/internal/platform/db"
	"adshift/internal/platform/messaging"
)

func TestSeedTurnsSkipsExistingDefinitions(t *testing.T) {
	dir := t.TempDir()
	database, err := db.ConnectSQLite(filepath.Join(dir, "adshift.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer database.Close()
	if err := postgresadapter.AutoMigrate(database.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := postgresadapter.NewRepository(database.DB, nil)
	ctx := context.Background()

	custom, err := entities.NewTurnConfig("morning", 6, 14, entities.NewWeekdaySet(time.Saturday))
	if err != nil {
		t.Fatalf("build turn: %v", err)
	}
	if _, err := repo.UpsertTurn(ctx, custom); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	seedPath := filepath.Join(dir, "turns.yaml")
	seedYAML := "turns:\n  - name: Morning\n    start: 8\n    end: 17\n    days: Mon-Fri\n  - name: night\n    start: 22\n    end: 6\n    days: L-V\n"
	if err := os.WriteFile(seedPath, []byte(seedYAML), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	logger := testLogger()
	if err := seedTurns(ctx, repo, seedPath, logger); err != nil {
		t.Fatalf("seed: %v", err)
	}

	turns, err := repo.ListTurns(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	byName := make(map[string]entities.TurnConfig, len(turns))
	for _, turn := range turns {
		byName[turn.Name] = turn
	}
	if len(byName) != 2 {
		t.Fatalf("expected two turns, got %+v", turns)
	}
	if byName["morning"].StartHour != 6 {
		t.Fatalf("expected operator-defined morning to be kept, got %+v", byName["morning"])
	}
	if !byName["night"].WrapsMidnight() {
		t.Fatalf("expected seeded night shift to wrap midnight")
	}
}

func TestQueuedEvaluationReachesWorkerThroughBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := testLogger()

	module := adsetautomation.NewInMemoryModule(nil, []entities.PlatformAdSet{
		{ID: "as-1", RunState: entities.RunStateActive, DailyBudgetMinor: 10000},
	}, logger)
	bus, err := messaging.NewKafka(nil, logger)
	if err != nil {
		t.Fatalf("bus: %v", err)
	}
	consumer := workerapp.NewReevaluationConsumer(bus, module.Runner, logger)
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("start consumer: %v", err)
	}

	if _, err := module.Handler.RequestEvaluation.Execute(ctx, "ops"); err != nil {
		t.Fatalf("queue evaluation: %v", err)
	}
	if records, _ := module.Store.ListAutomationRecords(ctx); len(records) != 0 {
		t.Fatalf("queueing must not run a cycle, got %+v", records)
	}
	relay := workerapp.OutboxRelay{Outbox: module.Store, Publisher: bus, Logger: logger}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		records, _ := module.Store.ListAutomationRecords(ctx)
		if len(records) == 1 && records[0].AdSetID == "as-1" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("worker cycle did not run, records=%+v", records)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9090": ":9090", ":7070": ":7070", " 80 ": ":80"}
	for input, want := range cases {
		if got := normalizeAddr(input); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", input, got, want)
		}
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
