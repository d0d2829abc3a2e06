package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	adsetautomation "adshift/contexts/ad-operations/adset-automation-service"
	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	"adshift/internal/platform/httpserver"
)

func newAPI(t *testing.T) string {
	t.Helper()
	module := adsetautomation.NewInMemoryModule(nil, []entities.PlatformAdSet{
		{ID: "as-1", Name: "Prospecting", RunState: entities.RunStateActive, Spend: 10, DailyBudgetMinor: 10000},
		{ID: "as-2", Name: "Retargeting", RunState: entities.RunStatePaused, DailyBudgetMinor: 5000},
	}, nil)
	if _, err := module.Runner.RunCycle(context.Background()); err != nil {
		t.Fatalf("seed cycle failed: %v", err)
	}
	ts := httptest.NewServer(httpserver.New(module, "act_1", nil, ":0").Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestSetThenShow(t *testing.T) {
	api := newAPI(t)

	out, errOut, code := run(t, "--api", api, "--actor", "ops@example.com", "set", "as-1", "stopLossPercent", "35")
	if code != 0 {
		t.Fatalf("set failed: code=%d stderr=%s", code, errOut)
	}
	if !strings.Contains(out, "as-1 stopLossPercent = 35") {
		t.Fatalf("unexpected set output %q", out)
	}

	out, _, code = run(t, "--api", api, "show")
	if code != 0 {
		t.Fatalf("show failed")
	}
	if !strings.Contains(out, "Prospecting") || !strings.Contains(out, "automation OFF") {
		t.Fatalf("unexpected show output %q", out)
	}
}

func TestSetRejectsBadValueBeforeCallingAPI(t *testing.T) {
	_, errOut, code := run(t, "--api", "http://127.0.0.1:1", "--actor", "ops", "set", "as-1", "stopLossPercent", "abc")
	if code == 0 {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(errOut, "error:") {
		t.Fatalf("expected error output, got %q", errOut)
	}
}

func TestWriteWithoutActorFails(t *testing.T) {
	api := newAPI(t)
	_, errOut, code := run(t, "--api", api, "--actor", "", "set", "as-1", "isFrozen", "true")
	if code == 0 {
		t.Fatalf("expected failure without actor")
	}
	if !strings.Contains(errOut, "actor") {
		t.Fatalf("expected actor error, got %q", errOut)
	}
}

func TestBulkReportsPerItemOutcome(t *testing.T) {
	api := newAPI(t)
	out, errOut, code := run(t, "--api", api, "--actor", "ops", "bulk", "isFrozen", "true", "as-1", "as-404")
	if code != 0 {
		t.Fatalf("bulk failed: %s", errOut)
	}
	if !strings.Contains(out, "ok    as-1") || !strings.Contains(out, "fail  as-404") || !strings.Contains(out, "1 succeeded, 1 failed") {
		t.Fatalf("unexpected bulk output %q", out)
	}
}

func TestTurnAndAutomationToggle(t *testing.T) {
	api := newAPI(t)
	out, errOut, code := run(t, "--api", api, "--actor", "ops", "turn", "night", "--start", "22", "--end", "6.5", "--days", "Mon-Fri")
	if code != 0 {
		t.Fatalf("turn failed: %s", errOut)
	}
	if !strings.Contains(out, "turn night 22:00-06:30") {
		t.Fatalf("unexpected turn output %q", out)
	}

	out, errOut, code = run(t, "--api", api, "--actor", "ops", "automation", "toggle")
	if code != 0 {
		t.Fatalf("toggle failed: %s", errOut)
	}
	if strings.TrimSpace(out) != "automation ON" {
		t.Fatalf("unexpected toggle output %q", out)
	}
}

func TestRunStateManyIDsNeedsStatus(t *testing.T) {
	api := newAPI(t)
	_, errOut, code := run(t, "--api", api, "--actor", "ops", "run-state", "as-1", "as-2")
	if code == 0 || !strings.Contains(errOut, "explicit ACTIVE or PAUSED") {
		t.Fatalf("expected status requirement, code=%d stderr=%q", code, errOut)
	}

	out, errOut, code := run(t, "--api", api, "--actor", "ops", "run-state", "as-1", "as-404", "paused")
	if code != 0 {
		t.Fatalf("bulk run-state failed: %s", errOut)
	}
	if !strings.Contains(out, "ok    as-1 -> PAUSED") || !strings.Contains(out, "fail  as-404") || !strings.Contains(out, "1 succeeded, 1 failed") {
		t.Fatalf("unexpected run-state output %q", out)
	}

	out, errOut, code = run(t, "--api", api, "--actor", "ops", "run-state", "as-2")
	if code != 0 || !strings.Contains(out, "as-2 -> ACTIVE") {
		t.Fatalf("single id should flip, out=%q stderr=%s", out, errOut)
	}
}

func TestScheduleThenList(t *testing.T) {
	api := newAPI(t)
	when := time.Now().UTC().Add(2 * time.Hour).Format(time.RFC3339)
	out, errOut, code := run(t, "--api", api, "--actor", "ops", "schedule", "paused", when, "as-1", "as-2")
	if code != 0 {
		t.Fatalf("schedule failed: %s", errOut)
	}
	if strings.Count(out, "PENDING") != 2 {
		t.Fatalf("expected two pending actions, got %q", out)
	}

	out, errOut, code = run(t, "--api", api, "scheduled", "--pending")
	if code != 0 {
		t.Fatalf("scheduled failed: %s", errOut)
	}
	if !strings.Contains(out, "as-1") || !strings.Contains(out, "as-2") || !strings.Contains(out, "PAUSED") {
		t.Fatalf("unexpected scheduled output %q", out)
	}

	_, errOut, code = run(t, "--api", api, "--actor", "ops", "schedule", "PAUSED", "2020-01-01T00:00:00Z", "as-1")
	if code == 0 || !strings.Contains(errOut, "future") {
		t.Fatalf("expected past time rejection, code=%d stderr=%q", code, errOut)
	}
}

func TestSplitStatus(t *testing.T) {
	ids, status := splitStatus([]string{"as-1", "as-2", "Active"})
	if len(ids) != 2 || status != "ACTIVE" {
		t.Fatalf("unexpected split %v %q", ids, status)
	}
	ids, status = splitStatus([]string{"as-1"})
	if len(ids) != 1 || status != "" {
		t.Fatalf("unexpected split %v %q", ids, status)
	}
}

func TestFormatHour(t *testing.T) {
	cases := map[float64]string{0: "00:00", 8.5: "08:30", 23.5: "23:30", 24: "24:00"}
	for hour, want := range cases {
		if got := formatHour(hour); got != want {
			t.Fatalf("formatHour(%v) = %q, want %q", hour, got, want)
		}
	}
}
