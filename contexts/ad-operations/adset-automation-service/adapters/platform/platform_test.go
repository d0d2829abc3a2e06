package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"adshift/contexts/ad-operations/adset-automation-service/adapters/memory"
	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastBridge(p *memory.Platform, attempts int) *Bridge {
	return &Bridge{
		Platform:        p,
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Logger:          quietLogger(),
	}
}

func TestBridgeRetriesTransientFailures(t *testing.T) {
	fake := memory.NewPlatform([]entities.PlatformAdSet{{ID: "as-1", RunState: entities.RunStateActive}})
	fake.FailNext("as-1", domainerrors.ErrTransientBridge, domainerrors.ErrTransientBridge)

	ack, err := fastBridge(fake, 4).Apply(context.Background(), "as-1", entities.RunStatePaused)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack.Attempts != 3 || ack.State != entities.RunStatePaused || !ack.Changed {
		t.Fatalf("unexpected ack %+v", ack)
	}
	if fake.RunState("as-1") != entities.RunStatePaused {
		t.Fatalf("platform should be paused")
	}
}

func TestBridgeStopsOnPermanentRejection(t *testing.T) {
	fake := memory.NewPlatform([]entities.PlatformAdSet{{ID: "as-1", RunState: entities.RunStateActive}})
	fake.FailNext("as-1", domainerrors.ErrPermanentBridge)

	_, err := fastBridge(fake, 4).Apply(context.Background(), "as-1", entities.RunStatePaused)
	if !errors.Is(err, domainerrors.ErrPermanentBridge) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls := fake.Calls(); len(calls) != 1 {
		t.Fatalf("permanent rejection must not be retried, got %d calls", len(calls))
	}
}

func TestBridgeReportsExhaustedAttempts(t *testing.T) {
	fake := memory.NewPlatform([]entities.PlatformAdSet{{ID: "as-1", RunState: entities.RunStateActive}})
	fake.FailNext("as-1", domainerrors.ErrTransientBridge, domainerrors.ErrTransientBridge, domainerrors.ErrTransientBridge)

	_, err := fastBridge(fake, 3).Apply(context.Background(), "as-1", entities.RunStatePaused)
	var transient *domainerrors.TransientBridgeError
	if !errors.As(err, &transient) {
		t.Fatalf("expected TransientBridgeError, got %v", err)
	}
	if transient.Attempts != 3 || transient.AdSetID != "as-1" {
		t.Fatalf("unexpected error detail %+v", transient)
	}
}

func TestBridgeTreatsMissingAdSetAsPermanent(t *testing.T) {
	fake := memory.NewPlatform(nil)
	_, err := fastBridge(fake, 4).Apply(context.Background(), "ghost", entities.RunStateActive)
	if !errors.Is(err, domainerrors.ErrPlatformNotFound) || len(fake.Calls()) != 1 {
		t.Fatalf("expected one call ending in not found, got %v after %d calls", err, len(fake.Calls()))
	}
}

func newGraph(t *testing.T, handler http.HandlerFunc) *GraphClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewGraphClient("123", "token", "v19.0", quietLogger())
	client.BaseURL = server.URL
	client.HTTPClient = server.Client()
	return client
}

func TestGraphClientListsAllPages(t *testing.T) {
	var baseURL string
	client := newGraph(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "token" {
			t.Errorf("missing access token")
		}
		if r.URL.Query().Get("after") == "" {
			if r.URL.Path != "/v19.0/act_123/adsets" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			fmt.Fprintf(w, `{"data":[{"id":"1","name":"A","status":"ACTIVE","daily_budget":"10000","insights":{"data":[{"spend":"12.50"}]}}],
				"paging":{"next":"%s/v19.0/act_123/adsets?after=x&access_token=token"}}`, baseURL)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"2","name":"B","status":"CAMPAIGN_PAUSED"}],"paging":{}}`)
	})
	baseURL = client.BaseURL

	items, err := client.ListAdSets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected two ad sets, got %+v", items)
	}
	first, second := items[0], items[1]
	if first.Spend != 12.5 || first.DailyBudgetMinor != 10000 || first.RunState != entities.RunStateActive {
		t.Fatalf("unexpected first row %+v", first)
	}
	if second.RunState != entities.RunStatePaused || second.DailyBudgetMinor != 0 || second.Spend != 0 {
		t.Fatalf("unexpected second row %+v", second)
	}
}

func TestGraphClientSetRunStatePostsForm(t *testing.T) {
	client := newGraph(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v19.0/as-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		if form.Get("status") != "PAUSED" || form.Get("access_token") != "token" {
			t.Errorf("unexpected form %v", form)
		}
		fmt.Fprint(w, `{"success":true}`)
	})
	ack, err := client.SetRunState(context.Background(), "as-1", entities.RunStatePaused)
	if err != nil || ack.State != entities.RunStatePaused {
		t.Fatalf("unexpected result %+v err=%v", ack, err)
	}
}

func TestGraphClientClassifiesErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited code", http.StatusBadRequest, `{"error":{"code":17,"message":"User request limit reached"}}`, domainerrors.ErrTransientBridge},
		{"server error", http.StatusBadGateway, `oops`, domainerrors.ErrTransientBridge},
		{"missing object", http.StatusBadRequest, `{"error":{"code":100,"message":"Unsupported post request"}}`, domainerrors.ErrPlatformNotFound},
		{"permission", http.StatusForbidden, `{"error":{"code":200,"message":"Permissions error"}}`, domainerrors.ErrPermanentBridge},
	}
	for _, tc := range cases {
		client := newGraph(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			fmt.Fprint(w, tc.body)
		})
		_, err := client.SetRunState(context.Background(), "as-1", entities.RunStateActive)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestGraphClientRequiresCredentials(t *testing.T) {
	client := NewGraphClient("", "", "", quietLogger())
	if _, err := client.ListAdSets(context.Background()); !errors.Is(err, domainerrors.ErrPlatformRead) {
		t.Fatalf("expected platform read error, got %v", err)
	}
}

func TestBridgeOverGraphRetriesThrottling(t *testing.T) {
	var calls atomic.Int32
	client := newGraph(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"code":4,"message":"Application request limit reached"}}`)
			return
		}
		fmt.Fprint(w, `{"success":true}`)
	})
	bridge := &Bridge{Platform: client, MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Logger: quietLogger()}

	ack, err := bridge.Apply(context.Background(), "as-1", entities.RunStateActive)
	if err != nil || ack.Attempts != 2 {
		t.Fatalf("expected success on second attempt, got %+v err=%v", ack, err)
	}
}

func TestGraphClientReportsNoOpWrites(t *testing.T) {
	client := newGraph(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `{"data":[{"id":"as-1","name":"A","status":"PAUSED"}],"paging":{}}`)
			return
		}
		fmt.Fprint(w, `{"success":true}`)
	})
	ctx := context.Background()

	ack, err := client.SetRunState(ctx, "as-1", entities.RunStatePaused)
	if err != nil || !ack.Changed {
		t.Fatalf("write before any read must count as a change, got %+v err=%v", ack, err)
	}
	if _, err := client.ListAdSets(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	bridge := &Bridge{Platform: client, MaxAttempts: 1, Logger: quietLogger()}
	ack, err = bridge.Apply(ctx, "as-1", entities.RunStatePaused)
	if err != nil || ack.Changed {
		t.Fatalf("expected no-op ack for listed state, got %+v err=%v", ack, err)
	}
	ack, err = bridge.Apply(ctx, "as-1", entities.RunStateActive)
	if err != nil || !ack.Changed {
		t.Fatalf("expected change to ACTIVE, got %+v err=%v", ack, err)
	}
	ack, err = bridge.Apply(ctx, "as-1", entities.RunStateActive)
	if err != nil || ack.Changed {
		t.Fatalf("repeated ACTIVE must be a no-op, got %+v err=%v", ack, err)
	}
}

func TestBridgeOverMemoryPlatformReportsNoOp(t *testing.T) {
	fake := memory.NewPlatform([]entities.PlatformAdSet{{ID: "as-1", RunState: entities.RunStateActive}})
	ack, err := fastBridge(fake, 2).Apply(context.Background(), "as-1", entities.RunStateActive)
	if err != nil || ack.Changed || ack.Attempts != 1 {
		t.Fatalf("expected unchanged single-attempt ack, got %+v err=%v", ack, err)
	}
}
