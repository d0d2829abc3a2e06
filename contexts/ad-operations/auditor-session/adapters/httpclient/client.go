package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"adshift/contexts/ad-operations/auditor-session/domain/entities"
	domainerrors "adshift/contexts/ad-operations/auditor-session/domain/errors"
	"adshift/contexts/ad-operations/auditor-session/ports"
)

const apiPrefix = "/api/automation/v1"

// Client implements ports.StoreAPI against the automation HTTP API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

var _ ports.StoreAPI = (*Client)(nil)

type settingsDTO struct {
	AdSetID           string   `json:"adset_id"`
	Name              string   `json:"name"`
	Turns             []string `json:"turns"`
	StopLossPercent   float64  `json:"stop_loss_percent"`
	IsFrozen          bool     `json:"is_frozen"`
	LastKnownStatus   string   `json:"last_known_status"`
	Spend             float64  `json:"spend"`
	DailyBudgetMinor  int64    `json:"daily_budget_minor"`
	SpendPercent      float64  `json:"spend_percent"`
	ObservedAt        string   `json:"observed_at"`
	TurnsUpdatedAt    string   `json:"turns_updated_at"`
	StopLossUpdatedAt string   `json:"stop_loss_updated_at"`
	FrozenUpdatedAt   string   `json:"frozen_updated_at"`
	Automation        *struct {
		State string `json:"state"`
	} `json:"automation"`
}

type turnDTO struct {
	Name      string  `json:"name"`
	StartHour float64 `json:"start_hour"`
	EndHour   float64 `json:"end_hour"`
	Days      string  `json:"days"`
}

type logDTO struct {
	ID        string `json:"id"`
	Actor     string `json:"actor"`
	Message   string `json:"message"`
	Cause     string `json:"cause"`
	AdSetID   string `json:"adset_id"`
	Timestamp string `json:"timestamp"`
}

type snapshotDTO struct {
	GeneratedAt       string            `json:"generated_at"`
	AutomationEnabled bool              `json:"automation_enabled"`
	Settings          []settingsDTO     `json:"settings"`
	Turns             []turnDTO         `json:"turns"`
	Logs              []logDTO          `json:"logs"`
	RunStates         map[string]string `json:"run_states"`
}

type bulkDTO struct {
	Field   string `json:"field"`
	Desired string `json:"desired"`
	Results []struct {
		AdSetID   string `json:"adset_id"`
		Success   bool   `json:"success"`
		UpdatedAt string `json:"updated_at"`
		Error     string `json:"error"`
		ErrorCode string `json:"error_code"`
	} `json:"results"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type actionDTO struct {
	ID         string `json:"id"`
	AdSetID    string `json:"adset_id"`
	Status     string `json:"status"`
	ExecuteAt  string `json:"execute_at"`
	Actor      string `json:"actor"`
	Message    string `json:"message"`
	State      string `json:"state"`
	ExecutedAt string `json:"executed_at"`
	Error      string `json:"error"`
}

type errorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) Snapshot(ctx context.Context) (entities.Snapshot, error) {
	var body snapshotDTO
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/snapshot", "", nil, &body); err != nil {
		return entities.Snapshot{}, err
	}
	out := entities.Snapshot{
		GeneratedAt:       parseTime(body.GeneratedAt),
		AutomationEnabled: body.AutomationEnabled,
		AdSets:            make([]entities.AdSetView, 0, len(body.Settings)),
		Turns:             make([]entities.Turn, 0, len(body.Turns)),
		Logs:              make([]entities.LogEntry, 0, len(body.Logs)),
		RunStates:         body.RunStates,
	}
	for _, item := range body.Settings {
		out.AdSets = append(out.AdSets, toView(item))
	}
	for _, item := range body.Turns {
		out.Turns = append(out.Turns, entities.Turn(item))
	}
	for _, item := range body.Logs {
		out.Logs = append(out.Logs, entities.LogEntry{
			ID:        item.ID,
			Actor:     item.Actor,
			Message:   item.Message,
			Cause:     item.Cause,
			AdSetID:   item.AdSetID,
			Timestamp: parseTime(item.Timestamp),
		})
	}
	return out, nil
}

func (c *Client) SetField(ctx context.Context, actor string, adSetID string, field entities.Field, value any, message string) (ports.FieldAck, error) {
	request := map[string]any{
		"field":   string(field),
		"value":   value,
		"message": message,
	}
	var body struct {
		AdSetID   string      `json:"adset_id"`
		Field     string      `json:"field"`
		UpdatedAt string      `json:"updated_at"`
		Settings  settingsDTO `json:"settings"`
	}
	path := apiPrefix + "/adsets/" + url.PathEscape(adSetID) + "/fields"
	if err := c.do(ctx, http.MethodPost, path, actor, request, &body); err != nil {
		return ports.FieldAck{}, err
	}
	return ports.FieldAck{
		AdSetID:   body.AdSetID,
		Field:     entities.Field(body.Field),
		UpdatedAt: parseTime(body.UpdatedAt),
		Settings:  toView(body.Settings),
	}, nil
}

func (c *Client) BulkSetField(ctx context.Context, actor string, adSetIDs []string, all bool, field entities.Field, value any) (ports.BulkResult, error) {
	request := map[string]any{
		"ids":   adSetIDs,
		"all":   all,
		"field": string(field),
		"value": value,
	}
	var body bulkDTO
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/adsets/bulk-fields", actor, request, &body); err != nil {
		return ports.BulkResult{}, err
	}
	return toBulkResult(body), nil
}

func (c *Client) BulkToggleRunState(ctx context.Context, actor string, adSetIDs []string, status string, message string) (ports.BulkResult, error) {
	request := map[string]any{
		"ids":     adSetIDs,
		"status":  status,
		"message": message,
	}
	var body bulkDTO
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/adsets/bulk-run-state", actor, request, &body); err != nil {
		return ports.BulkResult{}, err
	}
	return toBulkResult(body), nil
}

func (c *Client) ScheduleRunState(ctx context.Context, actor string, adSetIDs []string, status string, executeAt string, message string) ([]ports.ScheduledAction, error) {
	request := map[string]any{
		"ids":        adSetIDs,
		"status":     status,
		"execute_at": executeAt,
		"message":    message,
	}
	var body struct {
		Items []actionDTO `json:"items"`
	}
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/scheduled-actions", actor, request, &body); err != nil {
		return nil, err
	}
	return toActions(body.Items), nil
}

func (c *Client) ListScheduledActions(ctx context.Context, pendingOnly bool) ([]ports.ScheduledAction, error) {
	path := apiPrefix + "/scheduled-actions"
	if pendingOnly {
		path += "?pending=true"
	}
	var body struct {
		Items []actionDTO `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, path, "", nil, &body); err != nil {
		return nil, err
	}
	return toActions(body.Items), nil
}

func (c *Client) ToggleAutomation(ctx context.Context, actor string) (bool, error) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/automation/toggle", actor, nil, &body); err != nil {
		return false, err
	}
	return body.Enabled, nil
}

func (c *Client) ToggleRunState(ctx context.Context, actor string, adSetID string, status string, message string) (ports.RunStateAck, error) {
	request := map[string]string{"status": status, "message": message}
	var body struct {
		AdSetID  string `json:"adset_id"`
		Desired  string `json:"desired"`
		Changed  bool   `json:"changed"`
		Attempts int    `json:"attempts"`
	}
	path := apiPrefix + "/adsets/" + url.PathEscape(adSetID) + "/run-state"
	if err := c.do(ctx, http.MethodPost, path, actor, request, &body); err != nil {
		return ports.RunStateAck{}, err
	}
	return ports.RunStateAck{
		AdSetID:  body.AdSetID,
		Desired:  body.Desired,
		Changed:  body.Changed,
		Attempts: body.Attempts,
	}, nil
}

func (c *Client) UpsertTurn(ctx context.Context, actor string, turn entities.Turn) (entities.Turn, error) {
	request := map[string]any{
		"start": turn.StartHour,
		"end":   turn.EndHour,
		"days":  turn.Days,
	}
	var body struct {
		Turn turnDTO `json:"turn"`
	}
	path := apiPrefix + "/turns/" + url.PathEscape(turn.Name)
	if err := c.do(ctx, http.MethodPut, path, actor, request, &body); err != nil {
		return entities.Turn{}, err
	}
	return entities.Turn(body.Turn), nil
}

func (c *Client) Evaluate(ctx context.Context, actor string) (ports.EvaluateSummary, error) {
	var body struct {
		Queued      bool `json:"queued"`
		Evaluated   int  `json:"evaluated"`
		Transitions int  `json:"transitions"`
		Applied     int  `json:"applied"`
		Failed      int  `json:"failed"`
	}
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/automation/evaluate", actor, nil, &body); err != nil {
		return ports.EvaluateSummary{}, err
	}
	return ports.EvaluateSummary{
		Queued:      body.Queued,
		Evaluated:   body.Evaluated,
		Transitions: body.Transitions,
		Applied:     body.Applied,
		Failed:      body.Failed,
	}, nil
}

// do sends one request. A non-2xx answer becomes a *StoreError.
func (c *Client) do(ctx context.Context, method string, path string, actor string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		req.Header.Set("X-User-Id", actor)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", domainerrors.ErrStoreTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%w: %w", domainerrors.ErrStoreTransport, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr errorDTO
		_ = json.Unmarshal(raw, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return &domainerrors.StoreError{Status: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Message}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func toBulkResult(body bulkDTO) ports.BulkResult {
	out := ports.BulkResult{
		Field:     entities.Field(body.Field),
		Desired:   body.Desired,
		Items:     make([]ports.BulkItem, 0, len(body.Results)),
		Succeeded: body.Succeeded,
		Failed:    body.Failed,
	}
	for _, item := range body.Results {
		out.Items = append(out.Items, ports.BulkItem{
			AdSetID:   item.AdSetID,
			Success:   item.Success,
			UpdatedAt: parseTime(item.UpdatedAt),
			Error:     item.Error,
			ErrorCode: item.ErrorCode,
		})
	}
	return out
}

func toActions(items []actionDTO) []ports.ScheduledAction {
	out := make([]ports.ScheduledAction, 0, len(items))
	for _, item := range items {
		out = append(out, ports.ScheduledAction{
			ID:         item.ID,
			AdSetID:    item.AdSetID,
			Status:     item.Status,
			ExecuteAt:  parseTime(item.ExecuteAt),
			Actor:      item.Actor,
			Message:    item.Message,
			State:      item.State,
			ExecutedAt: parseTime(item.ExecutedAt),
			Error:      item.Error,
		})
	}
	return out
}

func toView(item settingsDTO) entities.AdSetView {
	view := entities.AdSetView{
		AdSetID:           item.AdSetID,
		Name:              item.Name,
		Turns:             append([]string(nil), item.Turns...),
		StopLossPercent:   item.StopLossPercent,
		IsFrozen:          item.IsFrozen,
		RunState:          item.LastKnownStatus,
		Spend:             item.Spend,
		DailyBudgetMinor:  item.DailyBudgetMinor,
		SpendPercent:      item.SpendPercent,
		TurnsUpdatedAt:    parseTime(item.TurnsUpdatedAt),
		StopLossUpdatedAt: parseTime(item.StopLossUpdatedAt),
		FrozenUpdatedAt:   parseTime(item.FrozenUpdatedAt),
		ObservedAt:        parseTime(item.ObservedAt),
	}
	if item.Automation != nil {
		view.AutomationState = item.Automation.State
	}
	return view
}

func parseTime(raw string) time.Time {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}
