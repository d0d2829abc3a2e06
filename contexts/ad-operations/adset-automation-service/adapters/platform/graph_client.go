package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
	"adshift/contexts/ad-operations/adset-automation-service/ports"
)

const (
	DefaultGraphBaseURL = "https://graph.facebook.com"
	DefaultGraphVersion = "v19.0"

	adSetFields = "name,status,daily_budget,insights{spend}"
	maxPages    = 20
)

// Graph API error codes that signal throttling or a temporary outage.
var transientGraphCodes = map[int]struct{}{
	1: {}, 2: {}, 4: {}, 17: {}, 32: {}, 341: {}, 613: {}, 80004: {},
}

// GraphClient talks to the Marketing API for one ad account. It remembers the
// last status it listed or set per ad set so acks can report no-op writes.
type GraphClient struct {
	BaseURL     string
	Version     string
	AccessToken string
	AccountID   string
	HTTPClient  *http.Client
	Logger      *slog.Logger

	mu    sync.Mutex
	known map[string]entities.RunState
}

func NewGraphClient(accountID string, accessToken string, version string, logger *slog.Logger) *GraphClient {
	return &GraphClient{
		BaseURL:     DefaultGraphBaseURL,
		Version:     version,
		AccessToken: strings.TrimSpace(accessToken),
		AccountID:   strings.TrimSpace(accountID),
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		Logger:      logger,
	}
}

// GraphError is the error object returned inside Graph API responses.
type GraphError struct {
	StatusCode int
	Code       int    `json:"code"`
	Subcode    int    `json:"error_subcode"`
	Type       string `json:"type"`
	Message    string `json:"message"`
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph api %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap classifies the failure for the bridge retry policy.
func (e *GraphError) Unwrap() error {
	if e.transient() {
		return domainerrors.ErrTransientBridge
	}
	if e.StatusCode == http.StatusNotFound || e.Code == 100 {
		return domainerrors.ErrPlatformNotFound
	}
	return domainerrors.ErrPermanentBridge
}

func (e *GraphError) transient() bool {
	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError {
		return true
	}
	_, ok := transientGraphCodes[e.Code]
	return ok
}

type adSetPage struct {
	Data []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Status      string `json:"status"`
		DailyBudget string `json:"daily_budget"`
		Insights    struct {
			Data []struct {
				Spend string `json:"spend"`
			} `json:"data"`
		} `json:"insights"`
	} `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

func (c *GraphClient) ListAdSets(ctx context.Context) ([]entities.PlatformAdSet, error) {
	if c.AccessToken == "" || c.AccountID == "" {
		return nil, fmt.Errorf("%w: missing ad account credentials", domainerrors.ErrPlatformRead)
	}
	query := url.Values{}
	query.Set("fields", adSetFields)
	query.Set("limit", "200")
	next := c.endpoint(c.accountPath()+"/adsets") + "?" + c.withToken(query).Encode()

	items := make([]entities.PlatformAdSet, 0)
	for page := 0; next != "" && page < maxPages; page++ {
		var body adSetPage
		if err := c.do(ctx, http.MethodGet, next, nil, &body); err != nil {
			return nil, fmt.Errorf("%w: %w", domainerrors.ErrPlatformRead, err)
		}
		for _, row := range body.Data {
			items = append(items, entities.PlatformAdSet{
				ID:               row.ID,
				Name:             row.Name,
				RunState:         entities.NormalizePlatformStatus(row.Status),
				Spend:            firstSpend(row.Insights.Data),
				DailyBudgetMinor: parseMinor(row.DailyBudget),
			})
		}
		next = body.Paging.Next
	}
	c.remember(items...)
	c.logger().Debug("platform ad sets listed",
		"event", "platform_adsets_listed",
		"module", "ad-operations/adset-automation-service",
		"layer", "adapter",
		"count", len(items),
	)
	return items, nil
}

func (c *GraphClient) SetRunState(ctx context.Context, adSetID string, state entities.RunState) (ports.Ack, error) {
	form := url.Values{}
	form.Set("status", string(state))
	var body struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodPost, c.endpoint(url.PathEscape(adSetID)), c.withToken(form), &body); err != nil {
		return ports.Ack{}, err
	}
	if !body.Success {
		return ports.Ack{}, fmt.Errorf("%w: status update not acknowledged", domainerrors.ErrTransientBridge)
	}
	previous, seen := c.lastKnown(adSetID)
	c.remember(entities.PlatformAdSet{ID: adSetID, RunState: state})
	return ports.Ack{
		AdSetID:   adSetID,
		State:     state,
		Changed:   !seen || previous != state,
		AppliedAt: time.Now().UTC(),
	}, nil
}

func (c *GraphClient) remember(items ...entities.PlatformAdSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.known == nil {
		c.known = make(map[string]entities.RunState, len(items))
	}
	for _, item := range items {
		c.known[item.ID] = item.RunState
	}
}

func (c *GraphClient) lastKnown(adSetID string) (entities.RunState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.known[adSetID]
	return state, ok
}

func (c *GraphClient) do(ctx context.Context, method string, target string, form url.Values, out any) error {
	var payload io.Reader
	if form != nil {
		payload = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %w", domainerrors.ErrTransientBridge, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: %w", domainerrors.ErrTransientBridge, err)
	}

	var envelope struct {
		Error *GraphError `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
		envelope.Error.StatusCode = resp.StatusCode
		return envelope.Error
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &GraphError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return json.Unmarshal(raw, out)
}

func (c *GraphClient) endpoint(path string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = DefaultGraphBaseURL
	}
	version := strings.TrimSpace(c.Version)
	if version == "" {
		version = DefaultGraphVersion
	}
	return base + "/" + version + "/" + strings.TrimLeft(path, "/")
}

func (c *GraphClient) accountPath() string {
	if strings.HasPrefix(c.AccountID, "act_") {
		return c.AccountID
	}
	return "act_" + c.AccountID
}

func (c *GraphClient) withToken(values url.Values) url.Values {
	values.Set("access_token", c.AccessToken)
	return values
}

func (c *GraphClient) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func (c *GraphClient) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func firstSpend(rows []struct {
	Spend string `json:"spend"`
}) float64 {
	if len(rows) == 0 {
		return 0
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(rows[0].Spend), 64)
	if err != nil {
		return 0
	}
	return value
}

// parseMinor reads daily_budget, which the API returns as a string of minor
// currency units. Missing or malformed budgets become 0 (unknown).
func parseMinor(raw string) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
