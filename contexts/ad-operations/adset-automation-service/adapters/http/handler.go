package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "adshift/contexts/ad-operations/adset-automation-service/application"
	"adshift/contexts/ad-operations/adset-automation-service/application/automation"
	"adshift/contexts/ad-operations/adset-automation-service/application/commands"
	"adshift/contexts/ad-operations/adset-automation-service/application/queries"
	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
	"adshift/contexts/ad-operations/adset-automation-service/domain/services"
	httptransport "adshift/contexts/ad-operations/adset-automation-service/transport/http"
)

type Handler struct {
	Snapshot             queries.SnapshotUseCase
	GetSettings          queries.GetSettingsUseCase
	ListTurns            queries.ListTurnsUseCase
	ListLogs             queries.ListLogsUseCase
	ListScheduledActions queries.ListScheduledActionsUseCase
	SetField             commands.SetFieldUseCase
	BulkSetField         commands.BulkSetFieldUseCase
	UpsertTurn           commands.UpsertTurnUseCase
	ToggleAutomation     commands.ToggleAutomationUseCase
	ToggleRunState       commands.ToggleRunStateUseCase
	BulkToggleRunState   commands.BulkToggleRunStateUseCase
	ScheduleRunState     commands.ScheduleRunStateUseCase
	RequestEvaluation    commands.RequestEvaluationUseCase
	QueueEvaluations     bool
	Runner               *automation.Runner
	Logger               *slog.Logger
}

// SnapshotHandler godoc
// @Summary Aggregate automation snapshot
// @Description Returns settings, turns, automation flag, recent audit log and platform run states in one read.
// @Tags adset-automation
// @Produce json
// @Success 200 {object} httptransport.SnapshotResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/automation/v1/snapshot [get]
func (h Handler) SnapshotHandler(ctx context.Context) (httptransport.SnapshotResponse, error) {
	snapshot, err := h.Snapshot.Execute(ctx)
	if err != nil {
		application.ResolveLogger(h.Logger).Error("snapshot request failed",
			"event", "http_snapshot_failed",
			"module", "ad-operations/adset-automation-service",
			"layer", "transport",
			"error", err.Error(),
		)
		return httptransport.SnapshotResponse{}, err
	}

	resp := httptransport.SnapshotResponse{
		GeneratedAt:       formatTime(snapshot.GeneratedAt),
		AutomationEnabled: snapshot.AutomationEnabled,
		Settings:          make([]httptransport.AdSetSettingsDTO, 0, len(snapshot.AdSets)),
		Turns:             mapTurns(snapshot.Turns),
		Logs:              mapLogs(snapshot.Logs),
		RunStates:         make(map[string]string, len(snapshot.RunStates)),
	}
	for _, view := range snapshot.AdSets {
		dto := mapSettings(view.Settings)
		dto.SpendPercent = view.SpendPercent
		if view.Record != nil {
			dto.Automation = mapRecord(*view.Record)
		}
		resp.Settings = append(resp.Settings, dto)
	}
	for id, state := range snapshot.RunStates {
		resp.RunStates[id] = string(state)
	}
	return resp, nil
}

// GetSettingsHandler godoc
// @Summary Get ad set settings
// @Description Returns stored settings, or defaults for ad sets not observed yet.
// @Tags adset-automation
// @Produce json
// @Param adset_id path string true "Ad set id"
// @Success 200 {object} httptransport.GetSettingsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /api/automation/v1/adsets/{adset_id} [get]
func (h Handler) GetSettingsHandler(ctx context.Context, adSetID string) (httptransport.GetSettingsResponse, error) {
	item, err := h.GetSettings.Execute(ctx, adSetID)
	if err != nil {
		return httptransport.GetSettingsResponse{}, err
	}
	dto := mapSettings(item)
	dto.SpendPercent = services.SpendPercent(item.Spend, item.DailyBudgetMinor)
	return httptransport.GetSettingsResponse{Settings: dto}, nil
}

// SetFieldHandler godoc
// @Summary Set one settings field
// @Description Validates and writes turns, stopLossPercent or isFrozen for one ad set.
// @Tags adset-automation
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Operator identity"
// @Param adset_id path string true "Ad set id"
// @Param request body httptransport.SetFieldRequest true "Field write"
// @Success 200 {object} httptransport.SetFieldResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Router /api/automation/v1/adsets/{adset_id}/fields [post]
func (h Handler) SetFieldHandler(
	ctx context.Context,
	actor string,
	adSetID string,
	req httptransport.SetFieldRequest,
) (httptransport.SetFieldResponse, error) {
	result, err := h.SetField.Execute(ctx, commands.SetFieldCommand{
		AdSetID: adSetID,
		Field:   req.Field,
		Value:   req.Value,
		Actor:   actor,
		Message: req.Message,
	})
	if err != nil {
		return httptransport.SetFieldResponse{}, err
	}
	return httptransport.SetFieldResponse{
		AdSetID:   result.Settings.AdSetID,
		Field:     string(result.Field),
		UpdatedAt: formatTime(result.UpdatedAt),
		Settings:  mapSettings(result.Settings),
	}, nil
}

// BulkSetFieldHandler godoc
// @Summary Set one field across many ad sets
// @Description Applies the same value to every id; each id reports its own outcome.
// @Tags adset-automation
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Operator identity"
// @Param request body httptransport.BulkSetFieldRequest true "Bulk write"
// @Success 200 {object} httptransport.BulkSetFieldResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Router /api/automation/v1/adsets/bulk-fields [post]
func (h Handler) BulkSetFieldHandler(
	ctx context.Context,
	actor string,
	req httptransport.BulkSetFieldRequest,
) (httptransport.BulkSetFieldResponse, error) {
	result, err := h.BulkSetField.Execute(ctx, commands.BulkSetFieldCommand{
		AdSetIDs: append([]string(nil), req.IDs...),
		All:      req.All,
		Field:    req.Field,
		Value:    req.Value,
		Actor:    actor,
	})
	if err != nil {
		return httptransport.BulkSetFieldResponse{}, err
	}
	resp := httptransport.BulkSetFieldResponse{
		Field:     string(result.Field),
		Results:   mapBulkOutcomes(result.Outcomes),
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	}
	return resp, nil
}

// ToggleRunStateHandler godoc
// @Summary Manually run or pause an ad set
// @Description Records a manual override and applies it on the platform. Frozen ad sets are rejected.
// @Tags adset-automation
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Operator identity"
// @Param adset_id path string true "Ad set id"
// @Param request body httptransport.ToggleRunStateRequest false "Target status; empty flips"
// @Success 200 {object} httptransport.ToggleRunStateResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 502 {object} httptransport.ErrorResponse
// @Router /api/automation/v1/adsets/{adset_id}/run-state [post]
func (h Handler) ToggleRunStateHandler(
	ctx context.Context,
	actor string,
	adSetID string,
	req httptransport.ToggleRunStateRequest,
) (httptransport.ToggleRunStateResponse, error) {
	result, err := h.ToggleRunState.Execute(ctx, commands.ToggleRunStateCommand{
		AdSetID: adSetID,
		Status:  req.Status,
		Actor:   actor,
		Message: req.Message,
	})
	if err != nil {
		return httptransport.ToggleRunStateResponse{}, err
	}
	return httptransport.ToggleRunStateResponse{
		AdSetID:  adSetID,
		Desired:  string(result.Desired),
		Changed:  result.Ack.Changed,
		Attempts: result.Ack.Attempts,
	}, nil
}

// BulkToggleRunStateHandler godoc
// @Summary Manually run or pause many ad sets
// @Description Applies the same status to every id as a manual override; each id reports its own outcome.
// @Tags adset-automation
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Operator identity"
// @Param request body httptransport.BulkRunStateRequest true "Ids and target status"
// @Success 200 {object} httptransport.BulkRunStateResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Router /api/automation/v1/adsets/bulk-run-state [post]
func (h Handler) BulkToggleRunStateHandler(
	ctx context.Context,
	actor string,
	req httptransport.BulkRunStateRequest,
) (httptransport.BulkRunStateResponse, error) {
	result, err := h.BulkToggleRunState.Execute(ctx, commands.BulkToggleRunStateCommand{
		AdSetIDs: append([]string(nil), req.IDs...),
		Status:   req.Status,
		Actor:    actor,
		Message:  req.Message,
	})
	if err != nil {
		return httptransport.BulkRunStateResponse{}, err
	}
	return httptransport.BulkRunStateResponse{
		Desired:   string(result.Desired),
		Results:   mapBulkOutcomes(result.Outcomes),
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	}, nil
}

// ScheduleRunStateHandler godoc
// @Summary Schedule a one-shot run or pause
// @Description Stores one action per ad set; the worker applies it as a manual override once the time passes. Frozen ad sets are skipped at execution time.
// @Tags adset-automation
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Operator identity"
// @Param request body httptransport.ScheduleRunStateRequest true "Ids, status and execution time"
// @Success 201 {object} httptransport.ScheduleRunStateResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Router /api/automation/v1/scheduled-actions [post]
func (h Handler) ScheduleRunStateHandler(
	ctx context.Context,
	actor string,
	req httptransport.ScheduleRunStateRequest,
) (httptransport.ScheduleRunStateResponse, error) {
	result, err := h.ScheduleRunState.Execute(ctx, commands.ScheduleRunStateCommand{
		AdSetIDs:  append([]string(nil), req.IDs...),
		Status:    req.Status,
		ExecuteAt: req.ExecuteAt,
		Actor:     actor,
		Message:   req.Message,
	})
	if err != nil {
		return httptransport.ScheduleRunStateResponse{}, err
	}
	return httptransport.ScheduleRunStateResponse{
		Items:        mapActions(result.Actions),
		DelaySeconds: result.Delay.Seconds(),
	}, nil
}

// ListScheduledActionsHandler godoc
// @Summary List scheduled actions
// @Tags adset-automation
// @Produce json
// @Param pending query bool false "Only actions that have not run"
// @Success 200 {object} httptransport.ListScheduledActionsResponse
// @Router /api/automation/v1/scheduled-actions [get]
func (h Handler) ListScheduledActionsHandler(ctx context.Context, pendingOnly bool) (httptransport.ListScheduledActionsResponse, error) {
	items, err := h.ListScheduledActions.Execute(ctx, pendingOnly)
	if err != nil {
		return httptransport.ListScheduledActionsResponse{}, err
	}
	return httptransport.ListScheduledActionsResponse{Items: mapActions(items)}, nil
}

// ToggleAutomationHandler godoc
// @Summary Flip the automation kill switch
// @Tags adset-automation
// @Produce json
// @Param X-User-Id header string true "Operator identity"
// @Success 200 {object} httptransport.ToggleAutomationResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Router /api/automation/v1/automation/toggle [post]
func (h Handler) ToggleAutomationHandler(ctx context.Context, actor string) (httptransport.ToggleAutomationResponse, error) {
	flag, err := h.ToggleAutomation.Execute(ctx, actor)
	if err != nil {
		return httptransport.ToggleAutomationResponse{}, err
	}
	return httptransport.ToggleAutomationResponse{
		Enabled:   flag.Enabled,
		UpdatedAt: formatTime(flag.UpdatedAt),
	}, nil
}

// EvaluateHandler godoc
// @Summary Run one automation cycle now
// @Description Evaluates every ad set against schedule and stop-loss and applies boundary crossings. When the API runs beside a worker the request is queued for the worker and answered with 202.
// @Tags adset-automation
// @Produce json
// @Param X-User-Id header string true "Operator identity"
// @Success 200 {object} httptransport.EvaluateResponse
// @Success 202 {object} httptransport.EvaluateResponse
// @Failure 502 {object} httptransport.ErrorResponse
// @Router /api/automation/v1/automation/evaluate [post]
func (h Handler) EvaluateHandler(ctx context.Context, actor string) (httptransport.EvaluateResponse, error) {
	if h.QueueEvaluations || h.Runner == nil {
		queuedAt, err := h.RequestEvaluation.Execute(ctx, actor)
		if err != nil {
			return httptransport.EvaluateResponse{}, err
		}
		return httptransport.EvaluateResponse{
			Queued:    true,
			StartedAt: formatTime(queuedAt),
			Outcomes:  []httptransport.EvaluateOutcome{},
		}, nil
	}
	report, err := h.Runner.RunCycle(ctx)
	if err != nil {
		return httptransport.EvaluateResponse{}, err
	}
	resp := httptransport.EvaluateResponse{
		StartedAt:         formatTime(report.StartedAt),
		AutomationEnabled: report.AutomationEnabled,
		Evaluated:         report.Evaluated,
		Transitions:       report.Transitions,
		Applied:           report.Applied,
		Failed:            report.Failed,
		Outcomes:          make([]httptransport.EvaluateOutcome, 0, len(report.Outcomes)),
	}
	for _, outcome := range report.Outcomes {
		item := httptransport.EvaluateOutcome{
			AdSetID:      outcome.AdSetID,
			Target:       string(outcome.Decision.Target),
			Cause:        string(outcome.Decision.Cause),
			Desired:      string(outcome.Decision.Desired),
			SpendPercent: outcome.Decision.Percent,
			Shadow:       outcome.Decision.Shadow,
			Applied:      outcome.Ack != nil,
		}
		if outcome.Err != nil {
			item.Error = outcome.Err.Error()
		}
		resp.Outcomes = append(resp.Outcomes, item)
	}
	return resp, nil
}

// ListTurnsHandler godoc
// @Summary List shift definitions
// @Tags adset-automation
// @Produce json
// @Success 200 {object} httptransport.ListTurnsResponse
// @Router /api/automation/v1/turns [get]
func (h Handler) ListTurnsHandler(ctx context.Context) (httptransport.ListTurnsResponse, error) {
	items, err := h.ListTurns.Execute(ctx)
	if err != nil {
		return httptransport.ListTurnsResponse{}, err
	}
	return httptransport.ListTurnsResponse{Items: mapTurns(items)}, nil
}

// UpsertTurnHandler godoc
// @Summary Create or replace a shift
// @Description Replaces the named shift wholesale. Hours use half-hour steps; days accept Mon-Fri, Mon,Wed or L-V.
// @Tags adset-automation
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Operator identity"
// @Param name path string true "Shift name"
// @Param request body httptransport.UpsertTurnRequest true "Shift definition"
// @Success 200 {object} httptransport.UpsertTurnResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Router /api/automation/v1/turns/{name} [put]
func (h Handler) UpsertTurnHandler(
	ctx context.Context,
	actor string,
	name string,
	req httptransport.UpsertTurnRequest,
) (httptransport.UpsertTurnResponse, error) {
	turn, err := h.UpsertTurn.Execute(ctx, commands.UpsertTurnCommand{
		Name:  name,
		Start: req.Start,
		End:   req.End,
		Days:  req.Days,
		Actor: actor,
	})
	if err != nil {
		return httptransport.UpsertTurnResponse{}, err
	}
	return httptransport.UpsertTurnResponse{Turn: mapTurn(turn)}, nil
}

// ListLogsHandler godoc
// @Summary Recent audit log
// @Tags adset-automation
// @Produce json
// @Param limit query int false "Entries to return (1-50)"
// @Success 200 {object} httptransport.ListLogsResponse
// @Router /api/automation/v1/logs [get]
func (h Handler) ListLogsHandler(ctx context.Context, limit int) (httptransport.ListLogsResponse, error) {
	items, err := h.ListLogs.Execute(ctx, limit)
	if err != nil {
		return httptransport.ListLogsResponse{}, err
	}
	return httptransport.ListLogsResponse{Items: mapLogs(items)}, nil
}

// ErrorCode is the stable machine-readable code for a domain error.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, domainerrors.ErrActorRequired):
		return "missing_actor"
	case errors.Is(err, domainerrors.ErrAdSetNotFound):
		return "adset_not_found"
	case errors.Is(err, domainerrors.ErrActionNotFound):
		return "action_not_found"
	case errors.Is(err, domainerrors.ErrAdSetFrozen):
		return "adset_frozen"
	case errors.Is(err, domainerrors.ErrInvalidField):
		return "invalid_field"
	case errors.Is(err, domainerrors.ErrUnknownTurn):
		return "unknown_turn"
	case errors.Is(err, domainerrors.ErrValidation):
		return "validation_failed"
	case errors.Is(err, domainerrors.ErrTransientBridge):
		return "platform_unavailable"
	case errors.Is(err, domainerrors.ErrPermanentBridge), errors.Is(err, domainerrors.ErrPlatformNotFound):
		return "platform_rejected"
	case errors.Is(err, domainerrors.ErrPlatformRead):
		return "platform_read_failed"
	default:
		return "internal_error"
	}
}

func mapSettings(item entities.AdSetSettings) httptransport.AdSetSettingsDTO {
	turns := append([]string{}, item.Turns...)
	dto := httptransport.AdSetSettingsDTO{
		AdSetID:           item.AdSetID,
		Name:              item.Name,
		Turns:             turns,
		StopLossPercent:   item.StopLossPercent,
		IsFrozen:          item.IsFrozen,
		LastKnownStatus:   string(item.LastKnownStatus),
		Spend:             item.Spend,
		DailyBudgetMinor:  item.DailyBudgetMinor,
		SpendPercent:      services.SpendPercent(item.Spend, item.DailyBudgetMinor),
		ObservedAt:        formatTime(item.ObservedAt),
		TurnsUpdatedAt:    formatTime(item.TurnsUpdatedAt),
		StopLossUpdatedAt: formatTime(item.StopLossUpdatedAt),
		FrozenUpdatedAt:   formatTime(item.FrozenUpdatedAt),
	}
	if item.Manual != nil {
		dto.Manual = &httptransport.ManualOverrideDTO{
			Status:           string(item.Manual.Status),
			Actor:            item.Manual.Actor,
			IssuedAt:         formatTime(item.Manual.IssuedAt),
			InSessionAtIssue: item.Manual.InSessionAtIssue,
		}
	}
	return dto
}

func mapBulkOutcomes(outcomes []commands.BulkOutcome) []httptransport.BulkItemResult {
	results := make([]httptransport.BulkItemResult, 0, len(outcomes))
	for _, outcome := range outcomes {
		item := httptransport.BulkItemResult{AdSetID: outcome.AdSetID, Success: outcome.Err == nil}
		if outcome.Err != nil {
			item.Error = outcome.Err.Error()
			item.ErrorCode = ErrorCode(outcome.Err)
		} else {
			item.UpdatedAt = formatTime(outcome.UpdatedAt)
		}
		results = append(results, item)
	}
	return results
}

func mapActions(items []entities.ScheduledAction) []httptransport.ScheduledActionDTO {
	result := make([]httptransport.ScheduledActionDTO, 0, len(items))
	for _, item := range items {
		result = append(result, httptransport.ScheduledActionDTO{
			ID:         item.ID,
			AdSetID:    item.AdSetID,
			Status:     string(item.Desired),
			ExecuteAt:  formatTime(item.ExecuteAt),
			Actor:      item.Actor,
			Message:    item.Message,
			State:      string(item.State),
			ExecutedAt: formatTime(item.ExecutedAt),
			Error:      item.Error,
			CreatedAt:  formatTime(item.CreatedAt),
		})
	}
	return result
}

func mapRecord(record entities.AutomationRecord) *httptransport.AutomationRecordDTO {
	return &httptransport.AutomationRecordDTO{
		State:            string(record.State),
		Cause:            string(record.Cause),
		Direction:        string(record.Direction),
		LastTransitionAt: formatTime(record.LastTransitionAt),
		ShadowTarget:     string(record.ShadowTarget),
		Reconciled:       record.Reconciled,
		LastError:        record.LastError,
		Attempts:         record.Attempts,
	}
}

func mapTurn(turn entities.TurnConfig) httptransport.TurnDTO {
	return httptransport.TurnDTO{
		Name:      turn.Name,
		StartHour: turn.StartHour,
		EndHour:   turn.EndHour,
		Days:      turn.ActiveDays.String(),
		UpdatedAt: formatTime(turn.UpdatedAt),
	}
}

func mapTurns(items []entities.TurnConfig) []httptransport.TurnDTO {
	result := make([]httptransport.TurnDTO, 0, len(items))
	for _, item := range items {
		result = append(result, mapTurn(item))
	}
	return result
}

func mapLogs(items []entities.AuditLogEntry) []httptransport.AuditLogDTO {
	result := make([]httptransport.AuditLogDTO, 0, len(items))
	for _, item := range items {
		result = append(result, httptransport.AuditLogDTO{
			ID:        item.ID,
			Actor:     item.Actor,
			Message:   item.Message,
			Cause:     string(item.Cause),
			AdSetID:   item.AdSetID,
			Timestamp: formatTime(item.Timestamp),
		})
	}
	return result
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339Nano)
}
