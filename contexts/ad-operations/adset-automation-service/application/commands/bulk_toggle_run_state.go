package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	application "adshift/contexts/ad-operations/adset-automation-service/application"
	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
)

type BulkToggleRunStateCommand struct {
	AdSetIDs []string
	Status   string
	Actor    string
	Message  string
}

type BulkToggleRunStateResult struct {
	Desired   entities.RunState
	Outcomes  []BulkOutcome
	Succeeded int
	Failed    int
}

// BulkToggleRunStateUseCase runs the single toggle once per id. Unlike the
// single toggle the status is required, so every id moves the same way.
type BulkToggleRunStateUseCase struct {
	Toggle ToggleRunStateUseCase
	Logger *slog.Logger
}

func (u BulkToggleRunStateUseCase) Execute(ctx context.Context, cmd BulkToggleRunStateCommand) (BulkToggleRunStateResult, error) {
	logger := application.ResolveLogger(u.Logger)
	actor := strings.TrimSpace(cmd.Actor)
	if actor == "" {
		return BulkToggleRunStateResult{}, domainerrors.NewValidationError("actor", cmd.Actor, domainerrors.ErrActorRequired)
	}
	desired, err := entities.ParseRunState(cmd.Status)
	if err != nil {
		return BulkToggleRunStateResult{}, domainerrors.NewValidationError("status", cmd.Status, err)
	}
	if len(cmd.AdSetIDs) == 0 {
		return BulkToggleRunStateResult{}, domainerrors.NewValidationError("ids", cmd.AdSetIDs, domainerrors.ErrAdSetIDsRequired)
	}

	result := BulkToggleRunStateResult{Desired: desired, Outcomes: make([]BulkOutcome, 0, len(cmd.AdSetIDs))}
	for _, raw := range cmd.AdSetIDs {
		adSetID := strings.TrimSpace(raw)
		outcome := BulkOutcome{AdSetID: adSetID}
		toggled, err := u.Toggle.Execute(ctx, ToggleRunStateCommand{
			AdSetID: adSetID,
			Status:  string(desired),
			Actor:   actor,
			Message: cmd.Message,
		})
		if toggled.Settings.Manual != nil {
			outcome.UpdatedAt = toggled.Settings.Manual.IssuedAt
		}
		// A failed platform call keeps the recorded hold; the next cycle
		// retries it, so the item still reports the error.
		outcome.Err = err
		if err != nil {
			result.Failed++
			level := slog.LevelWarn
			if errors.Is(err, domainerrors.ErrValidation) {
				level = slog.LevelInfo
			}
			logger.Log(ctx, level, "bulk run state item failed",
				"event", "adset_bulk_run_state_item_failed",
				"module", "ad-operations/adset-automation-service",
				"layer", "application",
				"adset_id", adSetID,
				"desired", string(desired),
				"error", err.Error(),
			)
		} else {
			result.Succeeded++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	logger.Info("bulk run state completed",
		"event", "adset_bulk_run_state_completed",
		"module", "ad-operations/adset-automation-service",
		"layer", "application",
		"desired", string(desired),
		"actor", actor,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
	return result, nil
}
