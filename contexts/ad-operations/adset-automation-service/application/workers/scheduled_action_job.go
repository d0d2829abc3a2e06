package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	application "adshift/contexts/ad-operations/adset-automation-service/application"
	"adshift/contexts/ad-operations/adset-automation-service/application/commands"
	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
	"adshift/contexts/ad-operations/adset-automation-service/ports"
)

const defaultActionBatch = 100

// ScheduledActionJob runs due one-shot actions as manual toggles by the
// operator who scheduled them. Each action runs at most once: it is claimed
// before the toggle and never put back to pending.
type ScheduledActionJob struct {
	Actions   ports.ScheduledActionRepository
	Toggle    commands.ToggleRunStateUseCase
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (j ScheduledActionJob) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	now := j.now()
	batch := j.BatchSize
	if batch <= 0 {
		batch = defaultActionBatch
	}
	due, err := j.Actions.ListDueScheduledActions(ctx, now, batch)
	if err != nil {
		return err
	}

	for _, action := range due {
		claimed, err := j.Actions.ClaimScheduledAction(ctx, action.ID, now)
		if err != nil {
			return err
		}
		if !claimed {
			continue
		}

		message := action.Message
		if message == "" {
			message = fmt.Sprintf("Scheduled %s by %s", action.Desired, action.Actor)
		}
		_, runErr := j.Toggle.Execute(ctx, commands.ToggleRunStateCommand{
			AdSetID: action.AdSetID,
			Status:  string(action.Desired),
			Actor:   action.Actor,
			Message: message,
		})

		state, errMessage := entities.ActionDone, ""
		if runErr != nil {
			errMessage = runErr.Error()
			// The hold is recorded before the platform call, so a bridge
			// failure is still converged by the automation cycle.
			if !errors.Is(runErr, domainerrors.ErrTransientBridge) {
				state = entities.ActionFailed
			}
			logger.Warn("scheduled action failed",
				"event", "adset_scheduled_action_failed",
				"module", "ad-operations/adset-automation-service",
				"layer", "worker",
				"action_id", action.ID,
				"adset_id", action.AdSetID,
				"desired", string(action.Desired),
				"error", errMessage,
			)
		}
		if err := j.Actions.CompleteScheduledAction(ctx, action.ID, state, errMessage); err != nil {
			return err
		}
		logger.Info("scheduled action executed",
			"event", "adset_scheduled_action_executed",
			"module", "ad-operations/adset-automation-service",
			"layer", "worker",
			"action_id", action.ID,
			"adset_id", action.AdSetID,
			"desired", string(action.Desired),
			"state", string(state),
			"late_by", now.Sub(action.ExecuteAt).String(),
		)
	}
	return nil
}

func (j ScheduledActionJob) now() time.Time {
	if j.Clock == nil {
		return time.Now().UTC()
	}
	return j.Clock.Now().UTC()
}
