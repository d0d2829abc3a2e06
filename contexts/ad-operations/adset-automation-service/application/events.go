package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"adshift/contexts/ad-operations/adset-automation-service/ports"
)

const (
	EventRunStateChanged     = "adset.run_state_changed"
	EventSettingsChanged     = "adset.settings_changed"
	EventAutomationToggled   = "automation.toggled"
	EventTurnUpserted        = "turn.upserted"
	EventActionScheduled     = "adset.action_scheduled"
	EventEvaluationRequested = "automation.evaluation_requested"
)

// AppendEvent writes an envelope to the outbox when one is wired. Outbox
// failures are logged and returned; callers treat them as non-fatal.
func AppendEvent(
	ctx context.Context,
	outbox ports.OutboxWriter,
	ids ports.IDGenerator,
	occurredAt time.Time,
	eventType string,
	partitionKey string,
	data map[string]any,
	logger *slog.Logger,
) error {
	logger = ResolveLogger(logger)
	if outbox == nil || ids == nil {
		return nil
	}
	eventID, err := ids.NewID(ctx)
	if err != nil {
		logger.Error("outbox event id generation failed",
			"event", "adset_outbox_event_id_generation_failed",
			"module", "ad-operations/adset-automation-service",
			"layer", "application",
			"event_type", eventType,
			"error", err.Error(),
		)
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err := outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "adset-automation-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "adset_id",
		PartitionKey:     partitionKey,
		Data:             payload,
	}); err != nil {
		logger.Error("outbox append failed",
			"event", "adset_outbox_append_failed",
			"module", "ad-operations/adset-automation-service",
			"layer", "application",
			"event_id", eventID,
			"event_type", eventType,
			"partition_key", partitionKey,
			"error", err.Error(),
		)
		return err
	}
	return nil
}
