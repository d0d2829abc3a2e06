package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "adshift/contexts/ad-operations/adset-automation-service/application"
	"adshift/contexts/ad-operations/adset-automation-service/ports"
)

// OutboxRelay publishes pending transition and settings events to the bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("adset outbox list failed",
			"event", "adset_outbox_list_failed",
			"module", "ad-operations/adset-automation-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	published := 0
	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("adset outbox decode failed",
				"event", "adset_outbox_decode_failed",
				"module", "ad-operations/adset-automation-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}

		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("adset outbox publish failed",
				"event", "adset_outbox_publish_failed",
				"module", "ad-operations/adset-automation-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_id", event.EventID,
				"topic", topic,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxSent(ctx, row.OutboxID, now); err != nil {
			logger.Error("adset outbox mark sent failed",
				"event", "adset_outbox_mark_sent_failed",
				"module", "ad-operations/adset-automation-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		published++
	}

	if published > 0 {
		logger.Info("adset outbox relay cycle completed",
			"event", "adset_outbox_relay_completed",
			"module", "ad-operations/adset-automation-service",
			"layer", "worker",
			"published_count", published,
		)
	}
	return nil
}
