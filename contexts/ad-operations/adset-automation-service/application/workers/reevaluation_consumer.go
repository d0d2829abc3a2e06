package workers

import (
	"context"
	"log/slog"
	"strings"

	application "adshift/contexts/ad-operations/adset-automation-service/application"
	"adshift/contexts/ad-operations/adset-automation-service/application/automation"
	"adshift/contexts/ad-operations/adset-automation-service/ports"
)

const defaultReevaluationCG = "adset-automation-reevaluation-cg"

// reevaluationTopics are the events that can change a decision before the
// next periodic tick.
var reevaluationTopics = []string{
	application.EventSettingsChanged,
	application.EventTurnUpserted,
	application.EventAutomationToggled,
	application.EventActionScheduled,
	application.EventEvaluationRequested,
}

// ReevaluationConsumer runs an extra automation cycle when operators change
// something the decision depends on. Events that arrive while a cycle is
// pending collapse into that cycle.
type ReevaluationConsumer struct {
	Subscriber    ports.EventSubscriber
	Runner        *automation.Runner
	ConsumerGroup string
	Logger        *slog.Logger

	pending chan string
}

func NewReevaluationConsumer(subscriber ports.EventSubscriber, runner *automation.Runner, logger *slog.Logger) *ReevaluationConsumer {
	return &ReevaluationConsumer{
		Subscriber: subscriber,
		Runner:     runner,
		Logger:     logger,
		pending:    make(chan string, 1),
	}
}

// Start subscribes to every reevaluation topic and starts the cycle loop. It
// returns once the subscriptions are active.
func (c *ReevaluationConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultReevaluationCG
	}
	for _, topic := range reevaluationTopics {
		if err := c.Subscriber.Subscribe(ctx, topic, group, c.handle); err != nil {
			logger.Error("reevaluation consumer subscribe failed",
				"event", "automation_reevaluation_subscribe_failed",
				"module", "ad-operations/adset-automation-service",
				"layer", "worker",
				"topic", topic,
				"consumer_group", group,
				"error", err.Error(),
			)
			return err
		}
	}
	go c.loop(ctx)

	logger.Info("reevaluation consumer subscriptions active",
		"event", "automation_reevaluation_started",
		"module", "ad-operations/adset-automation-service",
		"layer", "worker",
		"consumer_group", group,
		"topics", len(reevaluationTopics),
	)
	return nil
}

func (c *ReevaluationConsumer) handle(_ context.Context, event ports.EventEnvelope) error {
	select {
	case c.pending <- event.EventType:
	default:
	}
	return nil
}

func (c *ReevaluationConsumer) loop(ctx context.Context) {
	logger := application.ResolveLogger(c.Logger)
	for {
		select {
		case <-ctx.Done():
			return
		case trigger := <-c.pending:
			report, err := c.Runner.RunCycle(ctx)
			if err != nil {
				logger.Warn("reevaluation cycle failed",
					"event", "automation_reevaluation_failed",
					"module", "ad-operations/adset-automation-service",
					"layer", "worker",
					"trigger", trigger,
					"error", err.Error(),
				)
				continue
			}
			logger.Info("reevaluation cycle completed",
				"event", "automation_reevaluation_completed",
				"module", "ad-operations/adset-automation-service",
				"layer", "worker",
				"trigger", trigger,
				"evaluated", report.Evaluated,
				"transitions", report.Transitions,
			)
		}
	}
}
