package ports

import (
	"context"
	"time"

	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	contractsv1 "adshift/contracts/gen/events/v1"
)

// SettingsRepository owns AdSetSettings rows. Every write touches a single
// row and is individually atomic; nothing groups writes across ad sets.
type SettingsRepository interface {
	GetSettings(ctx context.Context, adSetID string) (entities.AdSetSettings, error)
	ListSettings(ctx context.Context) ([]entities.AdSetSettings, error)
	// ObserveAdSets creates missing rows with defaults and refreshes the
	// cached platform observation of every listed ad set.
	ObserveAdSets(ctx context.Context, observed []entities.PlatformAdSet, at time.Time) ([]entities.AdSetSettings, error)
	// UpdateSettingField fails with ErrAdSetNotFound for never-observed ids.
	UpdateSettingField(ctx context.Context, adSetID string, patch entities.FieldPatch, at time.Time) (entities.AdSetSettings, error)
	SetManualOverride(ctx context.Context, adSetID string, override entities.ManualOverride) (entities.AdSetSettings, error)
	// ClearManualOverride only clears the override issued at issuedAt so a
	// newer operator command is never lost.
	ClearManualOverride(ctx context.Context, adSetID string, issuedAt time.Time) error
}

type TurnRepository interface {
	ListTurns(ctx context.Context) ([]entities.TurnConfig, error)
	UpsertTurn(ctx context.Context, turn entities.TurnConfig) (entities.TurnConfig, error)
}

type AuditLog interface {
	AppendAudit(ctx context.Context, entry entities.AuditLogEntry) error
	ListRecentAudit(ctx context.Context, limit int) ([]entities.AuditLogEntry, error)
}

type AutomationFlagStore interface {
	GetAutomationFlag(ctx context.Context) (entities.AutomationFlag, error)
	ToggleAutomation(ctx context.Context, at time.Time) (entities.AutomationFlag, error)
}

type AutomationRecordRepository interface {
	ListAutomationRecords(ctx context.Context) ([]entities.AutomationRecord, error)
	SaveAutomationRecord(ctx context.Context, record entities.AutomationRecord) error
}

// ScheduledActionRepository stores one-shot run/pause requests.
type ScheduledActionRepository interface {
	CreateScheduledActions(ctx context.Context, actions []entities.ScheduledAction) error
	// ListScheduledActions orders by execution time; pendingOnly hides
	// finished actions.
	ListScheduledActions(ctx context.Context, pendingOnly bool) ([]entities.ScheduledAction, error)
	ListDueScheduledActions(ctx context.Context, now time.Time, limit int) ([]entities.ScheduledAction, error)
	// ClaimScheduledAction moves a pending action to RUNNING. It reports
	// false when another worker claimed it first.
	ClaimScheduledAction(ctx context.Context, actionID string, at time.Time) (bool, error)
	CompleteScheduledAction(ctx context.Context, actionID string, state entities.ScheduledActionState, errMessage string) error
}

// Ack confirms a platform status call.
type Ack struct {
	AdSetID   string
	State     entities.RunState
	Changed   bool
	Attempts  int
	AppliedAt time.Time
}

// PlatformClient is the opaque ad-platform API.
type PlatformClient interface {
	ListAdSets(ctx context.Context) ([]entities.PlatformAdSet, error)
	SetRunState(ctx context.Context, adSetID string, state entities.RunState) (Ack, error)
}

// StatusBridge applies run states to the platform with retries.
type StatusBridge interface {
	Apply(ctx context.Context, adSetID string, desired entities.RunState) (Ack, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
