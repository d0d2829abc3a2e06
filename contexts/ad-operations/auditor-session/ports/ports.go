package ports

import (
	"context"
	"time"

	"adshift/contexts/ad-operations/auditor-session/domain/entities"
)

// FieldAck is the store's answer to a single-field write. Settings is the
// row as persisted, so normalised values (a clamped stop-loss) are visible.
type FieldAck struct {
	AdSetID   string
	Field     entities.Field
	UpdatedAt time.Time
	Settings  entities.AdSetView
}

type BulkItem struct {
	AdSetID   string
	Success   bool
	UpdatedAt time.Time
	Error     string
	ErrorCode string
}

// BulkResult carries Field for bulk field writes and Desired for bulk
// run-state writes.
type BulkResult struct {
	Field     entities.Field
	Desired   string
	Items     []BulkItem
	Succeeded int
	Failed    int
}

type RunStateAck struct {
	AdSetID  string
	Desired  string
	Changed  bool
	Attempts int
}

// EvaluateSummary is empty apart from Queued when the API handed the
// evaluation to the worker.
type EvaluateSummary struct {
	Queued      bool
	Evaluated   int
	Transitions int
	Applied     int
	Failed      int
}

type ScheduledAction struct {
	ID         string
	AdSetID    string
	Status     string
	ExecuteAt  time.Time
	Actor      string
	Message    string
	State      string
	ExecutedAt time.Time
	Error      string
}

// StoreAPI is the settings store as seen from an operator session.
type StoreAPI interface {
	Snapshot(ctx context.Context) (entities.Snapshot, error)
	SetField(ctx context.Context, actor string, adSetID string, field entities.Field, value any, message string) (FieldAck, error)
	BulkSetField(ctx context.Context, actor string, adSetIDs []string, all bool, field entities.Field, value any) (BulkResult, error)
	ToggleAutomation(ctx context.Context, actor string) (bool, error)
	ToggleRunState(ctx context.Context, actor string, adSetID string, status string, message string) (RunStateAck, error)
	BulkToggleRunState(ctx context.Context, actor string, adSetIDs []string, status string, message string) (BulkResult, error)
	ScheduleRunState(ctx context.Context, actor string, adSetIDs []string, status string, executeAt string, message string) ([]ScheduledAction, error)
	ListScheduledActions(ctx context.Context, pendingOnly bool) ([]ScheduledAction, error)
	UpsertTurn(ctx context.Context, actor string, turn entities.Turn) (entities.Turn, error)
	Evaluate(ctx context.Context, actor string) (EvaluateSummary, error)
}

type Clock interface {
	Now() time.Time
}
