package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AutomationRecordDTO struct {
	State            string `json:"state"`
	Cause            string `json:"cause,omitempty"`
	Direction        string `json:"direction,omitempty"`
	LastTransitionAt string `json:"last_transition_at,omitempty"`
	ShadowTarget     string `json:"shadow_target,omitempty"`
	Reconciled       bool   `json:"reconciled"`
	LastError        string `json:"last_error,omitempty"`
	Attempts         int    `json:"attempts"`
}

type ManualOverrideDTO struct {
	Status           string `json:"status"`
	Actor            string `json:"actor"`
	IssuedAt         string `json:"issued_at"`
	InSessionAtIssue bool   `json:"in_session_at_issue"`
}

// AdSetSettingsDTO carries per-field server timestamps so clients can tell
// whether their own optimistic write has been superseded.
type AdSetSettingsDTO struct {
	AdSetID           string               `json:"adset_id"`
	Name              string               `json:"name,omitempty"`
	Turns             []string             `json:"turns"`
	StopLossPercent   float64              `json:"stop_loss_percent"`
	IsFrozen          bool                 `json:"is_frozen"`
	LastKnownStatus   string               `json:"last_known_status"`
	Spend             float64              `json:"spend"`
	DailyBudgetMinor  int64                `json:"daily_budget_minor"`
	SpendPercent      float64              `json:"spend_percent"`
	ObservedAt        string               `json:"observed_at,omitempty"`
	TurnsUpdatedAt    string               `json:"turns_updated_at,omitempty"`
	StopLossUpdatedAt string               `json:"stop_loss_updated_at,omitempty"`
	FrozenUpdatedAt   string               `json:"frozen_updated_at,omitempty"`
	Manual            *ManualOverrideDTO   `json:"manual_override,omitempty"`
	Automation        *AutomationRecordDTO `json:"automation,omitempty"`
}

type TurnDTO struct {
	Name      string  `json:"name"`
	StartHour float64 `json:"start_hour"`
	EndHour   float64 `json:"end_hour"`
	Days      string  `json:"days"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

type AuditLogDTO struct {
	ID        string `json:"id"`
	Actor     string `json:"actor"`
	Message   string `json:"message"`
	Cause     string `json:"cause,omitempty"`
	AdSetID   string `json:"adset_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

type SnapshotResponse struct {
	GeneratedAt       string             `json:"generated_at"`
	AutomationEnabled bool               `json:"automation_enabled"`
	Settings          []AdSetSettingsDTO `json:"settings"`
	Turns             []TurnDTO          `json:"turns"`
	Logs              []AuditLogDTO      `json:"logs"`
	RunStates         map[string]string  `json:"run_states"`
}

type GetSettingsResponse struct {
	Settings AdSetSettingsDTO `json:"settings"`
}

// SetFieldRequest.Value is decoded with UseNumber; numbers arrive as
// json.Number and are validated server side.
type SetFieldRequest struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message,omitempty"`
}

type SetFieldResponse struct {
	AdSetID   string           `json:"adset_id"`
	Field     string           `json:"field"`
	UpdatedAt string           `json:"updated_at"`
	Settings  AdSetSettingsDTO `json:"settings"`
}

type BulkSetFieldRequest struct {
	IDs   []string `json:"ids"`
	All   bool     `json:"all,omitempty"`
	Field string   `json:"field"`
	Value any      `json:"value"`
}

type BulkItemResult struct {
	AdSetID   string `json:"adset_id"`
	Success   bool   `json:"success"`
	UpdatedAt string `json:"updated_at,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

type BulkSetFieldResponse struct {
	Field     string           `json:"field"`
	Results   []BulkItemResult `json:"results"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

type ToggleRunStateRequest struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

type ToggleRunStateResponse struct {
	AdSetID  string `json:"adset_id"`
	Desired  string `json:"desired"`
	Changed  bool   `json:"changed"`
	Attempts int    `json:"attempts"`
}

type BulkRunStateRequest struct {
	IDs     []string `json:"ids"`
	Status  string   `json:"status"`
	Message string   `json:"message,omitempty"`
}

type BulkRunStateResponse struct {
	Desired   string           `json:"desired"`
	Results   []BulkItemResult `json:"results"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

// ScheduleRunStateRequest.ExecuteAt takes RFC 3339, or a zone-less local
// time read in the automation timezone.
type ScheduleRunStateRequest struct {
	IDs       []string `json:"ids"`
	Status    string   `json:"status"`
	ExecuteAt string   `json:"execute_at"`
	Message   string   `json:"message,omitempty"`
}

type ScheduledActionDTO struct {
	ID         string `json:"id"`
	AdSetID    string `json:"adset_id"`
	Status     string `json:"status"`
	ExecuteAt  string `json:"execute_at"`
	Actor      string `json:"actor"`
	Message    string `json:"message,omitempty"`
	State      string `json:"state"`
	ExecutedAt string `json:"executed_at,omitempty"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type ScheduleRunStateResponse struct {
	Items        []ScheduledActionDTO `json:"items"`
	DelaySeconds float64              `json:"delay_seconds"`
}

type ListScheduledActionsResponse struct {
	Items []ScheduledActionDTO `json:"items"`
}

type ToggleAutomationResponse struct {
	Enabled   bool   `json:"enabled"`
	UpdatedAt string `json:"updated_at"`
}

// EvaluateResponse only carries counts when the cycle ran in the API
// process; a queued request reports Queued and the queue time.
type EvaluateResponse struct {
	Queued            bool              `json:"queued,omitempty"`
	StartedAt         string            `json:"started_at"`
	AutomationEnabled bool              `json:"automation_enabled"`
	Evaluated         int               `json:"evaluated"`
	Transitions       int               `json:"transitions"`
	Applied           int               `json:"applied"`
	Failed            int               `json:"failed"`
	Outcomes          []EvaluateOutcome `json:"outcomes"`
}

type EvaluateOutcome struct {
	AdSetID      string  `json:"adset_id"`
	Target       string  `json:"target"`
	Cause        string  `json:"cause"`
	Desired      string  `json:"desired"`
	SpendPercent float64 `json:"spend_percent"`
	Shadow       bool    `json:"shadow,omitempty"`
	Applied      bool    `json:"applied"`
	Error        string  `json:"error,omitempty"`
}

type ListTurnsResponse struct {
	Items []TurnDTO `json:"items"`
}

// UpsertTurnRequest always carries the full triple.
type UpsertTurnRequest struct {
	Start any    `json:"start"`
	End   any    `json:"end"`
	Days  string `json:"days"`
}

type UpsertTurnResponse struct {
	Turn TurnDTO `json:"turn"`
}

type ListLogsResponse struct {
	Items []AuditLogDTO `json:"items"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Account   string `json:"account,omitempty"`
	Timestamp string `json:"timestamp"`
}
