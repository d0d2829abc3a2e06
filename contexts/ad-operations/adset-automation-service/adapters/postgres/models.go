package postgresadapter

import (
	"strings"
	"time"

	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
)

// Turn lists use the json serializer so the same models migrate on postgres
// and sqlite.
type adSetSettingsModel struct {
	AdSetID           string     `gorm:"column:adset_id;primaryKey"`
	Turns             []string   `gorm:"column:turns;type:text;serializer:json"`
	StopLossPercent   float64    `gorm:"column:stop_loss_percent"`
	IsFrozen          bool       `gorm:"column:is_frozen"`
	LastKnownStatus   string     `gorm:"column:last_known_status"`
	ManualStatus      string     `gorm:"column:manual_status"`
	ManualActor       string     `gorm:"column:manual_actor"`
	ManualIssuedAt    *time.Time `gorm:"column:manual_issued_at"`
	ManualInSession   bool       `gorm:"column:manual_in_session"`
	Name              string     `gorm:"column:name"`
	Spend             float64    `gorm:"column:spend"`
	DailyBudgetMinor  int64      `gorm:"column:daily_budget_minor"`
	ObservedAt        *time.Time `gorm:"column:observed_at"`
	TurnsUpdatedAt    *time.Time `gorm:"column:turns_updated_at"`
	StopLossUpdatedAt *time.Time `gorm:"column:stop_loss_updated_at"`
	FrozenUpdatedAt   *time.Time `gorm:"column:frozen_updated_at"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
}

func (adSetSettingsModel) TableName() string {
	return "adset_settings"
}

func settingsModelFromEntity(item entities.AdSetSettings) adSetSettingsModel {
	row := adSetSettingsModel{
		AdSetID:           strings.TrimSpace(item.AdSetID),
		Turns:             append([]string{}, item.Turns...),
		StopLossPercent:   item.StopLossPercent,
		IsFrozen:          item.IsFrozen,
		LastKnownStatus:   string(item.LastKnownStatus),
		Name:              item.Name,
		Spend:             item.Spend,
		DailyBudgetMinor:  item.DailyBudgetMinor,
		ObservedAt:        timePtr(item.ObservedAt),
		TurnsUpdatedAt:    timePtr(item.TurnsUpdatedAt),
		StopLossUpdatedAt: timePtr(item.StopLossUpdatedAt),
		FrozenUpdatedAt:   timePtr(item.FrozenUpdatedAt),
		CreatedAt:         item.CreatedAt.UTC(),
	}
	if item.Manual != nil {
		row.ManualStatus = string(item.Manual.Status)
		row.ManualActor = item.Manual.Actor
		row.ManualIssuedAt = timePtr(item.Manual.IssuedAt)
		row.ManualInSession = item.Manual.InSessionAtIssue
	}
	return row
}

func (m adSetSettingsModel) toEntity() entities.AdSetSettings {
	item := entities.AdSetSettings{
		AdSetID:           m.AdSetID,
		Turns:             append([]string{}, m.Turns...),
		StopLossPercent:   m.StopLossPercent,
		IsFrozen:          m.IsFrozen,
		LastKnownStatus:   entities.NormalizePlatformStatus(m.LastKnownStatus),
		Name:              m.Name,
		Spend:             m.Spend,
		DailyBudgetMinor:  m.DailyBudgetMinor,
		ObservedAt:        timeValue(m.ObservedAt),
		Observed:          m.ObservedAt != nil,
		TurnsUpdatedAt:    timeValue(m.TurnsUpdatedAt),
		StopLossUpdatedAt: timeValue(m.StopLossUpdatedAt),
		FrozenUpdatedAt:   timeValue(m.FrozenUpdatedAt),
		CreatedAt:         m.CreatedAt.UTC(),
	}
	if m.ManualIssuedAt != nil && m.ManualStatus != "" {
		item.Manual = &entities.ManualOverride{
			Status:           entities.NormalizePlatformStatus(m.ManualStatus),
			Actor:            m.ManualActor,
			IssuedAt:         m.ManualIssuedAt.UTC(),
			InSessionAtIssue: m.ManualInSession,
		}
	}
	return item
}

type turnConfigModel struct {
	Name       string    `gorm:"column:name;primaryKey"`
	StartHour  float64   `gorm:"column:start_hour"`
	EndHour    float64   `gorm:"column:end_hour"`
	ActiveDays int       `gorm:"column:active_days"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (turnConfigModel) TableName() string {
	return "turn_configs"
}

func (m turnConfigModel) toEntity() entities.TurnConfig {
	return entities.TurnConfig{
		Name:       m.Name,
		StartHour:  m.StartHour,
		EndHour:    m.EndHour,
		ActiveDays: entities.WeekdaySet(m.ActiveDays),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

type auditLogModel struct {
	EntryID   string    `gorm:"column:entry_id;primaryKey"`
	Actor     string    `gorm:"column:actor"`
	Message   string    `gorm:"column:message"`
	Cause     string    `gorm:"column:cause"`
	AdSetID   string    `gorm:"column:adset_id"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

func (auditLogModel) TableName() string {
	return "automation_audit_log"
}

func (m auditLogModel) toEntity() entities.AuditLogEntry {
	return entities.AuditLogEntry{
		ID:        m.EntryID,
		Actor:     m.Actor,
		Message:   m.Message,
		Cause:     entities.TransitionCause(m.Cause),
		AdSetID:   m.AdSetID,
		Timestamp: m.CreatedAt.UTC(),
	}
}

type automationRecordModel struct {
	AdSetID          string     `gorm:"column:adset_id;primaryKey"`
	State            string     `gorm:"column:state"`
	Cause            string     `gorm:"column:cause"`
	Direction        string     `gorm:"column:direction"`
	LastTransitionAt *time.Time `gorm:"column:last_transition_at"`
	ShadowTarget     string     `gorm:"column:shadow_target"`
	Reconciled       bool       `gorm:"column:reconciled"`
	LastError        string     `gorm:"column:last_error"`
	Attempts         int        `gorm:"column:attempts"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (automationRecordModel) TableName() string {
	return "automation_records"
}

func recordModelFromEntity(item entities.AutomationRecord) automationRecordModel {
	return automationRecordModel{
		AdSetID:          strings.TrimSpace(item.AdSetID),
		State:            string(item.State),
		Cause:            string(item.Cause),
		Direction:        string(item.Direction),
		LastTransitionAt: timePtr(item.LastTransitionAt),
		ShadowTarget:     string(item.ShadowTarget),
		Reconciled:       item.Reconciled,
		LastError:        item.LastError,
		Attempts:         item.Attempts,
		UpdatedAt:        item.UpdatedAt.UTC(),
	}
}

func (m automationRecordModel) toEntity() entities.AutomationRecord {
	return entities.AutomationRecord{
		AdSetID:          m.AdSetID,
		State:            entities.AutomationState(m.State),
		Cause:            entities.TransitionCause(m.Cause),
		Direction:        entities.RunState(m.Direction),
		LastTransitionAt: timeValue(m.LastTransitionAt),
		ShadowTarget:     entities.AutomationState(m.ShadowTarget),
		Reconciled:       m.Reconciled,
		LastError:        m.LastError,
		Attempts:         m.Attempts,
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
}

type automationFlagModel struct {
	FlagID    int       `gorm:"column:flag_id;primaryKey;autoIncrement:false"`
	Enabled   bool      `gorm:"column:enabled"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (automationFlagModel) TableName() string {
	return "automation_flags"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "adset_outbox"
}

type scheduledActionModel struct {
	ActionID   string     `gorm:"column:action_id;primaryKey"`
	AdSetID    string     `gorm:"column:adset_id;index"`
	Desired    string     `gorm:"column:desired"`
	ExecuteAt  time.Time  `gorm:"column:execute_at;index"`
	Actor      string     `gorm:"column:actor"`
	Message    string     `gorm:"column:message"`
	State      string     `gorm:"column:state;index"`
	ExecutedAt *time.Time `gorm:"column:executed_at"`
	Error      string     `gorm:"column:error"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
}

func (scheduledActionModel) TableName() string {
	return "adset_scheduled_actions"
}

func actionModelFromEntity(item entities.ScheduledAction) scheduledActionModel {
	state := item.State
	if state == "" {
		state = entities.ActionPending
	}
	return scheduledActionModel{
		ActionID:   strings.TrimSpace(item.ID),
		AdSetID:    strings.TrimSpace(item.AdSetID),
		Desired:    string(item.Desired),
		ExecuteAt:  item.ExecuteAt.UTC(),
		Actor:      item.Actor,
		Message:    item.Message,
		State:      string(state),
		ExecutedAt: timePtr(item.ExecutedAt),
		Error:      item.Error,
		CreatedAt:  item.CreatedAt.UTC(),
	}
}

func (m scheduledActionModel) toEntity() entities.ScheduledAction {
	return entities.ScheduledAction{
		ID:         m.ActionID,
		AdSetID:    m.AdSetID,
		Desired:    entities.NormalizePlatformStatus(m.Desired),
		ExecuteAt:  m.ExecuteAt.UTC(),
		Actor:      m.Actor,
		Message:    m.Message,
		CreatedAt:  m.CreatedAt.UTC(),
		State:      entities.ScheduledActionState(m.State),
		ExecutedAt: timeValue(m.ExecutedAt),
		Error:      m.Error,
	}
}

func timePtr(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	utc := value.UTC()
	return &utc
}

func timeValue(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return value.UTC()
}
