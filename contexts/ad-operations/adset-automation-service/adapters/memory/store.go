package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
	"adshift/contexts/ad-operations/adset-automation-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
	SentAt       *time.Time
}

// Store keeps every automation table in process memory. Each method locks
// the whole store, so single-row writes are atomic.
type Store struct {
	mu sync.RWMutex

	settings map[string]entities.AdSetSettings
	turns    map[string]entities.TurnConfig
	audit    []entities.AuditLogEntry
	records  map[string]entities.AutomationRecord
	flag     entities.AutomationFlag
	outbox   map[string]outboxRecord
	actions  map[string]entities.ScheduledAction
}

func NewStore(seedTurns []entities.TurnConfig) *Store {
	turns := make(map[string]entities.TurnConfig, len(seedTurns))
	for _, turn := range seedTurns {
		turns[entities.NormalizeTurnName(turn.Name)] = turn
	}
	return &Store{
		settings: make(map[string]entities.AdSetSettings),
		turns:    turns,
		audit:    make([]entities.AuditLogEntry, 0),
		records:  make(map[string]entities.AutomationRecord),
		outbox:   make(map[string]outboxRecord),
		actions:  make(map[string]entities.ScheduledAction),
	}
}

func (s *Store) GetSettings(_ context.Context, adSetID string) (entities.AdSetSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.settings[strings.TrimSpace(adSetID)]
	if !exists {
		return entities.AdSetSettings{}, domainerrors.ErrAdSetNotFound
	}
	return item.Clone(), nil
}

func (s *Store) ListSettings(_ context.Context) ([]entities.AdSetSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.AdSetSettings, 0, len(s.settings))
	for _, item := range s.settings {
		items = append(items, item.Clone())
	}
	sort.Slice(items, func(i, j int) bool { return items[i].AdSetID < items[j].AdSetID })
	return items, nil
}

func (s *Store) ObserveAdSets(_ context.Context, observed []entities.PlatformAdSet, at time.Time) ([]entities.AdSetSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]entities.AdSetSettings, 0, len(observed))
	for _, adSet := range observed {
		item, exists := s.settings[adSet.ID]
		if !exists {
			item = entities.DefaultSettings(adSet.ID, at)
		}
		item.Observe(adSet, at)
		s.settings[adSet.ID] = item
		items = append(items, item.Clone())
	}
	return items, nil
}

func (s *Store) UpdateSettingField(_ context.Context, adSetID string, patch entities.FieldPatch, at time.Time) (entities.AdSetSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.settings[strings.TrimSpace(adSetID)]
	if !exists {
		return entities.AdSetSettings{}, domainerrors.ErrAdSetNotFound
	}
	item.Apply(patch, at)
	s.settings[item.AdSetID] = item
	return item.Clone(), nil
}

func (s *Store) SetManualOverride(_ context.Context, adSetID string, override entities.ManualOverride) (entities.AdSetSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.settings[strings.TrimSpace(adSetID)]
	if !exists {
		return entities.AdSetSettings{}, domainerrors.ErrAdSetNotFound
	}
	item.Manual = &override
	s.settings[item.AdSetID] = item
	return item.Clone(), nil
}

func (s *Store) ClearManualOverride(_ context.Context, adSetID string, issuedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.settings[strings.TrimSpace(adSetID)]
	if !exists {
		return domainerrors.ErrAdSetNotFound
	}
	if item.Manual != nil && item.Manual.IssuedAt.Equal(issuedAt) {
		item.Manual = nil
		s.settings[item.AdSetID] = item
	}
	return nil
}

func (s *Store) ListTurns(_ context.Context) ([]entities.TurnConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.TurnConfig, 0, len(s.turns))
	for _, turn := range s.turns {
		items = append(items, turn)
	}
	entities.SortTurns(items)
	return items, nil
}

func (s *Store) UpsertTurn(_ context.Context, turn entities.TurnConfig) (entities.TurnConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn.Name = entities.NormalizeTurnName(turn.Name)
	s.turns[turn.Name] = turn
	return turn, nil
}

func (s *Store) AppendAudit(_ context.Context, entry entities.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.Timestamp = entry.Timestamp.UTC()
	s.audit = append(s.audit, entry)
	return nil
}

// ListRecentAudit returns newest first.
func (s *Store) ListRecentAudit(_ context.Context, limit int) ([]entities.AuditLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = entities.ClampAuditLimit(limit)
	items := make([]entities.AuditLogEntry, 0, limit)
	for idx := len(s.audit) - 1; idx >= 0 && len(items) < limit; idx-- {
		items = append(items, s.audit[idx])
	}
	return items, nil
}

func (s *Store) GetAutomationFlag(_ context.Context) (entities.AutomationFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flag, nil
}

func (s *Store) ToggleAutomation(_ context.Context, at time.Time) (entities.AutomationFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flag = entities.AutomationFlag{Enabled: !s.flag.Enabled, UpdatedAt: at.UTC()}
	return s.flag, nil
}

func (s *Store) ListAutomationRecords(_ context.Context) ([]entities.AutomationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.AutomationRecord, 0, len(s.records))
	for _, record := range s.records {
		items = append(items, record)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].AdSetID < items[j].AdSetID })
	return items, nil
}

func (s *Store) SaveAutomationRecord(_ context.Context, record entities.AutomationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.AdSetID] = record
	return nil
}

func (s *Store) CreateScheduledActions(_ context.Context, actions []entities.ScheduledAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, action := range actions {
		if action.ID == "" {
			action.ID = uuid.NewString()
		}
		if action.State == "" {
			action.State = entities.ActionPending
		}
		s.actions[action.ID] = action
	}
	return nil
}

func (s *Store) ListScheduledActions(_ context.Context, pendingOnly bool) ([]entities.ScheduledAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.ScheduledAction, 0, len(s.actions))
	for _, action := range s.actions {
		if pendingOnly && action.State != entities.ActionPending {
			continue
		}
		items = append(items, action)
	}
	sortActions(items)
	return items, nil
}

func (s *Store) ListDueScheduledActions(_ context.Context, now time.Time, limit int) ([]entities.ScheduledAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.ScheduledAction, 0)
	for _, action := range s.actions {
		if action.Due(now) {
			items = append(items, action)
		}
	}
	sortActions(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ClaimScheduledAction(_ context.Context, actionID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, exists := s.actions[actionID]
	if !exists {
		return false, domainerrors.ErrActionNotFound
	}
	if action.State != entities.ActionPending {
		return false, nil
	}
	action.State = entities.ActionRunning
	action.ExecutedAt = at.UTC()
	s.actions[actionID] = action
	return true, nil
}

func (s *Store) CompleteScheduledAction(_ context.Context, actionID string, state entities.ScheduledActionState, errMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, exists := s.actions[actionID]
	if !exists {
		return domainerrors.ErrActionNotFound
	}
	action.State = state
	action.Error = errMessage
	s.actions[actionID] = action
	return nil
}

func sortActions(items []entities.ScheduledAction) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].ExecuteAt.Equal(items[j].ExecuteAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].ExecuteAt.Before(items[j].ExecuteAt)
	})
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if _, exists := s.outbox[outboxID]; exists {
		return nil
	}
	s.outbox[outboxID] = outboxRecord{
		OutboxID:     outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.SentAt == nil {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].OutboxID < rows[j].OutboxID
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt,
		})
	}
	return items, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, exists := s.outbox[strings.TrimSpace(outboxID)]
	if !exists {
		return nil
	}
	at := sentAt.UTC()
	row.SentAt = &at
	s.outbox[row.OutboxID] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
