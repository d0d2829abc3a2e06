package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
	"adshift/contexts/ad-operations/adset-automation-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"

	automationFlagID = 1
)

// Repository persists the automation tables through gorm. Every settings
// write updates only the columns it owns, so a platform observation never
// clobbers a concurrent operator write.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates or updates the automation tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&adSetSettingsModel{},
		&turnConfigModel{},
		&auditLogModel{},
		&automationRecordModel{},
		&automationFlagModel{},
		&outboxModel{},
		&scheduledActionModel{},
	)
}

func (r *Repository) GetSettings(ctx context.Context, adSetID string) (entities.AdSetSettings, error) {
	var row adSetSettingsModel
	err := r.db.WithContext(ctx).
		Where("adset_id = ?", strings.TrimSpace(adSetID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.AdSetSettings{}, domainerrors.ErrAdSetNotFound
		}
		return entities.AdSetSettings{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListSettings(ctx context.Context) ([]entities.AdSetSettings, error) {
	var rows []adSetSettingsModel
	if err := r.db.WithContext(ctx).Order("adset_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]entities.AdSetSettings, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ObserveAdSets(ctx context.Context, observed []entities.PlatformAdSet, at time.Time) ([]entities.AdSetSettings, error) {
	if len(observed) == 0 {
		return []entities.AdSetSettings{}, nil
	}
	observedAt := at.UTC()
	ids := make([]string, 0, len(observed))
	for _, adSet := range observed {
		adSetID := strings.TrimSpace(adSet.ID)
		ids = append(ids, adSetID)

		defaults := settingsModelFromEntity(entities.DefaultSettings(adSetID, observedAt))
		if err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "adset_id"}},
				DoNothing: true,
			}).
			Create(&defaults).
			Error; err != nil {
			return nil, err
		}
		if err := r.db.WithContext(ctx).
			Model(&adSetSettingsModel{}).
			Where("adset_id = ?", adSetID).
			Updates(map[string]any{
				"name":               adSet.Name,
				"spend":              adSet.Spend,
				"daily_budget_minor": adSet.DailyBudgetMinor,
				"last_known_status":  string(adSet.RunState),
				"observed_at":        observedAt,
			}).
			Error; err != nil {
			return nil, err
		}
	}

	var rows []adSetSettingsModel
	if err := r.db.WithContext(ctx).
		Where("adset_id IN ?", ids).
		Order("adset_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.AdSetSettings, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) UpdateSettingField(ctx context.Context, adSetID string, patch entities.FieldPatch, at time.Time) (entities.AdSetSettings, error) {
	updates, err := fieldUpdates(patch, at.UTC())
	if err != nil {
		return entities.AdSetSettings{}, err
	}
	result := r.db.WithContext(ctx).
		Model(&adSetSettingsModel{}).
		Where("adset_id = ?", strings.TrimSpace(adSetID)).
		Updates(updates)
	if result.Error != nil {
		return entities.AdSetSettings{}, result.Error
	}
	if result.RowsAffected == 0 {
		return entities.AdSetSettings{}, domainerrors.ErrAdSetNotFound
	}
	return r.GetSettings(ctx, adSetID)
}

func fieldUpdates(patch entities.FieldPatch, at time.Time) (map[string]any, error) {
	switch patch.Field {
	case entities.FieldTurns:
		encoded, err := json.Marshal(append([]string{}, patch.Turns...))
		if err != nil {
			return nil, err
		}
		return map[string]any{"turns": string(encoded), "turns_updated_at": at}, nil
	case entities.FieldStopLossPercent:
		return map[string]any{"stop_loss_percent": patch.StopLossPercent, "stop_loss_updated_at": at}, nil
	case entities.FieldIsFrozen:
		return map[string]any{"is_frozen": patch.IsFrozen, "frozen_updated_at": at}, nil
	default:
		return nil, domainerrors.ErrInvalidField
	}
}

func (r *Repository) SetManualOverride(ctx context.Context, adSetID string, override entities.ManualOverride) (entities.AdSetSettings, error) {
	result := r.db.WithContext(ctx).
		Model(&adSetSettingsModel{}).
		Where("adset_id = ?", strings.TrimSpace(adSetID)).
		Updates(map[string]any{
			"manual_status":     string(override.Status),
			"manual_actor":      strings.TrimSpace(override.Actor),
			"manual_issued_at":  override.IssuedAt.UTC(),
			"manual_in_session": override.InSessionAtIssue,
		})
	if result.Error != nil {
		return entities.AdSetSettings{}, result.Error
	}
	if result.RowsAffected == 0 {
		return entities.AdSetSettings{}, domainerrors.ErrAdSetNotFound
	}
	return r.GetSettings(ctx, adSetID)
}

func (r *Repository) ClearManualOverride(ctx context.Context, adSetID string, issuedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&adSetSettingsModel{}).
		Where("adset_id = ? AND manual_issued_at = ?", strings.TrimSpace(adSetID), issuedAt.UTC()).
		Updates(map[string]any{
			"manual_status":     "",
			"manual_actor":      "",
			"manual_issued_at":  nil,
			"manual_in_session": false,
		}).
		Error
}

func (r *Repository) ListTurns(ctx context.Context) ([]entities.TurnConfig, error) {
	var rows []turnConfigModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]entities.TurnConfig, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) UpsertTurn(ctx context.Context, turn entities.TurnConfig) (entities.TurnConfig, error) {
	row := turnConfigModel{
		Name:       entities.NormalizeTurnName(turn.Name),
		StartHour:  turn.StartHour,
		EndHour:    turn.EndHour,
		ActiveDays: int(turn.ActiveDays),
		UpdatedAt:  turn.UpdatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"start_hour", "end_hour", "active_days", "updated_at"}),
		}).
		Create(&row).
		Error; err != nil {
		return entities.TurnConfig{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) AppendAudit(ctx context.Context, entry entities.AuditLogEntry) error {
	row := auditLogModel{
		EntryID:   strings.TrimSpace(entry.ID),
		Actor:     strings.TrimSpace(entry.Actor),
		Message:   entry.Message,
		Cause:     string(entry.Cause),
		AdSetID:   strings.TrimSpace(entry.AdSetID),
		CreatedAt: entry.Timestamp.UTC(),
	}
	if row.EntryID == "" {
		row.EntryID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			r.logger.Warn("audit entry already recorded",
				"event", "adset_audit_duplicate",
				"module", "ad-operations/adset-automation-service",
				"layer", "adapter",
				"entry_id", row.EntryID,
			)
			return nil
		}
		return err
	}
	return nil
}

func (r *Repository) ListRecentAudit(ctx context.Context, limit int) ([]entities.AuditLogEntry, error) {
	var rows []auditLogModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(entities.ClampAuditLimit(limit)).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.AuditLogEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetAutomationFlag(ctx context.Context) (entities.AutomationFlag, error) {
	var row automationFlagModel
	err := r.db.WithContext(ctx).
		Where("flag_id = ?", automationFlagID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.AutomationFlag{}, nil
		}
		return entities.AutomationFlag{}, err
	}
	return entities.AutomationFlag{Enabled: row.Enabled, UpdatedAt: row.UpdatedAt.UTC()}, nil
}

// ToggleAutomation flips the flag in a single statement so concurrent
// toggles never read-modify-write the same value.
func (r *Repository) ToggleAutomation(ctx context.Context, at time.Time) (entities.AutomationFlag, error) {
	seed := automationFlagModel{FlagID: automationFlagID, Enabled: false, UpdatedAt: at.UTC()}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "flag_id"}},
			DoNothing: true,
		}).
		Create(&seed).
		Error; err != nil {
		return entities.AutomationFlag{}, err
	}
	if err := r.db.WithContext(ctx).
		Model(&automationFlagModel{}).
		Where("flag_id = ?", automationFlagID).
		Updates(map[string]any{
			"enabled":    gorm.Expr("NOT enabled"),
			"updated_at": at.UTC(),
		}).
		Error; err != nil {
		return entities.AutomationFlag{}, err
	}
	return r.GetAutomationFlag(ctx)
}

func (r *Repository) ListAutomationRecords(ctx context.Context) ([]entities.AutomationRecord, error) {
	var rows []automationRecordModel
	if err := r.db.WithContext(ctx).Order("adset_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]entities.AutomationRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) SaveAutomationRecord(ctx context.Context, record entities.AutomationRecord) error {
	row := recordModelFromEntity(record)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "adset_id"}},
			UpdateAll: true,
		}).
		Create(&row).
		Error
}

func (r *Repository) CreateScheduledActions(ctx context.Context, actions []entities.ScheduledAction) error {
	if len(actions) == 0 {
		return nil
	}
	rows := make([]scheduledActionModel, 0, len(actions))
	for _, action := range actions {
		row := actionModelFromEntity(action)
		if row.ActionID == "" {
			row.ActionID = uuid.NewString()
		}
		rows = append(rows, row)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *Repository) ListScheduledActions(ctx context.Context, pendingOnly bool) ([]entities.ScheduledAction, error) {
	query := r.db.WithContext(ctx).Order("execute_at ASC").Order("action_id ASC")
	if pendingOnly {
		query = query.Where("state = ?", string(entities.ActionPending))
	}
	var rows []scheduledActionModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return actionEntities(rows), nil
}

func (r *Repository) ListDueScheduledActions(ctx context.Context, now time.Time, limit int) ([]entities.ScheduledAction, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []scheduledActionModel
	if err := r.db.WithContext(ctx).
		Where("state = ? AND execute_at <= ?", string(entities.ActionPending), now.UTC()).
		Order("execute_at ASC").
		Order("action_id ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	return actionEntities(rows), nil
}

// ClaimScheduledAction is a conditional update, so two workers never run the
// same action.
func (r *Repository) ClaimScheduledAction(ctx context.Context, actionID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&scheduledActionModel{}).
		Where("action_id = ? AND state = ?", strings.TrimSpace(actionID), string(entities.ActionPending)).
		Updates(map[string]any{
			"state":       string(entities.ActionRunning),
			"executed_at": at.UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) CompleteScheduledAction(ctx context.Context, actionID string, state entities.ScheduledActionState, errMessage string) error {
	result := r.db.WithContext(ctx).
		Model(&scheduledActionModel{}).
		Where("action_id = ?", strings.TrimSpace(actionID)).
		Updates(map[string]any{
			"state": string(state),
			"error": errMessage,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrActionNotFound
	}
	return nil
}

func actionEntities(rows []scheduledActionModel) []entities.ScheduledAction {
	items := make([]entities.ScheduledAction, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "outbox_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return createResult.Error
	}
	if createResult.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).
		Error; err != nil {
		return err
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		r.logger.Warn("outbox id reused with a different payload",
			"event", "adset_outbox_conflict",
			"module", "ad-operations/adset-automation-service",
			"layer", "adapter",
			"outbox_id", row.OutboxID,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":  outboxStatusSent,
			"sent_at": sentAt.UTC(),
		}).
		Error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
