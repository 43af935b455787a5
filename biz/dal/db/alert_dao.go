package db

import (
	"context"
	"errors"
	"time"

	"github.com/yunolab/connect_bridge/biz/dal/model"
	"gorm.io/gorm"
)

// AlertEventDAO wraps the alert lifecycle queries used by the monitoring
// loop. The dedup invariant (one unresolved event per pipeline and type)
// is enforced by the caller via GetUnresolved before Create.
type AlertEventDAO struct{}

func NewAlertEventDAO() *AlertEventDAO { return &AlertEventDAO{} }

// Create persists a new alert event.
func (dao *AlertEventDAO) Create(ctx context.Context, db *gorm.DB, entity *model.AlertEvent) error {
	if entity == nil {
		return errors.New("alert must not be nil")
	}
	if entity.PipelineID == 0 || entity.AlertType == "" {
		return errors.New("pipeline_id and alert_type are required")
	}
	return db.WithContext(ctx).Create(entity).Error
}

// GetUnresolved fetches the open alert for a (pipeline, type) pair, if any.
func (dao *AlertEventDAO) GetUnresolved(ctx context.Context, db *gorm.DB, pipelineID uint, alertType string) (*model.AlertEvent, error) {
	var entity model.AlertEvent
	if err := db.WithContext(ctx).
		Where("pipeline_id = ? AND alert_type = ? AND resolved = ?", pipelineID, alertType, false).
		First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// Touch refreshes the message and metadata of a persisting alert.
func (dao *AlertEventDAO) Touch(ctx context.Context, db *gorm.DB, id uint, message, metadata string) error {
	return db.WithContext(ctx).
		Model(&model.AlertEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"message":  message,
			"metadata": metadata,
		}).Error
}

// Resolve closes an open alert. Resolving an already-resolved alert is a
// no-op so a racing double resolve stays harmless.
func (dao *AlertEventDAO) Resolve(ctx context.Context, db *gorm.DB, id uint, at time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&model.AlertEvent{}).
		Where("id = ? AND resolved = ?", id, false).
		Updates(map[string]interface{}{
			"resolved":    true,
			"resolved_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListUnresolvedByPipeline returns all open alerts for one pipeline.
func (dao *AlertEventDAO) ListUnresolvedByPipeline(ctx context.Context, db *gorm.DB, pipelineID uint) ([]model.AlertEvent, error) {
	var entities []model.AlertEvent
	if err := db.WithContext(ctx).
		Where("pipeline_id = ? AND resolved = ?", pipelineID, false).
		Order("created_at ASC").
		Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// ListByPipeline returns the alert history for one pipeline, newest first.
func (dao *AlertEventDAO) ListByPipeline(ctx context.Context, db *gorm.DB, pipelineID uint, limit int) ([]model.AlertEvent, error) {
	tx := db.WithContext(ctx).
		Where("pipeline_id = ?", pipelineID).
		Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var entities []model.AlertEvent
	if err := tx.Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// AlertRuleOverrideDAO wraps per-pipeline threshold overrides.
type AlertRuleOverrideDAO struct{}

func NewAlertRuleOverrideDAO() *AlertRuleOverrideDAO { return &AlertRuleOverrideDAO{} }

// ListByPipeline returns all overrides for one pipeline.
func (dao *AlertRuleOverrideDAO) ListByPipeline(ctx context.Context, db *gorm.DB, pipelineID uint) ([]model.AlertRuleOverride, error) {
	var entities []model.AlertRuleOverride
	if err := db.WithContext(ctx).
		Where("pipeline_id = ?", pipelineID).
		Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// Upsert creates or replaces the override for a (pipeline, type) pair.
func (dao *AlertRuleOverrideDAO) Upsert(ctx context.Context, db *gorm.DB, entity *model.AlertRuleOverride) error {
	if entity == nil {
		return errors.New("override must not be nil")
	}
	var existing model.AlertRuleOverride
	err := db.WithContext(ctx).
		Where("pipeline_id = ? AND alert_type = ?", entity.PipelineID, entity.AlertType).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.WithContext(ctx).Create(entity).Error
	}
	if err != nil {
		return err
	}
	entity.ID = existing.ID
	return db.WithContext(ctx).
		Model(&model.AlertRuleOverride{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"threshold": entity.Threshold,
			"enabled":   entity.Enabled,
		}).Error
}
