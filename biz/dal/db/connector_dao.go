package db

import (
	"context"
	"errors"
	"time"

	"github.com/yunolab/connect_bridge/biz/dal/model"
	"gorm.io/gorm"
)

// PipelineConnectorDAO wraps CRUD operations for a pipeline's source and
// sink connector rows.
type PipelineConnectorDAO struct{}

func NewPipelineConnectorDAO() *PipelineConnectorDAO { return &PipelineConnectorDAO{} }

// Create persists a connector row.
func (dao *PipelineConnectorDAO) Create(ctx context.Context, db *gorm.DB, entity *model.PipelineConnector) error {
	if entity == nil {
		return errors.New("connector must not be nil")
	}
	if entity.PipelineID == 0 {
		return errors.New("pipeline_id is required")
	}
	if entity.Type != model.ConnectorTypeSource && entity.Type != model.ConnectorTypeSink {
		return errors.New("type must be source or sink")
	}
	return db.WithContext(ctx).Create(entity).Error
}

// GetByPipelineAndType fetches one connector of a pipeline by role.
func (dao *PipelineConnectorDAO) GetByPipelineAndType(ctx context.Context, db *gorm.DB, pipelineID uint, connType string) (*model.PipelineConnector, error) {
	var entity model.PipelineConnector
	if err := db.WithContext(ctx).
		Where("pipeline_id = ? AND type = ?", pipelineID, connType).
		First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// ListByPipeline returns both connectors of a pipeline, source first.
func (dao *PipelineConnectorDAO) ListByPipeline(ctx context.Context, db *gorm.DB, pipelineID uint) ([]model.PipelineConnector, error) {
	var entities []model.PipelineConnector
	if err := db.WithContext(ctx).
		Where("pipeline_id = ?", pipelineID).
		Order("type DESC").
		Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// UpdateStatus sets the connector status.
func (dao *PipelineConnectorDAO) UpdateStatus(ctx context.Context, db *gorm.DB, id uint, status string) error {
	return db.WithContext(ctx).
		Model(&model.PipelineConnector{}).
		Where("id = ?", id).
		Update("status", status).
		Error
}

// StagePending stores an undeployed config edit and flags the drift.
func (dao *PipelineConnectorDAO) StagePending(ctx context.Context, db *gorm.DB, id uint, pendingConfig string, dirty bool) error {
	return db.WithContext(ctx).
		Model(&model.PipelineConnector{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"pending_config":      pendingConfig,
			"has_pending_changes": dirty,
		}).Error
}

// MarkDeployed records a successful engine push: the pending edit becomes
// the deployed config and the drift flag clears.
func (dao *PipelineConnectorDAO) MarkDeployed(ctx context.Context, db *gorm.DB, id uint, config string, version int, at time.Time) error {
	return db.WithContext(ctx).
		Model(&model.PipelineConnector{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"config":                config,
			"pending_config":        "",
			"has_pending_changes":   false,
			"status":                model.ConnectorStatusRunning,
			"last_deployed_version": version,
			"updated_at":            at,
		}).Error
}
