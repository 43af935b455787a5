package db

import (
	"context"
	"errors"
	"time"

	"github.com/yunolab/connect_bridge/biz/dal/model"
	"gorm.io/gorm"
)

// ProgressEventDAO wraps the data-plane metrics samples the monitoring loop
// evaluates thresholds against.
type ProgressEventDAO struct{}

func NewProgressEventDAO() *ProgressEventDAO { return &ProgressEventDAO{} }

// Create persists a new sample.
func (dao *ProgressEventDAO) Create(ctx context.Context, db *gorm.DB, entity *model.ProgressEvent) error {
	if entity == nil {
		return errors.New("progress event must not be nil")
	}
	if entity.PipelineID == 0 {
		return errors.New("pipeline_id is required")
	}
	return db.WithContext(ctx).Create(entity).Error
}

// Latest returns the most recent sample for a pipeline.
func (dao *ProgressEventDAO) Latest(ctx context.Context, db *gorm.DB, pipelineID uint) (*model.ProgressEvent, error) {
	var entity model.ProgressEvent
	if err := db.WithContext(ctx).
		Where("pipeline_id = ?", pipelineID).
		Order("created_at DESC, id DESC").
		First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// Window returns samples recorded at or after the cutoff, oldest first.
func (dao *ProgressEventDAO) Window(ctx context.Context, db *gorm.DB, pipelineID uint, since time.Time) ([]model.ProgressEvent, error) {
	var entities []model.ProgressEvent
	if err := db.WithContext(ctx).
		Where("pipeline_id = ? AND created_at >= ?", pipelineID, since).
		Order("created_at ASC, id ASC").
		Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}
