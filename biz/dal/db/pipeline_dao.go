package db

import (
	"context"
	"errors"
	"time"

	"github.com/yunolab/connect_bridge/biz/dal/model"
	"gorm.io/gorm"
)

// PipelineDAO wraps CRUD and lifecycle queries for pipeline entities.
// Soft deletion is explicit: DeletedAt is a plain nullable column so deleted
// rows stay visible to the restore and sweep paths.
type PipelineDAO struct{}

func NewPipelineDAO() *PipelineDAO { return &PipelineDAO{} }

// Create persists a new pipeline entry.
func (dao *PipelineDAO) Create(ctx context.Context, db *gorm.DB, entity *model.Pipeline) error {
	if entity == nil {
		return errors.New("pipeline must not be nil")
	}
	if entity.Name == "" {
		return errors.New("name is required")
	}
	return db.WithContext(ctx).Create(entity).Error
}

// Update updates an existing pipeline by id.
func (dao *PipelineDAO) Update(ctx context.Context, db *gorm.DB, entity *model.Pipeline) error {
	if entity == nil || entity.ID == 0 {
		return errors.New("pipeline id is required")
	}
	return db.WithContext(ctx).
		Model(&model.Pipeline{}).
		Where("id = ?", entity.ID).
		Updates(entity).
		Error
}

// UpdateStatus sets the pipeline status.
func (dao *PipelineDAO) UpdateStatus(ctx context.Context, db *gorm.DB, id uint, status string) error {
	return db.WithContext(ctx).
		Model(&model.Pipeline{}).
		Where("id = ?", id).
		Update("status", status).
		Error
}

// MarkDeployed records a successful reconciliation.
func (dao *PipelineDAO) MarkDeployed(ctx context.Context, db *gorm.DB, id uint, at time.Time) error {
	return db.WithContext(ctx).
		Model(&model.Pipeline{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           model.PipelineStatusRunning,
			"last_deployed_at": at,
		}).Error
}

// GetByID fetches a pipeline regardless of soft-delete state.
func (dao *PipelineDAO) GetByID(ctx context.Context, db *gorm.DB, id uint) (*model.Pipeline, error) {
	var entity model.Pipeline
	if err := db.WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// GetLiveByID fetches a pipeline that has not been soft-deleted.
func (dao *PipelineDAO) GetLiveByID(ctx context.Context, db *gorm.DB, id uint) (*model.Pipeline, error) {
	var entity model.Pipeline
	if err := db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// List returns all live pipelines, optionally filtered by status.
func (dao *PipelineDAO) List(ctx context.Context, db *gorm.DB, status string) ([]model.Pipeline, error) {
	tx := db.WithContext(ctx).Where("deleted_at IS NULL")
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	var entities []model.Pipeline
	if err := tx.Order("created_at ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// ListSoftDeleted returns every pipeline with a deleted_at timestamp.
// Retention-window math is done by the caller; timestamp arithmetic in SQL
// is not portable across the supported drivers.
func (dao *PipelineDAO) ListSoftDeleted(ctx context.Context, db *gorm.DB) ([]model.Pipeline, error) {
	var entities []model.Pipeline
	if err := db.WithContext(ctx).
		Where("deleted_at IS NOT NULL").
		Order("deleted_at ASC").
		Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// SoftDelete stamps deleted_at without touching status. Returns
// gorm.ErrRecordNotFound when the pipeline is absent or already deleted.
func (dao *PipelineDAO) SoftDelete(ctx context.Context, db *gorm.DB, id uint, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&model.Pipeline{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Restore clears deleted_at and resets status to draft. The conditional
// WHERE makes the write race-safe against a concurrent purge: if the sweep
// already removed the row, zero rows match and the caller sees not-found.
func (dao *PipelineDAO) Restore(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).
		Model(&model.Pipeline{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Updates(map[string]interface{}{
			"deleted_at": nil,
			"status":     model.PipelineStatusDraft,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
