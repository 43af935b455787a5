package db

import (
	"context"
	"errors"

	"github.com/yunolab/connect_bridge/biz/dal/model"
	"gorm.io/gorm"
)

// ErrPurgeConflict reports a purge that found the pipeline row live, meaning
// a restore committed first. The whole transaction rolls back so the restored
// pipeline keeps its dependent records.
var ErrPurgeConflict = errors.New("pipeline is live, purge aborted")

// CleanupDAO performs the permanent purge of an expired pipeline. Each table
// delete matches zero or more rows and never fails on absence, so a sweep
// interrupted mid-purge completes cleanly when re-run.
type CleanupDAO struct{}

func NewCleanupDAO() *CleanupDAO { return &CleanupDAO{} }

// purgeOrder lists dependent tables in FK-safe order. The pipeline row
// itself is deleted last, inside PurgePipeline.
var purgeOrder = []interface{}{
	&model.PipelineTask{},
	&model.PipelineTable{},
	&model.RestoreStaging{},
	&model.PipelineConnector{},
	&model.PipelineObject{},
	&model.PipelineLog{},
	&model.ProgressEvent{},
	&model.PipelineChannelLink{},
	&model.AlertEvent{},
	&model.AlertRuleOverride{},
	&model.MappingConfig{},
	&model.JobRun{},
	&model.PrecheckResult{},
}

// PurgePipeline deletes every dependent record of a pipeline and then the
// pipeline row. The pipeline delete only matches a soft-deleted row: a live
// row means a restore won the race, and the transaction rolls back with
// ErrPurgeConflict. An absent row is still fine, so an interrupted purge
// stays rerunnable. Returns the total number of rows removed.
func (dao *CleanupDAO) PurgePipeline(ctx context.Context, db *gorm.DB, pipelineID uint) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range purgeOrder {
			res := tx.Where("pipeline_id = ?", pipelineID).Delete(m)
			if res.Error != nil {
				return res.Error
			}
			total += res.RowsAffected
		}
		res := tx.Where("id = ? AND deleted_at IS NOT NULL", pipelineID).Delete(&model.Pipeline{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var live int64
			if err := tx.Model(&model.Pipeline{}).Where("id = ?", pipelineID).Count(&live).Error; err != nil {
				return err
			}
			if live > 0 {
				return ErrPurgeConflict
			}
		}
		total += res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// CountDependents returns the number of dependent rows still attached to a
// pipeline across all cascade tables.
func (dao *CleanupDAO) CountDependents(ctx context.Context, db *gorm.DB, pipelineID uint) (int64, error) {
	var total int64
	for _, m := range purgeOrder {
		var count int64
		if err := db.WithContext(ctx).
			Model(m).
			Where("pipeline_id = ?", pipelineID).
			Count(&count).Error; err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}
