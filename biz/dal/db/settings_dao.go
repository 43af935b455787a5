package db

import (
	"context"
	"errors"

	"github.com/yunolab/connect_bridge/biz/dal/model"
	"gorm.io/gorm"
)

// MonitoringSettingsDAO manages the global threshold singleton row.
type MonitoringSettingsDAO struct{}

func NewMonitoringSettingsDAO() *MonitoringSettingsDAO { return &MonitoringSettingsDAO{} }

// Get returns the settings row. gorm.ErrRecordNotFound when unseeded.
func (dao *MonitoringSettingsDAO) Get(ctx context.Context, db *gorm.DB) (*model.MonitoringSettings, error) {
	var entity model.MonitoringSettings
	if err := db.WithContext(ctx).Order("id ASC").First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// Save updates the settings row in place.
func (dao *MonitoringSettingsDAO) Save(ctx context.Context, db *gorm.DB, entity *model.MonitoringSettings) error {
	if entity == nil || entity.ID == 0 {
		return errors.New("settings id is required")
	}
	return db.WithContext(ctx).Save(entity).Error
}

// EnsureDefault seeds the singleton when absent and returns the live row.
func (dao *MonitoringSettingsDAO) EnsureDefault(ctx context.Context, db *gorm.DB, seed *model.MonitoringSettings) (*model.MonitoringSettings, error) {
	existing, err := dao.Get(ctx, db)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err := db.WithContext(ctx).Create(seed).Error; err != nil {
		return nil, err
	}
	return seed, nil
}
