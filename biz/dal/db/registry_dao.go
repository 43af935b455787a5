package db

import (
	"context"
	"errors"

	"github.com/yunolab/connect_bridge/biz/dal/model"
	"gorm.io/gorm"
)

// ConnectorDefinitionDAO wraps CRUD operations for registry definitions.
type ConnectorDefinitionDAO struct{}

func NewConnectorDefinitionDAO() *ConnectorDefinitionDAO { return &ConnectorDefinitionDAO{} }

// Create persists a new definition.
func (dao *ConnectorDefinitionDAO) Create(ctx context.Context, db *gorm.DB, entity *model.ConnectorDefinition) error {
	if entity == nil {
		return errors.New("definition must not be nil")
	}
	if entity.Name == "" {
		return errors.New("name is required")
	}
	return db.WithContext(ctx).Create(entity).Error
}

// GetByName fetches a definition by its unique name.
func (dao *ConnectorDefinitionDAO) GetByName(ctx context.Context, db *gorm.DB, name string) (*model.ConnectorDefinition, error) {
	var entity model.ConnectorDefinition
	if err := db.WithContext(ctx).Where("name = ?", name).First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// List returns all definitions ordered by name.
func (dao *ConnectorDefinitionDAO) List(ctx context.Context, db *gorm.DB) ([]model.ConnectorDefinition, error) {
	var entities []model.ConnectorDefinition
	if err := db.WithContext(ctx).Order("name ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// ConnectorVersionDAO wraps queries over the append-only version history.
type ConnectorVersionDAO struct{}

func NewConnectorVersionDAO() *ConnectorVersionDAO { return &ConnectorVersionDAO{} }

// Create persists a new version row.
func (dao *ConnectorVersionDAO) Create(ctx context.Context, db *gorm.DB, entity *model.ConnectorVersion) error {
	if entity == nil {
		return errors.New("version must not be nil")
	}
	if entity.DefinitionID == 0 {
		return errors.New("definition_id is required")
	}
	return db.WithContext(ctx).Create(entity).Error
}

// GetActive fetches the single active version of a definition, if any.
func (dao *ConnectorVersionDAO) GetActive(ctx context.Context, db *gorm.DB, definitionID uint) (*model.ConnectorVersion, error) {
	var entity model.ConnectorVersion
	if err := db.WithContext(ctx).
		Where("definition_id = ? AND is_active = ?", definitionID, true).
		First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// GetByVersion fetches one version of a definition by number.
func (dao *ConnectorVersionDAO) GetByVersion(ctx context.Context, db *gorm.DB, definitionID uint, version int) (*model.ConnectorVersion, error) {
	var entity model.ConnectorVersion
	if err := db.WithContext(ctx).
		Where("definition_id = ? AND version = ?", definitionID, version).
		First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// GetByID fetches one version row by primary key.
func (dao *ConnectorVersionDAO) GetByID(ctx context.Context, db *gorm.DB, id uint) (*model.ConnectorVersion, error) {
	var entity model.ConnectorVersion
	if err := db.WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// MaxVersion returns the highest version number recorded for a definition,
// zero when no versions exist.
func (dao *ConnectorVersionDAO) MaxVersion(ctx context.Context, db *gorm.DB, definitionID uint) (int, error) {
	var max *int
	if err := db.WithContext(ctx).
		Model(&model.ConnectorVersion{}).
		Where("definition_id = ?", definitionID).
		Select("MAX(version)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// ListByDefinition returns the full version history, newest first.
func (dao *ConnectorVersionDAO) ListByDefinition(ctx context.Context, db *gorm.DB, definitionID uint) ([]model.ConnectorVersion, error) {
	var entities []model.ConnectorVersion
	if err := db.WithContext(ctx).
		Where("definition_id = ?", definitionID).
		Order("version DESC").
		Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// Activate flips the active pointer to the target version inside one
// transaction: every version of the definition is deactivated, then the
// target alone is set. Returns gorm.ErrRecordNotFound when the target
// version does not exist.
func (dao *ConnectorVersionDAO) Activate(ctx context.Context, db *gorm.DB, definitionID uint, version int) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.ConnectorVersion{}).
			Where("definition_id = ? AND version = ?", definitionID, version).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Model(&model.ConnectorVersion{}).
			Where("definition_id = ?", definitionID).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&model.ConnectorVersion{}).
			Where("definition_id = ? AND version = ?", definitionID, version).
			Update("is_active", true).Error
	})
}

// DeploymentDAO wraps CRUD operations for deployment records.
type DeploymentDAO struct{}

func NewDeploymentDAO() *DeploymentDAO { return &DeploymentDAO{} }

// Create persists a new deployment record.
func (dao *DeploymentDAO) Create(ctx context.Context, db *gorm.DB, entity *model.Deployment) error {
	if entity == nil {
		return errors.New("deployment must not be nil")
	}
	if entity.VersionID == 0 {
		return errors.New("version_id is required")
	}
	return db.WithContext(ctx).Create(entity).Error
}

// GetByID fetches a deployment by primary key.
func (dao *DeploymentDAO) GetByID(ctx context.Context, db *gorm.DB, id uint) (*model.Deployment, error) {
	var entity model.Deployment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// UpdateStatus records the outcome of a deployment attempt.
func (dao *DeploymentDAO) UpdateStatus(ctx context.Context, db *gorm.DB, id uint, status, message string) error {
	return db.WithContext(ctx).
		Model(&model.Deployment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         status,
			"status_message": message,
		}).Error
}

// ListByVersion returns all deployment attempts for a version, newest first.
func (dao *DeploymentDAO) ListByVersion(ctx context.Context, db *gorm.DB, versionID uint) ([]model.Deployment, error) {
	var entities []model.Deployment
	if err := db.WithContext(ctx).
		Where("version_id = ?", versionID).
		Order("created_at DESC").
		Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}
