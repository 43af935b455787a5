package db

import (
	"github.com/yunolab/connect_bridge/biz/dal/model"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates every table the control plane persists,
// including the dependent tables the retention sweep cascades over.
func AutoMigrate(dbConn *gorm.DB) error {
	return dbConn.AutoMigrate(
		&model.Pipeline{},
		&model.PipelineConnector{},
		&model.ConnectorDefinition{},
		&model.ConnectorVersion{},
		&model.Deployment{},
		&model.AlertEvent{},
		&model.AlertRuleOverride{},
		&model.MonitoringSettings{},
		&model.ProgressEvent{},
		&model.PipelineTask{},
		&model.PipelineTable{},
		&model.RestoreStaging{},
		&model.PipelineObject{},
		&model.PipelineLog{},
		&model.PipelineChannelLink{},
		&model.MappingConfig{},
		&model.JobRun{},
		&model.PrecheckResult{},
	)
}
