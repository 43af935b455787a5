package service

import (
	"github.com/yunolab/connect_bridge/biz/dal/db"
	"gorm.io/gorm"
)

// Logic contains business rules on top of data persistence.
type Logic struct {
	db            *gorm.DB
	pipelineDAO   *db.PipelineDAO
	connectorDAO  *db.PipelineConnectorDAO
	definitionDAO *db.ConnectorDefinitionDAO
	versionDAO    *db.ConnectorVersionDAO
	deploymentDAO *db.DeploymentDAO
	alertDAO      *db.AlertEventDAO
	overrideDAO   *db.AlertRuleOverrideDAO
	settingsDAO   *db.MonitoringSettingsDAO
	progressDAO   *db.ProgressEventDAO
	cleanupDAO    *db.CleanupDAO
}

func NewLogic(dbConn *gorm.DB) *Logic {
	return &Logic{
		db:            dbConn,
		pipelineDAO:   db.NewPipelineDAO(),
		connectorDAO:  db.NewPipelineConnectorDAO(),
		definitionDAO: db.NewConnectorDefinitionDAO(),
		versionDAO:    db.NewConnectorVersionDAO(),
		deploymentDAO: db.NewDeploymentDAO(),
		alertDAO:      db.NewAlertEventDAO(),
		overrideDAO:   db.NewAlertRuleOverrideDAO(),
		settingsDAO:   db.NewMonitoringSettingsDAO(),
		progressDAO:   db.NewProgressEventDAO(),
		cleanupDAO:    db.NewCleanupDAO(),
	}
}
