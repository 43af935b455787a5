package model

import "time"

// Pipeline status values.
const (
	PipelineStatusDraft       = "draft"
	PipelineStatusReady       = "ready"
	PipelineStatusRunning     = "running"
	PipelineStatusPaused      = "paused"
	PipelineStatusIdle        = "idle"
	PipelineStatusSeeding     = "seeding"
	PipelineStatusIncremental = "incremental"
	PipelineStatusError       = "error"
	PipelineStatusDeleted     = "deleted"
)

// PipelineConnector types and statuses.
const (
	ConnectorTypeSource = "source"
	ConnectorTypeSink   = "sink"

	ConnectorStatusRunning = "running"
	ConnectorStatusPaused  = "paused"
	ConnectorStatusFailed  = "failed"
)

// Pipeline is the user-facing pairing of one source and one sink connector
// plus scheduling metadata. Soft deletion keeps the row queryable so the
// retention sweep and restore can both see it; DeletedAt is managed by the
// lifecycle service, not by gorm's soft-delete hook.
type Pipeline struct {
	ID                   uint       `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt            time.Time  `json:"created_at,omitempty"`
	UpdatedAt            time.Time  `json:"updated_at,omitempty"`
	Name                 string     `gorm:"column:name;uniqueIndex:uk_pipeline_name" json:"name,omitempty"`
	Description          string     `gorm:"column:description;type:varchar(512)" json:"description,omitempty"`
	SourceType           string     `gorm:"column:source_type" json:"source_type,omitempty"`
	SinkType             string     `gorm:"column:sink_type" json:"sink_type,omitempty"`
	Mode                 string     `gorm:"column:mode" json:"mode,omitempty"`
	Schedule             string     `gorm:"column:schedule" json:"schedule,omitempty"`
	Status               string     `gorm:"column:status;default:draft;index:idx_pipeline_status" json:"status,omitempty"`
	DeletedAt            *time.Time `gorm:"column:deleted_at;index:idx_pipeline_deleted" json:"deleted_at,omitempty"`
	BackupRetentionHours int        `gorm:"column:backup_retention_hours;default:24" json:"backup_retention_hours,omitempty"`
	LastDeployedAt       *time.Time `gorm:"column:last_deployed_at" json:"last_deployed_at,omitempty"`
	CreatedBy            string     `gorm:"column:created_by" json:"created_by,omitempty"`
}

// TableName overrides gorm to use pipeline table.
func (Pipeline) TableName() string {
	return "pipeline"
}

// PipelineConnector is one half of a pipeline: the source or the sink
// connector as last reconciled against the execution engine.
type PipelineConnector struct {
	ID                  uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt           time.Time `json:"created_at,omitempty"`
	UpdatedAt           time.Time `json:"updated_at,omitempty"`
	PipelineID          uint      `gorm:"column:pipeline_id;uniqueIndex:uk_pipeline_connector,priority:1;index:idx_connector_pipeline" json:"pipeline_id,omitempty"`
	Name                string    `gorm:"column:name;index:idx_connector_name" json:"name,omitempty"`
	Type                string    `gorm:"column:type;uniqueIndex:uk_pipeline_connector,priority:2" json:"type,omitempty"`
	ConnectorClass      string    `gorm:"column:connector_class" json:"connector_class,omitempty"`
	Config              string    `gorm:"column:config;type:text" json:"config,omitempty"`
	PendingConfig       string    `gorm:"column:pending_config;type:text" json:"pending_config,omitempty"`
	HasPendingChanges   bool      `gorm:"column:has_pending_changes;default:false" json:"has_pending_changes,omitempty"`
	Status              string    `gorm:"column:status" json:"status,omitempty"`
	LastDeployedVersion int       `gorm:"column:last_deployed_version;default:0" json:"last_deployed_version,omitempty"`
}

// TableName overrides gorm to use pipeline_connector table.
func (PipelineConnector) TableName() string {
	return "pipeline_connector"
}
