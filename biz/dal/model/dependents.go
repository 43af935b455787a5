package model

import "time"

// Dependent pipeline records. The retention sweep cascades over these in
// FK-safe order before removing the pipeline row itself.

// PipelineTask tracks one engine task belonging to a pipeline connector.
type PipelineTask struct {
	ID          uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
	PipelineID  uint      `gorm:"column:pipeline_id;index:idx_task_pipeline" json:"pipeline_id,omitempty"`
	ConnectorID uint      `gorm:"column:connector_id" json:"connector_id,omitempty"`
	TaskID      int       `gorm:"column:task_id" json:"task_id,omitempty"`
	Status      string    `gorm:"column:status" json:"status,omitempty"`
	WorkerID    string    `gorm:"column:worker_id" json:"worker_id,omitempty"`
	Trace       string    `gorm:"column:trace;type:text" json:"trace,omitempty"`
}

func (PipelineTask) TableName() string { return "pipeline_task" }

// PipelineTable is one table selected for capture by a pipeline.
type PipelineTable struct {
	ID         uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
	PipelineID uint      `gorm:"column:pipeline_id;index:idx_table_pipeline" json:"pipeline_id,omitempty"`
	SchemaName string    `gorm:"column:schema_name" json:"schema_name,omitempty"`
	Table      string    `gorm:"column:table_name" json:"table_name,omitempty"`
	Included   bool      `gorm:"column:included;default:true" json:"included,omitempty"`
}

func (PipelineTable) TableName() string { return "pipeline_table" }

// RestoreStaging holds rows staged during a pipeline restore operation.
type RestoreStaging struct {
	ID         uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	PipelineID uint      `gorm:"column:pipeline_id;index:idx_staging_pipeline" json:"pipeline_id,omitempty"`
	Payload    string    `gorm:"column:payload;type:text" json:"payload,omitempty"`
	Status     string    `gorm:"column:status" json:"status,omitempty"`
}

func (RestoreStaging) TableName() string { return "restore_staging" }

// PipelineObject is a storage object (snapshot file, export) owned by a pipeline.
type PipelineObject struct {
	ID         uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	PipelineID uint      `gorm:"column:pipeline_id;index:idx_object_pipeline" json:"pipeline_id,omitempty"`
	ObjectKey  string    `gorm:"column:object_key" json:"object_key,omitempty"`
	SizeBytes  int64     `gorm:"column:size_bytes" json:"size_bytes,omitempty"`
}

func (PipelineObject) TableName() string { return "pipeline_object" }

// PipelineLog is one operational log line attached to a pipeline.
type PipelineLog struct {
	ID         uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt  time.Time `gorm:"index:idx_log_created" json:"created_at,omitempty"`
	PipelineID uint      `gorm:"column:pipeline_id;index:idx_log_pipeline" json:"pipeline_id,omitempty"`
	Level      string    `gorm:"column:level" json:"level,omitempty"`
	Message    string    `gorm:"column:message;type:text" json:"message,omitempty"`
}

func (PipelineLog) TableName() string { return "pipeline_log" }

// PipelineChannelLink binds a pipeline to a notification channel by name.
type PipelineChannelLink struct {
	ID          uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	PipelineID  uint      `gorm:"column:pipeline_id;uniqueIndex:uk_channel_link,priority:1" json:"pipeline_id,omitempty"`
	ChannelName string    `gorm:"column:channel_name;uniqueIndex:uk_channel_link,priority:2" json:"channel_name,omitempty"`
}

func (PipelineChannelLink) TableName() string { return "pipeline_channel_link" }

// MappingConfig stores a pipeline's field or table mapping document.
type MappingConfig struct {
	ID         uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
	PipelineID uint      `gorm:"column:pipeline_id;index:idx_mapping_pipeline" json:"pipeline_id,omitempty"`
	Kind       string    `gorm:"column:kind" json:"kind,omitempty"`
	Document   string    `gorm:"column:document;type:text" json:"document,omitempty"`
}

func (MappingConfig) TableName() string { return "mapping_config" }

// JobRun records one scheduled or manual job execution for a pipeline.
type JobRun struct {
	ID         uint       `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
	PipelineID uint       `gorm:"column:pipeline_id;index:idx_jobrun_pipeline" json:"pipeline_id,omitempty"`
	JobType    string     `gorm:"column:job_type" json:"job_type,omitempty"`
	Status     string     `gorm:"column:status" json:"status,omitempty"`
	StartedAt  time.Time  `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
	Detail     string     `gorm:"column:detail;type:text" json:"detail,omitempty"`
}

func (JobRun) TableName() string { return "job_run" }

// PrecheckResult stores the outcome of one pre-deploy validation probe.
type PrecheckResult struct {
	ID         uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	PipelineID uint      `gorm:"column:pipeline_id;index:idx_precheck_pipeline" json:"pipeline_id,omitempty"`
	CheckName  string    `gorm:"column:check_name" json:"check_name,omitempty"`
	Passed     bool      `gorm:"column:passed" json:"passed,omitempty"`
	Detail     string    `gorm:"column:detail;type:varchar(1024)" json:"detail,omitempty"`
}

func (PrecheckResult) TableName() string { return "precheck_result" }
