package api

import "github.com/yunolab/connect_bridge/pkg/kafkaconnect"

// ConnectorOutcome is the per-connector result of one orchestration step.
// Exactly one of Action or Error is set.
type ConnectorOutcome struct {
	Action string `json:"action,omitempty"`
	Error  string `json:"error,omitempty"`
}

// StepError reports the failure of one best-effort sub-step.
type StepError struct {
	Connector string `json:"connector"`
	Error     string `json:"error"`
}

// DeployResult is the outcome of a full pipeline reconciliation.
type DeployResult struct {
	PipelineID uint                        `json:"pipeline_id"`
	Status     string                      `json:"status"`
	Results    map[string]ConnectorOutcome `json:"results"`
	Rollback   string                      `json:"rollback,omitempty"`
	Errors     []StepError                 `json:"errors,omitempty"`
}

// Succeeded reports whether every sub-step completed.
func (r *DeployResult) Succeeded() bool {
	return len(r.Errors) == 0
}

// ControlResult is the outcome of a best-effort start/pause/delete call.
type ControlResult struct {
	PipelineID uint        `json:"pipeline_id"`
	Errors     []StepError `json:"errors,omitempty"`
}

// ConnectorLiveStatus is the live engine view of one connector.
type ConnectorLiveStatus struct {
	Name   string                      `json:"name"`
	State  string                      `json:"state,omitempty"`
	Tasks  []kafkaconnect.TaskState    `json:"tasks,omitempty"`
	Config map[string]string           `json:"config,omitempty"`
	Error  string                      `json:"error,omitempty"`
}

// PipelineStatus is the aggregate live status of a pipeline.
type PipelineStatus struct {
	PipelineID uint                 `json:"pipeline_id"`
	Status     string               `json:"status"`
	Source     *ConnectorLiveStatus `json:"source,omitempty"`
	Sink       *ConnectorLiveStatus `json:"sink,omitempty"`
	Errors     []StepError          `json:"errors,omitempty"`
}

// CreatePipelineRequest creates a pipeline with both connector halves.
type CreatePipelineRequest struct {
	Name                 string            `json:"name"`
	Description          string            `json:"description,omitempty"`
	SourceType           string            `json:"source_type"`
	SinkType             string            `json:"sink_type"`
	Mode                 string            `json:"mode,omitempty"`
	Schedule             string            `json:"schedule,omitempty"`
	SourceClass          string            `json:"source_class"`
	SinkClass            string            `json:"sink_class"`
	SourceConfig         map[string]string `json:"source_config,omitempty"`
	SinkConfig           map[string]string `json:"sink_config,omitempty"`
	BackupRetentionHours int               `json:"backup_retention_hours,omitempty"`
}

// ProgressReport is one metrics sample posted by the data plane.
type ProgressReport struct {
	Phase         string  `json:"phase,omitempty"`
	RecordsTotal  int64   `json:"records_total,omitempty"`
	RecordsPerSec float64 `json:"records_per_sec,omitempty"`
	LagMs         int64   `json:"lag_ms,omitempty"`
	ErrorCount    int64   `json:"error_count,omitempty"`
	DLQCount      int64   `json:"dlq_count,omitempty"`
	WALSizeMB     int64   `json:"wal_size_mb,omitempty"`
}

// CleanupRequest controls the retention sweep.
type CleanupRequest struct {
	DryRun bool `json:"dry_run,omitempty"`
}

// CleanupCandidate is one pipeline eligible for permanent deletion.
type CleanupCandidate struct {
	PipelineID  uint   `json:"pipeline_id"`
	Name        string `json:"name"`
	DeletedAt   string `json:"deleted_at"`
	ExpiredAt   string `json:"expired_at"`
	Purged      bool   `json:"purged"`
	RowsRemoved int64  `json:"rows_removed,omitempty"`
	Error       string `json:"error,omitempty"`
}

// CleanupResult is the outcome of one sweep.
type CleanupResult struct {
	DryRun     bool               `json:"dry_run"`
	Candidates []CleanupCandidate `json:"candidates"`
}
