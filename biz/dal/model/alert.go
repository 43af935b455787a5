package model

import "time"

// Alert types emitted by the monitoring loop.
const (
	AlertConnectorFailed = "CONNECTOR_FAILED"
	AlertConnectorPaused = "CONNECTOR_PAUSED"
	AlertTaskFailed      = "TASK_FAILED"
	AlertHighLag         = "HIGH_LAG"
	AlertThroughputDrop  = "THROUGHPUT_DROP"
	AlertErrorRate       = "ERROR_RATE"
	AlertDLQCount        = "DLQ_COUNT"
	AlertWALSize         = "WAL_SIZE"
)

// Alert severities.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// AlertEvent is one alert lifecycle record. At most one unresolved event
// exists per (pipeline_id, alert_type); the monitoring loop reuses it while
// the condition persists and resolves it when the condition clears.
type AlertEvent struct {
	ID         uint       `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at,omitempty"`
	PipelineID uint       `gorm:"column:pipeline_id;index:idx_alert_pipeline" json:"pipeline_id,omitempty"`
	AlertType  string     `gorm:"column:alert_type;index:idx_alert_type" json:"alert_type,omitempty"`
	Severity   string     `gorm:"column:severity" json:"severity,omitempty"`
	Message    string     `gorm:"column:message;type:varchar(1024)" json:"message,omitempty"`
	Metadata   string     `gorm:"column:metadata;type:text" json:"metadata,omitempty"`
	Resolved   bool       `gorm:"column:resolved;default:false;index:idx_alert_resolved" json:"resolved"`
	ResolvedAt *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
}

// TableName overrides gorm to use alert_event table.
func (AlertEvent) TableName() string {
	return "alert_event"
}

// AlertRuleOverride adjusts one threshold for one pipeline, taking precedence
// over the global monitoring settings for that alert type.
type AlertRuleOverride struct {
	ID         uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
	PipelineID uint      `gorm:"column:pipeline_id;uniqueIndex:uk_override,priority:1" json:"pipeline_id,omitempty"`
	AlertType  string    `gorm:"column:alert_type;uniqueIndex:uk_override,priority:2" json:"alert_type,omitempty"`
	Threshold  float64   `gorm:"column:threshold" json:"threshold,omitempty"`
	Enabled    bool      `gorm:"column:enabled;default:true" json:"enabled,omitempty"`
}

// TableName overrides gorm to use alert_rule_override table.
func (AlertRuleOverride) TableName() string {
	return "alert_rule_override"
}
