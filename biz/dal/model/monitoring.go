package model

import "time"

// MonitoringSettings is the global threshold singleton. It is seeded once at
// startup and re-read from storage at the top of every monitoring cycle.
type MonitoringSettings struct {
	ID                   uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt            time.Time `json:"created_at,omitempty"`
	UpdatedAt            time.Time `json:"updated_at,omitempty"`
	CheckIntervalMs      int       `gorm:"column:check_interval_ms;default:60000" json:"check_interval_ms,omitempty"`
	LagMs                int64     `gorm:"column:lag_ms;default:5000" json:"lag_ms,omitempty"`
	ThroughputDropPct    float64   `gorm:"column:throughput_drop_percent;default:50" json:"throughput_drop_percent,omitempty"`
	ErrorRatePct         float64   `gorm:"column:error_rate_percent;default:5" json:"error_rate_percent,omitempty"`
	DLQCount             int64     `gorm:"column:dlq_count;default:100" json:"dlq_count,omitempty"`
	PauseDurationSeconds int       `gorm:"column:pause_duration_seconds;default:300" json:"pause_duration_seconds,omitempty"`
	BackupRetentionHours int       `gorm:"column:backup_retention_hours;default:24" json:"backup_retention_hours,omitempty"`
	WALMonitorEnabled    bool      `gorm:"column:wal_monitor_enabled;default:false" json:"wal_monitor_enabled,omitempty"`
	WALSizeMB            int64     `gorm:"column:wal_size_mb;default:1024" json:"wal_size_mb,omitempty"`
	WALGrowthPct         float64   `gorm:"column:wal_growth_percent;default:20" json:"wal_growth_percent,omitempty"`
	AutoPauseEnabled     bool      `gorm:"column:auto_pause_enabled;default:false" json:"auto_pause_enabled,omitempty"`
}

// TableName overrides gorm to use monitoring_settings table.
func (MonitoringSettings) TableName() string {
	return "monitoring_settings"
}

// ProgressEvent is one metrics sample reported by the data plane for a
// pipeline: record counts, lag, error and dead-letter tallies, and WAL size
// when the source exposes it. The monitoring loop reads the latest samples;
// the engine REST API itself carries no lag or throughput figures.
type ProgressEvent struct {
	ID              uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt       time.Time `gorm:"index:idx_progress_created" json:"created_at,omitempty"`
	PipelineID      uint      `gorm:"column:pipeline_id;index:idx_progress_pipeline" json:"pipeline_id,omitempty"`
	Phase           string    `gorm:"column:phase" json:"phase,omitempty"`
	RecordsTotal    int64     `gorm:"column:records_total" json:"records_total,omitempty"`
	RecordsPerSec   float64   `gorm:"column:records_per_sec" json:"records_per_sec,omitempty"`
	LagMs           int64     `gorm:"column:lag_ms" json:"lag_ms,omitempty"`
	ErrorCount      int64     `gorm:"column:error_count" json:"error_count,omitempty"`
	DLQCount        int64     `gorm:"column:dlq_count" json:"dlq_count,omitempty"`
	WALSizeMB       int64     `gorm:"column:wal_size_mb" json:"wal_size_mb,omitempty"`
	SourceTimestamp time.Time `gorm:"column:source_timestamp" json:"source_timestamp,omitempty"`
}

// TableName overrides gorm to use progress_event table.
func (ProgressEvent) TableName() string {
	return "progress_event"
}
