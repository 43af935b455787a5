package model

import "time"

// Deployment status values.
const (
	DeploymentStatusPending  = "pending"
	DeploymentStatusDeployed = "deployed"
	DeploymentStatusPaused   = "paused"
	DeploymentStatusError    = "error"
)

// ConnectorDefinition is the immutable identity of a logical connector in
// the registry. Versions hang off it; the definition itself is created once.
type ConnectorDefinition struct {
	ID        uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	Name      string    `gorm:"column:name;uniqueIndex:uk_definition_name" json:"name,omitempty"`
	Kind      string    `gorm:"column:kind" json:"kind,omitempty"`
	Class     string    `gorm:"column:class" json:"class,omitempty"`
	Owner     string    `gorm:"column:owner" json:"owner,omitempty"`
}

// TableName overrides gorm to use connector_definition table.
func (ConnectorDefinition) TableName() string {
	return "connector_definition"
}

// ConnectorVersion is one immutable configuration revision of a definition.
// Config holds the canonical flat map as JSON; Checksum is the MD5 of the
// canonicalized config. At most one version per definition is active.
type ConnectorVersion struct {
	ID           uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
	DefinitionID uint      `gorm:"column:definition_id;uniqueIndex:uk_definition_version,priority:1;index:idx_version_definition" json:"definition_id,omitempty"`
	Version      int       `gorm:"column:version;uniqueIndex:uk_definition_version,priority:2" json:"version,omitempty"`
	Config       string    `gorm:"column:config;type:text" json:"config,omitempty"`
	Checksum     string    `gorm:"column:checksum" json:"checksum,omitempty"`
	IsActive     bool      `gorm:"column:is_active;default:false;index:idx_version_active" json:"is_active,omitempty"`
	Warnings     string    `gorm:"column:warnings;type:text" json:"warnings,omitempty"`
	CreatedBy    string    `gorm:"column:created_by" json:"created_by,omitempty"`
}

// TableName overrides gorm to use connector_version table.
func (ConnectorVersion) TableName() string {
	return "connector_version"
}

// Deployment records one attempt to push a version live on an engine.
type Deployment struct {
	ID            uint      `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
	VersionID     uint      `gorm:"column:version_id;index:idx_deployment_version" json:"version_id,omitempty"`
	Environment   string    `gorm:"column:environment" json:"environment,omitempty"`
	EngineURL     string    `gorm:"column:engine_url" json:"engine_url,omitempty"`
	Status        string    `gorm:"column:status;default:pending" json:"status,omitempty"`
	StatusMessage string    `gorm:"column:status_message;type:varchar(512)" json:"status_message,omitempty"`
}

// TableName overrides gorm to use deployment table.
func (Deployment) TableName() string {
	return "deployment"
}
