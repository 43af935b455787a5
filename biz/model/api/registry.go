package api

// CreateVersionRequest registers a new configuration revision for a
// connector definition, creating the definition on first use.
type CreateVersionRequest struct {
	Kind   string            `json:"kind,omitempty"`
	Class  string            `json:"class,omitempty"`
	Owner  string            `json:"owner,omitempty"`
	Config map[string]string `json:"config"`
}

// VersionInfo is the API view of one registry version.
type VersionInfo struct {
	Name      string            `json:"name"`
	Version   int               `json:"version"`
	Checksum  string            `json:"checksum"`
	IsActive  bool              `json:"is_active"`
	Config    map[string]string `json:"config,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
	CreatedBy string            `json:"created_by,omitempty"`
	CreatedAt string            `json:"created_at,omitempty"`
	Reused    bool              `json:"reused,omitempty"`
}

// ValueChange carries both sides of a changed config key.
type ValueChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// DiffResult partitions the union of two versions' keys into three
// disjoint sets.
type DiffResult struct {
	Name    string                 `json:"name"`
	From    int                    `json:"from"`
	To      int                    `json:"to"`
	Added   map[string]string      `json:"added"`
	Removed map[string]string      `json:"removed"`
	Changed map[string]ValueChange `json:"changed"`
}

// CreateDeploymentRequest records an intent to push a version to an engine.
type CreateDeploymentRequest struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	Environment string `json:"environment"`
	EngineURL   string `json:"engine_url,omitempty"`
}

// DeploymentInfo is the API view of one deployment record.
type DeploymentInfo struct {
	ID            uint   `json:"id"`
	Name          string `json:"name,omitempty"`
	Version       int    `json:"version,omitempty"`
	Environment   string `json:"environment"`
	EngineURL     string `json:"engine_url,omitempty"`
	Status        string `json:"status"`
	StatusMessage string `json:"status_message,omitempty"`
	Action        string `json:"action,omitempty"`
}
