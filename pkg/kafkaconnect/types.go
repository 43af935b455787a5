package kafkaconnect

// Connector and task states reported by the execution engine.
const (
	StateRunning    = "RUNNING"
	StatePaused     = "PAUSED"
	StateFailed     = "FAILED"
	StateUnassigned = "UNASSIGNED"
)

// ConnectorInfo is the engine's view of a configured connector.
type ConnectorInfo struct {
	Name   string            `json:"name"`
	Config map[string]string `json:"config"`
	Tasks  []TaskRef         `json:"tasks"`
	Type   string            `json:"type,omitempty"`
}

// TaskRef identifies a task belonging to a connector.
type TaskRef struct {
	Connector string `json:"connector"`
	Task      int    `json:"task"`
}

// ConnectorState is the status of the connector instance itself.
type ConnectorState struct {
	State    string `json:"state"`
	WorkerID string `json:"worker_id"`
	Trace    string `json:"trace,omitempty"`
}

// TaskState is the status of a single task.
type TaskState struct {
	ID       int    `json:"id"`
	State    string `json:"state"`
	WorkerID string `json:"worker_id"`
	Trace    string `json:"trace,omitempty"`
}

// ConnectorStatus aggregates connector and task states.
type ConnectorStatus struct {
	Name      string         `json:"name"`
	Connector ConnectorState `json:"connector"`
	Tasks     []TaskState    `json:"tasks"`
	Type      string         `json:"type,omitempty"`
}

// TaskInfo is one entry of GET /connectors/:name/tasks.
type TaskInfo struct {
	ID     TaskRef           `json:"id"`
	Config map[string]string `json:"config"`
}

// PluginInfo describes an installed connector plugin.
type PluginInfo struct {
	Class   string `json:"class"`
	Type    string `json:"type"`
	Version string `json:"version,omitempty"`
}

// ConfigValidation is the engine's verdict on a candidate configuration.
type ConfigValidation struct {
	Name       string             `json:"name"`
	ErrorCount int                `json:"error_count"`
	Groups     []string           `json:"groups,omitempty"`
	Configs    []ConfigInfoResult `json:"configs,omitempty"`
}

// ConfigInfoResult carries per-field validation output.
type ConfigInfoResult struct {
	Value ConfigValueInfo `json:"value"`
}

// ConfigValueInfo holds a validated field value and its errors.
type ConfigValueInfo struct {
	Name   string   `json:"name"`
	Value  string   `json:"value,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// apiError is the engine's JSON error body.
type apiError struct {
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
}
