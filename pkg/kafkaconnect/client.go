// Package kafkaconnect is a typed client for a Kafka Connect compatible
// REST API, the control surface of the connector execution engine.
//
// Call outcomes are classified into three error families the orchestrator's
// rollback logic depends on: ErrUnreachable (network failure, timeout or a
// 5xx response), ErrRejected (engine-side validation failure) and
// ErrNotFound (the named connector or task does not exist).
package kafkaconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrUnreachable marks transport failures, timeouts and 5xx responses.
	ErrUnreachable = errors.New("execution engine unreachable")
	// ErrRejected marks engine-side validation failures (4xx other than 404).
	ErrRejected = errors.New("execution engine rejected request")
	// ErrNotFound marks an absent connector, task or plugin.
	ErrNotFound = errors.New("connector not found")
)

// Client talks to one execution engine instance.
type Client struct {
	baseURL  string
	timeout  time.Duration
	retryMax int
	http     *retryablehttp.Client
}

// NewClient creates a client for the engine at baseURL. Network errors and
// 5xx responses are retried up to retryMax times with the library's default
// backoff; 4xx responses are never retried.
func NewClient(baseURL string, timeout time.Duration, retryMax int) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if retryMax < 0 {
		retryMax = 0
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil

	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		timeout:  timeout,
		retryMax: retryMax,
		http:     rc,
	}
}

// BaseURL returns the engine endpoint this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WithBaseURL returns a new client for a different engine endpoint that
// keeps this client's timeout and retry settings.
func (c *Client) WithBaseURL(baseURL string) *Client {
	return NewClient(baseURL, c.timeout, c.retryMax)
}

// --------------------- Connector lifecycle ---------------------

// ListConnectors returns the names of all connectors known to the engine.
func (c *Client) ListConnectors(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.do(ctx, http.MethodGet, "/connectors", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// GetConnector fetches a connector's definition.
func (c *Client) GetConnector(ctx context.Context, name string) (*ConnectorInfo, error) {
	var info ConnectorInfo
	if err := c.do(ctx, http.MethodGet, "/connectors/"+url.PathEscape(name), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CreateConnector registers a new connector.
func (c *Client) CreateConnector(ctx context.Context, name string, config map[string]string) (*ConnectorInfo, error) {
	body := map[string]any{"name": name, "config": config}
	var info ConnectorInfo
	if err := c.do(ctx, http.MethodPost, "/connectors", body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetConnectorConfig fetches a connector's current configuration.
func (c *Client) GetConnectorConfig(ctx context.Context, name string) (map[string]string, error) {
	var cfg map[string]string
	if err := c.do(ctx, http.MethodGet, "/connectors/"+url.PathEscape(name)+"/config", nil, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PutConnectorConfig creates or updates a connector's configuration.
// This is the engine's idempotent create-or-update primitive.
func (c *Client) PutConnectorConfig(ctx context.Context, name string, config map[string]string) (*ConnectorInfo, error) {
	var info ConnectorInfo
	if err := c.do(ctx, http.MethodPut, "/connectors/"+url.PathEscape(name)+"/config", config, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DeleteConnector removes a connector from the engine.
func (c *Client) DeleteConnector(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/connectors/"+url.PathEscape(name), nil, nil)
}

// PauseConnector pauses a connector and its tasks.
func (c *Client) PauseConnector(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPut, "/connectors/"+url.PathEscape(name)+"/pause", nil, nil)
}

// ResumeConnector resumes a paused connector.
func (c *Client) ResumeConnector(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPut, "/connectors/"+url.PathEscape(name)+"/resume", nil, nil)
}

// RestartConnector restarts a connector, optionally including its tasks and
// optionally limited to failed instances.
func (c *Client) RestartConnector(ctx context.Context, name string, includeTasks, onlyFailed bool) error {
	path := fmt.Sprintf("/connectors/%s/restart?includeTasks=%t&onlyFailed=%t",
		url.PathEscape(name), includeTasks, onlyFailed)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// --------------------- Status & tasks ---------------------

// GetStatus fetches the live status of a connector and its tasks.
func (c *Client) GetStatus(ctx context.Context, name string) (*ConnectorStatus, error) {
	var status ConnectorStatus
	if err := c.do(ctx, http.MethodGet, "/connectors/"+url.PathEscape(name)+"/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetTasks lists a connector's tasks and their configurations.
func (c *Client) GetTasks(ctx context.Context, name string) ([]TaskInfo, error) {
	var tasks []TaskInfo
	if err := c.do(ctx, http.MethodGet, "/connectors/"+url.PathEscape(name)+"/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTaskStatus fetches the status of one task.
func (c *Client) GetTaskStatus(ctx context.Context, name string, taskID int) (*TaskState, error) {
	var state TaskState
	path := fmt.Sprintf("/connectors/%s/tasks/%d/status", url.PathEscape(name), taskID)
	if err := c.do(ctx, http.MethodGet, path, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// RestartTask restarts a single task.
func (c *Client) RestartTask(ctx context.Context, name string, taskID int) error {
	path := fmt.Sprintf("/connectors/%s/tasks/%d/restart", url.PathEscape(name), taskID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// --------------------- Plugins ---------------------

// ListPlugins returns the connector plugins installed on the engine.
func (c *Client) ListPlugins(ctx context.Context) ([]PluginInfo, error) {
	var plugins []PluginInfo
	if err := c.do(ctx, http.MethodGet, "/connector-plugins", nil, &plugins); err != nil {
		return nil, err
	}
	return plugins, nil
}

// ValidatePluginConfig asks the engine to validate a candidate configuration
// against a plugin's config definition.
func (c *Client) ValidatePluginConfig(ctx context.Context, plugin string, config map[string]string) (*ConfigValidation, error) {
	var result ConfigValidation
	path := "/connector-plugins/" + url.PathEscape(plugin) + "/config/validate"
	if err := c.do(ctx, http.MethodPut, path, config, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// --------------------- Transport ---------------------

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: engine returned %d", ErrUnreachable, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s", ErrRejected, readAPIError(resp.Body, resp.StatusCode))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readAPIError(body io.Reader, status int) string {
	data, err := io.ReadAll(io.LimitReader(body, 8192))
	if err != nil || len(data) == 0 {
		return fmt.Sprintf("status %d", status)
	}
	var apiErr apiError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return strings.TrimSpace(string(data))
}
