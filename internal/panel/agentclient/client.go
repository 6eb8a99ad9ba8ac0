// Package agentclient is the control plane's HTTP client for the node
// agent's L8 surface (spec.md §6 "Agent HTTP"), used by
// internal/panel/service's control proxy and internal/panel/wsproxy's
// streaming bridge.
package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/raptor-panel/raptor/internal/apierror"
	"github.com/raptor-panel/raptor/internal/daemon/state"
)

// Client talks to one daemon, identified by its host/port/api-key/secure
// flag (model.Daemon).
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func New(host string, port int, apiKey string, secure bool) *Client {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	return &Client{
		BaseURL: fmt.Sprintf("%s://%s:%d", scheme, host, port),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return apierror.Internal("marshal agent request", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return apierror.Internal("build agent request", err)
	}
	req.Header.Set("X-API-Key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return apierror.AgentError("agent unreachable", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return apierror.AgentError(fmt.Sprintf("agent returned %d: %s", resp.StatusCode, string(respBody)), nil)
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return apierror.Internal("decode agent response", err)
		}
	}
	return nil
}

// Health probes GET /health with a 5s timeout, per spec.md §5 "daemon
// health check (5s)".
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) System(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.do(ctx, http.MethodGet, "/system", nil, &out)
	return out, err
}

type CreateContainerRequest struct {
	Name          string               `json:"name"`
	Image         string               `json:"image"`
	StartupScript string               `json:"startupScript,omitempty"`
	StopCommand   string               `json:"stopCommand,omitempty"`
	InstallScript string               `json:"installScript,omitempty"`
	Allocations   []state.Allocation   `json:"allocations,omitempty"`
	Ports         []state.PortMapping  `json:"ports,omitempty"`
	Resources     state.Resources      `json:"resources"`
	Env           map[string]string    `json:"env,omitempty"`
}

func (c *Client) CreateContainer(ctx context.Context, req CreateContainerRequest) (*state.Container, error) {
	var out state.Container
	if err := c.do(ctx, http.MethodPost, "/containers", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type UpdateContainerRequest struct {
	Resources   *state.Resources     `json:"resources,omitempty"`
	Allocations *[]state.Allocation  `json:"allocations,omitempty"`
	Ports       *[]state.PortMapping `json:"ports,omitempty"`
}

func (c *Client) UpdateContainer(ctx context.Context, id string, req UpdateContainerRequest) (*state.Container, error) {
	var out state.Container
	if err := c.do(ctx, http.MethodPatch, "/containers/"+id, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteContainer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/containers/"+id, nil, nil)
}

func (c *Client) InspectContainer(ctx context.Context, id string) (*state.Container, error) {
	var out state.Container
	if err := c.do(ctx, http.MethodGet, "/containers/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartContainer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/containers/"+id+"/start", nil, nil)
}

type GracefulStopRequest struct {
	StopCommand string `json:"stopCommand,omitempty"`
	TimeoutSecs int    `json:"timeoutSecs,omitempty"`
}

type LifecycleResult struct {
	Success bool   `json:"success"`
	Method  string `json:"method"`
}

// GracefulStop implements the control-proxy stop path in spec.md §4.C2:
// "attempt graceful-stop ... If that fails, fall back to plain stop."
func (c *Client) GracefulStop(ctx context.Context, id string, req GracefulStopRequest) (*LifecycleResult, error) {
	var out LifecycleResult
	err := c.do(ctx, http.MethodPost, "/containers/"+id+"/graceful-stop", req, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Stop(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/containers/"+id+"/stop", nil, nil)
}

func (c *Client) Restart(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/containers/"+id+"/restart", nil, nil)
}

func (c *Client) Kill(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/containers/"+id+"/kill", nil, nil)
}

func (c *Client) Recreate(ctx context.Context, id string) (*state.Container, error) {
	var out state.Container
	if err := c.do(ctx, http.MethodPost, "/containers/"+id+"/recreate", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendCommand(ctx context.Context, id, command string) error {
	return c.do(ctx, http.MethodPost, "/containers/"+id+"/command", map[string]string{"command": command}, nil)
}

func (c *Client) SetFTPPassword(ctx context.Context, id, password string) (string, error) {
	var out struct {
		Username string `json:"username"`
	}
	err := c.do(ctx, http.MethodPost, "/containers/"+id+"/ftp", map[string]string{"password": password}, &out)
	return out.Username, err
}

func (c *Client) Stats(ctx context.Context, id string) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.do(ctx, http.MethodGet, "/containers/"+id+"/stats", nil, &out)
	return out, err
}

func (c *Client) Status(ctx context.Context, id string) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.do(ctx, http.MethodGet, "/containers/"+id+"/status", nil, &out)
	return out, err
}

type EnsureDatabaseServerRequest struct {
	Type         string `json:"type"`
	RootPassword string `json:"rootPassword"`
}

func (c *Client) EnsureDatabaseServer(ctx context.Context, req EnsureDatabaseServerRequest) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.do(ctx, http.MethodPost, "/databases/servers", req, &out)
	return out, err
}

type UserDBRequest struct {
	Type       string `json:"type"`
	DBName     string `json:"dbName"`
	DBUser     string `json:"dbUser"`
	DBPassword string `json:"dbPassword,omitempty"`
}

func (c *Client) CreateUserDB(ctx context.Context, req UserDBRequest) error {
	return c.do(ctx, http.MethodPost, "/databases/users", req, nil)
}

func (c *Client) DeleteUserDB(ctx context.Context, req UserDBRequest) error {
	return c.do(ctx, http.MethodDelete, "/databases/users", req, nil)
}

func (c *Client) ResetUserDBPassword(ctx context.Context, req UserDBRequest, newPassword string) error {
	body := map[string]string{
		"type": req.Type, "dbName": req.DBName, "dbUser": req.DBUser, "newPassword": newPassword,
	}
	return c.do(ctx, http.MethodPost, "/databases/users/reset-password", body, nil)
}
