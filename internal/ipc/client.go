// Package ipc provides HTTP-over-Unix-socket client functionality for
// communicating with the suggestd daemon.
package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/runger/suggestd/internal/api"
	"github.com/runger/suggestd/internal/config"
	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/release"
)

// Default timeouts for different operation types
const (
	// SuggestTimeout is used for suggestion requests
	SuggestTimeout = 200 * time.Millisecond

	// ControlTimeout is used for status and shutdown requests
	ControlTimeout = 2 * time.Second
)

// SocketPath returns the path to the daemon Unix socket.
func SocketPath() string {
	// Allow override via environment variable
	if path := os.Getenv("SUGGESTD_SOCKET_PATH"); path != "" {
		return path
	}
	return config.DefaultPaths().SocketFile()
}

// SocketExists checks if the daemon socket file exists.
func SocketExists() bool {
	_, err := os.Stat(SocketPath())
	return err == nil
}

// Client talks to the daemon over its Unix socket.
type Client struct {
	httpClient *http.Client
	socketPath string
}

// NewClient creates a client for the default socket path.
func NewClient() *Client {
	return NewClientForSocket(SocketPath())
}

// NewClientForSocket creates a client for a specific socket path.
func NewClientForSocket(socketPath string) *Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
	}
	return &Client{
		httpClient: &http.Client{Transport: transport},
		socketPath: socketPath,
	}
}

// Suggest requests production suggestions.
func (c *Client) Suggest(ctx context.Context, req *model.SuggestRequest) (*release.Reply, error) {
	var reply release.Reply
	if err := c.post(ctx, "/v1/suggestions", req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// DebugSuggest requests the raw internal response.
func (c *Client) DebugSuggest(ctx context.Context, req *model.SuggestRequest) (*model.SuggestResponse, error) {
	var resp model.SuggestResponse
	if err := c.post(ctx, "/v1/debug/suggestions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status fetches daemon status.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var status api.StatusResponse
	if err := c.get(ctx, "/v1/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Metrics fetches the daemon counter snapshot.
func (c *Client) Metrics(ctx context.Context) (map[string]int64, error) {
	snapshot := make(map[string]int64)
	if err := c.get(ctx, "/debug/metrics", &snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Shutdown asks the daemon to stop.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.post(ctx, "/v1/shutdown", struct{}{}, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://suggestd"+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://suggestd"+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", c.socketPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon error %s: %s", apiErr.Error, apiErr.Message)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
