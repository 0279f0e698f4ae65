// Package client is the HTTP client for the gateway API, shared by the
// web chat UI and the console REPL. It owns the bounded submit/poll loop.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deploypilotorg/deploypilot/internal/task"
	"github.com/deploypilotorg/deploypilot/internal/workspace"
)

const (
	// DefaultPollInterval and DefaultPollAttempts bound the wait for a
	// result: 60 attempts x 1s, then the caller gets ErrPollTimeout.
	DefaultPollInterval = time.Second
	DefaultPollAttempts = 60

	requestTimeout = 15 * time.Second
)

// ErrPollTimeout is returned by Await when the attempt budget is exhausted.
// The server-side record is untouched and keeps processing.
var ErrPollTimeout = errors.New("timed out waiting for response from agent")

// Snapshot mirrors the gateway's poll response.
type Snapshot struct {
	Status task.Status `json:"status"`
	Result string      `json:"result,omitempty"`
}

// Client talks to a running gateway.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	pollInterval time.Duration
	pollAttempts int
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		token:        token,
		httpClient:   &http.Client{Timeout: requestTimeout},
		pollInterval: DefaultPollInterval,
		pollAttempts: DefaultPollAttempts,
	}
}

// SetPolling overrides the poll loop bounds (tests use tight values).
func (c *Client) SetPolling(interval time.Duration, attempts int) {
	if interval > 0 {
		c.pollInterval = interval
	}
	if attempts > 0 {
		c.pollAttempts = attempts
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not connect to the agent server at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status code %d for %s", resp.StatusCode, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Submit sends a query and returns the issued task identifier.
func (c *Client) Submit(ctx context.Context, text string) (string, error) {
	var resp struct {
		QueryID string `json:"query_id"`
		Status  string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/query", map[string]string{"text": text}, &resp); err != nil {
		return "", err
	}
	if resp.QueryID == "" {
		return "", errors.New("failed to get query ID from server")
	}
	return resp.QueryID, nil
}

// Result fetches the current snapshot for a task.
func (c *Client) Result(ctx context.Context, id string) (Snapshot, error) {
	var snap Snapshot
	err := c.do(ctx, http.MethodGet, "/result/"+id, nil, &snap)
	return snap, err
}

// Await polls until the task reaches a terminal state or the attempt
// budget runs out. A not_found snapshot is returned as-is: the caller
// decides how to surface it.
func (c *Client) Await(ctx context.Context, id string) (Snapshot, error) {
	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		snap, err := c.Result(ctx, id)
		if err != nil {
			return Snapshot{}, err
		}

		if snap.Status != task.StatusProcessing {
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return Snapshot{}, ErrPollTimeout
}

// Ask is submit + await in one call.
func (c *Client) Ask(ctx context.Context, text string) (Snapshot, error) {
	id, err := c.Submit(ctx, text)
	if err != nil {
		return Snapshot{}, err
	}
	return c.Await(ctx, id)
}

// WorkspaceInfo fetches the workspace tree.
func (c *Client) WorkspaceInfo(ctx context.Context) (workspace.Info, error) {
	var info workspace.Info
	err := c.do(ctx, http.MethodGet, "/workspace_info", nil, &info)
	return info, err
}

// ResetWorkspace asks the gateway to destroy and recreate the workspace.
func (c *Client) ResetWorkspace(ctx context.Context) (status, message string, err error) {
	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/reset_workspace", nil, &resp); err != nil {
		return "", "", err
	}
	return resp.Status, resp.Message, nil
}

// Online reports whether the gateway answers its status probe.
func (c *Client) Online(ctx context.Context) bool {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/status", nil, &resp); err != nil {
		return false
	}
	return resp.Status == "online"
}
