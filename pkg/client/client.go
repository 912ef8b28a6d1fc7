// Package client provides a Go client for the wikiwalk HTTP API.
//
// It covers synchronous walks, asynchronous walks with task polling, and
// link lookups. Errors returned by the server surface as *APIError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// --- Custom Errors ---

// APIError represents an error returned by the API (status >= 400).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// --- JSON Structs ---

// WalkRequest describes one walk. A nil MaxSteps and a zero TopK use the
// server's defaults.
type WalkRequest struct {
	Start    string `json:"start"`
	Target   string `json:"target"`
	MaxSteps *int   `json:"max_steps,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
}

// WalkResult is the outcome of a finished walk.
type WalkResult struct {
	RunID   string   `json:"run_id"`
	Start   string   `json:"start"`
	Target  string   `json:"target"`
	Status  string   `json:"status"`
	Reason  string   `json:"reason,omitempty"`
	Steps   int      `json:"steps"`
	Path    []string `json:"path"`
	Elapsed int64    `json:"elapsed_ns"`
}

// Duration returns the walk's wall-clock time.
func (r *WalkResult) Duration() time.Duration {
	return time.Duration(r.Elapsed)
}

// Reached reports whether the walk arrived at its target.
func (r *WalkResult) Reached() bool {
	return r.Status == "reached"
}

// Links is a page's outbound links.
type Links struct {
	Title string   `json:"title"`
	Links []string `json:"links"`
	Count int      `json:"count"`
}

// Task represents an asynchronous walk on the server.
type Task struct {
	ID      string      `json:"id"`
	Status  string      `json:"status"`
	Start   string      `json:"start"`
	Target  string      `json:"target"`
	Steps   int         `json:"steps"`
	Current string      `json:"current,omitempty"`
	Result  *WalkResult `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`

	client *Client // Reference to the client for polling.
}

// --- Client ---

// Client talks to one wikiwalk server.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// New creates a client for baseURL (e.g. "http://localhost:9093").
// authToken may be empty when the server runs without authentication.
func New(baseURL, authToken string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		// Synchronous walks can take minutes; callers bound them with ctx.
		httpClient: &http.Client{},
	}
}

// jsonRequest executes one API call, decoding a JSON body into out when out is non-nil.
func (c *Client) jsonRequest(ctx context.Context, method, endpoint string, payload, out any) error {
	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal JSON payload: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		if json.Unmarshal(respBody, &errResp) == nil && errResp["error"] != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp["error"]}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("invalid JSON response for %s %s: %w", method, endpoint, err)
	}
	return nil
}

// Walk runs a walk and waits for its result.
func (c *Client) Walk(ctx context.Context, req WalkRequest) (*WalkResult, error) {
	var res WalkResult
	if err := c.jsonRequest(ctx, http.MethodPost, "/walks", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// WalkAsync starts a walk and returns its task immediately.
func (c *Client) WalkAsync(ctx context.Context, req WalkRequest) (*Task, error) {
	var task Task
	if err := c.jsonRequest(ctx, http.MethodPost, "/walks/async", req, &task); err != nil {
		return nil, err
	}
	task.client = c
	return &task, nil
}

// GetTaskStatus fetches the current state of a task.
func (c *Client) GetTaskStatus(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	if err := c.jsonRequest(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskID), nil, &task); err != nil {
		return nil, err
	}
	task.client = c
	return &task, nil
}

// Links returns the outbound links of title.
func (c *Client) Links(ctx context.Context, title string) (*Links, error) {
	var links Links
	if err := c.jsonRequest(ctx, http.MethodGet, "/links/"+url.PathEscape(title), nil, &links); err != nil {
		return nil, err
	}
	return &links, nil
}

// Healthy reports whether the server answers /healthz.
func (c *Client) Healthy(ctx context.Context) error {
	return c.jsonRequest(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Refresh updates the task with its latest state from the server.
func (t *Task) Refresh(ctx context.Context) error {
	if t.client == nil {
		return fmt.Errorf("client is not associated with the task")
	}
	updated, err := t.client.GetTaskStatus(ctx, t.ID)
	if err != nil {
		return err
	}
	*t = *updated
	return nil
}

// Wait polls the task every interval until it completes, fails or ctx ends.
func (t *Task) Wait(ctx context.Context, interval time.Duration) (*WalkResult, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		switch t.Status {
		case "completed":
			return t.Result, nil
		case "failed":
			return nil, fmt.Errorf("task %s failed with error: %s", t.ID, t.Error)
		case "running", "started":
			// Continue waiting.
		default:
			return nil, fmt.Errorf("unknown task status: %s", t.Status)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for task %s: %w", t.ID, ctx.Err())
		case <-ticker.C:
			if err := t.Refresh(ctx); err != nil {
				return nil, err
			}
		}
	}
}
