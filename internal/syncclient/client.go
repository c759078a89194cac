// Package syncclient is the HTTP client for the scribe-sync server. It
// carries the two exchanges the engine needs: the reachability probe and
// the reconciliation push.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnavailable = errors.New("server unavailable")
	ErrBadRequest  = errors.New("bad request")
)

const (
	defaultTimeout = 30 * time.Second
	probeTimeout   = 5 * time.Second
)

// Client is an HTTP client for the scribe-sync server.
type Client struct {
	BaseURL  string
	DeviceID string
	HTTP     *http.Client

	// ProbeTimeout bounds the reachability check; exceeding it is an
	// ordinary probe failure, not an error to surface.
	ProbeTimeout time.Duration
}

// New creates a new sync client.
func New(baseURL, deviceID string) *Client {
	return &Client{
		BaseURL:      baseURL,
		DeviceID:     deviceID,
		HTTP:         &http.Client{Timeout: defaultTimeout},
		ProbeTimeout: probeTimeout,
	}
}

// --- Wire types ---

// OperationInput is a single pending operation in a sync request.
type OperationInput struct {
	OpID       int64           `json:"op_id"`
	EntityType string          `json:"entity_type"`
	EntityID   int64           `json:"entity_id"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt string          `json:"recorded_at"`
}

// SyncRequest is the body for POST /v1/sync.
type SyncRequest struct {
	DeviceID   string           `json:"device_id"`
	Operations []OperationInput `json:"operations"`
}

// SyncResponse is the server's answer to a reconciliation exchange.
type SyncResponse struct {
	Success           bool   `json:"success"`
	LastSyncTimestamp string `json:"last_sync_timestamp"`
	Accepted          int    `json:"accepted"`
	Duplicates        int    `json:"duplicates,omitempty"`
	Message           string `json:"message,omitempty"`
}

// ServerTime parses the server-assigned sync timestamp.
func (r *SyncResponse) ServerTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, r.LastSyncTimestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last_sync_timestamp %q: %w", r.LastSyncTimestamp, err)
	}
	return t, nil
}

// StatusResponse is the response from GET /v1/sync/status.
type StatusResponse struct {
	EventCount    int64  `json:"event_count"`
	LastServerSeq int64  `json:"last_server_seq"`
	LastEventTime string `json:"last_event_time,omitempty"`
}

// HealthResponse is the response from GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// --- Methods ---

// Ping issues the reachability probe: a minimal, side-effect-free GET
// against /healthz with cache-defeating headers and a short timeout. Any
// transport error or non-success status is a probe failure.
func (c *Client) Ping(ctx context.Context) error {
	timeout := c.ProbeTimeout
	if timeout <= 0 {
		timeout = probeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Cache-busting query param plus no-cache headers so an intermediary
	// can never answer for an unreachable server
	url := c.BaseURL + "/healthz?ts=" + strconv.FormatInt(time.Now().UnixNano(), 10)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("create probe request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// Sync transmits pending operations and returns the server's verdict. A
// transport failure (no response at all) is returned as an error; the
// caller treats it the same as success=false with no timestamp advance.
func (c *Client) Sync(ctx context.Context, req *SyncRequest) (*SyncResponse, error) {
	var resp SyncResponse
	if err := c.do(ctx, "POST", "/v1/sync", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status reads the server-side sync status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.do(ctx, "GET", "/v1/sync/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- HTTP helpers ---

// apiError is the standard error body from the server.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.DeviceID != "" {
		req.Header.Set("X-Scribe-Device", c.DeviceID)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Code != "" {
			if resp.StatusCode == http.StatusBadRequest {
				return fmt.Errorf("%w: %s", ErrBadRequest, apiErr.Message)
			}
			return &apiErr
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
