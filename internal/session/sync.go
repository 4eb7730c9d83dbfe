package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rollbook/rollbook/internal/store"
)

// SyncClient pushes a session's working statuses and lock toggles to
// the server as single requests against the session save endpoint.
//
// A failed push does not roll back local state; the caller surfaces
// the failure and may retry with the same payload. Replaying a status
// set or a lock value is idempotent on the server, so retries are
// always safe.
type SyncClient struct {
	baseURL string
	client  *http.Client
}

// NewSyncClient creates a client for the server at baseURL
// (e.g. "http://localhost:8080").
func NewSyncClient(baseURL string) *SyncClient {
	return &SyncClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// savePayload mirrors the session save endpoint's request schema.
type savePayload struct {
	Records []store.StatusUpdate `json:"records"`
	Locked  *bool                `json:"locked,omitempty"`
}

// saveResponse mirrors the endpoint's {ok, error} envelope.
type saveResponse struct {
	Ok     bool                `json:"ok"`
	Error  string              `json:"error,omitempty"`
	Errors []store.UpsertError `json:"errors,omitempty"`
}

// Push sends the current statuses and/or a lock intent in one request.
// Either part may be empty/nil; sending both applies both in one
// server-side transaction. On success the caller may consider its
// optimistic local state confirmed.
func (c *SyncClient) Push(ctx context.Context, sessionID int64, updates []store.StatusUpdate, locked *bool) ([]store.UpsertError, error) {
	if updates == nil {
		// The endpoint requires the records field; an empty list means
		// "no status changes", as lock-only toggles send.
		updates = []store.StatusUpdate{}
	}

	body, err := json.Marshal(savePayload{Records: updates, Locked: locked})
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/sessions/%d", c.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("save session %d: %w", sessionID, err)
	}
	defer resp.Body.Close()

	var out saveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !out.Ok {
		msg := out.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("save session %d failed: %s", sessionID, msg)
	}
	return out.Errors, nil
}

// Save pushes the editor's full working status set.
func (c *SyncClient) Save(ctx context.Context, sessionID int64, e *Editor) ([]store.UpsertError, error) {
	return c.Push(ctx, sessionID, e.Updates(), nil)
}

// SetLocked pushes a lock toggle and, on success, reconciles the
// editor's advisory copy with the confirmed value.
func (c *SyncClient) SetLocked(ctx context.Context, sessionID int64, e *Editor, locked bool) error {
	if _, err := c.Push(ctx, sessionID, nil, &locked); err != nil {
		return err
	}
	e.SetLocked(locked)
	return nil
}
