package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rollbook/rollbook/internal/store"
)

func TestSyncClientPush(t *testing.T) {
	var gotPath string
	var gotPayload savePayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "errors": []any{}})
	}))
	defer srv.Close()

	c := NewSyncClient(srv.URL)
	updates := []store.StatusUpdate{
		{StudentID: 7, Status: store.StatusAbsent},
	}
	saveErrs, err := c.Push(context.Background(), 42, updates, nil)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(saveErrs) != 0 {
		t.Errorf("errors = %v, want none", saveErrs)
	}
	if gotPath != "/api/sessions/42" {
		t.Errorf("path = %q, want /api/sessions/42", gotPath)
	}
	if len(gotPayload.Records) != 1 || gotPayload.Records[0].StudentID != 7 {
		t.Errorf("payload records = %+v", gotPayload.Records)
	}
	if gotPayload.Locked != nil {
		t.Errorf("payload locked = %v, want omitted", *gotPayload.Locked)
	}
}

func TestSyncClientPushLockOnly(t *testing.T) {
	var gotPayload savePayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	c := NewSyncClient(srv.URL)
	locked := true
	if _, err := c.Push(context.Background(), 1, nil, &locked); err != nil {
		t.Fatalf("Push: %v", err)
	}

	// The records field must still be present as an empty list.
	if gotPayload.Records == nil || len(gotPayload.Records) != 0 {
		t.Errorf("payload records = %v, want empty list", gotPayload.Records)
	}
	if gotPayload.Locked == nil || !*gotPayload.Locked {
		t.Error("payload locked not set")
	}
}

func TestSyncClientPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "session is locked"})
	}))
	defer srv.Close()

	c := NewSyncClient(srv.URL)
	_, err := c.Push(context.Background(), 5,
		[]store.StatusUpdate{{StudentID: 1, Status: store.StatusAbsent}}, nil)
	if err == nil {
		t.Fatal("Push succeeded against a conflict response")
	}
}

func TestSyncClientSetLocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	c := NewSyncClient(srv.URL)
	e := NewEditor(testSnapshot(), false)

	if err := c.SetLocked(context.Background(), 3, e, true); err != nil {
		t.Fatalf("SetLocked: %v", err)
	}
	if !e.Locked() {
		t.Error("editor lock copy not reconciled after confirmed toggle")
	}
}

func TestSyncClientSetLockedFailureKeepsLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "boom"})
	}))
	defer srv.Close()

	c := NewSyncClient(srv.URL)
	e := NewEditor(testSnapshot(), false)

	if err := c.SetLocked(context.Background(), 3, e, true); err == nil {
		t.Fatal("SetLocked succeeded against a failing server")
	}
	if e.Locked() {
		t.Error("editor lock copy changed despite failed toggle")
	}
}
