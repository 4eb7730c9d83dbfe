package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rollbook/rollbook/internal/export"
	"github.com/rollbook/rollbook/internal/store"
)

// handleListSessions returns all sessions with roster names and tallies.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// handleCreateSession creates a dated session against a roster,
// snapshotting the roster's current membership.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RosterID    int64  `json:"rosterId"`
		Subject     string `json:"subject"`
		SessionDate string `json:"sessionDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	date, err := parseSessionDate(req.SessionDate)
	if err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := s.service.CreateSession(r.Context(), req.RosterID, req.Subject, date)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"session": session})
}

// parseSessionDate accepts a date-only or RFC 3339 timestamp string.
func parseSessionDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if d, err := time.Parse("2006-01-02", raw); err == nil {
		return d, nil
	}
	if d, err := time.Parse(time.RFC3339, raw); err == nil {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("invalid sessionDate %q: want YYYY-MM-DD or RFC 3339", raw)
}

// handleGetSession returns one session with its records.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "sessionID")
	if err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	session, records, err := s.service.GetSession(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"session": session,
		"records": records,
	})
}

// handleSaveSession applies a batch of status updates and/or a lock
// toggle. Per-record failures are reported in the errors field without
// failing the request; a locked session refuses status updates outright.
func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "sessionID")
	if err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Records []store.StatusUpdate `json:"records"`
		Locked  *bool                `json:"locked,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	saveErrs, err := s.service.SaveSession(r.Context(), id, req.Records, req.Locked)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"errors": saveErrs})
}

// handleExportSession streams the session's records as a CSV download.
func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "sessionID")
	if err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	_, records, err := s.service.GetSession(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	data, err := export.Session(records)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("session-%d.csv", id)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
