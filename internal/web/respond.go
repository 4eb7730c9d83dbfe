package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rollbook/rollbook/internal/core"
	"github.com/rollbook/rollbook/internal/decode"
	"github.com/rollbook/rollbook/internal/logging"
	"github.com/rollbook/rollbook/internal/store"
)

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeOK writes a success envelope: {"ok": true} merged with extra fields.
func writeOK(w http.ResponseWriter, status int, extra map[string]any) {
	body := map[string]any{"ok": true}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// writeFail writes a failure envelope: {"ok": false, "error": message}.
func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": message})
}

// respondError maps service errors onto HTTP status codes and writes
// the failure envelope. Unrecognized errors become opaque 500s so
// internals never leak to clients.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())

	switch {
	case errors.Is(err, store.ErrNotFound):
		writeFail(w, http.StatusNotFound, "not found")

	case errors.Is(err, store.ErrLocked):
		writeFail(w, http.StatusConflict, "session is locked")

	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrNoValidStudents),
		errors.Is(err, decode.ErrEmptyFile),
		errors.Is(err, decode.ErrUnsupportedFormat):
		writeFail(w, http.StatusBadRequest, err.Error())

	default:
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeFail(w, http.StatusInternalServerError, "internal server error")
	}
}
