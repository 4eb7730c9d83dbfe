package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rollbook/rollbook/internal/core"
	"github.com/rollbook/rollbook/internal/decode"
	"github.com/rollbook/rollbook/internal/export"
	"github.com/rollbook/rollbook/internal/logging"
)

// urlID parses a numeric id from a chi route parameter.
func urlID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// handleListRosters returns all rosters, newest first.
func (s *Server) handleListRosters(w http.ResponseWriter, r *http.Request) {
	rosters, err := s.service.ListRosters(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"rosters": rosters})
}

// handleCreateRoster creates an empty named roster.
func (s *Server) handleCreateRoster(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	roster, err := s.service.CreateRoster(r.Context(), req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"roster": roster})
}

// handleDeleteRoster removes a roster and everything it owns.
func (s *Server) handleDeleteRoster(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "rosterID")
	if err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.DeleteRoster(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

// handleListStudents returns a roster's students.
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "rosterID")
	if err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	students, err := s.service.ListStudents(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"students": students})
}

// handleUpsertStudents applies manual student edits against the same
// natural key the importer uses.
func (s *Server) handleUpsertStudents(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "rosterID")
	if err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Students []core.StudentInput `json:"students"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	saved, upsertErrs, err := s.service.UpsertStudents(r.Context(), id, req.Students)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"saved":  saved,
		"errors": upsertErrs,
	})
}

// handleImport accepts a multipart upload, decodes the tabular file,
// and reconciles its rows into the roster.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "rosterID")
	if err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.Import.MaxFileSize); err != nil {
		writeFail(w, http.StatusBadRequest,
			fmt.Sprintf("upload too large or malformed (limit %d bytes)", s.cfg.Import.MaxFileSize))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeFail(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	rows, err := decode.Decode(data, header.Filename)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	result, err := s.service.ImportRoster(ctx, id, rows)
	if err != nil {
		respondError(w, r, err)
		return
	}

	log.Info("import handled",
		"roster_id", id,
		"filename", header.Filename,
		"imported", result.Imported,
	)
	writeOK(w, http.StatusOK, map[string]any{"result": result})
}

// handleExportRoster streams the roster's students as a CSV download.
func (s *Server) handleExportRoster(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "rosterID")
	if err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	students, err := s.service.ListStudents(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	data, err := export.Roster(students)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("roster-%d.csv", id)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
