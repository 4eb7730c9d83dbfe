package core

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rollbook/rollbook/internal/decode"
	"github.com/rollbook/rollbook/internal/store"
)

// ErrNoValidStudents indicates a decoded file contained rows but none
// survived normalization. Nothing is persisted.
var ErrNoValidStudents = errors.New(
	"no valid student records found; ensure the file has columns for enrollment number and name")

// ImportResult reports what one import run did.
type ImportResult struct {
	ImportID       string              `json:"importId"`
	TotalRows      int                 `json:"totalRows"`
	ValidRows      int                 `json:"validRows"`
	UniqueStudents int                 `json:"uniqueStudents"`
	Imported       int                 `json:"studentsImported"`
	Errors         []store.UpsertError `json:"errors"`
}

// ImportRoster reconciles decoded rows into the roster's student list.
//
// The pipeline: normalize every row (rejects are dropped and counted),
// collapse duplicate enrollment numbers (last row wins), then upsert
// each survivor keyed on (rosterID, enrollmentNumber) inside a single
// transaction. An individual upsert failure is recorded against the
// offending student and does not abort its siblings or the run.
//
// The whole import fails with no partial commit only when the roster
// does not exist or the file yielded no usable rows. Re-running the
// same file is a no-op after the first run: upserts overwrite name and
// extra but never identity, so student ids are stable across runs.
func (s *Service) ImportRoster(ctx context.Context, rosterID int64, rows []decode.Row) (*ImportResult, error) {
	if _, err := s.store.GetRoster(ctx, rosterID); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, decode.ErrEmptyFile
	}

	result := &ImportResult{
		ImportID:  uuid.New().String(),
		TotalRows: len(rows),
	}

	var normalized []NormalizedStudent
	for _, row := range rows {
		if st, ok := NormalizeRow(row); ok {
			normalized = append(normalized, st)
		}
	}
	result.ValidRows = len(normalized)
	if len(normalized) == 0 {
		return nil, ErrNoValidStudents
	}

	unique := DeduplicateLast(normalized)
	result.UniqueStudents = len(unique)

	upserts := make([]store.StudentUpsert, len(unique))
	for i, st := range unique {
		upserts[i] = store.StudentUpsert{
			EnrollmentNumber: st.EnrollmentNumber,
			Name:             st.Name,
			Extra:            st.Extra,
			// Notes stays nil: imports never touch manual notes.
		}
	}

	persisted, upsertErrs, err := s.store.UpsertStudents(ctx, rosterID, upserts)
	if err != nil {
		return nil, err
	}
	result.Imported = persisted
	result.Errors = upsertErrs

	slog.Info("roster import completed",
		"import_id", result.ImportID,
		"roster_id", rosterID,
		"total_rows", result.TotalRows,
		"valid_rows", result.ValidRows,
		"unique_students", result.UniqueStudents,
		"imported", result.Imported,
		"failed", len(result.Errors),
	)
	return result, nil
}
