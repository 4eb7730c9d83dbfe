package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rollbook/rollbook/internal/store"
)

// ErrValidation marks request-shape problems: missing required fields,
// malformed values. Nothing is persisted when a validation error is
// returned. Check with errors.Is.
var ErrValidation = errors.New("validation failed")

// validationErr wraps a message so it matches ErrValidation.
func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// Service is the main entry point for roster and attendance operations.
type Service struct {
	store store.Store
}

// NewService creates a Service on the given store.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// CreateRoster creates an empty named roster.
func (s *Service) CreateRoster(ctx context.Context, name string) (store.Roster, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Roster{}, validationErr("roster name is required")
	}
	return s.store.CreateRoster(ctx, name)
}

// ListRosters returns all rosters, newest first.
func (s *Service) ListRosters(ctx context.Context) ([]store.Roster, error) {
	return s.store.ListRosters(ctx)
}

// DeleteRoster removes a roster and everything it owns.
func (s *Service) DeleteRoster(ctx context.Context, id int64) error {
	return s.store.DeleteRoster(ctx, id)
}

// ListStudents returns a roster's students ordered by id.
// The roster must exist.
func (s *Service) ListStudents(ctx context.Context, rosterID int64) ([]store.Student, error) {
	if _, err := s.store.GetRoster(ctx, rosterID); err != nil {
		return nil, err
	}
	return s.store.ListStudents(ctx, rosterID)
}

// StudentInput is one manually-edited student for UpsertStudents.
// Unlike import rows these may carry notes.
type StudentInput struct {
	EnrollmentNumber string            `json:"enrollmentNumber"`
	Name             string            `json:"name"`
	Extra            map[string]string `json:"extra,omitempty"`
	Notes            *string           `json:"notes,omitempty"`
}

// UpsertStudents applies direct edits against the same natural key the
// importer uses, so manual edits and imports never create duplicates.
func (s *Service) UpsertStudents(ctx context.Context, rosterID int64, students []StudentInput) (int, []store.UpsertError, error) {
	if len(students) == 0 {
		return 0, nil, validationErr("no students provided")
	}

	ups := make([]store.StudentUpsert, 0, len(students))
	for i, in := range students {
		if strings.TrimSpace(in.EnrollmentNumber) == "" || strings.TrimSpace(in.Name) == "" {
			return 0, nil, validationErr("student %d: enrollment number and name are required", i+1)
		}
		ups = append(ups, store.StudentUpsert{
			EnrollmentNumber: strings.TrimSpace(in.EnrollmentNumber),
			Name:             strings.TrimSpace(in.Name),
			Extra:            in.Extra,
			Notes:            in.Notes,
		})
	}
	return s.store.UpsertStudents(ctx, rosterID, ups)
}

// CreateSession creates a dated session for a roster, snapshotting its
// current membership as PRESENT records in one atomic unit. Students
// added to the roster afterwards do not appear in this session.
func (s *Service) CreateSession(ctx context.Context, rosterID int64, subject string, date time.Time) (store.Session, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return store.Session{}, validationErr("subject is required")
	}
	if date.IsZero() {
		return store.Session{}, validationErr("session date is required")
	}
	return s.store.CreateSession(ctx, rosterID, subject, date)
}

// ListSessions returns all sessions with roster names and tallies.
func (s *Service) ListSessions(ctx context.Context) ([]store.SessionSummary, error) {
	return s.store.ListSessions(ctx)
}

// GetSession returns one session and its records with student fields
// resolved for display.
func (s *Service) GetSession(ctx context.Context, id int64) (store.Session, []store.Record, error) {
	return s.store.GetSession(ctx, id)
}

// SaveSession applies a batch of status updates and/or a lock toggle.
// Each update is applied independently inside one transaction; a bad
// record is reported in the returned slice without aborting siblings.
// The store re-checks the persisted lock flag: status updates against
// a locked session fail with store.ErrLocked regardless of what the
// client believed.
func (s *Service) SaveSession(ctx context.Context, id int64, updates []store.StatusUpdate, locked *bool) ([]store.UpsertError, error) {
	for _, u := range updates {
		if !u.Status.Valid() {
			return nil, validationErr("invalid status %q for student %d", u.Status, u.StudentID)
		}
	}
	return s.store.SaveSession(ctx, id, updates, locked)
}
