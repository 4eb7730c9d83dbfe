// Package store provides the persistent store for rosters, students,
// attendance sessions, and attendance records.
//
// The Store interface is the boundary the core business logic depends on.
// Two implementations exist: Postgres (pgx v5, production) and Memory
// (in-process, used by tests). Both honor the same natural-key semantics:
// students are unique per (roster_id, enrollment_number) and attendance
// records are unique per (session_id, student_id).
package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by Store implementations.
// Callers distinguish them with errors.Is at the web boundary.
var (
	// ErrNotFound indicates the requested roster, session, or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrLocked indicates a status update was refused because the owning
	// session's lock flag is set in the persisted state.
	ErrLocked = errors.New("session is locked")
)

// Status is a per-student attendance status within one session.
type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
)

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// Roster is a named collection of students.
type Roster struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Student belongs to exactly one roster. Extra holds arbitrary
// per-student attributes captured verbatim from an imported file.
type Student struct {
	ID               int64             `json:"id"`
	RosterID         int64             `json:"rosterId"`
	EnrollmentNumber string            `json:"enrollmentNumber"`
	Name             string            `json:"name"`
	Extra            map[string]string `json:"extra,omitempty"`
	Notes            string            `json:"notes,omitempty"`
}

// StudentUpsert is the input to UpsertStudents, keyed on
// (rosterID, EnrollmentNumber). A nil Notes leaves any existing
// notes untouched; imports never carry notes.
type StudentUpsert struct {
	EnrollmentNumber string
	Name             string
	Extra            map[string]string
	Notes            *string
}

// UpsertError records one student whose upsert failed. Failures are
// collected per record and never abort the sibling upserts.
type UpsertError struct {
	EnrollmentNumber string `json:"enrollmentNumber"`
	Name             string `json:"name"`
	Message          string `json:"error"`
}

// Session is one dated attendance-taking event against a roster.
// Its record set is snapshotted from the roster at creation time.
type Session struct {
	ID          int64     `json:"id"`
	RosterID    int64     `json:"rosterId"`
	Subject     string    `json:"subject"`
	SessionDate time.Time `json:"sessionDate"`
	Locked      bool      `json:"locked"`
}

// SessionSummary is a session joined with its roster name and
// present/absent tallies, for listing screens.
type SessionSummary struct {
	ID          int64     `json:"id"`
	Subject     string    `json:"subject"`
	SessionDate time.Time `json:"sessionDate"`
	RosterName  string    `json:"rosterName"`
	Present     int       `json:"present"`
	Absent      int       `json:"absent"`
	Locked      bool      `json:"locked"`
}

// Record is one attendance record joined with the student fields
// needed for display and export.
type Record struct {
	ID               int64             `json:"id"`
	SessionID        int64             `json:"sessionId"`
	StudentID        int64             `json:"studentId"`
	EnrollmentNumber string            `json:"enrollmentNumber"`
	Name             string            `json:"name"`
	Extra            map[string]string `json:"extra,omitempty"`
	Status           Status            `json:"status"`
}

// StatusUpdate sets one student's status within a session.
type StatusUpdate struct {
	StudentID int64  `json:"studentId"`
	Status    Status `json:"status"`
}

// Store is the persistence boundary consumed by the core service.
type Store interface {
	// Rosters.
	CreateRoster(ctx context.Context, name string) (Roster, error)
	ListRosters(ctx context.Context) ([]Roster, error)
	GetRoster(ctx context.Context, id int64) (Roster, error)
	// DeleteRoster removes the roster and, by ownership, its students,
	// their attendance records, and the roster's sessions.
	DeleteRoster(ctx context.Context, id int64) error

	// Students.
	ListStudents(ctx context.Context, rosterID int64) ([]Student, error)
	// UpsertStudents applies all upserts inside one transaction with
	// per-record isolation: a failing record is reported in the returned
	// slice and does not abort its siblings. Returns the count persisted.
	UpsertStudents(ctx context.Context, rosterID int64, students []StudentUpsert) (int, []UpsertError, error)

	// Sessions.
	// CreateSession creates the session row and one PRESENT record per
	// current roster member as a single atomic unit.
	CreateSession(ctx context.Context, rosterID int64, subject string, date time.Time) (Session, error)
	ListSessions(ctx context.Context) ([]SessionSummary, error)
	GetSession(ctx context.Context, id int64) (Session, []Record, error)
	// SaveSession applies each status update independently inside one
	// transaction and, if locked is non-nil, writes the lock flag.
	// Status updates are refused with ErrLocked while the persisted
	// lock flag is set; toggling the flag itself is always allowed.
	SaveSession(ctx context.Context, id int64, updates []StatusUpdate, locked *bool) ([]UpsertError, error)
}
