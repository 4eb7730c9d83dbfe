// Package session provides the client-held working copy of one
// attendance session: an in-memory state store with bulk mutation and
// an undo history, a lock gate consulted before any mutation, and a
// sync client that pushes the working state to the server.
//
// The state exists only for the duration of one active view of one
// session. It is single-goroutine by contract; a reload discards the
// undo history and re-reads the authoritative snapshot.
package session

import (
	"strings"

	"github.com/rollbook/rollbook/internal/store"
)

// Record is one student's working attendance entry.
type Record struct {
	StudentID        int64             `json:"studentId"`
	EnrollmentNumber string            `json:"enrollmentNumber"`
	Name             string            `json:"name"`
	Extra            map[string]string `json:"extra,omitempty"`
	Status           store.Status      `json:"status"`
}

// State holds the working record sequence and its undo history.
// It does not know about the lock flag; gating happens in Editor,
// the boundary callers mutate through.
type State struct {
	records []Record
	history [][]Record
}

// NewState initializes working state from a server-provided snapshot.
// The snapshot is copied; the caller's slice is not retained.
func NewState(snapshot []Record) *State {
	return &State{records: copyRecords(snapshot)}
}

// FromStoreRecords builds working records from a store session snapshot.
func FromStoreRecords(records []store.Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = Record{
			StudentID:        r.StudentID,
			EnrollmentNumber: r.EnrollmentNumber,
			Name:             r.Name,
			Extra:            r.Extra,
			Status:           r.Status,
		}
	}
	return out
}

// Records returns a copy of the current working sequence.
func (s *State) Records() []Record {
	return copyRecords(s.records)
}

// SetStatus replaces the status of the matching record, pushing the
// current sequence onto the undo stack first. The replace is a no-op
// when no record matches studentID.
func (s *State) SetStatus(studentID int64, status store.Status) {
	s.push()
	for i := range s.records {
		if s.records[i].StudentID == studentID {
			s.records[i].Status = status
			return
		}
	}
}

// MarkAll sets every record's status, pushing the current sequence
// onto the undo stack first.
func (s *State) MarkAll(status store.Status) {
	s.push()
	for i := range s.records {
		s.records[i].Status = status
	}
}

// Undo restores the most recent snapshot from the stack. Returns false
// (silently, no state change) when the history is empty.
func (s *State) Undo() bool {
	if len(s.history) == 0 {
		return false
	}
	s.records = s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	return true
}

// HistoryLen reports how many undo steps are available.
func (s *State) HistoryLen() int {
	return len(s.history)
}

// Filter returns a read-only view of records whose name or enrollment
// number contains query as a case-insensitive substring. It never
// mutates state or the undo stack and can be called repeatedly with
// different queries. An empty query returns all records.
func (s *State) Filter(query string) []Record {
	q := strings.ToLower(query)
	var out []Record
	for _, r := range s.records {
		if strings.Contains(strings.ToLower(r.Name), q) ||
			strings.Contains(strings.ToLower(r.EnrollmentNumber), q) {
			out = append(out, r)
		}
	}
	return copyRecords(out)
}

// Updates returns the current statuses as the save payload.
func (s *State) Updates() []store.StatusUpdate {
	out := make([]store.StatusUpdate, len(s.records))
	for i, r := range s.records {
		out[i] = store.StatusUpdate{StudentID: r.StudentID, Status: r.Status}
	}
	return out
}

// push snapshots the current sequence onto the undo stack.
func (s *State) push() {
	s.history = append(s.history, copyRecords(s.records))
}

func copyRecords(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

// Editor is the mutation boundary the UI calls through. It wraps a
// State with the session's lock gate: while the advisory lock copy is
// set, every mutating call is refused outright, with no undo entry
// pushed. Reads pass through unconditionally.
//
// The authoritative lock value lives in the persistent store; the copy
// here must be reconciled via SyncClient.SetLocked after every toggle.
type Editor struct {
	state  *State
	locked bool
}

// NewEditor wraps a snapshot and the session's persisted lock flag.
func NewEditor(snapshot []Record, locked bool) *Editor {
	return &Editor{state: NewState(snapshot), locked: locked}
}

// SetStatus mutates one record's status. Returns false when locked.
func (e *Editor) SetStatus(studentID int64, status store.Status) bool {
	if e.locked {
		return false
	}
	e.state.SetStatus(studentID, status)
	return true
}

// MarkAll mutates every record's status. Returns false when locked.
func (e *Editor) MarkAll(status store.Status) bool {
	if e.locked {
		return false
	}
	e.state.MarkAll(status)
	return true
}

// Undo pops the undo stack. Returns false when locked or when the
// history is empty.
func (e *Editor) Undo() bool {
	if e.locked {
		return false
	}
	return e.state.Undo()
}

// Locked reports the advisory lock copy.
func (e *Editor) Locked() bool {
	return e.locked
}

// SetLocked updates the advisory lock copy after a confirmed toggle.
// It has no effect on existing statuses.
func (e *Editor) SetLocked(locked bool) {
	e.locked = locked
}

// Records returns the current working sequence.
func (e *Editor) Records() []Record {
	return e.state.Records()
}

// Filter proxies State.Filter; filtering is allowed while locked.
func (e *Editor) Filter(query string) []Record {
	return e.state.Filter(query)
}

// Updates returns the save payload for SyncClient.
func (e *Editor) Updates() []store.StatusUpdate {
	return e.state.Updates()
}
