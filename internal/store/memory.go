package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and local experiments.
// It mirrors the Postgres implementation's semantics: natural-key
// upserts, snapshot-at-creation sessions, per-record failure
// collection, and the persisted-lock re-check on save.
type Memory struct {
	mu       sync.Mutex
	nextID   int64
	rosters  map[int64]Roster
	students map[int64]Student
	sessions map[int64]Session
	records  map[int64]memRecord
}

type memRecord struct {
	ID        int64
	SessionID int64
	StudentID int64
	Status    Status
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nextID:   1,
		rosters:  make(map[int64]Roster),
		students: make(map[int64]Student),
		sessions: make(map[int64]Session),
		records:  make(map[int64]memRecord),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *Memory) CreateRoster(_ context.Context, name string) (Roster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := Roster{ID: m.id(), Name: name}
	m.rosters[r.ID] = r
	return r, nil
}

func (m *Memory) ListRosters(_ context.Context) ([]Roster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rosters := make([]Roster, 0, len(m.rosters))
	for _, r := range m.rosters {
		rosters = append(rosters, r)
	}
	sort.Slice(rosters, func(i, j int) bool { return rosters[i].ID > rosters[j].ID })
	return rosters, nil
}

func (m *Memory) GetRoster(_ context.Context, id int64) (Roster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rosters[id]
	if !ok {
		return Roster{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) DeleteRoster(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rosters[id]; !ok {
		return ErrNotFound
	}
	delete(m.rosters, id)
	for sid, st := range m.students {
		if st.RosterID == id {
			delete(m.students, sid)
			for rid, rec := range m.records {
				if rec.StudentID == sid {
					delete(m.records, rid)
				}
			}
		}
	}
	for sid, s := range m.sessions {
		if s.RosterID == id {
			delete(m.sessions, sid)
			for rid, rec := range m.records {
				if rec.SessionID == sid {
					delete(m.records, rid)
				}
			}
		}
	}
	return nil
}

func (m *Memory) ListStudents(_ context.Context, rosterID int64) ([]Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var students []Student
	for _, s := range m.students {
		if s.RosterID == rosterID {
			students = append(students, copyStudent(s))
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

func (m *Memory) UpsertStudents(_ context.Context, rosterID int64, students []StudentUpsert) (int, []UpsertError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rosters[rosterID]; !ok {
		return 0, nil, ErrNotFound
	}

	var (
		persisted int
		errs      []UpsertError
	)
	for _, in := range students {
		if strings.TrimSpace(in.EnrollmentNumber) == "" {
			errs = append(errs, UpsertError{
				EnrollmentNumber: in.EnrollmentNumber,
				Name:             in.Name,
				Message:          "empty enrollment number",
			})
			continue
		}

		existing, found := m.findStudent(rosterID, in.EnrollmentNumber)
		if found {
			existing.Name = in.Name
			existing.Extra = copyExtra(in.Extra)
			if in.Notes != nil {
				existing.Notes = *in.Notes
			}
			m.students[existing.ID] = existing
		} else {
			s := Student{
				ID:               m.id(),
				RosterID:         rosterID,
				EnrollmentNumber: in.EnrollmentNumber,
				Name:             in.Name,
				Extra:            copyExtra(in.Extra),
			}
			if in.Notes != nil {
				s.Notes = *in.Notes
			}
			m.students[s.ID] = s
		}
		persisted++
	}
	return persisted, errs, nil
}

func (m *Memory) findStudent(rosterID int64, enrollmentNumber string) (Student, bool) {
	for _, s := range m.students {
		if s.RosterID == rosterID && s.EnrollmentNumber == enrollmentNumber {
			return s, true
		}
	}
	return Student{}, false
}

func (m *Memory) CreateSession(_ context.Context, rosterID int64, subject string, date time.Time) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rosters[rosterID]; !ok {
		return Session{}, ErrNotFound
	}

	s := Session{ID: m.id(), RosterID: rosterID, Subject: subject, SessionDate: date}
	m.sessions[s.ID] = s

	var members []Student
	for _, st := range m.students {
		if st.RosterID == rosterID {
			members = append(members, st)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	for _, st := range members {
		rid := m.id()
		m.records[rid] = memRecord{
			ID:        rid,
			SessionID: s.ID,
			StudentID: st.ID,
			Status:    StatusPresent,
		}
	}
	return s, nil
}

func (m *Memory) ListSessions(_ context.Context) ([]SessionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sessions []SessionSummary
	for _, s := range m.sessions {
		sm := SessionSummary{
			ID:          s.ID,
			Subject:     s.Subject,
			SessionDate: s.SessionDate,
			RosterName:  m.rosters[s.RosterID].Name,
			Locked:      s.Locked,
		}
		for _, rec := range m.records {
			if rec.SessionID != s.ID {
				continue
			}
			if rec.Status == StatusPresent {
				sm.Present++
			} else {
				sm.Absent++
			}
		}
		sessions = append(sessions, sm)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].SessionDate.Equal(sessions[j].SessionDate) {
			return sessions[i].SessionDate.After(sessions[j].SessionDate)
		}
		return sessions[i].ID > sessions[j].ID
	})
	return sessions, nil
}

func (m *Memory) GetSession(_ context.Context, id int64) (Session, []Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, nil, ErrNotFound
	}

	var records []Record
	for _, rec := range m.records {
		if rec.SessionID != id {
			continue
		}
		st := m.students[rec.StudentID]
		records = append(records, Record{
			ID:               rec.ID,
			SessionID:        rec.SessionID,
			StudentID:        rec.StudentID,
			EnrollmentNumber: st.EnrollmentNumber,
			Name:             st.Name,
			Extra:            copyExtra(st.Extra),
			Status:           rec.Status,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return s, records, nil
}

func (m *Memory) SaveSession(_ context.Context, id int64, updates []StatusUpdate, locked *bool) ([]UpsertError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Locked && len(updates) > 0 {
		return nil, ErrLocked
	}

	var errs []UpsertError
	for _, u := range updates {
		if !u.Status.Valid() {
			errs = append(errs, UpsertError{
				EnrollmentNumber: fmt.Sprintf("student %d", u.StudentID),
				Message:          fmt.Sprintf("invalid status %q", u.Status),
			})
			continue
		}
		updated := false
		for rid, rec := range m.records {
			if rec.SessionID == id && rec.StudentID == u.StudentID {
				rec.Status = u.Status
				m.records[rid] = rec
				updated = true
				break
			}
		}
		if !updated {
			errs = append(errs, UpsertError{
				EnrollmentNumber: fmt.Sprintf("student %d", u.StudentID),
				Message:          fmt.Sprintf("no attendance record for student %d", u.StudentID),
			})
		}
	}

	if locked != nil {
		s.Locked = *locked
		m.sessions[id] = s
	}
	return errs, nil
}

func copyStudent(s Student) Student {
	s.Extra = copyExtra(s.Extra)
	return s
}

func copyExtra(extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]string, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	return out
}
