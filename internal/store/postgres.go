package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the production Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store on the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ Store = (*Postgres)(nil)

// CreateRoster inserts a new roster and returns it with its assigned id.
func (p *Postgres) CreateRoster(ctx context.Context, name string) (Roster, error) {
	var r Roster
	err := p.pool.QueryRow(ctx,
		`INSERT INTO rosters (name) VALUES ($1) RETURNING id, name`, name,
	).Scan(&r.ID, &r.Name)
	if err != nil {
		return Roster{}, fmt.Errorf("create roster: %w", err)
	}
	return r, nil
}

// ListRosters returns all rosters, newest first.
func (p *Postgres) ListRosters(ctx context.Context) ([]Roster, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, name FROM rosters ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list rosters: %w", err)
	}
	defer rows.Close()

	var rosters []Roster
	for rows.Next() {
		var r Roster
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("scan roster: %w", err)
		}
		rosters = append(rosters, r)
	}
	return rosters, rows.Err()
}

// GetRoster returns one roster or ErrNotFound.
func (p *Postgres) GetRoster(ctx context.Context, id int64) (Roster, error) {
	var r Roster
	err := p.pool.QueryRow(ctx,
		`SELECT id, name FROM rosters WHERE id = $1`, id,
	).Scan(&r.ID, &r.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Roster{}, ErrNotFound
	}
	if err != nil {
		return Roster{}, fmt.Errorf("get roster: %w", err)
	}
	return r, nil
}

// DeleteRoster removes a roster. Students, sessions, and records go
// with it via ON DELETE CASCADE.
func (p *Postgres) DeleteRoster(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM rosters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete roster: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStudents returns a roster's students ordered by id.
func (p *Postgres) ListStudents(ctx context.Context, rosterID int64) ([]Student, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, roster_id, enrollment_number, name, extra, COALESCE(notes, '')
		 FROM students WHERE roster_id = $1 ORDER BY id ASC`, rosterID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var s Student
		var extra []byte
		if err := rows.Scan(&s.ID, &s.RosterID, &s.EnrollmentNumber, &s.Name, &extra, &s.Notes); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		if len(extra) > 0 {
			if err := json.Unmarshal(extra, &s.Extra); err != nil {
				return nil, fmt.Errorf("decode extra for student %d: %w", s.ID, err)
			}
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// UpsertStudents applies all upserts in one transaction. Each record
// runs inside its own savepoint so a constraint violation on one
// student is collected without poisoning the enclosing transaction.
func (p *Postgres) UpsertStudents(ctx context.Context, rosterID int64, students []StudentUpsert) (int, []UpsertError, error) {
	if _, err := p.GetRoster(ctx, rosterID); err != nil {
		return 0, nil, err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		persisted int
		errs      []UpsertError
	)
	for _, st := range students {
		if err := upsertOne(ctx, tx, rosterID, st); err != nil {
			errs = append(errs, UpsertError{
				EnrollmentNumber: st.EnrollmentNumber,
				Name:             st.Name,
				Message:          err.Error(),
			})
			continue
		}
		persisted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, nil, fmt.Errorf("commit: %w", err)
	}
	return persisted, errs, nil
}

// upsertOne performs a single student upsert inside a savepoint.
// pgx nests tx.Begin as SAVEPOINT, so rolling back the inner tx
// discards only this record's effects.
func upsertOne(ctx context.Context, tx pgx.Tx, rosterID int64, st StudentUpsert) error {
	inner, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	defer inner.Rollback(ctx)

	extra, err := marshalExtra(st.Extra)
	if err != nil {
		return err
	}

	// COALESCE keeps existing notes when the upsert does not carry any
	// (imports control name and extra only, never notes).
	_, err = inner.Exec(ctx,
		`INSERT INTO students (roster_id, enrollment_number, name, extra, notes)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (roster_id, enrollment_number)
		 DO UPDATE SET name = EXCLUDED.name,
		               extra = EXCLUDED.extra,
		               notes = COALESCE(EXCLUDED.notes, students.notes)`,
		rosterID, st.EnrollmentNumber, st.Name, extra, st.Notes)
	if err != nil {
		return err
	}
	return inner.Commit(ctx)
}

// CreateSession creates the session row and snapshots the roster's
// current members as PRESENT records, all in one transaction. Later
// roster edits do not touch existing sessions.
func (p *Postgres) CreateSession(ctx context.Context, rosterID int64, subject string, date time.Time) (Session, error) {
	if _, err := p.GetRoster(ctx, rosterID); err != nil {
		return Session{}, err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var s Session
	err = tx.QueryRow(ctx,
		`INSERT INTO attendance_sessions (roster_id, subject, session_date)
		 VALUES ($1, $2, $3)
		 RETURNING id, roster_id, subject, session_date, locked`,
		rosterID, subject, date,
	).Scan(&s.ID, &s.RosterID, &s.Subject, &s.SessionDate, &s.Locked)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO attendance_records (session_id, student_id, status)
		 SELECT $1, id, 'PRESENT' FROM students WHERE roster_id = $2`,
		s.ID, rosterID)
	if err != nil {
		return Session{}, fmt.Errorf("snapshot roster: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Session{}, fmt.Errorf("commit: %w", err)
	}
	return s, nil
}

// ListSessions returns all sessions with roster names and status
// tallies, newest session date first.
func (p *Postgres) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT s.id, s.subject, s.session_date, r.name, s.locked,
		        COUNT(*) FILTER (WHERE ar.status = 'PRESENT'),
		        COUNT(*) FILTER (WHERE ar.status = 'ABSENT')
		 FROM attendance_sessions s
		 JOIN rosters r ON r.id = s.roster_id
		 LEFT JOIN attendance_records ar ON ar.session_id = s.id
		 GROUP BY s.id, r.name
		 ORDER BY s.session_date DESC, s.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var sm SessionSummary
		if err := rows.Scan(&sm.ID, &sm.Subject, &sm.SessionDate, &sm.RosterName, &sm.Locked, &sm.Present, &sm.Absent); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sm)
	}
	return sessions, rows.Err()
}

// GetSession returns the session and its records joined with student
// display fields, or ErrNotFound.
func (p *Postgres) GetSession(ctx context.Context, id int64) (Session, []Record, error) {
	var s Session
	err := p.pool.QueryRow(ctx,
		`SELECT id, roster_id, subject, session_date, locked
		 FROM attendance_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.RosterID, &s.Subject, &s.SessionDate, &s.Locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, nil, ErrNotFound
	}
	if err != nil {
		return Session{}, nil, fmt.Errorf("get session: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT ar.id, ar.session_id, ar.student_id, st.enrollment_number, st.name, st.extra, ar.status
		 FROM attendance_records ar
		 JOIN students st ON st.id = ar.student_id
		 WHERE ar.session_id = $1
		 ORDER BY ar.id ASC`, id)
	if err != nil {
		return Session{}, nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var extra []byte
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.EnrollmentNumber, &rec.Name, &extra, &rec.Status); err != nil {
			return Session{}, nil, fmt.Errorf("scan record: %w", err)
		}
		if len(extra) > 0 {
			if err := json.Unmarshal(extra, &rec.Extra); err != nil {
				return Session{}, nil, fmt.Errorf("decode extra for record %d: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	return s, records, rows.Err()
}

// SaveSession applies each status update independently inside one
// transaction, then the lock flag if present. The persisted lock flag
// is re-checked here rather than trusting the client's copy: while it
// is set, any status update is refused with ErrLocked. Toggling the
// flag itself is always allowed so a locked session can be unlocked.
func (p *Postgres) SaveSession(ctx context.Context, id int64, updates []StatusUpdate, locked *bool) ([]UpsertError, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var isLocked bool
	err = tx.QueryRow(ctx,
		`SELECT locked FROM attendance_sessions WHERE id = $1 FOR UPDATE`, id,
	).Scan(&isLocked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check lock: %w", err)
	}
	if isLocked && len(updates) > 0 {
		return nil, ErrLocked
	}

	var errs []UpsertError
	for _, u := range updates {
		if err := updateOneStatus(ctx, tx, id, u); err != nil {
			errs = append(errs, UpsertError{
				EnrollmentNumber: fmt.Sprintf("student %d", u.StudentID),
				Message:          err.Error(),
			})
		}
	}

	if locked != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE attendance_sessions SET locked = $1 WHERE id = $2`, *locked, id); err != nil {
			return nil, fmt.Errorf("update lock flag: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return errs, nil
}

// updateOneStatus updates a single record inside a savepoint so a bad
// student id does not abort the sibling updates.
func updateOneStatus(ctx context.Context, tx pgx.Tx, sessionID int64, u StatusUpdate) error {
	if !u.Status.Valid() {
		return fmt.Errorf("invalid status %q", u.Status)
	}

	inner, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	defer inner.Rollback(ctx)

	tag, err := inner.Exec(ctx,
		`UPDATE attendance_records SET status = $1
		 WHERE session_id = $2 AND student_id = $3`,
		u.Status, sessionID, u.StudentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no attendance record for student %d", u.StudentID)
	}
	return inner.Commit(ctx)
}

// marshalExtra encodes the extra map as JSONB, or NULL when empty.
func marshalExtra(extra map[string]string) ([]byte, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("encode extra: %w", err)
	}
	return b, nil
}
