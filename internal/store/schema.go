package store

import (
	"context"
	"fmt"
)

// EnsureSchema creates all tables needed by the Postgres store.
// Safe to call multiple times - uses IF NOT EXISTS.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const schema = `
-- Rosters
CREATE TABLE IF NOT EXISTS rosters (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Students
CREATE TABLE IF NOT EXISTS students (
    id BIGSERIAL PRIMARY KEY,
    roster_id BIGINT NOT NULL REFERENCES rosters(id) ON DELETE CASCADE,
    enrollment_number TEXT NOT NULL,
    name TEXT NOT NULL,
    extra JSONB,
    notes TEXT,
    UNIQUE (roster_id, enrollment_number)
);

CREATE INDEX IF NOT EXISTS idx_students_roster_id ON students(roster_id);

-- Attendance sessions
CREATE TABLE IF NOT EXISTS attendance_sessions (
    id BIGSERIAL PRIMARY KEY,
    roster_id BIGINT NOT NULL REFERENCES rosters(id) ON DELETE CASCADE,
    subject TEXT NOT NULL,
    session_date TIMESTAMPTZ NOT NULL,
    locked BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_sessions_roster_id ON attendance_sessions(roster_id);
CREATE INDEX IF NOT EXISTS idx_sessions_date ON attendance_sessions(session_date);

-- Attendance records
CREATE TABLE IF NOT EXISTS attendance_records (
    id BIGSERIAL PRIMARY KEY,
    session_id BIGINT NOT NULL REFERENCES attendance_sessions(id) ON DELETE CASCADE,
    student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    status TEXT NOT NULL DEFAULT 'PRESENT' CHECK (status IN ('PRESENT', 'ABSENT')),
    UNIQUE (session_id, student_id)
);

CREATE INDEX IF NOT EXISTS idx_records_session_id ON attendance_records(session_id);
`
