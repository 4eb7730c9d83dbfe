package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rollbook/rollbook/internal/store"
)

func TestCreateRosterValidation(t *testing.T) {
	svc := NewService(store.NewMemory())
	ctx := context.Background()

	if _, err := svc.CreateRoster(ctx, "   "); !errors.Is(err, ErrValidation) {
		t.Errorf("blank name: err = %v, want ErrValidation", err)
	}

	roster, err := svc.CreateRoster(ctx, "  Chemistry  ")
	if err != nil {
		t.Fatalf("CreateRoster: %v", err)
	}
	if roster.Name != "Chemistry" {
		t.Errorf("name = %q, want trimmed", roster.Name)
	}
}

func TestUpsertStudentsValidation(t *testing.T) {
	svc, _, roster := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		students []StudentInput
	}{
		{"empty batch", nil},
		{"missing enrollment", []StudentInput{{Name: "A"}}},
		{"missing name", []StudentInput{{EnrollmentNumber: "1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.UpsertStudents(ctx, roster.ID, tt.students)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestUpsertStudentsNotes(t *testing.T) {
	svc, _, roster := newTestService(t)
	ctx := context.Background()

	notes := "needs front row seat"
	saved, upsertErrs, err := svc.UpsertStudents(ctx, roster.ID, []StudentInput{
		{EnrollmentNumber: "1", Name: "Asha", Notes: &notes},
	})
	if err != nil || len(upsertErrs) != 0 {
		t.Fatalf("UpsertStudents: saved=%d errs=%v err=%v", saved, upsertErrs, err)
	}

	// A later edit without notes must not clear them.
	_, _, err = svc.UpsertStudents(ctx, roster.ID, []StudentInput{
		{EnrollmentNumber: "1", Name: "Asha K"},
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	students, err := svc.ListStudents(ctx, roster.ID)
	if err != nil {
		t.Fatalf("ListStudents: %v", err)
	}
	if len(students) != 1 {
		t.Fatalf("got %d students, want 1", len(students))
	}
	if students[0].Name != "Asha K" {
		t.Errorf("name = %q, want updated", students[0].Name)
	}
	if students[0].Notes != notes {
		t.Errorf("notes = %q, want preserved %q", students[0].Notes, notes)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	svc, _, roster := newTestService(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	if _, err := svc.CreateSession(ctx, roster.ID, "  ", date); !errors.Is(err, ErrValidation) {
		t.Errorf("blank subject: err = %v, want ErrValidation", err)
	}
	if _, err := svc.CreateSession(ctx, roster.ID, "Lecture", time.Time{}); !errors.Is(err, ErrValidation) {
		t.Errorf("zero date: err = %v, want ErrValidation", err)
	}
	if _, err := svc.CreateSession(ctx, 9999, "Lecture", date); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown roster: err = %v, want ErrNotFound", err)
	}
}

func TestSaveSessionValidatesStatus(t *testing.T) {
	svc, _, roster := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, roster.ID, "Lecture",
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	_, err = svc.SaveSession(ctx, session.ID,
		[]store.StatusUpdate{{StudentID: 1, Status: "LATE"}}, nil)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}
