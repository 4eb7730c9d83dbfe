package core

import (
	"reflect"
	"testing"

	"github.com/rollbook/rollbook/internal/decode"
)

func TestNormalizeRow(t *testing.T) {
	tests := []struct {
		name    string
		row     decode.Row
		want    NormalizedStudent
		wantOK  bool
	}{
		{
			name: "canonical headers",
			row:  decode.Row{"enrollmentNumber": "101", "name": "Asha K"},
			want: NormalizedStudent{EnrollmentNumber: "101", Name: "Asha K"},
			wantOK: true,
		},
		{
			name: "roll no and student name variants with extra column",
			row:  decode.Row{"Roll No": "101", "Student Name": "Asha K", "Email": "a@x.com"},
			want: NormalizedStudent{
				EnrollmentNumber: "101",
				Name:             "Asha K",
				Extra:            map[string]string{"Email": "a@x.com"},
			},
			wantOK: true,
		},
		{
			name:   "empty name rejected",
			row:    decode.Row{"Roll No": "102", "Student Name": "", "Email": "b@x.com"},
			wantOK: false,
		},
		{
			name:   "empty enrollment rejected",
			row:    decode.Row{"Roll No": "  ", "Student Name": "Asha K"},
			wantOK: false,
		},
		{
			name: "first and last name joined when name missing",
			row:  decode.Row{"student_id": "7", "First Name": "Asha", "Last Name": "K"},
			want: NormalizedStudent{EnrollmentNumber: "7", Name: "Asha K"},
			wantOK: true,
		},
		{
			name: "first name alone suffices",
			row:  decode.Row{"id": "8", "fname": "Ravi"},
			want: NormalizedStudent{EnrollmentNumber: "8", Name: "Ravi"},
			wantOK: true,
		},
		{
			name: "earlier alias wins over later",
			row:  decode.Row{"enrollment": "E-1", "student_id": "S-1", "name": "Dev"},
			want: NormalizedStudent{EnrollmentNumber: "E-1", Name: "Dev"},
			wantOK: true,
		},
		{
			name: "empty earlier alias falls through to later",
			row:  decode.Row{"enrollment": "", "student_id": "S-1", "name": "Dev"},
			want: NormalizedStudent{EnrollmentNumber: "S-1", Name: "Dev"},
			wantOK: true,
		},
		{
			name: "values are trimmed",
			row:  decode.Row{"roll": "  9  ", "Name": "  Mira  "},
			want: NormalizedStudent{EnrollmentNumber: "9", Name: "Mira"},
			wantOK: true,
		},
		{
			name: "all alias spellings removed from extra",
			row: decode.Row{
				"roll": "10", "Roll Number": "10", "name": "Lena",
				"full_name": "Lena Q", "Phone": "555",
			},
			want: NormalizedStudent{
				EnrollmentNumber: "10",
				Name:             "Lena",
				Extra:            map[string]string{"Phone": "555"},
			},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeRow(tt.row)
			if ok != tt.wantOK {
				t.Fatalf("NormalizeRow() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeRow() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeRowDoesNotMutateInput(t *testing.T) {
	row := decode.Row{"roll": "1", "name": "A", "Email": "a@x.com"}
	if _, ok := NormalizeRow(row); !ok {
		t.Fatal("expected row to normalize")
	}
	if len(row) != 3 || row["roll"] != "1" {
		t.Errorf("input row was mutated: %v", row)
	}
}

func TestDeduplicateLast(t *testing.T) {
	in := []NormalizedStudent{
		{EnrollmentNumber: "1", Name: "First"},
		{EnrollmentNumber: "2", Name: "Other"},
		{EnrollmentNumber: "1", Name: "Second", Extra: map[string]string{"Email": "s@x.com"}},
	}

	got := DeduplicateLast(in)
	if len(got) != 2 {
		t.Fatalf("got %d students, want 2", len(got))
	}

	// Later rows replace earlier ones whole; no field merging.
	if got[0].EnrollmentNumber != "1" || got[0].Name != "Second" {
		t.Errorf("got[0] = %+v, want last occurrence of enrollment 1", got[0])
	}
	if got[0].Extra["Email"] != "s@x.com" {
		t.Errorf("got[0].Extra = %v, want extra from the last row", got[0].Extra)
	}
	if got[1].EnrollmentNumber != "2" {
		t.Errorf("got[1] = %+v, want enrollment 2", got[1])
	}
}

func TestDeduplicateLastEmpty(t *testing.T) {
	if got := DeduplicateLast(nil); len(got) != 0 {
		t.Errorf("got %d students, want 0", len(got))
	}
}
