package export

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"testing"

	"github.com/rollbook/rollbook/internal/store"
)

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	if !bytes.HasPrefix(data, utf8BOM) {
		t.Fatal("output missing UTF-8 BOM prefix")
	}
	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	return records
}

func TestRosterExport(t *testing.T) {
	students := []store.Student{
		{EnrollmentNumber: "101", Name: "Asha K",
			Extra: map[string]string{"Email": "a@x.com"}},
		{EnrollmentNumber: "102", Name: "Ravi M",
			Extra: map[string]string{"Email": "r@x.com", "Phone": "555"}},
		{EnrollmentNumber: "103", Name: "Mira S"},
	}

	data, err := Roster(students)
	if err != nil {
		t.Fatalf("Roster: %v", err)
	}
	records := parseCSV(t, data)

	wantHeader := []string{"enrollmentNumber", "name", "Email", "Phone"}
	if !reflect.DeepEqual(records[0], wantHeader) {
		t.Errorf("header = %v, want %v", records[0], wantHeader)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}

	want := [][]string{
		{"101", "Asha K", "a@x.com", ""},
		{"102", "Ravi M", "r@x.com", "555"},
		{"103", "Mira S", "", ""},
	}
	for i, w := range want {
		if !reflect.DeepEqual(records[i+1], w) {
			t.Errorf("row %d = %v, want %v", i, records[i+1], w)
		}
	}
}

func TestSessionExport(t *testing.T) {
	records := []store.Record{
		{EnrollmentNumber: "101", Name: "Asha K", Status: store.StatusPresent},
		{EnrollmentNumber: "102", Name: "Ravi M", Status: store.StatusAbsent,
			Extra: map[string]string{"Email": "r@x.com"}},
	}

	data, err := Session(records)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	out := parseCSV(t, data)

	wantHeader := []string{"enrollmentNumber", "name", "status", "Email"}
	if !reflect.DeepEqual(out[0], wantHeader) {
		t.Errorf("header = %v, want %v", out[0], wantHeader)
	}
	if out[1][2] != "PRESENT" || out[2][2] != "ABSENT" {
		t.Errorf("statuses = %q, %q", out[1][2], out[2][2])
	}
	if out[2][3] != "r@x.com" {
		t.Errorf("extra cell = %q, want r@x.com", out[2][3])
	}
}

func TestExportEmpty(t *testing.T) {
	data, err := Roster(nil)
	if err != nil {
		t.Fatalf("Roster: %v", err)
	}
	records := parseCSV(t, data)
	if len(records) != 1 {
		t.Fatalf("got %d records, want header only", len(records))
	}
	if !reflect.DeepEqual(records[0], []string{"enrollmentNumber", "name"}) {
		t.Errorf("header = %v", records[0])
	}
}
