package core

// normalize.go maps raw tabular rows with inconsistent column naming to
// canonical student records.
//
// Imported files name the same column many ways ("Roll No", "student_id",
// "EnrollmentNumber", ...). Each canonical field probes a fixed, ordered
// list of accepted header spellings; the first alias whose trimmed value
// is non-empty wins. The ordering is authoritative: when several
// synonymous columns appear in one file, it decides which one is used.

import (
	"strings"

	"github.com/rollbook/rollbook/internal/decode"
)

// FieldAliases maps one canonical import field to the ordered list of
// accepted header spellings.
type FieldAliases struct {
	Field   string
	Aliases []string
}

// Canonical field names used in ImportAliases.
const (
	FieldEnrollment = "enrollmentNumber"
	FieldName       = "name"
	FieldFirstName  = "firstName"
	FieldLastName   = "lastName"
)

// ImportAliases is the header-matching configuration for roster
// imports. Probe order within each list is fixed; do not reorder.
var ImportAliases = []FieldAliases{
	{
		Field: FieldEnrollment,
		Aliases: []string{
			"enrollmentNumber", "EnrollmentNumber", "enrollment_number",
			"enrollment", "Enrollment", "roll", "Roll", "rollNumber",
			"Roll Number", "Roll No", "roll no", "student_id", "studentId",
			"Student ID", "id", "ID",
		},
	},
	{
		Field: FieldName,
		Aliases: []string{
			"name", "Name", "studentName", "Student Name", "student_name",
			"fullName", "Full Name", "full_name",
		},
	},
	{
		Field: FieldFirstName,
		Aliases: []string{
			"firstName", "First Name", "first_name", "fname", "Fname",
		},
	},
	{
		Field: FieldLastName,
		Aliases: []string{
			"lastName", "Last Name", "last_name", "lname", "Lname",
		},
	},
}

// NormalizedStudent is one import row reduced to its canonical fields.
type NormalizedStudent struct {
	EnrollmentNumber string
	Name             string
	Extra            map[string]string
}

// aliasesFor returns the ordered alias list for a canonical field.
func aliasesFor(field string) []string {
	for _, fa := range ImportAliases {
		if fa.Field == field {
			return fa.Aliases
		}
	}
	return nil
}

// probe returns the trimmed value of the first alias present in the
// row with a non-empty value.
func probe(row decode.Row, aliases []string) string {
	for _, key := range aliases {
		if v, ok := row[key]; ok {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// NormalizeRow maps one raw row to a canonical student record.
// Returns false when the row is rejected: no resolvable enrollment
// number, or no resolvable name (including the first/last fallback).
// Pure function of the row; the input map is not modified.
func NormalizeRow(row decode.Row) (NormalizedStudent, bool) {
	enrollment := probe(row, aliasesFor(FieldEnrollment))

	name := probe(row, aliasesFor(FieldName))
	if name == "" {
		first := probe(row, aliasesFor(FieldFirstName))
		last := probe(row, aliasesFor(FieldLastName))
		switch {
		case first != "" && last != "":
			name = first + " " + last
		case first != "":
			name = first
		case last != "":
			name = last
		}
	}

	if enrollment == "" || name == "" {
		return NormalizedStudent{}, false
	}

	// Everything not consumed above is carried verbatim. All alias
	// spellings are removed, not just the one that matched.
	extra := make(map[string]string, len(row))
	for k, v := range row {
		extra[k] = v
	}
	for _, fa := range ImportAliases {
		for _, alias := range fa.Aliases {
			delete(extra, alias)
		}
	}
	if len(extra) == 0 {
		extra = nil
	}

	return NormalizedStudent{
		EnrollmentNumber: enrollment,
		Name:             name,
		Extra:            extra,
	}, true
}

// DeduplicateLast collapses normalized records sharing an enrollment
// number into one: the last record in original row order wins whole,
// with no field merging across rows. Later rows in a spreadsheet
// represent corrections, so preferring the latest avoids spurious
// duplicate-key failures during upsert. Output keeps the first-seen
// order of enrollment numbers for determinism; callers must not rely
// on it.
func DeduplicateLast(students []NormalizedStudent) []NormalizedStudent {
	latest := make(map[string]NormalizedStudent, len(students))
	var order []string
	for _, s := range students {
		if _, seen := latest[s.EnrollmentNumber]; !seen {
			order = append(order, s.EnrollmentNumber)
		}
		latest[s.EnrollmentNumber] = s
	}

	out := make([]NormalizedStudent, 0, len(order))
	for _, key := range order {
		out = append(out, latest[key])
	}
	return out
}
