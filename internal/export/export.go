// Package export renders rosters and sessions as delimited text.
//
// Output is CSV with a UTF-8 byte-order marker prefix so Excel opens
// the file with the right encoding. Arbitrary extra attributes become
// additional columns: the header is the union of every record's extra
// keys in first-seen order, and records missing a key get an empty
// cell. Export is read-only; it never touches mutation logic.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/rollbook/rollbook/internal/store"
)

// utf8BOM is prepended to every export so spreadsheet tools detect UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Roster renders a roster's students as CSV bytes.
// Columns: enrollmentNumber, name, then the union of extra keys.
func Roster(students []store.Student) ([]byte, error) {
	extraKeys := collectExtraKeys(len(students), func(i int) map[string]string {
		return students[i].Extra
	})

	header := append([]string{"enrollmentNumber", "name"}, extraKeys...)
	rows := make([][]string, 0, len(students))
	for _, s := range students {
		row := []string{s.EnrollmentNumber, s.Name}
		for _, k := range extraKeys {
			row = append(row, s.Extra[k])
		}
		rows = append(rows, row)
	}
	return write(header, rows)
}

// Session renders a session's records as CSV bytes.
// Columns: enrollmentNumber, name, status, then the union of extra keys.
func Session(records []store.Record) ([]byte, error) {
	extraKeys := collectExtraKeys(len(records), func(i int) map[string]string {
		return records[i].Extra
	})

	header := append([]string{"enrollmentNumber", "name", "status"}, extraKeys...)
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{r.EnrollmentNumber, r.Name, string(r.Status)}
		for _, k := range extraKeys {
			row = append(row, r.Extra[k])
		}
		rows = append(rows, row)
	}
	return write(header, rows)
}

// collectExtraKeys returns the union of extra keys, first-seen record
// order, keys sorted within each record so output is deterministic.
func collectExtraKeys(n int, extraAt func(int) map[string]string) []string {
	seen := make(map[string]bool)
	var keys []string
	for i := 0; i < n; i++ {
		extra := extraAt(i)
		fresh := make([]string, 0, len(extra))
		for k := range extra {
			if !seen[k] {
				seen[k] = true
				fresh = append(fresh, k)
			}
		}
		sort.Strings(fresh)
		keys = append(keys, fresh...)
	}
	return keys
}

// write renders header and rows as BOM-prefixed CSV.
func write(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	return buf.Bytes(), nil
}
