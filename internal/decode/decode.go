// Package decode turns raw spreadsheet or CSV bytes into an ordered
// sequence of rows, each a mapping from column header to cell value.
//
// The rest of the system treats CSV and Excel inputs identically once
// decoded. Missing cells default to the empty string, and cell values
// are kept verbatim (no trimming) so downstream consumers decide what
// whitespace means.
package decode

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Row is one decoded data row keyed by column header.
type Row map[string]string

// Decoding failures surfaced to the import endpoint.
var (
	// ErrUnsupportedFormat indicates the file extension is not one the
	// decoder understands.
	ErrUnsupportedFormat = errors.New("only CSV and Excel files (.csv, .xlsx) are supported")

	// ErrEmptyFile indicates the file decoded but contains no data rows.
	ErrEmptyFile = errors.New("no data found in file or file is empty")
)

// Decode parses file bytes into ordered rows, choosing the parser from
// the filename hint. Legacy binary .xls is not supported; callers get
// a distinct message telling the user to re-save as .xlsx.
func Decode(data []byte, filename string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return decodeCSV(data)
	case ".xlsx", ".xlsm":
		return decodeXLSX(data)
	case ".xls":
		return nil, fmt.Errorf("legacy .xls is not supported; save the file as .xlsx: %w", ErrUnsupportedFormat)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// decodeCSV parses CSV bytes. The first record is the header row;
// ragged rows are tolerated, with missing trailing cells defaulting
// to "".
func decodeCSV(data []byte) ([]Row, error) {
	data = sanitizeUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // tolerate ragged rows
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	return tabulate(records)
}

// decodeXLSX parses the first sheet of an Excel workbook.
func decodeXLSX(data []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return tabulate(records)
}

// tabulate converts positional records into header-keyed rows.
// The first non-blank record is the header; fully blank data rows are
// dropped. Duplicate headers keep the first occurrence's position.
func tabulate(records [][]string) ([]Row, error) {
	headerIdx := -1
	for i, rec := range records {
		if !blankRecord(rec) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrEmptyFile
	}

	headers := make([]string, len(records[headerIdx]))
	for i, h := range records[headerIdx] {
		headers[i] = strings.TrimSpace(h)
	}

	var rows []Row
	for _, rec := range records[headerIdx+1:] {
		if blankRecord(rec) {
			continue
		}
		row := make(Row, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if _, exists := row[h]; exists {
				continue
			}
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

// blankRecord reports whether every cell is empty or whitespace.
func blankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// sanitizeUTF8 strips a UTF-8 byte-order marker and replaces invalid
// byte sequences, which show up routinely in files exported from
// spreadsheet tools on Windows.
func sanitizeUTF8(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte("�"))
}
