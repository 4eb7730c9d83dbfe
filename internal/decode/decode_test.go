package decode

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestDecodeCSV(t *testing.T) {
	data := []byte("Roll No,Student Name,Email\n101,Asha K,a@x.com\n102,,b@x.com\n")

	rows, err := Decode(data, "students.csv")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	want := Row{"Roll No": "101", "Student Name": "Asha K", "Email": "a@x.com"}
	for k, v := range want {
		if rows[0][k] != v {
			t.Errorf("rows[0][%q] = %q, want %q", k, rows[0][k], v)
		}
	}
	if rows[1]["Student Name"] != "" {
		t.Errorf("rows[1][Student Name] = %q, want empty", rows[1]["Student Name"])
	}
}

func TestDecodeCSVWithBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("name,roll\nAsha,1\n")...)

	rows, err := Decode(data, "bom.csv")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	// Without BOM stripping the first header would be "\xEF\xBB\xBFname".
	if rows[0]["name"] != "Asha" {
		t.Errorf("rows[0][name] = %q, want %q", rows[0]["name"], "Asha")
	}
}

func TestDecodeCSVRaggedRows(t *testing.T) {
	data := []byte("roll,name,email\n1,Asha\n2,Ravi,r@x.com,ignored-extra\n")

	rows, err := Decode(data, "ragged.csv")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["email"] != "" {
		t.Errorf("missing trailing cell = %q, want empty", rows[0]["email"])
	}
	if rows[1]["email"] != "r@x.com" {
		t.Errorf("rows[1][email] = %q, want r@x.com", rows[1]["email"])
	}
}

func TestDecodeCSVSkipsBlankRows(t *testing.T) {
	data := []byte("\n  , \nroll,name\n\n1,Asha\n ,  \n2,Ravi\n")

	rows, err := Decode(data, "blanks.csv")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["roll"] != "1" || rows[1]["roll"] != "2" {
		t.Errorf("rows = %v, want blank leading/interior rows dropped", rows)
	}
}

func TestDecodeCSVDuplicateHeadersKeepFirst(t *testing.T) {
	data := []byte("name,name,roll\nfirst,second,1\n")

	rows, err := Decode(data, "dup.csv")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rows[0]["name"] != "first" {
		t.Errorf("rows[0][name] = %q, want first occurrence", rows[0]["name"])
	}
}

func TestDecodeXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	cells := [][]any{
		{"Roll No", "Student Name", "Email"},
		{"101", "Asha K", "a@x.com"},
		{"102", "Ravi M", ""},
	}
	for i, rec := range cells {
		addr, err := excelize.JoinCellName("A", i+1)
		if err != nil {
			t.Fatalf("JoinCellName: %v", err)
		}
		if err := f.SetSheetRow(sheet, addr, &rec); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	rows, err := Decode(buf.Bytes(), "students.xlsx")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["Roll No"] != "101" || rows[0]["Student Name"] != "Asha K" {
		t.Errorf("rows[0] = %v", rows[0])
	}
	if rows[1]["Roll No"] != "102" {
		t.Errorf("rows[1] = %v", rows[1])
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		filename string
		wantErr  error
	}{
		{"unknown extension", []byte("a,b\n1,2\n"), "data.json", ErrUnsupportedFormat},
		{"legacy xls", []byte{0xD0, 0xCF}, "old.xls", ErrUnsupportedFormat},
		{"empty csv", nil, "empty.csv", ErrEmptyFile},
		{"header only", []byte("roll,name\n"), "header.csv", ErrEmptyFile},
		{"all blank", []byte("\n\n , \n"), "blank.csv", ErrEmptyFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data, tt.filename)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeLegacyXLSMessage(t *testing.T) {
	_, err := Decode(nil, "old.xls")
	if err == nil || !strings.Contains(err.Error(), ".xlsx") {
		t.Errorf("err = %v, want mention of re-saving as .xlsx", err)
	}
}

func TestSanitizeUTF8(t *testing.T) {
	data := append([]byte("name\n"), 0xFF, 0xFE, '\n')
	got := sanitizeUTF8(data)
	if !bytes.Contains(got, []byte("�")) {
		t.Errorf("invalid bytes not replaced: %q", got)
	}
}
