// Package recordtest builds XLSX workbooks for tests.
package recordtest

import (
	"archive/zip"
	"bytes"
	"io"
	"regexp"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/domainimport/domainimport/internal/record"
)

// Header returns the canonical header row.
func Header() []any {
	h := make([]any, len(record.Headers))
	for i, name := range record.Headers {
		h[i] = name
	}
	return h
}

// Row returns a data row in canonical column order with the given domain
// name. Values in cells override individual columns by header name.
func Row(domain string, cells map[string]any) []any {
	row := make([]any, len(record.Headers))
	for i, name := range record.Headers {
		if name == record.HeaderDomainName {
			row[i] = domain
			continue
		}
		if v, ok := cells[name]; ok {
			row[i] = v
		}
	}
	return row
}

// Workbook writes rows into the first sheet of a new workbook and returns
// the encoded file.
func Workbook(tb testing.TB, rows ...[]any) []byte {
	tb.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			tb.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			tb.Fatalf("SetSheetRow: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		tb.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

// Domains returns a workbook with one row per domain name.
func Domains(tb testing.TB, names ...string) []byte {
	tb.Helper()
	rows := [][]any{Header()}
	for _, n := range names {
		rows = append(rows, Row(n, nil))
	}
	return Workbook(tb, rows...)
}

var sheetsElem = regexp.MustCompile(`(?s)<sheets>.*</sheets>`)

// NoSheet returns a valid workbook whose sheet list is empty.
func NoSheet(tb testing.TB) []byte {
	tb.Helper()
	src := Workbook(tb, Header())
	zr, err := zip.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		tb.Fatalf("open zip: %v", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			tb.Fatalf("open %s: %v", zf.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			tb.Fatalf("read %s: %v", zf.Name, err)
		}
		if zf.Name == "xl/workbook.xml" {
			data = sheetsElem.ReplaceAll(data, []byte("<sheets></sheets>"))
		}
		w, err := zw.Create(zf.Name)
		if err != nil {
			tb.Fatalf("create %s: %v", zf.Name, err)
		}
		if _, err := w.Write(data); err != nil {
			tb.Fatalf("write %s: %v", zf.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}
