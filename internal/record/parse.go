package record

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ParseError describes why a workbook could not be turned into records.
// Row is the 1-based sheet row, or 0 when the failure is not tied to a row.
type ParseError struct {
	Row    int
	Header string
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Row > 0 {
		fmt.Fprintf(&b, "row %d: ", e.Row)
	}
	if e.Header != "" {
		fmt.Fprintf(&b, "%s: ", e.Header)
	}
	b.WriteString(e.Msg)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrNoSheet is returned for workbooks without any worksheet.
var ErrNoSheet = &ParseError{Msg: "no sheet"}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	time.RFC3339,
}

// Parse reads the first sheet of an XLSX workbook. The first non-blank row
// holds the headers; every following non-blank row becomes a Record, in
// sheet order. Numeric and datetime cells that fail to convert become nil
// without rejecting the row; a row without a domain name fails the parse.
func Parse(data []byte) ([]Record, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Msg: "open workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Msg: "read sheet " + sheets[0], Err: err}
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	start := 0
	for start < len(rows) && isBlank(rows[start]) {
		start++
	}
	var header []string
	if start < len(rows) {
		header = rows[start]
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows)-start)
	for i := start + 1; i < len(rows); i++ {
		if isBlank(rows[i]) {
			continue
		}
		d := rowDecoder{
			cells:    rows[i],
			cols:     cols,
			date1904: date1904,
			numeric:  numericCell(f, sheets[0], i+1),
		}
		rec, err := d.decode()
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Row = i + 1
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// numericCell reports whether column col (0-based) of the given sheet row
// holds a number rather than text.
func numericCell(f *excelize.File, sheet string, row int) func(col int) bool {
	return func(col int) bool {
		ref, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return false
		}
		t, err := f.GetCellType(sheet, ref)
		if err != nil {
			return false
		}
		return t == excelize.CellTypeUnset || t == excelize.CellTypeNumber
	}
}

// mapColumns resolves each required header to its column index.
func mapColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(Headers))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, seen := cols[name]; !seen && name != "" {
			cols[name] = i
		}
	}
	for _, h := range Headers {
		if _, ok := cols[h]; !ok {
			return nil, &ParseError{Header: h, Msg: "missing header"}
		}
	}
	return cols, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

type rowDecoder struct {
	cells    []string
	cols     map[string]int
	date1904 bool
	numeric  func(col int) bool
}

func (d rowDecoder) decode() (Record, error) {
	name := d.cell(HeaderDomainName)
	if name == "" {
		return Record{}, &ParseError{Header: HeaderDomainName, Msg: "missing value"}
	}
	return Record{
		DomainName:       name,
		Age:              d.num(HeaderAge),
		OrderNo:          d.num(HeaderOrderNo),
		StartAt:          d.date(HeaderStartAt),
		EndAt:            d.date(HeaderEndAt),
		Title:            d.text(HeaderTitle),
		Language:         d.text(HeaderLanguage),
		Score:            d.num(HeaderScore),
		DNS:              d.text(HeaderDNS),
		RegistrarName:    d.text(HeaderRegistrarName),
		RegistrarAddress: d.text(HeaderRegistrarAddress),
		RegistrarBy:      d.text(HeaderRegistrarBy),
		Email:            d.text(HeaderEmail),
		RegistrarAt:      d.date(HeaderRegistrarAt),
		ExpireAt:         d.date(HeaderExpireAt),
		UpdatedAt:        d.date(HeaderUpdatedAt),
		RecordStatus:     d.text(HeaderRecordStatus),
		RecordAt:         d.date(HeaderRecordAt),
		RecordMainBody:   d.text(HeaderRecordMainBody),
		RecordType:       d.text(HeaderRecordType),
		RecordNo:         d.text(HeaderRecordNo),
		RecordName:       d.text(HeaderRecordName),
	}, nil
}

func (d rowDecoder) cell(header string) string {
	i := d.cols[header]
	if i >= len(d.cells) {
		return ""
	}
	return strings.TrimSpace(d.cells[i])
}

func (d rowDecoder) text(header string) *string {
	v := d.cell(header)
	if v == "" {
		return nil
	}
	return &v
}

func (d rowDecoder) num(header string) *uint8 {
	n, ok := parseUint8(d.cell(header))
	if !ok {
		return nil
	}
	return &n
}

func (d rowDecoder) date(header string) *time.Time {
	v := d.cell(header)
	serial := v != "" && d.numeric != nil && d.numeric(d.cols[header])
	t, ok := parseTime(v, serial, d.date1904)
	if !ok {
		return nil
	}
	return &t
}

// parseUint8 accepts integers and integral floats in 0..255.
func parseUint8(s string) (uint8, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		return uint8(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < 0 || f > math.MaxUint8 {
		return 0, false
	}
	return uint8(f), true
}

// parseTime reads s as an Excel serial date when the cell is numeric, and
// against dateLayouts otherwise. Numeric-looking text is not a date.
func parseTime(s string, numeric, date1904 bool) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if numeric {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || n <= 0 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(n, date1904)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
