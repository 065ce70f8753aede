package sheets

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrSourceNotFound reports that the workbook, file or URL does not exist.
	ErrSourceNotFound = errors.New("source not found")
	// ErrSheetNotFound reports that the named worksheet is not in the workbook.
	ErrSheetNotFound = errors.New("sheet not found")
)

// Table is a raw grid read from a source: the first row as header, the rest
// as string cells. Rows may be shorter than the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Cell returns the value at row/col or "" when out of range.
func (t Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	return safeGet(t.Rows[row], col)
}

// NewTable splits a value matrix into header and rows, dropping trailing
// rows that are entirely blank.
func NewTable(values [][]string) Table {
	if len(values) == 0 {
		return Table{}
	}
	rows := values[1:]
	for len(rows) > 0 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return Table{Header: values[0], Rows: rows}
}

// Ports for inbound record sources.
type (
	// TableSource reads the adhesion spreadsheet from some backend.
	TableSource interface {
		// Name identifies the source, e.g. "excel:/data/a3p.xlsx#Adesões à A3P".
		Name() string
		// Fingerprint changes whenever the underlying data may have changed.
		Fingerprint(ctx context.Context) (string, error)
		// ReadTable returns the whole sheet.
		ReadTable(ctx context.Context) (Table, error)
	}
)

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
