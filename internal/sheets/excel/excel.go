// Package excel reads the adhesion sheet from a local .xlsx workbook.
package excel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/xuri/excelize/v2"

	ports "a3p/internal/sheets"
)

// Source is a worksheet inside a workbook on disk.
type Source struct {
	path  string
	sheet string
}

var _ ports.TableSource = (*Source)(nil)

func New(path, sheet string) *Source {
	return &Source{path: path, sheet: sheet}
}

func (s *Source) Name() string {
	return fmt.Sprintf("excel:%s#%s", s.path, s.sheet)
}

// Fingerprint uses the file's modification time and size.
func (s *Source) Fingerprint(_ context.Context) (string, error) {
	return ports.FileFingerprint(s.path)
}

func (s *Source) ReadTable(ctx context.Context) (ports.Table, error) {
	if err := ctx.Err(); err != nil {
		return ports.Table{}, err
	}
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ports.Table{}, fmt.Errorf("%s: %w", s.path, ports.ErrSourceNotFound)
		}
		return ports.Table{}, fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	defer f.Close()
	return ReadSheet(f, s.sheet)
}

// ReadReader parses a workbook from r and returns the named sheet.
func ReadReader(r io.Reader, sheet string) (ports.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ports.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return ReadSheet(f, sheet)
}

// ReadSheet returns the raw cell values of sheet. Dates come back as Excel
// serial numbers rather than display strings. A sheet is matched exactly
// first, then ignoring case and surrounding spaces.
func ReadSheet(f *excelize.File, sheet string) (ports.Table, error) {
	name, ok := findSheet(f.GetSheetList(), sheet)
	if !ok {
		return ports.Table{}, fmt.Errorf("%q: %w", sheet, ports.ErrSheetNotFound)
	}
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return ports.Table{}, fmt.Errorf("read sheet %q: %w", name, err)
	}
	return ports.NewTable(rows), nil
}

func findSheet(list []string, want string) (string, bool) {
	for _, name := range list {
		if name == want {
			return name, true
		}
	}
	for _, name := range list {
		if strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(want)) {
			return name, true
		}
	}
	return "", false
}
