// Package dataset turns raw sheet tables into adhesion records.
package dataset

import (
	"errors"
	"fmt"
	"strings"

	"a3p/internal/core"
	"a3p/internal/sheets"
)

// ErrMissingColumns reports that one or more required headers are absent.
var ErrMissingColumns = errors.New("missing required columns")

// MissingColumnsError lists the absent headers. It matches ErrMissingColumns
// with errors.Is.
type MissingColumnsError struct {
	Required []string
	Missing  []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns, strings.Join(e.Missing, ", "))
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumns }

// Stats describes what Parse did with the table.
type Stats struct {
	Rows         int `json:"rows"`      // non-blank data rows
	BadStart     int `json:"bad_start"` // non-empty start cells that did not parse
	BadEnd       int `json:"bad_end"`   // non-empty end cells that did not parse
	MissingStart int `json:"missing_start"`
	MissingEnd   int `json:"missing_end"`
}

// Parse maps every non-blank row of t to a Record. Dates that do not parse
// become null; they are counted in Stats but never fail the parse.
func Parse(t sheets.Table, cols ColumnMap) ([]core.Record, Stats, error) {
	idx := make([]int, 0, 5)
	var missing []string
	for _, name := range cols.Required() {
		i := indexOf(t.Header, name)
		if i < 0 {
			missing = append(missing, name)
		}
		idx = append(idx, i)
	}
	if len(missing) > 0 {
		return nil, Stats{}, &MissingColumnsError{Required: cols.Required(), Missing: missing}
	}
	colPower, colSphere, colState, colStart, colEnd := idx[0], idx[1], idx[2], idx[3], idx[4]

	var stats Stats
	records := make([]core.Record, 0, len(t.Rows))
	for i := range t.Rows {
		power := t.Cell(i, colPower)
		sphere := t.Cell(i, colSphere)
		state := t.Cell(i, colState)
		startCell := t.Cell(i, colStart)
		endCell := t.Cell(i, colEnd)
		if allBlank(power, sphere, state, startCell, endCell) {
			continue
		}
		stats.Rows++

		start, ok := ParseDate(startCell)
		switch {
		case ok:
		case strings.TrimSpace(startCell) == "":
			stats.MissingStart++
		default:
			stats.BadStart++
		}
		end, ok := ParseDate(endCell)
		switch {
		case ok:
		case strings.TrimSpace(endCell) == "":
			stats.MissingEnd++
		default:
			stats.BadEnd++
		}

		records = append(records, core.Record{
			Row:    i + 2, // header is row 1
			Power:  power,
			Sphere: sphere,
			State:  state,
			Start:  start,
			End:    end,
		})
	}
	return records, stats, nil
}

func allBlank(vals ...string) bool {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
