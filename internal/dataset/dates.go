package dataset

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"a3p/internal/core"
)

// Text layouts accepted for date cells, tried in order. Slash, dash and dot
// forms are read day-first only; 02/01/2024 is 2 January.
var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"2006/01/02",
}

// Largest serial Excel can represent (9999-12-31).
const maxExcelSerial = 2958465

// Years outside this range are typos; they read as null dates.
const (
	MinYear = 1900
	MaxYear = 2262
)

// ParseDate converts a cell to a calendar day. Excel serial numbers and the
// layouts above are understood. Anything else, or a year outside
// MinYear..MaxYear, yields a null date and false; malformed cells never
// produce an error.
func ParseDate(cell string) (core.Date, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return core.Date{}, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v < 1 || v > maxExcelSerial {
			return core.Date{}, false
		}
		t, err := excelize.ExcelDateToTime(v, false)
		if err != nil {
			return core.Date{}, false
		}
		return plausible(core.DateOf(t))
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return plausible(core.DateOf(t))
		}
	}
	return core.Date{}, false
}

func plausible(d core.Date) (core.Date, bool) {
	if y := d.Year(); y < MinYear || y > MaxYear {
		return core.Date{}, false
	}
	return d, true
}
