package coverage

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"a3p/internal/core"
)

// Granularity is the width of a roll-up period.
type Granularity int

const (
	Day Granularity = iota
	Week
	Month
	Quarter
	Year
)

// DefaultGranularity is used when no granularity is requested.
const DefaultGranularity = Quarter

func (g Granularity) String() string {
	switch g {
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Quarter:
		return "quarter"
	case Year:
		return "year"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// ParseGranularity accepts English and Portuguese period names. An empty
// string selects DefaultGranularity.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultGranularity, nil
	case "day", "daily", "dia":
		return Day, nil
	case "week", "weekly", "semana":
		return Week, nil
	case "month", "monthly", "mes", "mês":
		return Month, nil
	case "quarter", "quarterly", "trimestre":
		return Quarter, nil
	case "year", "yearly", "ano":
		return Year, nil
	default:
		return DefaultGranularity, fmt.Errorf("unknown granularity %q", s)
	}
}

// PeriodStart returns the first day of the period containing d.
// Weeks start on Monday.
func (g Granularity) PeriodStart(d core.Date) core.Date {
	y, m, day := d.Date()
	switch g {
	case Week:
		back := (int(d.Weekday()) + 6) % 7
		return d.AddDays(-back)
	case Month:
		return core.NewDate(y, int(m), 1)
	case Quarter:
		first := (int(m)-1)/3*3 + 1
		return core.NewDate(y, first, 1)
	case Year:
		return core.NewDate(y, 1, 1)
	default:
		return core.NewDate(y, int(m), day)
	}
}

// Label names the period that starts on start.
func (g Granularity) Label(start core.Date) string {
	switch g {
	case Week:
		y, w := start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case Month:
		return start.Format("2006-01")
	case Quarter:
		return fmt.Sprintf("%d-Q%d", start.Year(), (int(start.Month())-1)/3+1)
	case Year:
		return start.Format("2006")
	default:
		return start.Format(time.DateOnly)
	}
}

// Rollup reduces a daily series to one point per period holding the maximum
// daily count inside it. Start and End are the first and last days of the
// period actually present in points.
func Rollup(points iter.Seq[core.CoveragePoint], g Granularity) []core.PeriodPoint {
	out := []core.PeriodPoint{}
	var curKey core.Date
	for p := range points {
		key := g.PeriodStart(p.Date)
		if len(out) == 0 || key != curKey {
			out = append(out, core.PeriodPoint{
				Start: p.Date,
				End:   p.Date,
				Label: g.Label(key),
				Max:   p.Active,
			})
			curKey = key
			continue
		}
		cur := &out[len(out)-1]
		cur.End = p.Date
		if p.Active > cur.Max {
			cur.Max = p.Active
		}
	}
	return out
}
