package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	// Date is a calendar day at UTC midnight. The zero value means "no date".
	Date struct {
		time.Time
	}

	// Record is one adhesion row of the source spreadsheet.
	Record struct {
		Row    int // 1-based row in the source, for diagnostics
		Power  string
		Sphere string
		State  string
		Start  Date
		End    Date
	}

	// Interval is a closed validity range [Start, End].
	Interval struct {
		Start Date
		End   Date
	}
)

var (
	// ErrNoValidRecords reports that nothing is left to aggregate after
	// filtering. Callers show a warning instead of failing.
	ErrNoValidRecords = errors.New("no valid records")

	ErrInvalidDay   = errors.New("invalid day")
	ErrInvalidMonth = errors.New("invalid month")
)

const secondsPerDay = 24 * 60 * 60

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as seen in t's own location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// IsEmpty reports whether the date is null.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the number of days from d to other. It works on Unix
// seconds since time.Duration overflows past about 292 years.
func (d Date) DaysUntil(other Date) int {
	return int((other.Unix() - d.Unix()) / secondsPerDay)
}

// String formats the date as YYYY-MM-DD, or "" when null.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// MarshalJSON encodes the date as "YYYY-MM-DD", or null when empty.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD", "" and null.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	*d = DateOf(t)
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// MinDate returns the earlier of two non-null dates; a null argument yields the other.
func MinDate(a, b Date) Date {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.Before(a.Time):
		return b
	default:
		return a
	}
}

// Interval returns the record's validity interval.
func (r Record) Interval() Interval {
	return Interval{Start: r.Start, End: r.End}
}

// Contains reports whether day lies inside the interval. Null bounds never match.
func (iv Interval) Contains(day Date) bool {
	if iv.Start.IsZero() || iv.End.IsZero() {
		return false
	}
	return !day.Before(iv.Start.Time) && !day.After(iv.End.Time)
}

// ActiveOn reports whether the record is valid on day.
func (r Record) ActiveOn(day Date) bool {
	return r.Interval().Contains(day)
}

// StateCode returns the record's UF upper-cased and trimmed.
func (r Record) StateCode() string {
	return strings.ToUpper(strings.TrimSpace(r.State))
}

// Intervals extracts validity intervals from records.
func Intervals(records []Record) []Interval {
	out := make([]Interval, len(records))
	for i, r := range records {
		out[i] = r.Interval()
	}
	return out
}
