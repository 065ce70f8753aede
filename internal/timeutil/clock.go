// Package timeutil provides a testable clock and the notion of "today" in
// the dashboard's time zone.
package timeutil

import (
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"a3p/internal/core"
)

// DefaultTimezone is the zone that defines "today" when none is configured.
const DefaultTimezone = "America/Sao_Paulo"

// Clock provides an abstraction over time operations for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// MockClock is a manually controlled clock for testing.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set sets the mock clock to a specific time.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the mock clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// LoadLocation resolves an IANA zone name. An empty name means
// DefaultTimezone.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// Today is a calendar that answers "which day is it" for one location.
type Today struct {
	Clock    Clock
	Location *time.Location
}

// NewToday returns a calendar on the real clock. A nil location means UTC.
func NewToday(loc *time.Location) Today {
	if loc == nil {
		loc = time.UTC
	}
	return Today{Clock: RealClock{}, Location: loc}
}

// Date returns the current calendar day in the configured location.
func (t Today) Date() core.Date {
	clock := t.Clock
	if clock == nil {
		clock = RealClock{}
	}
	loc := t.Location
	if loc == nil {
		loc = time.UTC
	}
	return core.DateOf(clock.Now().In(loc))
}
