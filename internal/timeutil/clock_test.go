package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"a3p/internal/core"
)

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 8, 15, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)
	assert.Equal(t, start, c.Now())

	c.Advance(36 * time.Hour)
	assert.Equal(t, start.Add(36*time.Hour), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimezone, loc.String())

	_, err = LoadLocation("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestTodayUsesLocation(t *testing.T) {
	loc, err := LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	// 01:30 UTC on the 16th is still the 15th in São Paulo (UTC-3).
	clock := NewMockClock(time.Date(2024, 8, 16, 1, 30, 0, 0, time.UTC))
	today := Today{Clock: clock, Location: loc}
	assert.Equal(t, core.NewDate(2024, 8, 15), today.Date())

	utc := Today{Clock: clock}
	assert.Equal(t, core.NewDate(2024, 8, 16), utc.Date())
}
