package coverage

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"a3p/internal/core"
)

func rec(power, sphere, state string, start, end core.Date) core.Record {
	return core.Record{Power: power, Sphere: sphere, State: state, Start: start, End: end}
}

func TestNormalizeLabel(t *testing.T) {
	cases := map[string]string{
		" federal ":         "Federal",
		"Federal":           "Federal",
		"FEDERAL":           "Federal",
		"poder   executivo": "Poder Executivo",
		"  ":                "",
		"estadual\t":        "Estadual",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeLabel(in), "%q", in)
	}
}

func TestActiveGroupedCounts(t *testing.T) {
	asOf := d(2024, 6, 1)
	records := []core.Record{
		rec("Executivo", " federal ", "DF", d(2020, 1, 1), d(2025, 1, 1)),
		rec("executivo", "Federal", "DF", d(2021, 1, 1), d(2024, 6, 1)), // ends on asOf
		rec("Executivo", "Municipal", "SP", d(2030, 1, 1), d(2031, 1, 1)), // future start still counts
		rec("Executivo", "Municipal", "SP", d(2020, 1, 1), d(2024, 5, 31)), // expired
		rec("Judiciário", "Estadual", "RJ", d(2020, 1, 1), core.Date{}),   // null end
		rec("Legislativo", "", "MG", d(2020, 1, 1), d(2026, 1, 1)),        // empty sphere
		rec("Legislativo", "Estadual", "MG", core.Date{}, d(2026, 1, 1)),  // null start ignored
	}

	got := ActiveGroupedCounts(records, asOf)
	want := []core.GroupCount{
		{Power: "Executivo", Sphere: "Federal", Total: 2},
		{Power: "Executivo", Sphere: "Municipal", Total: 1},
		{Power: "Legislativo", Sphere: "Estadual", Total: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ActiveGroupedCounts mismatch (-want +got):\n%s", diff)
	}
}

func TestActiveGroupedCountsEmpty(t *testing.T) {
	got := ActiveGroupedCounts(nil, d(2024, 1, 1))
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGroupHelpers(t *testing.T) {
	counts := []core.GroupCount{
		{Power: "Executivo", Sphere: "Federal", Total: 4},
		{Power: "Executivo", Sphere: "Municipal", Total: 2},
		{Power: "Legislativo", Sphere: "Federal", Total: 1},
		{Power: "Legislativo", Sphere: "Estadual", Total: 3},
	}

	assert.Equal(t, []string{"Executivo", "Legislativo"}, Powers(counts))
	assert.Equal(t, []string{"Federal", "Municipal", "Estadual"}, Spheres(counts))

	assert.Equal(t, []core.GroupCount{{Power: "Legislativo", Sphere: "Federal", Total: 1}},
		FilterGroups(counts, "Legislativo", "Federal"))
	assert.Len(t, FilterGroups(counts, "", "Federal"), 2)
	assert.Empty(t, FilterGroups(counts, "Judiciário", ""))

	assert.Equal(t, []core.LabelCount{
		{Label: "Federal", Total: 5},
		{Label: "Municipal", Total: 2},
		{Label: "Estadual", Total: 3},
	}, SphereTotals(counts))

	assert.Equal(t, []core.LabelCount{
		{Label: "Federal", Total: 1},
		{Label: "Estadual", Total: 3},
	}, SpheresOf(counts, "Legislativo"))
}

func TestStateCounts(t *testing.T) {
	records := []core.Record{
		rec("", "", " sp", core.Date{}, core.Date{}),
		rec("", "", "SP ", d(2020, 1, 1), d(2020, 2, 1)),
		rec("", "", "rj", d(2020, 1, 1), d(2030, 1, 1)),
		rec("", "", "XX", d(2020, 1, 1), d(2030, 1, 1)),
		rec("", "", "", d(2020, 1, 1), d(2030, 1, 1)),
		rec("", "", "AC", d(2020, 1, 1), d(2030, 1, 1)),
	}
	got := StateCounts(records)
	want := []core.StateCount{
		{State: "AC", Total: 1},
		{State: "RJ", Total: 1},
		{State: "SP", Total: 2},
	}
	assert.Equal(t, want, got)
	assert.Empty(t, StateCounts(nil))
}

func TestDailyStarts(t *testing.T) {
	today := d(2024, 6, 1)
	records := []core.Record{
		rec("", "", "SP", d(2024, 1, 1), core.Date{}),
		rec("", "", "sp", d(2024, 1, 1), core.Date{}),
		rec("", "", "RJ", d(2024, 1, 1), core.Date{}),
		rec("", "", "SP", d(2024, 3, 1), core.Date{}),
		rec("", "", "SP", d(2024, 7, 1), core.Date{}), // after today
		rec("", "", "SP", core.Date{}, core.Date{}),   // no start
	}

	t.Run("all states", func(t *testing.T) {
		got, err := DailyStarts(records, DailyQuery{Today: today})
		require.NoError(t, err)
		assert.Equal(t, []core.DailyCount{
			{Date: d(2024, 1, 1), Total: 3},
			{Date: d(2024, 3, 1), Total: 1},
		}, got)
	})

	t.Run("state filter", func(t *testing.T) {
		got, err := DailyStarts(records, DailyQuery{Today: today, State: "SP"})
		require.NoError(t, err)
		assert.Equal(t, []core.DailyCount{
			{Date: d(2024, 1, 1), Total: 2},
			{Date: d(2024, 3, 1), Total: 1},
		}, got)
	})

	t.Run("date range", func(t *testing.T) {
		got, err := DailyStarts(records, DailyQuery{Today: today, From: d(2024, 2, 1), To: d(2024, 3, 1)})
		require.NoError(t, err)
		assert.Equal(t, []core.DailyCount{{Date: d(2024, 3, 1), Total: 1}}, got)
	})

	t.Run("range excludes everything", func(t *testing.T) {
		got, err := DailyStarts(records, DailyQuery{Today: today, From: d(2025, 1, 1)})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("no data for state", func(t *testing.T) {
		got, err := DailyStarts(records, DailyQuery{Today: today, State: "AM"})
		require.ErrorIs(t, err, core.ErrNoValidRecords)
		assert.Empty(t, got)
	})
}

func TestStartBounds(t *testing.T) {
	records := []core.Record{
		rec("", "", "", d(2022, 5, 1), core.Date{}),
		rec("", "", "", d(2021, 3, 1), core.Date{}),
		rec("", "", "", d(2030, 1, 1), core.Date{}),
		rec("", "", "", core.Date{}, core.Date{}),
	}
	first, last := StartBounds(records, d(2024, 1, 1))
	assert.Equal(t, d(2021, 3, 1), first)
	assert.Equal(t, d(2022, 5, 1), last)
}
