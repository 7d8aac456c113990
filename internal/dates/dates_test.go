package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKey(t *testing.T) {
	assert.Equal(t, "2025-03-09", DayKey(time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, "", DayKey(time.Time{}))
}

func TestStartOfDay(t *testing.T) {
	ts := time.Date(2025, 7, 14, 18, 42, 10, 5, time.UTC)
	got := StartOfDay(ts)
	assert.Equal(t, time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC), got)
}

func TestAddDaysCrossesBoundaries(t *testing.T) {
	assert.Equal(t,
		time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC),
		AddDays(time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC), 2))
	assert.Equal(t,
		time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC),
		AddDays(time.Date(2024, 2, 28, 10, 0, 0, 0, time.UTC), 1))
	assert.Equal(t,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		AddDays(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), 1))
	assert.Equal(t,
		time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC),
		AddDays(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), -3))
}

func TestWeekdayMondayFirst(t *testing.T) {
	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, WeekdayMondayFirst(monday))
	assert.Equal(t, 6, WeekdayMondayFirst(sunday))
}

func TestMonthGrid(t *testing.T) {
	// June 2025 starts on a Sunday, so the grid opens on Monday May 26.
	cells := MonthGrid(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), 6)
	require.Len(t, cells, 42)

	assert.Equal(t, "2025-05-26", cells[0].DayKey)
	assert.Equal(t, 26, cells[0].DayNumber)
	assert.False(t, cells[0].InCurrentMonth)

	assert.Equal(t, "2025-06-01", cells[6].DayKey)
	assert.True(t, cells[6].InCurrentMonth)

	inMonth := 0
	for _, cell := range cells {
		if cell.InCurrentMonth {
			inMonth++
		}
	}
	assert.Equal(t, 30, inMonth)
}

func TestMonthGridStartsOnMondayWhenFirstIsMonday(t *testing.T) {
	// September 2025 starts on a Monday; the grid opens on the 1st itself.
	cells := MonthGrid(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), 6)
	require.Len(t, cells, 42)
	assert.Equal(t, "2025-09-01", cells[0].DayKey)
	assert.True(t, cells[0].InCurrentMonth)
}

func TestWithinDay(t *testing.T) {
	ref := time.Date(2025, 4, 10, 15, 0, 0, 0, time.UTC)
	assert.True(t, WithinDay(time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), ref))
	assert.True(t, WithinDay(time.Date(2025, 4, 10, 23, 59, 59, 0, time.UTC), ref))
	assert.False(t, WithinDay(time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC), ref))
	assert.False(t, WithinDay(time.Time{}, ref))
}
