// Package dates holds calendar arithmetic shared by the ledger, the follow-up
// scheduler and the calendar endpoints. All helpers operate on wall-clock days
// in the instant's own location, so a "day" survives DST shifts.
package dates

import "time"

const dayKeyLayout = "2006-01-02"

// DayKey returns the canonical YYYY-MM-DD key for an instant, or the empty
// string for the zero time.
func DayKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dayKeyLayout)
}

// StartOfDay truncates an instant to local midnight.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// AddDays advances an instant by n calendar days. Month and year boundaries
// are handled by time.Date normalisation; the wall-clock time of day is kept.
func AddDays(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+n, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// WeekdayMondayFirst maps time.Weekday onto the Monday=0 .. Sunday=6
// convention used by the availability grid and follow-up grouping.
func WeekdayMondayFirst(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// MonthCell is a single slot in a month grid.
type MonthCell struct {
	DayKey         string `json:"day_key"`
	DayNumber      int    `json:"day_number"`
	InCurrentMonth bool   `json:"in_current_month"`
}

// MonthGrid builds a weeks x 7 grid for the month containing monthStart,
// beginning on the Monday on or before the 1st. Calendar UIs render the grid
// as-is; cells outside the month are flagged rather than omitted.
func MonthGrid(monthStart time.Time, weeks int) []MonthCell {
	if weeks <= 0 {
		weeks = 6
	}
	first := time.Date(monthStart.Year(), monthStart.Month(), 1, 0, 0, 0, 0, monthStart.Location())
	gridStart := AddDays(first, -WeekdayMondayFirst(first))

	cells := make([]MonthCell, 0, weeks*7)
	for i := 0; i < weeks*7; i++ {
		day := AddDays(gridStart, i)
		cells = append(cells, MonthCell{
			DayKey:         DayKey(day),
			DayNumber:      day.Day(),
			InCurrentMonth: day.Month() == first.Month() && day.Year() == first.Year(),
		})
	}
	return cells
}

// SameDay reports whether two instants fall on the same wall-clock day.
func SameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	return DayKey(a) == DayKey(b)
}

// WithinDay reports whether t falls inside the calendar day containing ref.
func WithinDay(t, ref time.Time) bool {
	if t.IsZero() {
		return false
	}
	start := StartOfDay(ref)
	end := AddDays(start, 1)
	return !t.Before(start) && t.Before(end)
}
