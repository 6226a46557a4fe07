// Package calendar is the recurrence and conflict engine: it decides on
// which calendar days an event occurs, whether two instances overlap, and
// builds the fixed 6x7 month grid.
//
// Every function is pure. Calendar fields (year, month, day, weekday) are
// read in the location carried by the date argument; callers pick the
// calendar time zone by choosing that location.
package calendar

import "time"

const secondsPerDay = 24 * 60 * 60

// DaysInMonth returns the number of days in month, using day 0 of the
// following month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstWeekdayOfMonth returns the weekday of the 1st of month.
func FirstWeekdayOfMonth(year int, month time.Month) time.Weekday {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday()
}

// SameDay reports whether a and b fall on the same calendar day in a's
// location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// MakeInstant builds an instant from local calendar fields.
func MakeInstant(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

// StartOfDay truncates t to midnight of its calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddMonths moves (year, month) by n months, carrying into the year.
func AddMonths(year int, month time.Month, n int) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return t.Year(), t.Month()
}

// dayNumber maps the calendar day of t to a running day count. Differences
// between day numbers are whole calendar days regardless of DST or the
// time of day.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

// daysBetween is the signed number of calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(dayNumber(b) - dayNumber(a))
}

// monthsBetween is the signed number of calendar months from a to b.
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// floorMod is the mathematical modulo: the result has the sign of m.
func floorMod(n, m int) int {
	r := n % m
	if r != 0 && (r < 0) != (m < 0) {
		r += m
	}
	return r
}
