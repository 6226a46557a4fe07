package calendar

import (
	"time"

	"monthcal/internal/model"
)

// OccursOn reports whether ev has an instance on the calendar day of date.
//
// One-off events occur on the day of their start. Recurring events occur on
// days selected by their rule, never before the anchor day and never after
// the recurrence's Until day. A rule with an interval below 1 never occurs.
//
// Until bounds the series by calendar day, not by instant: an Until of
// 08:00 still admits an instance later that day. Callers holding an exact
// end instant should pass the day of the last instance they want.
func OccursOn(ev model.Event, date time.Time) bool {
	if !ev.IsRecurring() {
		return SameDay(date, ev.Start)
	}

	r := ev.Recurrence
	loc := date.Location()
	anchor := ev.Start.In(loc)

	if r.Until != nil && dayNumber(date) > dayNumber(r.Until.In(loc)) {
		return false
	}
	days := daysBetween(anchor, date)
	if days < 0 {
		return false
	}
	if r.Rule == nil || r.Rule.Step() < 1 {
		return false
	}

	var (
		index int
		ok    bool
	)
	switch rule := r.Rule.(type) {
	case model.Daily:
		index, ok = everyNDays(days, rule.Interval)
	case model.Custom:
		index, ok = everyNDays(days, rule.Interval)
	case model.Weekly:
		index, ok = weeklyIndex(rule, anchor, date, days)
	case model.Monthly:
		index, ok = monthlyIndex(rule, anchor, date, r.Count)
	default:
		return false
	}
	if !ok {
		return false
	}
	return r.Count <= 0 || index < r.Count
}

// Occurrences lists the calendar days in [from, to] on which ev occurs,
// as midnights in from's location.
func Occurrences(ev model.Event, from, to time.Time) []time.Time {
	var out []time.Time
	last := StartOfDay(to.In(from.Location()))
	for d := StartOfDay(from); !d.After(last); d = d.AddDate(0, 0, 1) {
		if OccursOn(ev, d) {
			out = append(out, d)
		}
	}
	return out
}

// everyNDays returns the zero-based ordinal of the occurrence days after
// the anchor, if there is one.
func everyNDays(days, interval int) (int, bool) {
	if floorMod(days, interval) != 0 {
		return 0, false
	}
	return days / interval, true
}

// weeklyIndex counts weeks in 7-day windows starting at the anchor day, so
// each window holds every weekday exactly once.
func weeklyIndex(rule model.Weekly, anchor, date time.Time, days int) (int, bool) {
	weeks := days / 7
	if floorMod(weeks, rule.Interval) != 0 {
		return 0, false
	}
	if !rule.HasDay(date.Weekday()) {
		return 0, false
	}

	var set [7]bool
	for _, d := range rule.Days {
		if d >= 0 && d <= 6 {
			set[d] = true
		}
	}
	perWindow := 0
	before := 0
	offset := func(d time.Weekday) int { return floorMod(int(d)-int(anchor.Weekday()), 7) }
	here := offset(date.Weekday())
	for d := time.Sunday; d <= time.Saturday; d++ {
		if !set[d] {
			continue
		}
		perWindow++
		if offset(d) < here {
			before++
		}
	}
	return (weeks/rule.Interval)*perWindow + before, true
}

// monthlyIndex reports whether date is a monthly occurrence day. The
// ordinal is only computed when count bounds the series.
func monthlyIndex(rule model.Monthly, anchor, date time.Time, count int) (int, bool) {
	dom := rule.DayOfMonth
	if dom == 0 {
		dom = anchor.Day()
	}
	months := monthsBetween(anchor, date)
	if floorMod(months, rule.Interval) != 0 || date.Day() != dom {
		return 0, false
	}
	if count <= 0 || months == 0 {
		return 0, true
	}

	// Months that lack the target day, or whose target day precedes the
	// anchor, produce no instance and do not consume an ordinal.
	index := months / rule.Interval
	if dom < anchor.Day() {
		index--
	}
	if dom <= 28 {
		return index, true
	}
	index = 0
	for m := 0; m < months && index < count; m += rule.Interval {
		y, mon := AddMonths(anchor.Year(), anchor.Month(), m)
		if dom > DaysInMonth(y, mon) || (m == 0 && dom < anchor.Day()) {
			continue
		}
		index++
	}
	return index, true
}
