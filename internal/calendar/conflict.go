package calendar

import (
	"time"

	"monthcal/internal/model"
)

// Overlaps reports whether two instances intersect as closed intervals.
// Instances that start on different calendar days never overlap.
func Overlaps(a, b model.Span) bool {
	if !SameDay(a.Start, b.Start) {
		return false
	}
	return !a.Start.After(b.End) && !a.End.Before(b.Start)
}

// HasConflict reports whether candidate overlaps any event in events, or
// any instance of a recurring event on a day within candidate's span. The
// event whose ID equals excludeID is skipped; an empty excludeID skips
// nothing.
func HasConflict(candidate model.Event, events []model.Event, excludeID string) bool {
	_, found := FirstConflict(candidate, events, excludeID)
	return found
}

// FirstConflict is HasConflict that also returns the first conflicting
// event.
func FirstConflict(candidate model.Event, events []model.Event, excludeID string) (model.Event, bool) {
	span := candidate.Span()
	for _, existing := range events {
		if excludeID != "" && existing.ID == excludeID {
			continue
		}
		if !existing.IsRecurring() {
			if Overlaps(span, existing.Span()) {
				return existing, true
			}
			continue
		}
		if seriesConflicts(span, existing) {
			return existing, true
		}
	}
	return model.Event{}, false
}

// seriesConflicts checks the series' instance on the candidate's start day.
// Overlaps never matches instances starting on other days, so later days in
// the candidate's span cannot conflict.
func seriesConflicts(span model.Span, series model.Event) bool {
	day := StartOfDay(span.Start)
	if !OccursOn(series, day) {
		return false
	}
	return Overlaps(span, InstanceOn(series, day))
}

// InstanceOn places ev's clock time and duration on the calendar day of
// date.
func InstanceOn(ev model.Event, date time.Time) model.Span {
	loc := date.Location()
	s := ev.Start.In(loc)
	y, m, d := date.Date()
	start := time.Date(y, m, d, s.Hour(), s.Minute(), s.Second(), s.Nanosecond(), loc)
	return model.Span{Start: start, End: start.Add(ev.Duration())}
}
