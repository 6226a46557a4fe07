package model

import "time"

// Category classifies an event for filtering and coloring. It has no effect
// on recurrence or conflict evaluation.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryMeeting  Category = "meeting"
	CategoryOther    Category = "other"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryMeeting, CategoryOther:
		return true
	}
	return false
}

// Event is a calendar entry as owned by the store. The calendar core treats
// it as immutable input.
type Event struct {
	// ID is stable across edits of the same logical event. Detaching a single
	// instance of a series produces a new ID.
	ID string

	Title       string
	Description string
	Color       string
	Category    Category

	// Start / End are absolute instants. End >= Start is expected but not
	// enforced by the calendar core.
	Start time.Time
	End   time.Time

	// Recurrence is nil for one-off events.
	Recurrence *Recurrence

	// Source is empty for locally created events and holds the subscription
	// ID for events imported from an ICS feed.
	Source string
}

// IsRecurring reports whether the event carries a recurrence rule.
func (e Event) IsRecurring() bool {
	return e.Recurrence != nil
}

// Span returns the concrete start/end pair of the event as stored.
func (e Event) Span() Span {
	return Span{Start: e.Start, End: e.End}
}

// Duration is End - Start; negative for inverted ranges.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// In returns a copy of e with every instant expressed in loc.
func (e Event) In(loc *time.Location) Event {
	e.Start = e.Start.In(loc)
	e.End = e.End.In(loc)
	if e.Recurrence != nil {
		r := *e.Recurrence
		if r.Until != nil {
			u := r.Until.In(loc)
			r.Until = &u
		}
		e.Recurrence = &r
	}
	return e
}

// Span is a concrete instance: one start/end pair.
type Span struct {
	Start time.Time
	End   time.Time
}
