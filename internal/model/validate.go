package model

import (
	"errors"
	"fmt"
)

// ErrInvalidEvent is wrapped by every validation failure.
var ErrInvalidEvent = errors.New("invalid event")

// Validate checks the invariants the calendar core relies on but does not
// enforce itself. It is applied at the boundary (decoding, service writes).
func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: event %q: unknown category %q", ErrInvalidEvent, e.ID, e.Category)
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return fmt.Errorf("%w: event %q: start and end are required", ErrInvalidEvent, e.ID)
	}
	if e.End.Before(e.Start) {
		return fmt.Errorf("%w: event %q: end is before start", ErrInvalidEvent, e.ID)
	}
	if e.Recurrence != nil {
		if err := e.Recurrence.Validate(); err != nil {
			return fmt.Errorf("event %q: %w", e.ID, err)
		}
	}
	return nil
}

// Validate checks the rule payload for the shape its type requires.
func (r Recurrence) Validate() error {
	if r.Rule == nil {
		return fmt.Errorf("%w: recurrence without rule", ErrInvalidEvent)
	}
	if r.Rule.Step() < 1 {
		return fmt.Errorf("%w: %s interval must be >= 1, got %d", ErrInvalidEvent, r.Rule.Type(), r.Rule.Step())
	}
	if r.Count < 0 {
		return fmt.Errorf("%w: negative occurrence count %d", ErrInvalidEvent, r.Count)
	}

	switch rule := r.Rule.(type) {
	case Weekly:
		if len(rule.Days) == 0 {
			return fmt.Errorf("%w: weekly rule needs at least one weekday", ErrInvalidEvent)
		}
		for _, d := range rule.Days {
			if d < 0 || d > 6 {
				return fmt.Errorf("%w: weekday %d out of range 0-6", ErrInvalidEvent, d)
			}
		}
	case Monthly:
		if rule.DayOfMonth < 0 || rule.DayOfMonth > 31 {
			return fmt.Errorf("%w: day of month %d out of range 1-31", ErrInvalidEvent, rule.DayOfMonth)
		}
	}
	return nil
}
