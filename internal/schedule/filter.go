package schedule

import (
	"strings"

	"monthcal/internal/model"
)

// Filter narrows the event set. The zero value matches everything.
type Filter struct {
	// Term matches title or description, case-insensitively.
	Term string
	// Categories, when non-empty, keeps only events in one of them.
	Categories []model.Category
}

// Match reports whether ev passes the filter.
func (f Filter) Match(ev model.Event) bool {
	if term := strings.ToLower(strings.TrimSpace(f.Term)); term != "" {
		if !strings.Contains(strings.ToLower(ev.Title), term) &&
			!strings.Contains(strings.ToLower(ev.Description), term) {
			return false
		}
	}
	if len(f.Categories) == 0 {
		return true
	}
	for _, c := range f.Categories {
		if c == ev.Category {
			return true
		}
	}
	return false
}

// Apply returns the events that match, preserving order.
func (f Filter) Apply(events []model.Event) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if f.Match(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// ParseCategories splits a comma-separated list, dropping unknown names.
func ParseCategories(s string) []model.Category {
	var out []model.Category
	for _, part := range strings.Split(s, ",") {
		c := model.Category(strings.ToLower(strings.TrimSpace(part)))
		if c.Valid() {
			out = append(out, c)
		}
	}
	return out
}
