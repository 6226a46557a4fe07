package model

import "time"

// RecurrenceType names one of the supported rule shapes.
type RecurrenceType string

const (
	RecurDaily   RecurrenceType = "daily"
	RecurWeekly  RecurrenceType = "weekly"
	RecurMonthly RecurrenceType = "monthly"
	RecurCustom  RecurrenceType = "custom"
)

// Rule is the per-type payload of a recurrence. The set of implementations
// is closed: Daily, Weekly, Monthly and Custom.
type Rule interface {
	Type() RecurrenceType
	// Step is the rule's interval in its natural unit.
	Step() int
	isRule()
}

// Daily repeats every Interval days.
type Daily struct {
	Interval int
}

// Weekly repeats on Days every Interval weeks. An empty Days never occurs.
type Weekly struct {
	Interval int
	Days     []time.Weekday
}

// Monthly repeats on DayOfMonth every Interval months. A zero DayOfMonth
// means the anchor's own day of month.
type Monthly struct {
	Interval   int
	DayOfMonth int
}

// Custom repeats every Interval days, exactly like Daily.
type Custom struct {
	Interval int
}

func (Daily) Type() RecurrenceType   { return RecurDaily }
func (Weekly) Type() RecurrenceType  { return RecurWeekly }
func (Monthly) Type() RecurrenceType { return RecurMonthly }
func (Custom) Type() RecurrenceType  { return RecurCustom }

func (r Daily) Step() int   { return r.Interval }
func (r Weekly) Step() int  { return r.Interval }
func (r Monthly) Step() int { return r.Interval }
func (r Custom) Step() int  { return r.Interval }

func (Daily) isRule()   {}
func (Weekly) isRule()  {}
func (Monthly) isRule() {}
func (Custom) isRule()  {}

// HasDay reports whether d is one of the rule's weekdays.
func (r Weekly) HasDay(d time.Weekday) bool {
	for _, x := range r.Days {
		if x == d {
			return true
		}
	}
	return false
}

// Recurrence bounds a Rule. The event's Start is the anchor.
type Recurrence struct {
	Rule Rule

	// Until, when set, is the last calendar day on which occurrences are
	// considered.
	Until *time.Time

	// Count, when positive, limits the series to its first Count occurrences.
	Count int
}
