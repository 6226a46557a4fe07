package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ISOLayout matches JavaScript's Date.prototype.toISOString output, which is
// the layout used by exported event files.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatISO renders t in UTC using ISOLayout.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// eventJSON is the wire layout of an event in import/export files and the
// HTTP API.
type eventJSON struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate"`
	Description string          `json:"description"`
	Color       string          `json:"color"`
	Category    string          `json:"category"`
	Recurrence  *recurrenceJSON `json:"recurrence"`
	IsRecurring *bool           `json:"isRecurring"`
	Source      string          `json:"source,omitempty"`
}

type recurrenceJSON struct {
	Type        string `json:"type"`
	Interval    int    `json:"interval"`
	DaysOfWeek  []int  `json:"daysOfWeek,omitempty"`
	DayOfMonth  int    `json:"dayOfMonth,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Occurrences int    `json:"occurrences,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	recurring := e.IsRecurring()
	out := eventJSON{
		ID:          e.ID,
		Title:       e.Title,
		StartDate:   FormatISO(e.Start),
		EndDate:     FormatISO(e.End),
		Description: e.Description,
		Color:       e.Color,
		Category:    string(e.Category),
		IsRecurring: &recurring,
		Source:      e.Source,
	}
	if e.Recurrence != nil {
		out.Recurrence = encodeRecurrence(*e.Recurrence)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. Unknown fields and any
// violation of the event invariants are rejected.
func (e *Event) UnmarshalJSON(data []byte) error {
	var in eventJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	ev, err := in.toEvent()
	if err != nil {
		return err
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	*e = ev
	return nil
}

// ParseEvent decodes a single event like UnmarshalJSON but leaves a
// missing ID empty and skips Validate, for callers that assign the ID
// themselves and validate afterwards.
func ParseEvent(data []byte) (Event, error) {
	var in eventJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return in.toEvent()
}

func (in eventJSON) toEvent() (Event, error) {
	if in.IsRecurring == nil {
		return Event{}, fmt.Errorf("%w: event %q: missing isRecurring", ErrInvalidEvent, in.ID)
	}
	if *in.IsRecurring != (in.Recurrence != nil) {
		return Event{}, fmt.Errorf("%w: event %q: isRecurring=%t disagrees with recurrence", ErrInvalidEvent, in.ID, *in.IsRecurring)
	}

	start, err := parseInstant(in.StartDate)
	if err != nil {
		return Event{}, fmt.Errorf("%w: event %q: startDate: %v", ErrInvalidEvent, in.ID, err)
	}
	end, err := parseInstant(in.EndDate)
	if err != nil {
		return Event{}, fmt.Errorf("%w: event %q: endDate: %v", ErrInvalidEvent, in.ID, err)
	}

	ev := Event{
		ID:          in.ID,
		Title:       in.Title,
		Description: in.Description,
		Color:       in.Color,
		Category:    Category(in.Category),
		Start:       start,
		End:         end,
		Source:      in.Source,
	}
	if in.Recurrence != nil {
		r, err := in.Recurrence.toRecurrence()
		if err != nil {
			return Event{}, fmt.Errorf("event %q: %w", in.ID, err)
		}
		ev.Recurrence = &r
	}
	return ev, nil
}

func (in recurrenceJSON) toRecurrence() (Recurrence, error) {
	var r Recurrence

	switch RecurrenceType(in.Type) {
	case RecurDaily:
		r.Rule = Daily{Interval: in.Interval}
	case RecurCustom:
		r.Rule = Custom{Interval: in.Interval}
	case RecurMonthly:
		r.Rule = Monthly{Interval: in.Interval, DayOfMonth: in.DayOfMonth}
	case RecurWeekly:
		days := make([]time.Weekday, 0, len(in.DaysOfWeek))
		for _, d := range in.DaysOfWeek {
			days = append(days, time.Weekday(d))
		}
		r.Rule = Weekly{Interval: in.Interval, Days: days}
	default:
		return r, fmt.Errorf("%w: unknown recurrence type %q", ErrInvalidEvent, in.Type)
	}

	if in.EndDate != "" {
		until, err := parseInstant(in.EndDate)
		if err != nil {
			return r, fmt.Errorf("%w: recurrence endDate: %v", ErrInvalidEvent, err)
		}
		r.Until = &until
	}
	r.Count = in.Occurrences
	return r, nil
}

func encodeRecurrence(r Recurrence) *recurrenceJSON {
	out := &recurrenceJSON{Occurrences: r.Count}
	if r.Until != nil {
		out.EndDate = FormatISO(*r.Until)
	}
	if r.Rule == nil {
		return out
	}
	out.Type = string(r.Rule.Type())
	out.Interval = r.Rule.Step()
	switch rule := r.Rule.(type) {
	case Weekly:
		out.DaysOfWeek = make([]int, 0, len(rule.Days))
		for _, d := range rule.Days {
			out.DaysOfWeek = append(out.DaysOfWeek, int(d))
		}
	case Monthly:
		out.DayOfMonth = rule.DayOfMonth
	}
	return out
}

// MarshalRecurrence encodes a recurrence using the wire layout. The store
// keeps this form in its recurrence column.
func MarshalRecurrence(r Recurrence) ([]byte, error) {
	return json.Marshal(encodeRecurrence(r))
}

// UnmarshalRecurrence is the inverse of MarshalRecurrence.
func UnmarshalRecurrence(data []byte) (Recurrence, error) {
	var in recurrenceJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return Recurrence{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	r, err := in.toRecurrence()
	if err != nil {
		return Recurrence{}, err
	}
	return r, r.Validate()
}

// DecodeEvents parses an exported event list. The whole document is
// rejected if any entry is invalid or two entries share an ID.
func DecodeEvents(data []byte) ([]Event, error) {
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		if errors.Is(err, ErrInvalidEvent) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if events == nil {
		return nil, fmt.Errorf("%w: expected a JSON array of events", ErrInvalidEvent)
	}

	seen := make(map[string]struct{}, len(events))
	for _, ev := range events {
		if _, dup := seen[ev.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidEvent, ev.ID)
		}
		seen[ev.ID] = struct{}{}
	}
	return events, nil
}

// EncodeEvents renders events as an indented JSON array.
func EncodeEvents(events []Event) ([]byte, error) {
	if events == nil {
		events = []Event{}
	}
	return json.MarshalIndent(events, "", "  ")
}

func parseInstant(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	return time.Parse(time.RFC3339Nano, s)
}
