package ics

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

const defaultMaxPerEvent = 1000

// ConvertConfig controls how parsed VEVENTs become calendar events.
type ConvertConfig struct {
	// Location is the calendar time zone. Nil means time.Local.
	Location *time.Location

	// RangeStart and RangeEnd bound the expansion of rules that have no
	// native representation.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxPerEvent caps the instances expanded from one rule. Zero means
	// defaultMaxPerEvent.
	MaxPerEvent int
}

// Convert turns the parsed VEVENTs of one source into calendar events.
//
// One-off VEVENTs map to one-off events. A series whose RRULE fits one of
// the native rule shapes, and which has no EXDATEs or overridden
// instances, maps to a single recurring event. Every other series is
// expanded into one-off events within the configured range. Event IDs are
// "<source>:<uid>", with the instance start appended for expanded
// instances.
func Convert(events []ParsedEvent, cfg ConvertConfig) ([]model.Event, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("convert: RangeEnd is before RangeStart")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxPerEvent <= 0 {
		cfg.MaxPerEvent = defaultMaxPerEvent
	}

	var (
		order     []string
		bases     = make(map[string]ParsedEvent)
		overrides = make(map[string][]ParsedEvent)
	)
	for _, ev := range events {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, dup := bases[ev.UID]; !dup {
			order = append(order, ev.UID)
		}
		bases[ev.UID] = ev
	}

	out := make([]model.Event, 0, len(events))
	for _, uid := range order {
		base := bases[uid]
		ov := overrides[uid]
		delete(overrides, uid)

		if base.RawRRule == "" {
			out = append(out, toEvent(base, eventID(base), base.Start, base.End, cfg.Location))
			continue
		}
		if rec, ok := nativeRecurrence(base, ov, cfg.Location); ok {
			ev := toEvent(base, eventID(base), base.Start, base.End, cfg.Location)
			ev.Recurrence = &rec
			out = append(out, ev)
			continue
		}
		out = append(out, expand(base, ov, cfg)...)
	}

	// Overrides whose series is missing from the feed stand on their own.
	var orphans []ParsedEvent
	for _, ov := range overrides {
		orphans = append(orphans, ov...)
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].Start.Before(orphans[j].Start) })
	for _, ov := range orphans {
		out = append(out, toEvent(ov, instanceID(ov, *ov.RecurrenceID), ov.Start, ov.End, cfg.Location))
	}
	return out, nil
}

// nativeRecurrence maps base's RRULE onto a native rule when the two agree
// on every instance.
func nativeRecurrence(base ParsedEvent, overrides []ParsedEvent, loc *time.Location) (model.Recurrence, bool) {
	if len(base.ExDates) > 0 || len(overrides) > 0 {
		return model.Recurrence{}, false
	}
	opt, err := rrule.StrToROption(base.RawRRule)
	if err != nil {
		appLog.Warn("ics rrule unparsable", "uid", base.UID, "rrule", base.RawRRule, "reason", err.Error())
		return model.Recurrence{}, false
	}
	if len(opt.Bysetpos)+len(opt.Bymonth)+len(opt.Byyearday)+len(opt.Byweekno)+
		len(opt.Byhour)+len(opt.Byminute)+len(opt.Bysecond)+len(opt.Byeaster) > 0 {
		return model.Recurrence{}, false
	}

	interval := opt.Interval
	if interval < 1 {
		interval = 1
	}
	anchor := base.Start.In(loc)

	var rec model.Recurrence
	switch opt.Freq {
	case rrule.DAILY:
		if len(opt.Byweekday)+len(opt.Bymonthday) > 0 {
			return rec, false
		}
		rec.Rule = model.Daily{Interval: interval}

	case rrule.WEEKLY:
		if len(opt.Bymonthday) > 0 {
			return rec, false
		}
		// Native weeks start on the anchor's weekday; RRULE weeks on WKST.
		// They only agree for multi-week intervals when the two coincide.
		if interval > 1 && toWeekday(opt.Wkst) != anchor.Weekday() {
			return rec, false
		}
		days := []time.Weekday{anchor.Weekday()}
		if len(opt.Byweekday) > 0 {
			days = days[:0]
			for _, wd := range opt.Byweekday {
				if wd.N() != 0 {
					return rec, false
				}
				days = append(days, toWeekday(wd))
			}
		}
		rec.Rule = model.Weekly{Interval: interval, Days: days}

	case rrule.MONTHLY:
		if len(opt.Byweekday) > 0 || len(opt.Bymonthday) > 1 {
			return rec, false
		}
		dom := anchor.Day()
		if len(opt.Bymonthday) == 1 {
			if opt.Bymonthday[0] < 1 {
				return rec, false
			}
			dom = opt.Bymonthday[0]
		}
		rec.Rule = model.Monthly{Interval: interval, DayOfMonth: dom}

	default:
		return rec, false
	}

	// RRULE counts DTSTART only when it matches the rule; native rules
	// always count the anchor. Only map when the anchor is an instance.
	if !anchorMatches(rec.Rule, anchor) {
		return model.Recurrence{}, false
	}

	// UNTIL is an instant while native Until bounds whole days, so pin it
	// to the last instance the RRULE actually produces.
	if !opt.Until.IsZero() {
		opt.Dtstart = base.Start
		r, err := rrule.NewRRule(*opt)
		if err != nil {
			return model.Recurrence{}, false
		}
		last := r.Before(opt.Until, true)
		if last.IsZero() {
			return model.Recurrence{}, false
		}
		until := last.In(loc)
		rec.Until = &until
	}
	rec.Count = opt.Count
	return rec, rec.Validate() == nil
}

func anchorMatches(rule model.Rule, anchor time.Time) bool {
	switch r := rule.(type) {
	case model.Weekly:
		return r.HasDay(anchor.Weekday())
	case model.Monthly:
		return r.DayOfMonth == anchor.Day()
	}
	return true
}

// expand materializes the instances of a series within the configured
// range, applying EXDATEs and overridden instances.
func expand(base ParsedEvent, overrides []ParsedEvent, cfg ConvertConfig) []model.Event {
	r, err := rrule.StrToRRule(base.RawRRule)
	if err != nil {
		appLog.Warn("ics rrule unparsable, keeping first instance", "uid", base.UID, "rrule", base.RawRRule, "reason", err.Error())
		return []model.Event{toEvent(base, eventID(base), base.Start, base.End, cfg.Location)}
	}
	r.DTStart(base.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range base.ExDates {
		set.ExDate(ex.In(base.Start.Location()))
	}

	times := set.Between(cfg.RangeStart.In(base.Start.Location()), cfg.RangeEnd.In(base.Start.Location()), true)
	if len(times) > cfg.MaxPerEvent {
		appLog.Warn("ics expansion truncated", "uid", base.UID, "cap", cfg.MaxPerEvent, "instances", len(times))
		times = times[:cfg.MaxPerEvent]
	}

	dur := base.End.Sub(base.Start)
	out := make([]model.Event, 0, len(times))
	for _, start := range times {
		inst := base
		end := start.Add(dur)
		if base.AllDay {
			start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
			end = start.AddDate(0, 0, 1)
		}
		if o, ok := findOverride(overrides, start); ok {
			inst = o
			start, end = o.Start, o.End
		}
		id := instanceID(base, start)
		if inst.RecurrenceID != nil {
			id = instanceID(base, *inst.RecurrenceID)
		}
		out = append(out, toEvent(inst, id, start, end, cfg.Location))
	}
	return out
}

func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, o := range overrides {
		if o.RecurrenceID != nil && o.RecurrenceID.Equal(start) {
			return o, true
		}
	}
	return ParsedEvent{}, false
}

func toEvent(p ParsedEvent, id string, start, end time.Time, loc *time.Location) model.Event {
	start, end = start.In(loc), end.In(loc)
	if p.AllDay {
		// Dates are floating; keep them on the same calendar days in loc.
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
		if !end.After(start) {
			end = start.AddDate(0, 0, 1)
		}
	}
	return model.Event{
		ID:          id,
		Title:       p.Summary,
		Description: p.Description,
		Color:       p.Color,
		Category:    category(p),
		Start:       start,
		End:         end,
		Source:      p.Source.ID,
	}
}

// category picks the first CATEGORIES entry naming a known category, then
// the source's category.
func category(p ParsedEvent) model.Category {
	for _, c := range p.Categories {
		if cat := model.Category(strings.ToLower(c)); cat.Valid() {
			return cat
		}
	}
	if p.Source.Category.Valid() {
		return p.Source.Category
	}
	return model.CategoryOther
}

func eventID(p ParsedEvent) string {
	return p.Source.ID + ":" + p.UID
}

func instanceID(p ParsedEvent, start time.Time) string {
	return eventID(p) + ":" + start.UTC().Format("20060102T150405Z")
}

// toWeekday maps an RRULE weekday (Monday first) onto time.Weekday.
func toWeekday(wd rrule.Weekday) time.Weekday {
	return time.Weekday((wd.Day() + 1) % 7)
}

// fromWeekday is the inverse of toWeekday.
func fromWeekday(d time.Weekday) rrule.Weekday {
	return [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}[d]
}
