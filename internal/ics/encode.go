package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"monthcal/internal/model"
)

// Encode renders events as an iCalendar document. Recurring events carry
// an RRULE equivalent to their native rule.
func Encode(events []model.Event, now time.Time) []byte {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//monthcal//EN")

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(now)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Color != "" {
			ve.SetProperty("COLOR", ev.Color)
		}
		ve.SetProperty("CATEGORIES", string(ev.Category))
		if ev.Recurrence != nil {
			if rule, ok := RRule(*ev.Recurrence, ev.Start); ok {
				ve.AddProperty(ical.ComponentPropertyRrule, rule)
			}
		}
	}
	return []byte(cal.Serialize())
}

// RRule renders a native recurrence as an RRULE value for a series
// anchored at start.
func RRule(r model.Recurrence, start time.Time) (string, bool) {
	if r.Rule == nil || r.Rule.Step() < 1 {
		return "", false
	}
	opt := rrule.ROption{
		Interval: r.Rule.Step(),
		Count:    r.Count,
	}
	switch rule := r.Rule.(type) {
	case model.Daily, model.Custom:
		opt.Freq = rrule.DAILY
	case model.Weekly:
		opt.Freq = rrule.WEEKLY
		// Native weeks start on the anchor's weekday.
		opt.Wkst = fromWeekday(start.Weekday())
		for _, d := range rule.Days {
			opt.Byweekday = append(opt.Byweekday, fromWeekday(d))
		}
	case model.Monthly:
		opt.Freq = rrule.MONTHLY
		dom := rule.DayOfMonth
		if dom == 0 {
			dom = start.Day()
		}
		opt.Bymonthday = []int{dom}
	default:
		return "", false
	}
	if r.Until != nil {
		// Native Until includes the whole day.
		u := r.Until.In(start.Location())
		opt.Until = time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 0, u.Location()).UTC()
	}
	return opt.RRuleString(), true
}
