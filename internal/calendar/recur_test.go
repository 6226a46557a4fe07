package calendar

import (
	"testing"
	"time"
	_ "time/tzdata"

	"monthcal/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hour, min int) time.Time {
	return time.Date(y, m, d, hour, min, 0, 0, time.UTC)
}

func oneOff(id string, start, end time.Time) model.Event {
	return model.Event{ID: id, Title: id, Category: model.CategoryWork, Start: start, End: end}
}

func series(id string, start, end time.Time, r model.Recurrence) model.Event {
	ev := oneOff(id, start, end)
	ev.Recurrence = &r
	return ev
}

func TestOccursOn_NonRecurring(t *testing.T) {
	ev := oneOff("a", at(2024, 6, 10, 9, 0), at(2024, 6, 10, 10, 0))

	for d := day(2024, 5, 20); d.Before(day(2024, 7, 10)); d = d.AddDate(0, 0, 1) {
		want := d.Equal(day(2024, 6, 10))
		if got := OccursOn(ev, d); got != want {
			t.Errorf("OccursOn(%s) = %t, want %t", d.Format("2006-01-02"), got, want)
		}
	}
	if !OccursOn(ev, at(2024, 6, 10, 23, 59)) {
		t.Error("late clock time on the same day should still match")
	}
}

func TestOccursOn_DailyPeriodicity(t *testing.T) {
	anchor := at(2024, 6, 10, 9, 0)
	for _, k := range []int{1, 2, 3, 7} {
		ev := series("d", anchor, anchor.Add(time.Hour), model.Recurrence{Rule: model.Daily{Interval: k}})
		for off := -10; off <= 40; off++ {
			d := day(2024, 6, 10).AddDate(0, 0, off)
			want := off >= 0 && off%k == 0
			if got := OccursOn(ev, d); got != want {
				t.Errorf("k=%d offset=%d: got %t, want %t", k, off, got, want)
			}
		}
	}
}

func TestOccursOn_CustomMatchesDaily(t *testing.T) {
	anchor := at(2024, 1, 1, 8, 0)
	daily := series("d", anchor, anchor.Add(time.Hour), model.Recurrence{Rule: model.Daily{Interval: 4}})
	custom := series("c", anchor, anchor.Add(time.Hour), model.Recurrence{Rule: model.Custom{Interval: 4}})

	for d := day(2023, 12, 1); d.Before(day(2024, 4, 1)); d = d.AddDate(0, 0, 1) {
		if OccursOn(daily, d) != OccursOn(custom, d) {
			t.Fatalf("custom and daily disagree on %s", d.Format("2006-01-02"))
		}
	}
}

func TestOccursOn_WeeklyDaySet(t *testing.T) {
	anchor := at(2024, 6, 3, 9, 0) // Monday
	ev := series("w", anchor, anchor.Add(time.Hour), model.Recurrence{
		Rule: model.Weekly{Interval: 1, Days: []time.Weekday{time.Monday, time.Wednesday}},
	})

	count := 0
	for i := 0; i < 14; i++ {
		if OccursOn(ev, day(2024, 6, 3).AddDate(0, 0, i)) {
			count++
		}
	}
	if count != 4 {
		t.Fatalf("got %d occurrences in 14 days, want 4", count)
	}
	if OccursOn(ev, day(2024, 6, 4)) {
		t.Error("Tuesday is not in the day set")
	}
}

func TestOccursOn_WeeklyInterval(t *testing.T) {
	anchor := at(2024, 6, 3, 9, 0) // Monday
	ev := series("w", anchor, anchor.Add(time.Hour), model.Recurrence{
		Rule: model.Weekly{Interval: 2, Days: []time.Weekday{time.Monday}},
	})

	tests := []struct {
		date time.Time
		want bool
	}{
		{day(2024, 6, 3), true},
		{day(2024, 6, 10), false},
		{day(2024, 6, 17), true},
		{day(2024, 6, 24), false},
		{day(2024, 7, 1), true},
		{day(2024, 5, 27), false},
	}
	for _, tt := range tests {
		if got := OccursOn(ev, tt.date); got != tt.want {
			t.Errorf("%s: got %t, want %t", tt.date.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestOccursOn_WeeklyEmptyDaySetNeverOccurs(t *testing.T) {
	anchor := at(2024, 6, 3, 9, 0)
	ev := series("w", anchor, anchor.Add(time.Hour), model.Recurrence{Rule: model.Weekly{Interval: 1}})
	for i := 0; i < 21; i++ {
		if OccursOn(ev, day(2024, 6, 3).AddDate(0, 0, i)) {
			t.Fatal("weekly rule without days should never occur")
		}
	}
}

func TestOccursOn_MonthlyAnchor(t *testing.T) {
	anchor := at(2024, 1, 15, 9, 0)
	ev := series("m", anchor, anchor.Add(time.Hour), model.Recurrence{
		Rule: model.Monthly{Interval: 1, DayOfMonth: 15},
	})

	tests := []struct {
		date time.Time
		want bool
	}{
		{day(2024, 1, 15), true},
		{day(2024, 2, 15), true},
		{day(2024, 3, 15), true},
		{day(2024, 12, 15), true},
		{day(2025, 1, 15), true},
		{day(2024, 2, 14), false},
		{day(2024, 2, 16), false},
		{day(2023, 12, 15), false},
	}
	for _, tt := range tests {
		if got := OccursOn(ev, tt.date); got != tt.want {
			t.Errorf("%s: got %t, want %t", tt.date.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestOccursOn_MonthlyDefaultsToAnchorDay(t *testing.T) {
	anchor := at(2024, 1, 31, 9, 0)
	ev := series("m", anchor, anchor.Add(time.Hour), model.Recurrence{Rule: model.Monthly{Interval: 1}})

	if !OccursOn(ev, day(2024, 3, 31)) {
		t.Error("expected occurrence on Mar 31")
	}
	for d := day(2024, 2, 1); d.Month() == time.February; d = d.AddDate(0, 0, 1) {
		if OccursOn(ev, d) {
			t.Errorf("unexpected occurrence on %s", d.Format("2006-01-02"))
		}
	}
}

func TestOccursOn_MonthlyInterval(t *testing.T) {
	anchor := at(2024, 11, 15, 9, 0)
	ev := series("m", anchor, anchor.Add(time.Hour), model.Recurrence{
		Rule: model.Monthly{Interval: 2, DayOfMonth: 15},
	})
	if OccursOn(ev, day(2024, 12, 15)) {
		t.Error("Dec 15 is an odd month offset")
	}
	if !OccursOn(ev, day(2025, 1, 15)) {
		t.Error("expected occurrence across the year boundary")
	}
}

func TestOccursOn_Until(t *testing.T) {
	anchor := at(2024, 6, 1, 9, 0)
	until := day(2024, 6, 10)
	ev := series("d", anchor, anchor.Add(time.Hour), model.Recurrence{
		Rule:  model.Daily{Interval: 1},
		Until: &until,
	})
	if !OccursOn(ev, at(2024, 6, 10, 12, 0)) {
		t.Error("the Until day itself is included")
	}
	if OccursOn(ev, day(2024, 6, 11)) {
		t.Error("days after Until are excluded")
	}
}

func TestOccursOn_UntilIsACalendarDay(t *testing.T) {
	anchor := at(2024, 6, 1, 9, 0)
	until := at(2024, 6, 10, 8, 0)
	ev := series("d", anchor, anchor.Add(time.Hour), model.Recurrence{Rule: model.Daily{Interval: 1}, Until: &until})
	if !OccursOn(ev, day(2024, 6, 10)) {
		t.Error("the Until day itself is included whatever its clock time")
	}
	if OccursOn(ev, day(2024, 6, 11)) {
		t.Error("days after the Until day are excluded")
	}
}

func TestOccursOn_Count(t *testing.T) {
	t.Run("daily", func(t *testing.T) {
		anchor := at(2024, 6, 1, 9, 0)
		ev := series("d", anchor, anchor.Add(time.Hour), model.Recurrence{Rule: model.Daily{Interval: 2}, Count: 3})
		got := Occurrences(ev, day(2024, 5, 1), day(2024, 7, 1))
		if len(got) != 3 || !got[2].Equal(day(2024, 6, 5)) {
			t.Fatalf("got %v, want Jun 1, 3, 5", got)
		}
	})

	t.Run("weekly", func(t *testing.T) {
		anchor := at(2024, 6, 5, 9, 0) // Wednesday
		ev := series("w", anchor, anchor.Add(time.Hour), model.Recurrence{
			Rule:  model.Weekly{Interval: 1, Days: []time.Weekday{time.Monday, time.Wednesday}},
			Count: 3,
		})
		want := map[time.Time]bool{
			day(2024, 6, 5):  true,
			day(2024, 6, 10): true,
			day(2024, 6, 12): true,
			day(2024, 6, 17): false,
			day(2024, 6, 19): false,
		}
		for d, w := range want {
			if got := OccursOn(ev, d); got != w {
				t.Errorf("%s: got %t, want %t", d.Format("2006-01-02"), got, w)
			}
		}
	})

	t.Run("monthly skips short months", func(t *testing.T) {
		anchor := at(2024, 1, 31, 9, 0)
		ev := series("m", anchor, anchor.Add(time.Hour), model.Recurrence{Rule: model.Monthly{Interval: 1}, Count: 2})
		if !OccursOn(ev, day(2024, 3, 31)) {
			t.Error("Mar 31 is the second occurrence")
		}
		if OccursOn(ev, day(2024, 5, 31)) {
			t.Error("May 31 is the third occurrence")
		}
		if OccursOn(ev, day(9999, 12, 31)) {
			t.Error("far future is past the count")
		}
	})

	t.Run("monthly day before anchor day", func(t *testing.T) {
		anchor := at(2024, 1, 20, 9, 0)
		ev := series("m", anchor, anchor.Add(time.Hour), model.Recurrence{
			Rule:  model.Monthly{Interval: 1, DayOfMonth: 10},
			Count: 2,
		})
		got := Occurrences(ev, day(2024, 1, 1), day(2024, 6, 30))
		if len(got) != 2 || !got[0].Equal(day(2024, 2, 10)) || !got[1].Equal(day(2024, 3, 10)) {
			t.Fatalf("got %v, want Feb 10 and Mar 10", got)
		}
	})

	t.Run("monthly interval", func(t *testing.T) {
		anchor := at(2024, 1, 15, 9, 0)
		ev := series("m", anchor, anchor.Add(time.Hour), model.Recurrence{
			Rule:  model.Monthly{Interval: 2, DayOfMonth: 15},
			Count: 3,
		})
		want := map[time.Time]bool{
			day(2024, 1, 15): true,
			day(2024, 3, 15): true,
			day(2024, 5, 15): true,
			day(2024, 7, 15): false,
		}
		for d, w := range want {
			if got := OccursOn(ev, d); got != w {
				t.Errorf("%s: got %t, want %t", d.Format("2006-01-02"), got, w)
			}
		}
	})
}

func TestOccursOn_DegenerateRules(t *testing.T) {
	anchor := at(2024, 6, 1, 9, 0)
	tests := []struct {
		name string
		r    model.Recurrence
	}{
		{"zero interval", model.Recurrence{Rule: model.Daily{Interval: 0}}},
		{"negative interval", model.Recurrence{Rule: model.Monthly{Interval: -1}}},
		{"missing rule", model.Recurrence{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := series("x", anchor, anchor.Add(time.Hour), tt.r)
			if OccursOn(ev, day(2024, 6, 1)) {
				t.Fatal("degenerate rule should never occur")
			}
		})
	}
}

func TestOccursOn_AcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	anchor := time.Date(2024, 3, 9, 9, 0, 0, 0, ny)
	ev := series("d", anchor, anchor.Add(time.Hour), model.Recurrence{Rule: model.Daily{Interval: 2}})

	if OccursOn(ev, time.Date(2024, 3, 10, 0, 0, 0, 0, ny)) {
		t.Error("Mar 10 is one day after the anchor")
	}
	if !OccursOn(ev, time.Date(2024, 3, 11, 0, 0, 0, 0, ny)) {
		t.Error("Mar 11 is two days after the anchor despite the 23h day")
	}
}
