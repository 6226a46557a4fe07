package calendar

import (
	"time"

	"monthcal/internal/model"
)

// GridCells is the fixed size of a month grid: six full weeks.
const GridCells = 42

// Day is one cell of a month grid. It is derived on every call and never
// stored.
type Day struct {
	Date           time.Time
	IsCurrentMonth bool
	IsToday        bool
	Events         []model.Event
}

// MonthGrid returns the 42 cells for month, starting on the Sunday on or
// before the 1st. Leading cells come from the previous month's tail and
// trailing cells from the next month's head. Cell dates are midnights in
// now's location and IsToday compares against now.
//
// Each cell scans the whole event list, so the cost is 42 x len(events).
func MonthGrid(year int, month time.Month, events []model.Event, now time.Time) []Day {
	loc := now.Location()
	leading := int(FirstWeekdayOfMonth(year, month))
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)

	cells := make([]Day, 0, GridCells)
	for i := 0; i < GridCells; i++ {
		date := first.AddDate(0, 0, i-leading)
		cells = append(cells, Day{
			Date:           date,
			IsCurrentMonth: date.Year() == year && date.Month() == month,
			IsToday:        SameDay(date, now),
			Events:         EventsOn(date, events),
		})
	}
	return cells
}

// SpillOver returns the number of leading and trailing cells that belong to
// the neighbouring months.
func SpillOver(year int, month time.Month) (leading, trailing int) {
	leading = int(FirstWeekdayOfMonth(year, month))
	trailing = GridCells - DaysInMonth(year, month) - leading
	return leading, trailing
}

// EventsOn filters events down to those occurring on date, preserving
// order.
func EventsOn(date time.Time, events []model.Event) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range events {
		if OccursOn(ev, date) {
			out = append(out, ev)
		}
	}
	return out
}
