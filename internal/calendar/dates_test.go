package calendar

import (
	"testing"
	"time"
)

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.January, 31},
		{2024, time.February, 29},
		{2023, time.February, 28},
		{1900, time.February, 28},
		{2000, time.February, 29},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}
	for _, tt := range tests {
		if got := DaysInMonth(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysInMonth(%d, %s) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestFirstWeekdayOfMonth(t *testing.T) {
	if got := FirstWeekdayOfMonth(2024, time.February); got != time.Thursday {
		t.Errorf("Feb 2024 starts on %s, want Thursday", got)
	}
	if got := FirstWeekdayOfMonth(2024, time.September); got != time.Sunday {
		t.Errorf("Sep 2024 starts on %s, want Sunday", got)
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	if !SameDay(a, a.Add(23*time.Hour+59*time.Minute)) {
		t.Error("same calendar day reported as different")
	}
	if SameDay(a, a.Add(24*time.Hour)) {
		t.Error("next day reported as same")
	}

	// b's fields are read in a's location.
	plus9 := time.FixedZone("UTC+9", 9*60*60)
	b := time.Date(2024, 6, 10, 20, 0, 0, 0, time.UTC) // 2024-06-11 05:00 in UTC+9
	if !SameDay(a, b.In(plus9)) {
		t.Error("expected same day when compared in a's location")
	}
	if SameDay(a.In(plus9), b) {
		t.Error("expected different day when compared in UTC+9")
	}
}

func TestMakeInstant(t *testing.T) {
	got := MakeInstant(2024, time.March, 5, 14, 30, time.UTC)
	want := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("MakeInstant = %v, want %v", got, want)
	}
	if MakeInstant(2024, time.March, 5, 0, 0, nil).Location() != time.Local {
		t.Fatal("nil location should default to time.Local")
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		year      int
		month     time.Month
		n         int
		wantYear  int
		wantMonth time.Month
	}{
		{2024, time.December, 1, 2025, time.January},
		{2024, time.January, -1, 2023, time.December},
		{2024, time.March, 14, 2025, time.May},
		{2024, time.June, 0, 2024, time.June},
	}
	for _, tt := range tests {
		y, m := AddMonths(tt.year, tt.month, tt.n)
		if y != tt.wantYear || m != tt.wantMonth {
			t.Errorf("AddMonths(%d, %s, %d) = %d %s, want %d %s", tt.year, tt.month, tt.n, y, m, tt.wantYear, tt.wantMonth)
		}
	}
}

func TestFloorMod(t *testing.T) {
	tests := []struct{ n, m, want int }{
		{7, 3, 1},
		{-1, 3, 2},
		{-3, 3, 0},
		{-8, 7, 6},
		{0, 5, 0},
	}
	for _, tt := range tests {
		if got := floorMod(tt.n, tt.m); got != tt.want {
			t.Errorf("floorMod(%d, %d) = %d, want %d", tt.n, tt.m, got, tt.want)
		}
	}
}

func TestDaysBetweenIgnoresClockTime(t *testing.T) {
	a := time.Date(2024, 6, 3, 23, 0, 0, 0, time.UTC)
	b := time.Date(2024, 6, 5, 1, 0, 0, 0, time.UTC)
	if got := daysBetween(a, b); got != 2 {
		t.Fatalf("daysBetween = %d, want 2", got)
	}
	if got := daysBetween(b, a); got != -2 {
		t.Fatalf("daysBetween reversed = %d, want -2", got)
	}
}
