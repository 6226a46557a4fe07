package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"monthcal/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "events.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testEvent(id string, start time.Time) model.Event {
	return model.Event{
		ID:          id,
		Title:       "title " + id,
		Description: "desc",
		Color:       "#3b82f6",
		Category:    model.CategoryMeeting,
		Start:       start,
		End:         start.Add(time.Hour),
	}
}

func TestPutGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	until := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	ev := testEvent("a", time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC))
	ev.Recurrence = &model.Recurrence{
		Rule:  model.Weekly{Interval: 2, Days: []time.Weekday{time.Monday, time.Friday}},
		Until: &until,
		Count: 10,
	}
	if err := s.Put(ctx, ev); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != ev.Title || got.Category != ev.Category || got.Color != ev.Color {
		t.Fatalf("fields lost: %+v", got)
	}
	if !got.Start.Equal(ev.Start) || !got.End.Equal(ev.End) {
		t.Fatalf("times lost: %v - %v", got.Start, got.End)
	}
	if got.Recurrence == nil {
		t.Fatal("recurrence lost")
	}
	w, ok := got.Recurrence.Rule.(model.Weekly)
	if !ok || w.Interval != 2 || len(w.Days) != 2 || w.Days[1] != time.Friday {
		t.Fatalf("weekly rule = %#v", got.Recurrence.Rule)
	}
	if got.Recurrence.Until == nil || !got.Recurrence.Until.Equal(until) || got.Recurrence.Count != 10 {
		t.Fatalf("bounds lost: %+v", got.Recurrence)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPutUpdatesInPlace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, testEvent(id, start)); err != nil {
			t.Fatal(err)
		}
	}
	updated := testEvent("a", start.Add(48*time.Hour))
	updated.Title = "moved"
	if err := s.Put(ctx, updated); err != nil {
		t.Fatal(err)
	}

	events, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 || events[0].ID != "a" || events[0].Title != "moved" {
		t.Fatalf("update should keep position: %+v", events)
	}
	if events[0].Recurrence != nil {
		t.Fatal("one-off event grew a recurrence")
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Put(ctx, testEvent("a", time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete err = %v, want ErrNotFound", err)
	}
}

func TestReplaceAllAndClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	if err := s.Put(ctx, testEvent("old", start)); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceAll(ctx, []model.Event{testEvent("x", start), testEvent("y", start)}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	events, _ := s.List(ctx)
	if len(events) != 2 || events[0].ID != "x" || events[1].ID != "y" {
		t.Fatalf("after ReplaceAll: %+v", events)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Fatalf("Count after Clear = %d", n)
	}
}

func TestReplaceSourceLeavesOtherEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	if err := s.Put(ctx, testEvent("local", start)); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceSource(ctx, "feed", []model.Event{testEvent("feed:1", start), testEvent("feed:2", start)}); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceSource(ctx, "feed", []model.Event{testEvent("feed:3", start)}); err != nil {
		t.Fatal(err)
	}

	events, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want local + feed:3", len(events))
	}
	if events[0].ID != "local" || events[0].Source != "" {
		t.Fatalf("local event changed: %+v", events[0])
	}
	if events[1].ID != "feed:3" || events[1].Source != "feed" {
		t.Fatalf("feed event = %+v", events[1])
	}

	if err := s.ReplaceSource(ctx, "", nil); err == nil {
		t.Fatal("empty source should be rejected")
	}
}
