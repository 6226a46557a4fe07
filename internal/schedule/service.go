// Package schedule is the state layer around the calendar core: it owns the
// event set, gates every write on the conflict check and turns a conflict
// into a user-facing rejection.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"monthcal/internal/calendar"
	"monthcal/internal/clock"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/store"
)

var (
	// ErrNotFound is returned when an operation names an unknown event.
	ErrNotFound = store.ErrNotFound
	// ErrExists is returned when adding an event whose ID is taken.
	ErrExists = errors.New("event already exists")
	// ErrConflict is matched by every *ConflictError.
	ErrConflict = errors.New("event conflict")
)

// ConflictError reports a rejected write together with the event it
// collided with.
type ConflictError struct {
	Op   string
	With model.Event
}

func (e *ConflictError) Error() string {
	switch e.Op {
	case "update":
		return "This update conflicts with an existing event. Please choose a different time."
	case "move":
		return "This move would conflict with an existing event."
	default:
		return "This event conflicts with an existing event. Please choose a different time."
	}
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Repository is the persistence the service needs. *store.Store satisfies
// it.
type Repository interface {
	List(ctx context.Context) ([]model.Event, error)
	Get(ctx context.Context, id string) (model.Event, error)
	Put(ctx context.Context, ev model.Event) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	ReplaceAll(ctx context.Context, events []model.Event) error
}

// Service implements event CRUD, moves, filtering, month expansion and
// import/export on top of a Repository.
type Service struct {
	repo  Repository
	clock clock.Clock
	loc   *time.Location
	newID func() string

	// mu serializes check-then-write sequences.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the calendar time zone whose days drive recurrence,
// conflicts and the month grid. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithIDGenerator overrides how new event IDs are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService wires a Service.
func NewService(repo Repository, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		clock: clk,
		loc:   time.Local,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the calendar time zone in use.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Add stores ev unless it conflicts with an existing event. An empty ID is
// filled in.
func (s *Service) Add(ctx context.Context, ev model.Event) (model.Event, error) {
	if ev.ID == "" {
		ev.ID = s.newID()
	}
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}
	ev = ev.In(s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.all(ctx)
	if err != nil {
		return model.Event{}, err
	}
	for _, existing := range all {
		if existing.ID == ev.ID {
			return model.Event{}, fmt.Errorf("%w: %s", ErrExists, ev.ID)
		}
	}
	if with, ok := calendar.FirstConflict(ev, all, ""); ok {
		appLog.Info("event rejected", "op", "add", "id", ev.ID, "conflicts_with", with.ID)
		return model.Event{}, &ConflictError{Op: "add", With: with}
	}

	if err := s.repo.Put(ctx, ev); err != nil {
		return model.Event{}, err
	}
	appLog.Info("event added", "id", ev.ID, "category", ev.Category, "recurring", ev.IsRecurring())
	return ev, nil
}

// Update replaces the stored event with the same ID. The event's own prior
// state never counts as a conflict.
func (s *Service) Update(ctx context.Context, ev model.Event) (model.Event, error) {
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}
	ev = ev.In(s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.repo.Get(ctx, ev.ID)
	if err != nil {
		return model.Event{}, err
	}
	ev.Source = prev.Source

	all, err := s.all(ctx)
	if err != nil {
		return model.Event{}, err
	}
	if with, ok := calendar.FirstConflict(ev, all, ev.ID); ok {
		appLog.Info("event rejected", "op", "update", "id", ev.ID, "conflicts_with", with.ID)
		return model.Event{}, &ConflictError{Op: "update", With: with}
	}

	if err := s.repo.Put(ctx, ev); err != nil {
		return model.Event{}, err
	}
	appLog.Info("event updated", "id", ev.ID)
	return ev, nil
}

// Delete removes the event with the given ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	appLog.Info("event deleted", "id", id)
	return nil
}

// Move reschedules an event onto the calendar day of date, keeping its
// clock time and duration.
//
// For a recurring event, entireSeries re-anchors the whole series on the
// new day. Otherwise the moved instance is detached: it becomes a new
// one-off event with a fresh ID and the series itself is left unchanged.
func (s *Service) Move(ctx context.Context, id string, date time.Time, entireSeries bool) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.all(ctx)
	if err != nil {
		return model.Event{}, err
	}
	var (
		orig  model.Event
		found bool
	)
	for _, ev := range all {
		if ev.ID == id {
			orig, found = ev, true
			break
		}
	}
	if !found {
		return model.Event{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	d := date.In(s.loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), orig.Start.Hour(), orig.Start.Minute(), orig.Start.Second(), 0, s.loc)

	moved := orig
	moved.Start = start
	moved.End = start.Add(orig.Duration())

	detach := orig.IsRecurring() && !entireSeries
	if detach {
		moved.ID = s.newID()
		moved.Recurrence = nil
		moved.Source = ""
	}

	if with, ok := calendar.FirstConflict(moved, all, orig.ID); ok {
		appLog.Info("event rejected", "op", "move", "id", id, "conflicts_with", with.ID)
		return model.Event{}, &ConflictError{Op: "move", With: with}
	}

	if err := s.repo.Put(ctx, moved); err != nil {
		return model.Event{}, err
	}
	appLog.Info("event moved", "id", id, "new_id", moved.ID, "start", moved.Start.Format(time.RFC3339), "detached", detach)
	return moved, nil
}

// Events returns the stored events that match f, in calendar time.
func (s *Service) Events(ctx context.Context, f Filter) ([]model.Event, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(all), nil
}

// Month expands the filtered event set into the 42-cell grid for month.
func (s *Service) Month(ctx context.Context, year int, month time.Month, f Filter) ([]calendar.Day, error) {
	events, err := s.Events(ctx, f)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().In(s.loc)
	return calendar.MonthGrid(year, month, events, now), nil
}

// Today returns the current year and month in calendar time.
func (s *Service) Today() (int, time.Month) {
	now := s.clock.Now().In(s.loc)
	return now.Year(), now.Month()
}

// Conflicts reports whether ev would conflict with the stored events,
// ignoring the event with excludeID.
func (s *Service) Conflicts(ctx context.Context, ev model.Event, excludeID string) (bool, error) {
	all, err := s.all(ctx)
	if err != nil {
		return false, err
	}
	return calendar.HasConflict(ev.In(s.loc), all, excludeID), nil
}

// Clear deletes every event.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Clear(ctx); err != nil {
		return err
	}
	appLog.Info("all events cleared")
	return nil
}

// Export renders every stored event as a JSON document.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return model.EncodeEvents(all)
}

// Import replaces the whole event set with the events in data. The
// document is validated as a whole before anything is written.
func (s *Service) Import(ctx context.Context, data []byte) (int, error) {
	events, err := model.DecodeEvents(data)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.ReplaceAll(ctx, events); err != nil {
		return 0, err
	}
	appLog.Info("events imported", "count", len(events))
	return len(events), nil
}

// all loads every event in calendar time.
func (s *Service) all(ctx context.Context) ([]model.Event, error) {
	events, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i] = events[i].In(s.loc)
	}
	return events, nil
}
