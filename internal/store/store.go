// Package store persists calendar events in SQLite.
//
// Rows keep insertion order (rowid), which is the order the calendar core
// sees events in. Instants are stored as RFC 3339 UTC strings and the
// recurrence rule as its JSON wire form.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"monthcal/internal/model"
)

// ErrNotFound is returned when no event has the requested ID.
var ErrNotFound = errors.New("event not found")

// Store manages all SQLite operations with WAL mode for concurrent access.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and initializes the schema.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Each connection would get its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id          TEXT PRIMARY KEY,
		source      TEXT NOT NULL DEFAULT '',
		title       TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		color       TEXT NOT NULL DEFAULT '',
		category    TEXT NOT NULL,
		start_at    TEXT NOT NULL,
		end_at      TEXT NOT NULL,
		recurrence  TEXT,
		updated_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_source ON events(source);
	`
	_, err := s.db.Exec(schema)
	return err
}

const selectColumns = `SELECT id, source, title, description, color, category, start_at, end_at, recurrence FROM events`

// List returns every event in insertion order.
func (s *Store) List(ctx context.Context) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Get returns the event with the given ID or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (model.Event, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ev, err
}

// Put inserts ev or replaces the stored event with the same ID. A replaced
// event keeps its position.
func (s *Store) Put(ctx context.Context, ev model.Event) error {
	return withRetry(ctx, defaultRetryConfig, func() error {
		return upsert(ctx, s.db, ev)
	})
}

// Delete removes the event with the given ID or returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	return withRetry(ctx, defaultRetryConfig, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete event %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	})
}

// Clear removes every event.
func (s *Store) Clear(ctx context.Context) error {
	return withRetry(ctx, defaultRetryConfig, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM events`)
		return err
	})
}

// ReplaceAll atomically swaps the whole event set for events.
func (s *Store) ReplaceAll(ctx context.Context, events []model.Event) error {
	return withRetry(ctx, defaultRetryConfig, func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
				return err
			}
			for _, ev := range events {
				if err := upsert(ctx, tx, ev); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// ReplaceSource atomically swaps the events tagged with source for events.
// Every event's Source is set to source.
func (s *Store) ReplaceSource(ctx context.Context, source string, events []model.Event) error {
	if source == "" {
		return errors.New("replace source: empty source")
	}
	return withRetry(ctx, defaultRetryConfig, func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE source = ?`, source); err != nil {
				return err
			}
			for _, ev := range events {
				ev.Source = source
				if err := upsert(ctx, tx, ev); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, ev model.Event) error {
	var rec sql.NullString
	if ev.Recurrence != nil {
		b, err := model.MarshalRecurrence(*ev.Recurrence)
		if err != nil {
			return fmt.Errorf("encode recurrence for %s: %w", ev.ID, err)
		}
		rec = sql.NullString{String: string(b), Valid: true}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO events (id, source, title, description, color, category, start_at, end_at, recurrence, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			title = excluded.title,
			description = excluded.description,
			color = excluded.color,
			category = excluded.category,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			recurrence = excluded.recurrence,
			updated_at = excluded.updated_at`,
		ev.ID, ev.Source, ev.Title, ev.Description, ev.Color, string(ev.Category),
		formatTime(ev.Start), formatTime(ev.End), rec, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upsert event %s: %w", ev.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (model.Event, error) {
	var (
		ev               model.Event
		category         string
		startStr, endStr string
		rec              sql.NullString
	)
	if err := row.Scan(&ev.ID, &ev.Source, &ev.Title, &ev.Description, &ev.Color, &category, &startStr, &endStr, &rec); err != nil {
		return model.Event{}, err
	}
	ev.Category = model.Category(category)

	var err error
	if ev.Start, err = time.Parse(time.RFC3339Nano, startStr); err != nil {
		return model.Event{}, fmt.Errorf("parse start_at for event %s: %w", ev.ID, err)
	}
	if ev.End, err = time.Parse(time.RFC3339Nano, endStr); err != nil {
		return model.Event{}, fmt.Errorf("parse end_at for event %s: %w", ev.ID, err)
	}
	if rec.Valid {
		r, err := model.UnmarshalRecurrence([]byte(rec.String))
		if err != nil {
			return model.Event{}, fmt.Errorf("decode recurrence for event %s: %w", ev.ID, err)
		}
		ev.Recurrence = &r
	}
	return ev, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
