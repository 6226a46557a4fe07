package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var fastRetry = retryConfig{maxRetries: 3, baseDelay: time.Millisecond, maxDelay: 4 * time.Millisecond}

func TestWithRetry_RecoversFromTransientErrors(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), fastRetry, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestWithRetry_PermanentErrorIsNotRetried(t *testing.T) {
	calls := 0
	perm := errors.New("UNIQUE constraint failed")
	err := withRetry(context.Background(), fastRetry, func() error {
		calls++
		return perm
	})
	if !errors.Is(err, perm) || calls != 1 {
		t.Fatalf("err = %v after %d calls; want the permanent error after 1 call", err, calls)
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), fastRetry, func() error {
		calls++
		return errors.New("SQLITE_LOCKED")
	})
	if err == nil || calls != fastRetry.maxRetries+1 {
		t.Fatalf("err = %v after %d calls", err, calls)
	}
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, retryConfig{maxRetries: 5, baseDelay: time.Second, maxDelay: time.Second}, func() error {
		return errors.New("SQLITE_BUSY")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBackoffIsCapped(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := backoff(fastRetry, attempt)
		if d > fastRetry.maxDelay+fastRetry.baseDelay {
			t.Fatalf("attempt %d: backoff %v exceeds cap", attempt, d)
		}
	}
}

func TestIsTransient_UsesDriverResultCode(t *testing.T) {
	s := newTestStore(t)

	_, err := s.db.Exec("INSERT INTO no_such_table VALUES (1)")
	if err == nil {
		t.Fatal("expected an error from the driver")
	}
	// An event ID that happens to contain a busy code must not make a
	// permanent failure look transient.
	wrapped := fmt.Errorf("upsert event %s: %w", "standup(5)(6)", err)
	if isTransient(wrapped) {
		t.Fatalf("isTransient(%v) = true, want false", wrapped)
	}

	calls := 0
	got := withRetry(context.Background(), fastRetry, func() error {
		calls++
		return wrapped
	})
	if !errors.Is(got, err) || calls != 1 {
		t.Fatalf("err = %v after %d calls; want the driver error after 1 call", got, calls)
	}
}

func TestIsTransient_TextFallback(t *testing.T) {
	if !isTransient(errors.New("database is locked")) {
		t.Error("plain lock message should be transient")
	}
	if isTransient(errors.New("upsert event retro(5): constraint failed")) {
		t.Error("bare result code in message text should not be transient")
	}
}
