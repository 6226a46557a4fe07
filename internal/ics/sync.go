package ics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"monthcal/internal/clock"
	"monthcal/internal/config"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

// SourceStore receives the converted events of one feed. *store.Store
// satisfies it.
type SourceStore interface {
	ReplaceSource(ctx context.Context, source string, events []model.Event) error
}

// SyncOptions tune a Syncer.
type SyncOptions struct {
	Location    *time.Location
	Horizon     time.Duration
	MaxPerEvent int
}

// Syncer mirrors the configured subscriptions into the store.
type Syncer struct {
	fetcher *Fetcher
	store   SourceStore
	clock   clock.Clock

	mu      sync.Mutex
	sources []Source
	opts    SyncOptions

	// running serializes Run.
	running sync.Mutex
}

// NewSyncer wires a Syncer. Sources are set with SetSources.
func NewSyncer(f *Fetcher, st SourceStore, clk clock.Clock, opts SyncOptions) *Syncer {
	return &Syncer{fetcher: f, store: st, clock: clk, opts: opts}
}

// SourcesFromConfig lists the subscriptions in cfg.
func SourcesFromConfig(cfg *config.Config) []Source {
	out := make([]Source, 0, len(cfg.ICS))
	for _, c := range cfg.ICS {
		if c.URL == "" {
			continue
		}
		out = append(out, Source{ID: c.ID, URL: c.URL, Name: c.Name, Category: c.Category})
	}
	return out
}

// OptionsFromConfig derives SyncOptions from cfg.
func OptionsFromConfig(cfg *config.Config) SyncOptions {
	return SyncOptions{
		Location:    cfg.Location(),
		Horizon:     time.Duration(cfg.HorizonDays) * 24 * time.Hour,
		MaxPerEvent: cfg.MaxExpansion,
	}
}

// SetSources replaces the subscription list and options used by the next
// Run. Safe for concurrent use.
func (s *Syncer) SetSources(sources []Source, opts SyncOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append([]Source(nil), sources...)
	s.opts = opts
}

// Run fetches every source and replaces its events in the store. A source
// that fails keeps the events of its last successful sync. The returned
// error joins the per-source failures.
func (s *Syncer) Run(ctx context.Context) error {
	s.running.Lock()
	defer s.running.Unlock()

	s.mu.Lock()
	sources := s.sources
	opts := s.opts
	s.mu.Unlock()

	if len(sources) == 0 {
		return nil
	}

	now := s.clock.Now()
	cfg := ConvertConfig{
		Location:    opts.Location,
		RangeStart:  now.Add(-opts.Horizon),
		RangeEnd:    now.Add(opts.Horizon),
		MaxPerEvent: opts.MaxPerEvent,
	}

	results, errs := s.fetcher.FetchAll(ctx, sources)
	total := 0
	for _, res := range results {
		n, err := s.apply(ctx, res, cfg)
		if err != nil {
			appLog.Error("ics sync failed", err, "id", res.Source.ID)
			errs = append(errs, fmt.Errorf("source %s: %w", res.Source.ID, err))
			continue
		}
		total += n
	}

	appLog.Info("ics sync completed", "sources", len(sources), "failed", len(errs), "events", total)
	return errors.Join(errs...)
}

func (s *Syncer) apply(ctx context.Context, res FetchResult, cfg ConvertConfig) (int, error) {
	parsed, err := ParseICS(res.Source, res.Body, cfg.Location)
	if err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}
	events, err := Convert(parsed, cfg)
	if err != nil {
		return 0, fmt.Errorf("convert: %w", err)
	}
	if err := s.store.ReplaceSource(ctx, res.Source.ID, events); err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}
	return len(events), nil
}
