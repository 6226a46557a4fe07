package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "monthcal/internal/log"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the config file at path whenever it is written or replaced
// and hands the new value to onChange. Rapid bursts of events are debounced.
// A file that fails to parse is logged and skipped. Watch blocks until ctx
// is done.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file via rename, which
	// drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return err
	}

	var timer *time.Timer
	reload := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != absPath {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			if _, err := os.Stat(absPath); err != nil {
				// Removed or mid-replace; a later Create triggers the reload.
				continue
			}
			cfg, err := Load(absPath)
			if err != nil {
				appLog.Error("config reload failed", err, "path", absPath)
				continue
			}
			appLog.Info("config reloaded", "path", absPath, "ics_count", len(cfg.ICS))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			appLog.Error("config watcher error", err, "path", absPath)
		}
	}
}
