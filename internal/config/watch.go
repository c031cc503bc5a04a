package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file when it changes on disk and hands the
// new config to a callback. Used for live logging reconfiguration.
type Watcher struct {
	path     string
	onChange func(*Config)
	logger   *slog.Logger
	debounce time.Duration
}

// NewWatcher creates a config file watcher. onChange runs with the
// freshly loaded config after each change; invalid configs are logged
// and skipped.
func NewWatcher(path string, onChange func(*Config), logger *slog.Logger) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		logger:   logger.With(slog.String("component", "config-watcher")),
		debounce: 500 * time.Millisecond,
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start blocks until ctx is canceled. The parent directory is watched
// rather than the file itself so editors that replace the file on save
// keep triggering reloads.
func (w *Watcher) Start(ctx context.Context) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("fsnotify unavailable, config reload disabled", "error", err)
		return
	}
	defer fw.Close() //nolint:errcheck

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		w.logger.Warn("cannot watch config directory", "dir", dir, "error", err)
		return
	}

	w.logger.Info("watching config file", "path", w.path)

	// Debounce timer coalesces the event bursts editors produce on save.
	// Starts stopped; reset on each relevant event.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	reloadPending := false

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopping")
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(w.debounce)
			reloadPending = true

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("fsnotify error", "error", err)

		case <-debounceTimer.C:
			if !reloadPending {
				continue
			}
			reloadPending = false
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Error("config reload failed, keeping previous config", "error", err)
				continue
			}
			w.logger.Info("config reloaded", "path", w.path)
			w.onChange(cfg)
		}
	}
}
