package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events editors produce on save
// (truncate + write + chmod, or write-temp + rename).
const reloadDebounce = 250 * time.Millisecond

// Reload re-reads the holder's config file and swaps it in. On failure the
// current config stays in place and the error is returned for logging.
func Reload(h *Holder, logger *slog.Logger) error {
	cfg, err := LoadOrDefault(h.Path(), logger)
	if err != nil {
		return fmt.Errorf("reloading %s: %w", h.Path(), err)
	}

	ApplyOverrides(cfg, ReadEnvOverrides(), h.Overrides())
	h.Update(cfg)

	return nil
}

// Watch reloads the holder whenever its config file changes on disk. The
// parent directory is watched rather than the file itself, so atomic
// rename-into-place saves and first-time creation are both seen. Returns nil
// when ctx is canceled.
//
// onReload, when non-nil, runs after every successful reload.
func Watch(ctx context.Context, h *Holder, logger *slog.Logger, onReload func(*Config)) error {
	path := h.Path()
	if path == "" {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: creating config dir %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watching %s: %w", dir, err)
	}

	logger.Debug("watching config file", slog.String("path", path))

	// Stopped timer; armed by the first relevant event.
	debounce := time.NewTimer(reloadDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}

			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}

			debounce.Reset(reloadDebounce)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("config watcher error", slog.String("error", watchErr.Error()))

		case <-debounce.C:
			if err := Reload(h, logger); err != nil {
				logger.Warn("config reload failed, keeping current config",
					slog.String("error", err.Error()),
				)

				continue
			}

			logger.Info("config reloaded", slog.String("path", path))

			if onReload != nil {
				onReload(h.Config())
			}
		}
	}
}
