package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn with the new configuration every time the file at path is
// written or replaced, until ctx is canceled. A file that fails to load is
// logged and skipped; fn keeps the last good configuration.
//
// The directory is watched rather than the file so that editors replacing
// the file by rename are noticed.
func Watch(ctx context.Context, path string, logger *slog.Logger, fn func(*Config)) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config: watch %q: %w", path, err)
	}

	logger = logger.With("path", path)
	logger.Debug("watching configuration file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			c, err := Load(path)
			if err != nil {
				logger.Warn("ignoring invalid configuration",
					"error", err,
				)
				continue
			}

			logger.Info("configuration reloaded")
			fn(c)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("configuration watcher failed",
				"error", err,
			)
		}
	}
}
