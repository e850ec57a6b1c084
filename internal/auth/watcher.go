package auth

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounceInterval batches rapid rewrites of the credentials file
// (save-then-rename sequences) into a single reload.
const watchDebounceInterval = 500 * time.Millisecond

// Watcher reloads the Authorizer when the credentials file changes on
// disk. A long-running tool server uses it to pick up tokens written
// by the interactive auth CLI without a restart.
type Watcher struct {
	authorizer *Authorizer
	path       string
	logger     *slog.Logger
}

// NewWatcher creates a watcher for the authorizer's credentials file.
func NewWatcher(a *Authorizer, logger *slog.Logger) *Watcher {
	return &Watcher{
		authorizer: a,
		path:       a.store.Path(),
		logger:     logger,
	}
}

// Watch blocks until the context is cancelled, reloading the token
// record whenever the credentials file is written or replaced. The
// parent directory is watched rather than the file itself so that
// atomic save-via-rename is still seen.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	w.logger.Info("credentials watcher started", slog.String("file", w.path))

	var pending bool

	ticker := time.NewTicker(watchDebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("fsnotify events channel closed unexpectedly")
			}

			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = true
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("fsnotify errors channel closed unexpectedly")
			}

			w.logger.Warn("credentials watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			if !pending {
				continue
			}

			pending = false

			if err := w.authorizer.Reload(); err != nil {
				w.logger.Warn("reloading credentials failed", slog.String("error", err.Error()))
				continue
			}

			w.logger.Info("credentials reloaded", slog.String("state", w.authorizer.State().String()))
		}
	}
}
