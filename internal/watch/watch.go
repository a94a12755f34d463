// Package watch rebuilds an output whenever its input file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sarex-dev/sarex-go/internal/logging"
)

// DefaultDebounce is the quiet period after the last event before a rebuild.
const DefaultDebounce = 2 * time.Second

// Func is called once per batch of changes to the watched file.
type Func func(ctx context.Context) error

// Watcher monitors a single file. The parent directory is watched so that
// editors that save by rename are still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	fs       *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a rebuild.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// New starts watching path.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	w := &Watcher{path: abs, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(w)
	}

	w.fs, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	if err := w.fs.Add(filepath.Dir(abs)); err != nil {
		w.fs.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Run calls fn after each batch of changes until ctx is cancelled. Errors
// from fn are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context, fn Func) error {
	logger := logging.FromContext(ctx).With("file", w.path)

	batchTimer := time.NewTimer(w.debounce)
	batchTimer.Stop() // Don't start yet
	defer batchTimer.Stop()

	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			logger.Debug("change detected", "op", event.Op.String())
			pending = true
			batchTimer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-batchTimer.C:
			if !pending {
				continue
			}
			pending = false

			if err := fn(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error("rebuild failed", "error", err)
			}
		}
	}
}
