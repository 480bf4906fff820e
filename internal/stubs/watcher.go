package stubs

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-runs the merge whenever stub files in the watched directory
// change, coalescing bursts of writes behind a debounce interval.
type Watcher struct {
	mergeFn  func(ctx context.Context) error
	logger   *slog.Logger
	debounce time.Duration
}

// NewWatcher creates a stub-directory watcher. mergeFn runs after the
// debounce interval elapses with no further events.
func NewWatcher(mergeFn func(ctx context.Context) error, logger *slog.Logger) *Watcher {
	return &Watcher{
		mergeFn:  mergeFn,
		logger:   logger.With("component", "stub-watcher"),
		debounce: 2 * time.Second,
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start blocks until ctx is canceled, watching dir for .txt changes.
func (w *Watcher) Start(ctx context.Context, dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close() //nolint:errcheck

	if err := fw.Add(dir); err != nil {
		return err
	}
	w.logger.Info("watching stubs directory", slog.String("dir", dir))

	// Starts stopped; reset on each relevant event.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	mergePending := false

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stub watcher stopping")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".txt") {
				continue
			}
			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(w.debounce)
			mergePending = true

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fsnotify error", slog.String("error", err.Error()))

		case <-debounceTimer.C:
			if mergePending {
				mergePending = false
				w.logger.Info("stub changes settled, running merge")
				if err := w.mergeFn(ctx); err != nil {
					w.logger.Error("stub merge failed", slog.String("error", err.Error()))
				}
			}
		}
	}
}
