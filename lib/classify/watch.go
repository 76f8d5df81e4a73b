package classify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"media-classify/lib"
)

const DefaultDebounce = 2 * time.Second

// Watcher runs a batch, then another one each time new media settles in the
// directory tree. Batches run one at a time on the caller's goroutine.
type Watcher struct {
	app      *App
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
	batches  func(*Stats)
}

func NewWatcher(app *App, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		app:      app,
		debounce: debounce,
		logger:   slog.Default().With("component", "watcher"),
	}
}

// OnBatch registers a callback invoked with the stats of every batch.
func (w *Watcher) OnBatch(fn func(*Stats)) {
	w.batches = fn
}

// Run blocks until ctx is cancelled or a batch fails on configuration.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.app.init(); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()
	w.fsw = fsw

	if err := w.addTree(w.app.classifier.inputRoot); err != nil {
		return err
	}

	if err := w.batch(ctx); err != nil {
		return err
	}

	// Starts stopped; reset on each relevant event.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	scanPending := false

	w.logger.Info("Watching for new media", "dir", w.app.Settings.Directory, "debounce", w.debounce)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Watcher stopping")
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(ev) {
				if !debounceTimer.Stop() {
					select {
					case <-debounceTimer.C:
					default:
					}
				}
				debounceTimer.Reset(w.debounce)
				scanPending = true
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", "error", err)

		case <-debounceTimer.C:
			if !scanPending {
				continue
			}
			scanPending = false
			w.logger.Info("Changes settled, starting batch")
			if err := w.batch(ctx); err != nil {
				return err
			}
		}
	}
}

// batch runs one pass. Only configuration errors are returned.
func (w *Watcher) batch(ctx context.Context) error {
	stats, err := w.app.Run(ctx)
	if err != nil {
		var cfgErr *lib.ConfigError
		if errors.As(err, &cfgErr) {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		w.logger.Error("Batch failed", "error", err)
		return nil
	}
	if w.batches != nil {
		w.batches(stats)
	}
	return nil
}

// handleEvent reports whether ev should trigger a batch. New directories are
// watched as they appear.
func (w *Watcher) handleEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	if strings.HasPrefix(filepath.Base(ev.Name), lib.TempPrefix) || w.app.excluded(ev.Name) {
		return false
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("Failed to watch directory", "path", ev.Name, "error", err)
			}
			return true
		}
	}

	_, ok := lib.KindOf(ev.Name)
	if ok {
		w.logger.Debug("Media changed", "path", ev.Name, "op", ev.Op.String())
	}
	return ok
}

// addTree watches root and every directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("Error accessing path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.app.excluded(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		w.logger.Debug("Watching directory", "path", path)
		return nil
	})
}
