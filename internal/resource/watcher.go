package resource

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of editor writes into one reload.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a Catalog when YAML files in its override directory change.
type Watcher struct {
	catalog  *Catalog
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher starts watching the catalog's override directory.
func NewWatcher(c *Catalog, logger *slog.Logger, debounce time.Duration) (*Watcher, error) {
	if c.Dir() == "" {
		return nil, fmt.Errorf("watcher: catalog has no override directory")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: create: %w", err)
	}
	if err := fw.Add(c.Dir()); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watcher: add %s: %w", c.Dir(), err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		catalog:  c,
		watcher:  fw,
		logger:   logger.With("component", "catalog_watcher"),
		debounce: debounce,
	}, nil
}

// Run processes file events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info("watching seed directory", "dir", w.catalog.Dir())
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("seed file changed", "path", event.Name, "op", event.Op.String())
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("seed watcher error", "err", err)
		}
	}
}

// Close stops watching and cancels any pending reload.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	if err := w.catalog.Reload(); err != nil {
		w.logger.Error("seed reload failed; keeping previous collections", "err", err)
		return
	}
	w.logger.Info("seed collections reloaded", "dir", w.catalog.Dir())
}

func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return slices.Contains(seedExtensions, filepath.Ext(event.Name))
}
