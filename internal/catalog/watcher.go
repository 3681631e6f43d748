package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"northstar/internal/logging"
)

// Watcher reloads a catalog file when it changes on disk and hands each
// successfully parsed catalog to a callback. A file that fails to parse is
// logged and ignored; the previous catalog stays in effect.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	onReload    func(*Catalog)
	debounceDur time.Duration
	pending     time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	closed      bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	Events    int
	Reloads   int
	Errors    int
	LastEvent time.Time
}

// NewWatcher creates a watcher for path. The directory is watched rather
// than the file so editors that replace files on save are handled.
func NewWatcher(path string, onReload func(*Catalog)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		path:        abs,
		onReload:    onReload,
		debounceDur: 250 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// SetDebounce overrides the quiet period before a reload.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounceDur = d
}

// Start begins watching. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("catalog watcher for %s is stopped", w.path)
	}
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Catalog("watching catalog %s", w.path)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher, waits for the event loop to exit and releases
// the fsnotify handle. It is safe to call after a failed Start and more
// than once; a stopped watcher cannot be restarted.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryCatalog).Error("error closing watcher: %v", err)
	}
	logging.Catalog("catalog watcher stopped")
}

// Stats returns a copy of the watcher counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			logging.Get(logging.CategoryCatalog).Warn("watcher error: %v", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEvent = time.Now()
	w.pending = time.Now()
	w.mu.Unlock()
	logging.CatalogDebug("catalog event %s on %s", ev.Op, ev.Name)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	cat, err := Load(w.path)
	if err != nil {
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		logging.Get(logging.CategoryCatalog).Warn("catalog reload failed, keeping previous: %v", err)
		return
	}

	w.mu.Lock()
	w.stats.Reloads++
	w.mu.Unlock()

	logging.Audit(logging.AuditEvent{Type: logging.AuditCatalogReloaded, Target: w.path, Success: true})
	if w.onReload != nil {
		w.onReload(cat)
	}
}
