package storage

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig holds configuration for the store watcher.
type WatcherConfig struct {
	DebounceDuration time.Duration
	BufferSize       int
}

// DefaultWatcherConfig returns sensible default configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		DebounceDuration: 250 * time.Millisecond,
		BufferSize:       16,
	}
}

// Watcher reports changes to the entry store so another process's writes
// (a start or stop in a different terminal) become visible. SQLite writes
// through journal and WAL side files and may replace the database outright,
// so the watcher monitors the store's directory and debounces the burst of
// events a single transaction produces into one notification.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    WatcherConfig
	storePath string
	changes   chan time.Time
	errors    chan error

	// Debouncing state
	pendingAt time.Time
	pendingMu sync.Mutex

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.Mutex
}

// NewWatcher creates a watcher for the store at path.
func NewWatcher(storePath string, cfg WatcherConfig) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}
	if cfg.DebounceDuration <= 0 {
		cfg.DebounceDuration = 250 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		storePath: storePath,
		changes:   make(chan time.Time, cfg.BufferSize),
		errors:    make(chan error, cfg.BufferSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	return w, nil
}

// Watch starts watching the store for changes.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	// Watch the directory rather than the file: SQLite replaces the
	// database on VACUUM and the inotify watch would die with the inode.
	if err := w.fsWatcher.Add(filepath.Dir(w.storePath)); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.processEvents()

	w.wg.Add(1)
	go w.debounceProcessor()

	return nil
}

// Changes returns the channel signalling that the store was modified.
func (w *Watcher) Changes() <-chan time.Time {
	return w.changes
}

// Errors returns the channel for receiving watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	err := w.fsWatcher.Close()
	w.wg.Wait()

	close(w.changes)
	close(w.errors)

	return err
}

// processEvents reads from fsnotify and queues store events for debouncing.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if !w.isStoreFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			w.pendingMu.Lock()
			w.pendingAt = time.Now()
			w.pendingMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				// Drop error if channel is full
			}
		}
	}
}

// debounceProcessor periodically checks for a stable change and emits it.
func (w *Watcher) debounceProcessor() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.DebounceDuration / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.emitStableChange()
		}
	}
}

// emitStableChange emits a notification once the write burst has settled.
func (w *Watcher) emitStableChange() {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if w.pendingAt.IsZero() || time.Since(w.pendingAt) < w.config.DebounceDuration {
		return
	}

	at := w.pendingAt
	w.pendingAt = time.Time{}

	select {
	case w.changes <- at:
	default:
		// Drop change if channel is full
	}
}

// isStoreFile reports whether path is the database or one of its side files.
func (w *Watcher) isStoreFile(path string) bool {
	base := filepath.Base(w.storePath)
	name := filepath.Base(path)
	if name == base {
		return true
	}
	return strings.HasPrefix(name, base+"-")
}
