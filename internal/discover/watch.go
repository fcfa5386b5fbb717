package discover

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"rtest/internal/logging"
)

// Watcher re-runs discovery against a set of roots whenever a watched
// Python source file changes, debouncing rapid bursts of writes from a
// single save (spec.md §10's --watch supplement). It is adapted from
// the teacher's manifest-file watcher: a debounce map drained by a
// ticker, rather than acting on every raw fsnotify event.
type Watcher struct {
	fsw         *fsnotify.Watcher
	disc        *Discoverer
	sessionRoot string
	roots       []string

	mu          sync.Mutex
	debounceMap map[string]time.Time
	debounceDur time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher builds a Watcher that recursively watches every directory
// reachable from roots.
func NewWatcher(disc *Discoverer, sessionRoot string, roots []string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:         fsw,
		disc:        disc,
		sessionRoot: sessionRoot,
		roots:       roots,
		debounceMap: make(map[string]time.Time),
		debounceDur: 300 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}

	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			logging.DiscoverWarn("watch: failed to add %s: %v", root, err)
		}
	}

	return w, nil
}

// addTree registers every directory reachable from root with the
// fsnotify watcher: fsnotify does not watch recursively on its own.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		return w.fsw.Add(path)
	})
}

// Run starts the event loop and invokes onChange with a fresh Result
// every time the debounce window settles after one or more .py file
// changes. It blocks until ctx is cancelled or Stop is called.
func (w *Watcher) Run(ctx context.Context, onChange func(Result)) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.DiscoverWarn("watch: fsnotify error: %v", err)
		case <-ticker.C:
			if w.drainDebounced() {
				onChange(w.disc.Discover(w.sessionRoot, w.roots))
			}
		}
	}
}

// Stop halts the watcher and releases its fsnotify handle.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
	w.fsw.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".py") {
		return
	}
	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// drainDebounced reports whether any watched path has settled past the
// debounce window, clearing it from the pending set.
func (w *Watcher) drainDebounced() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	settled := false
	for path, t := range w.debounceMap {
		if now.Sub(t) >= w.debounceDur {
			delete(w.debounceMap, path)
			settled = true
		}
	}
	return settled
}
