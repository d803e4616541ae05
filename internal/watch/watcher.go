// Package watch reloads the feed when its local export files change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a reload.
const DefaultDebounce = 500 * time.Millisecond

// Watcher calls a function after a burst of changes to a set of files.
// Parent directories are watched so editors that replace files on save
// are still seen.
type Watcher struct {
	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	files     map[string]bool
	dirs      []string
	debounce  time.Duration
	onChange  func(ctx context.Context)
	logger    *slog.Logger
	pending   bool
	lastEvent time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
	running   bool
}

// New creates a Watcher for files. onChange runs on the watcher goroutine.
func New(files []string, debounce time.Duration, onChange func(ctx context.Context), logger *slog.Logger) (*Watcher, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		files:    make(map[string]bool, len(files)),
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	seenDirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("resolve %s: %w", f, err)
		}
		w.files[abs] = true
		if dir := filepath.Dir(abs); !seenDirs[dir] {
			seenDirs[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	return w, nil
}

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.watcher.Close()
			close(w.doneCh)
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.logger.Info("watching directory", "dir", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("error closing watcher", "error", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		case <-ticker.C:
			if w.due() {
				w.logger.Info("source files changed, reloading")
				w.onChange(ctx)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !w.files[filepath.Clean(event.Name)] {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}

	w.logger.Debug("file event", "file", event.Name, "op", event.Op.String())

	w.mu.Lock()
	w.pending = true
	w.lastEvent = time.Now()
	w.mu.Unlock()
}

// due reports whether a pending change has been quiet for the debounce
// period, and clears it if so.
func (w *Watcher) due() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.pending || time.Since(w.lastEvent) < w.debounce {
		return false
	}
	w.pending = false
	return true
}
