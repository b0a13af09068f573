package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goliatone/go-fintrack/logging"
)

// Reloader re-reads persisted state.
type Reloader interface {
	Reload(ctx context.Context) error
}

// SessionWatcher reloads a Reloader when the session file changes, so a
// sign in or out in another process reaches this one.
type SessionWatcher struct {
	path     string
	target   Reloader
	delay    time.Duration
	logger   logging.Logger
	watcher  *fsnotify.Watcher
	stopOnce sync.Once
	done     chan struct{}
}

// NewSessionWatcher watches path. Changes closer than delay are merged.
func NewSessionWatcher(path string, target Reloader, delay time.Duration) (*SessionWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create session watcher: %w", err)
	}
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	return &SessionWatcher{
		path:    filepath.Clean(path),
		target:  target,
		delay:   delay,
		logger:  logging.Default(),
		watcher: w,
		done:    make(chan struct{}),
	}, nil
}

// WithLogger sets the logger.
func (w *SessionWatcher) WithLogger(logger logging.Logger) *SessionWatcher {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// Start watches the directory of the session file until ctx is done or
// Stop is called. The file is replaced by rename on save, so the
// directory is watched instead of the file.
func (w *SessionWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	go w.watchLoop(ctx)
	return nil
}

// Stop releases the watcher.
func (w *SessionWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *SessionWatcher) watchLoop(ctx context.Context) {
	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.delay)
			}
			pending = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("session watcher error", "error", err)
		case <-pending:
			pending = nil
			if err := w.target.Reload(ctx); err != nil {
				w.logger.Warn("session reload failed", "path", w.path, "error", err)
			}
		}
	}
}

func (w *SessionWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create,
		event.Op&fsnotify.Write == fsnotify.Write,
		event.Op&fsnotify.Remove == fsnotify.Remove,
		event.Op&fsnotify.Rename == fsnotify.Rename:
		return true
	default:
		return false
	}
}
