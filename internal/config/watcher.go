package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/moolen/riskgraph/internal/logging"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 500 * time.Millisecond

// ReloadFunc receives every successfully loaded configuration. An error is
// logged and the watcher keeps running.
type ReloadFunc func(cfg *Config) error

// Watcher reloads the configuration file when it changes. A file that fails
// to load or validate is logged and ignored, so the last good configuration
// stays in effect. It implements lifecycle.Component.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload ReloadFunc
	logger   *logging.Logger

	mu      sync.Mutex
	timer   *time.Timer
	cancel  context.CancelFunc
	stopped chan struct{}
	ready   chan struct{}
}

// NewWatcher creates a watcher for path. debounce 0 uses DefaultDebounce.
func NewWatcher(path string, debounce time.Duration, onReload ReloadFunc) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	if onReload == nil {
		return nil, fmt.Errorf("reload callback cannot be nil")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		onReload: onReload,
		logger:   logging.GetLogger("config.watcher"),
		stopped:  make(chan struct{}),
		ready:    make(chan struct{}),
	}, nil
}

// Name implements lifecycle.Component.
func (w *Watcher) Name() string {
	return "Config Watcher"
}

// Start begins watching and returns once the file watch is in place. The
// configuration in effect at startup was loaded by the caller, so Start
// does not invoke the callback.
func (w *Watcher) Start(ctx context.Context) error {
	watchCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	errCh := make(chan error, 1)
	go w.loop(watchCtx, errCh)

	select {
	case <-w.ready:
		return nil
	case err := <-errCh:
		cancel()
		return err
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	case <-time.After(5 * time.Second):
		cancel()
		return fmt.Errorf("timeout waiting for file watcher to initialize")
	}
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	select {
	case <-w.stopped:
		w.logger.Info("Stopped watching %s", w.path)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for config watcher to stop: %w", ctx.Err())
	}
}

func (w *Watcher) loop(ctx context.Context, errCh chan<- error) {
	defer close(w.stopped)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		errCh <- fmt.Errorf("failed to create file watcher: %w", err)
		return
	}
	defer fsw.Close()

	if err := fsw.Add(w.path); err != nil {
		errCh <- fmt.Errorf("failed to watch %s: %w", w.path, err)
		return
	}
	w.logger.Info("Watching %s for changes (debounce %s)", w.path, w.debounce)
	close(w.ready)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			// Atomic saves replace the inode; the watch has to follow.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(50 * time.Millisecond)
				if err := fsw.Add(w.path); err != nil {
					w.logger.Warn("Failed to re-add watch after %s: %v", event.Op, err)
				}
			}
			w.schedule(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error: %v", err)
		}
	}
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.reload()
	})
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("Keeping previous configuration: %v", err)
		return
	}
	if err := w.onReload(cfg); err != nil {
		w.logger.Warn("Reload callback failed: %v", err)
		return
	}
	w.logger.Info("Configuration reloaded from %s", w.path)
}
