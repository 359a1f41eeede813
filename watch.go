// FILE: atbashEE/config/watch.go
package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultMaxWatchers = 100 // Prevent resource exhaustion

// WatchOptions configures file watching behavior
type WatchOptions struct {
	// Debounce duration to avoid rapid reloads
	Debounce time.Duration

	// MaxWatchers limits concurrent watch channels
	MaxWatchers int

	// ReloadTimeout for file reload operations
	ReloadTimeout time.Duration
}

// DefaultWatchOptions returns sensible defaults for file watching
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		Debounce:      DefaultDebounce,
		MaxWatchers:   DefaultMaxWatchers,
		ReloadTimeout: DefaultReloadTimeout,
	}
}

// watcher manages file watching state
type watcher struct {
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	opts          WatchOptions
	fs            *fsnotify.Watcher
	files         map[string]*FileSource // cleaned path -> source
	pending       map[string]struct{}    // files changed since the last reload
	watching      atomic.Bool
	reloadMu      sync.Mutex
	watchers      map[int64]chan string // subscriber channels
	watcherID     atomic.Int64
	debounceTimer *time.Timer
	done          chan struct{}
}

// AutoUpdate enables automatic reloading of file sources when their files change.
func (c *Config) AutoUpdate() error {
	return c.AutoUpdateWithOptions(DefaultWatchOptions())
}

// AutoUpdateWithOptions enables automatic reloading with custom options.
// The directories of all local file sources are watched; a change reloads the affected
// sources and publishes every known property whose resolved value changed.
// The set of known property names is not refreshed.
func (c *Config) AutoUpdateWithOptions(opts WatchOptions) error {
	// Validate options
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MaxWatchers <= 0 {
		opts.MaxWatchers = DefaultMaxWatchers
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = DefaultReloadTimeout
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return fmt.Errorf("configuration is closed")
	}
	if c.watcher != nil {
		return nil
	}

	files := make(map[string]*FileSource)
	for _, f := range c.fileSources() {
		if f.Remote() {
			continue
		}
		files[filepath.Clean(f.Path())] = f
	}
	if len(files) == 0 {
		return ErrNoSources
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	dirs := make(map[string]struct{})
	for path := range files {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	for dir := range dirs {
		// Watching the directory catches editors that replace the file
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.watcher = &watcher{
		ctx:      ctx,
		cancel:   cancel,
		opts:     opts,
		fs:       fsw,
		files:    files,
		pending:  make(map[string]struct{}),
		watchers: make(map[int64]chan string),
		done:     make(chan struct{}),
	}
	c.watcher.watching.Store(true)
	go c.watcher.watchLoop(c)

	c.logger.Debug("configuration file watcher started", "files", len(files), "directories", len(dirs))
	return nil
}

// StopAutoUpdate stops automatic configuration reloading
func (c *Config) StopAutoUpdate() {
	c.mutex.Lock()
	w := c.watcher
	c.watcher = nil
	c.mutex.Unlock()

	if w != nil {
		w.stop()
	}
}

// Watch returns a channel that receives names of properties whose value changed
func (c *Config) Watch() <-chan string {
	return c.WatchWithOptions(DefaultWatchOptions())
}

// WatchWithOptions returns a channel with custom watch options. An already running
// watcher keeps its options. Without file sources the channel is closed immediately.
func (c *Config) WatchWithOptions(opts WatchOptions) <-chan string {
	c.mutex.RLock()
	w := c.watcher
	c.mutex.RUnlock()

	if w == nil {
		if err := c.AutoUpdateWithOptions(opts); err != nil {
			c.logger.Debug("watch unavailable", "error", err)
			return closedChannel()
		}
		c.mutex.RLock()
		w = c.watcher
		c.mutex.RUnlock()
		if w == nil {
			return closedChannel()
		}
	}

	return w.subscribe()
}

// IsWatching returns true if auto-update is enabled
func (c *Config) IsWatching() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.watcher != nil && c.watcher.watching.Load()
}

// WatcherCount returns the number of active watch channels
func (c *Config) WatcherCount() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.watcher == nil {
		return 0
	}

	c.watcher.mu.RLock()
	defer c.watcher.mu.RUnlock()
	return len(c.watcher.watchers)
}

func closedChannel() <-chan string {
	ch := make(chan string)
	close(ch)
	return ch
}

// watchLoop is the main file watching loop
func (w *watcher) watchLoop(c *Config) {
	defer close(w.done)
	defer w.watching.Store(false)

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(c, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			// Continue watching despite errors
			c.logger.Warn("configuration file watcher error", "error", err)
		}
	}
}

// handleEvent records a change to a watched file and restarts the debounce timer.
func (w *watcher) handleEvent(c *Config, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	path := filepath.Clean(event.Name)
	if _, ok := w.files[path]; !ok {
		return
	}

	// Debounce rapid changes
	w.mu.Lock()
	w.pending[path] = struct{}{}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.opts.Debounce, func() {
		w.performReload(c)
	})
	w.mu.Unlock()
}

// performReload reloads the changed files and publishes changed property names.
func (w *watcher) performReload(c *Config) {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	if w.ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	changed := make([]*FileSource, 0, len(w.pending))
	for path := range w.pending {
		changed = append(changed, w.files[path])
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()
	if len(changed) == 0 {
		return
	}

	// Create a timeout context for reload
	ctx, cancel := context.WithTimeout(w.ctx, w.opts.ReloadTimeout)
	defer cancel()

	// Track what changed
	oldValues := c.snapshot()

	done := make(chan error, 1)
	go func() {
		var errs []error
		for _, f := range changed {
			errs = append(errs, f.Reload())
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		if err != nil {
			// Failed files keep their previous values
			c.logger.Warn("configuration reload failed", "error", err)
		}
	case <-ctx.Done():
		c.logger.Warn("configuration reload timed out", "timeout", w.opts.ReloadTimeout)
		return
	}

	// Compare and notify changes
	newValues := c.snapshot()
	for name, newVal := range newValues {
		if oldVal, existed := oldValues[name]; !existed || oldVal != newVal {
			w.notifyWatchers(name)
		}
	}

	// Check for deletions
	for name := range oldValues {
		if _, exists := newValues[name]; !exists {
			w.notifyWatchers(name)
		}
	}
}

// subscribe creates a new watcher channel
func (w *watcher) subscribe() <-chan string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx.Err() != nil {
		return closedChannel()
	}

	// Check watcher limit
	if len(w.watchers) >= w.opts.MaxWatchers {
		// Return closed channel to prevent resource exhaustion
		return closedChannel()
	}

	// Create buffered channel to prevent blocking
	ch := make(chan string, 10)
	id := w.watcherID.Add(1)
	w.watchers[id] = ch

	// Cleanup goroutine
	go func() {
		<-w.ctx.Done()
		w.mu.Lock()
		delete(w.watchers, id)
		close(ch)
		w.mu.Unlock()
	}()

	return ch
}

// notifyWatchers sends change notification to all subscribers
func (w *watcher) notifyWatchers(name string) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, ch := range w.watchers {
		select {
		case ch <- name:
		default:
			// Channel full, skip
		}
	}
}

// stop terminates the watcher
func (w *watcher) stop() {
	w.cancel()

	// Stop debounce timer
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.mu.Unlock()

	w.fs.Close()

	// Wait for watch loop to exit with timeout
	select {
	case <-w.done:
	case <-time.After(ShutdownTimeout):
	}
}

// snapshot resolves every known property. Properties that fail to resolve are left out.
func (c *Config) snapshot() map[string]string {
	names, err := c.PropertyNames()
	if err != nil {
		return nil
	}
	values := make(map[string]string, len(names))
	for _, name := range names {
		v, err := c.Value(name)
		if err != nil || v == nil {
			continue
		}
		values[name] = v.Value
	}
	return values
}
