package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher hot-reloads the relational-config-backed pieces of Config
// (provider policy today) when the on-disk config directory changes. This
// follows the same "prepare new, atomic swap" shape as the
// embedding-model singleton: callbacks receive the fully-built new Config
// and are responsible for swapping their own pointer atomically.
//
// Only active in Development; staging/production configuration changes go
// through a redeploy.
type Watcher struct {
	mu        sync.RWMutex
	current   *Config
	callbacks []func(*Config)
	fsWatcher *fsnotify.Watcher
	logger    *zap.Logger
	stopCh    chan struct{}
}

// NewWatcher starts watching configDir for changes. It is a no-op (returns a
// Watcher with no running goroutine) outside Development.
func NewWatcher(initial *Config, configDir string, logger *zap.Logger) (*Watcher, error) {
	w := &Watcher{current: initial, logger: logger, stopCh: make(chan struct{})}

	if initial.Environment != Development {
		logger.Info("config hot reload disabled", zap.String("environment", string(initial.Environment)))
		return w, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(configDir); err != nil {
		fsw.Close()
		return nil, err
	}
	w.fsWatcher = fsw

	go w.loop()
	logger.Info("config hot reload enabled", zap.String("dir", configDir))
	return w, nil
}

// OnChange registers a callback invoked with the newly loaded Config
// whenever a watched file changes; callbacks run after the watcher's lock
// has been released, one after another on the watcher goroutine. Reload logic must be fast
// and non-blocking; long work should be dispatched to a goroutine.
func (w *Watcher) OnChange(cb func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			next, err := Load()
			if err != nil {
				w.logger.Error("config reload failed, keeping previous config", zap.Error(err))
				continue
			}
			w.mu.Lock()
			w.current = next
			cbs := append([]func(*Config){}, w.callbacks...)
			w.mu.Unlock()
			for _, cb := range cbs {
				cb(next)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		case <-w.stopCh:
			return
		}
	}
}

// Close stops the watcher goroutine.
func (w *Watcher) Close() error {
	close(w.stopCh)
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}
