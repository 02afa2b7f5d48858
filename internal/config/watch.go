package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/ballotdesk/internal/input/hotkey"
)

// ErrNoPath is returned when watching a loader without a file.
var ErrNoPath = errors.New("config has no file to watch")

// Handler receives settings after a successful reload.
type Handler func(Config)

// Watcher reloads a configuration file when it changes.
//
// The parent directory is watched rather than the file so that editors
// that save by rename are picked up. Bursts of events are collapsed into
// one reload.
type Watcher struct {
	loader   *Loader
	path     string
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.RWMutex
	handlers []Handler
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the logger for reload failures.
func WithWatchLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher starts watching the loader's file. Run must be called to
// deliver reloads.
func NewWatcher(loader *Loader, opts ...WatcherOption) (*Watcher, error) {
	if loader.Path() == "" {
		return nil, ErrNoPath
	}
	path, err := filepath.Abs(loader.Path())
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		loader:   loader,
		path:     path,
		fsw:      fsw,
		logger:   slog.New(slog.DiscardHandler),
		debounce: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// OnReload registers a handler.
func (w *Watcher) OnReload(h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Run delivers reloads until ctx is done, then releases the watch.
// A file that fails to load is logged and the previous settings stay in
// effect.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watch error", "err", err)

		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous settings", "path", w.path, "err", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path)

	w.mu.RLock()
	handlers := append([]Handler(nil), w.handlers...)
	w.mu.RUnlock()
	for _, h := range handlers {
		h(cfg)
	}
}

// CapacitySetter is implemented by *history.History.
type CapacitySetter interface {
	SetCapacity(n int)
}

// BindingSetter is implemented by *hotkey.Binder.
type BindingSetter interface {
	SetBindings(b hotkey.Bindings) error
}

// Applier returns a handler that pushes reloaded history capacity and
// hotkey chords into running components. Either target may be nil.
func Applier(h CapacitySetter, b BindingSetter, logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(cfg Config) {
		if h != nil {
			h.SetCapacity(cfg.History.Capacity)
		}
		if b == nil {
			return
		}
		bindings, err := cfg.Bindings()
		if err == nil {
			err = b.SetBindings(bindings)
		}
		if err != nil {
			logger.Warn("hotkeys not updated", "err", err)
		}
	}
}
