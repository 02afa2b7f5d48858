package hotkey

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/dshills/ballotdesk/internal/input/key"
)

// History is the part of a command history the binder drives.
type History interface {
	CanUndo() bool
	CanRedo() bool
	Undo(ctx context.Context) (bool, error)
	Redo(ctx context.Context) (bool, error)
}

// Target is the element that had focus when a key was pressed.
type Target interface {
	// IsEditable reports whether the target is a text control that
	// handles its own editing keys.
	IsEditable() bool
}

type staticTarget bool

func (t staticTarget) IsEditable() bool { return bool(t) }

// Fixed targets for callers without a focus model.
var (
	Editable Target = staticTarget(true)
	Passive  Target = staticTarget(false)
)

// Binder routes undo and redo chords to a History.
type Binder struct {
	history History
	logger  *slog.Logger

	mu        sync.RWMutex
	bindings  Bindings
	onHandled func(Action)
}

// Option configures a Binder.
type Option func(*Binder)

// WithBindings replaces the platform default chords.
func WithBindings(b Bindings) Option {
	return func(bd *Binder) {
		bd.bindings = b.clone()
	}
}

// WithOnHandled sets a callback that reports each action that ran.
func WithOnHandled(fn func(Action)) Option {
	return func(bd *Binder) {
		bd.onHandled = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(bd *Binder) {
		if l != nil {
			bd.logger = l
		}
	}
}

// NewBinder creates a binder for h using the chords of the running
// platform unless WithBindings is given.
func NewBinder(h History, opts ...Option) *Binder {
	b := &Binder{
		history:  h,
		bindings: DefaultBindings(runtime.GOOS),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle processes a key-down event.
//
// It returns true when the event was consumed by an undo or redo. Events
// whose target is editable, events that match no chord and actions the
// history cannot perform are not consumed. A failed undo or redo is
// consumed and its error returned.
func (b *Binder) Handle(ctx context.Context, ev key.Event, target Target) (bool, error) {
	if target != nil && target.IsEditable() {
		return false, nil
	}

	b.mu.RLock()
	action, ok := b.bindings.Match(ev)
	onHandled := b.onHandled
	b.mu.RUnlock()
	if !ok {
		return false, nil
	}

	var (
		moved bool
		err   error
	)
	switch action {
	case ActionUndo:
		if !b.history.CanUndo() {
			return false, nil
		}
		moved, err = b.history.Undo(ctx)
	case ActionRedo:
		if !b.history.CanRedo() {
			return false, nil
		}
		moved, err = b.history.Redo(ctx)
	}
	if err != nil {
		b.logger.Warn("hotkey action failed", "action", action, "chord", ev.String(), "err", err)
		return true, err
	}
	if moved && onHandled != nil {
		onHandled(action)
	}
	return moved, nil
}

// SetBindings replaces the chords. Invalid bindings are rejected and the
// current ones kept.
func (b *Binder) SetBindings(bindings Bindings) error {
	if err := bindings.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	b.bindings = bindings.clone()
	b.mu.Unlock()
	b.logger.Info("hotkeys updated", "bindings", bindings.String())
	return nil
}

// Bindings returns a copy of the current chords.
func (b *Binder) Bindings() Bindings {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bindings.clone()
}

// SetOnHandled replaces the handled callback.
func (b *Binder) SetOnHandled(fn func(Action)) {
	b.mu.Lock()
	b.onHandled = fn
	b.mu.Unlock()
}
