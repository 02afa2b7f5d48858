package history

import (
	"log/slog"
	"time"
)

// DefaultCapacity is the number of commands kept when no capacity is given.
const DefaultCapacity = 100

// Op names a history operation for observers.
type Op string

// History operations.
const (
	OpRun  Op = "run"
	OpUndo Op = "undo"
	OpRedo Op = "redo"
)

// Observer receives the outcome of every command invocation.
type Observer interface {
	ObserveOperation(op Op, kind Kind, elapsed time.Duration, err error)
}

// Option configures a History during creation.
type Option func(*History)

// WithCapacity sets the maximum number of commands kept.
func WithCapacity(n int) Option {
	return func(h *History) {
		if n > 0 {
			h.capacity = n
		}
	}
}

// WithLogger sets the logger used for failures and debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(h *History) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithObserver registers an observer for command timings.
func WithObserver(o Observer) Option {
	return func(h *History) {
		if o != nil {
			h.observers = append(h.observers, o)
		}
	}
}
