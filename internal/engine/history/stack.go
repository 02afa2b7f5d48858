package history

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"time"
)

// Common errors for history operations.
var (
	ErrNilCommand        = errors.New("nil command")
	ErrCheckpointEvicted = errors.New("checkpoint no longer in history")
)

// State is a snapshot of the history position.
type State struct {
	Cursor   int
	Size     int
	Capacity int
	CanUndo  bool
	CanRedo  bool

	// Desynchronized is set after an undo or redo failed. Suspect names
	// the command whose compensation failed.
	Desynchronized bool
	Suspect        *Record
}

// Listener is notified after every settled history change.
// Pointer listeners are deduplicated by address; any other listener gets
// its own registration on every Subscribe.
type Listener interface {
	HistoryChanged(state State)
}

type funcListener struct {
	fn func(State)
}

func (l *funcListener) HistoryChanged(state State) { l.fn(state) }

// OnChange wraps fn in a new Listener. Each call yields a distinct listener.
func OnChange(fn func(State)) Listener {
	return &funcListener{fn: fn}
}

// History manages the applied command stack and its cursor.
type History struct {
	mu sync.Mutex

	stack  []Command
	cursor int

	listeners []*subscription
	suspect   *Record

	// Configuration
	capacity  int
	logger    *slog.Logger
	observers []Observer

	sync *syncMachine
}

// New creates a history manager.
func New(opts ...Option) *History {
	h := &History{
		cursor:   -1,
		capacity: DefaultCapacity,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.sync = newSyncMachine(h.logger)
	return h
}

// Run executes cmd and, on success, pushes it onto the stack.
// A failed command is never added and the history is left untouched.
func (h *History) Run(ctx context.Context, cmd Command) error {
	if cmd == nil {
		return ErrNilCommand
	}

	start := time.Now()
	err := cmd.Execute(ctx)
	h.observe(OpRun, cmd, start, err)
	if err != nil {
		h.logger.Debug("command failed", "command", cmd.Name(), "kind", cmd.Kind(), "id", cmd.ID(), "err", err)
		return err
	}

	h.Push(cmd)
	h.logger.Debug("command applied", "command", cmd.Name(), "kind", cmd.Kind(), "id", cmd.ID())
	return nil
}

// Push adds an already executed command to the stack.
// The redo tail is discarded and the oldest entries are evicted past
// capacity.
func (h *History) Push(cmd Command) {
	if cmd == nil {
		return
	}

	h.mu.Lock()
	h.pushLocked(cmd)
	state, listeners := h.stateLocked(), h.listenersLocked()
	h.mu.Unlock()

	notify(listeners, state)
}

// pushLocked adds a command without acquiring the lock.
func (h *History) pushLocked(cmd Command) {
	// Clear redo tail
	h.stack = slices.Delete(h.stack, h.cursor+1, len(h.stack))
	h.stack = append(h.stack, cmd)

	// Enforce capacity
	if excess := len(h.stack) - h.capacity; excess > 0 {
		h.stack = slices.Delete(h.stack, 0, excess)
	}
	h.cursor = len(h.stack) - 1
}

// Undo undoes the command at the cursor.
// It returns false with a nil error when there is nothing to undo.
// On failure the cursor is not moved and the history is marked
// desynchronized.
// The lock is released while the command runs.
func (h *History) Undo(ctx context.Context) (bool, error) {
	h.mu.Lock()
	if h.cursor < 0 {
		h.mu.Unlock()
		return false, nil
	}
	cmd := h.stack[h.cursor]
	h.mu.Unlock()

	start := time.Now()
	err := cmd.Undo(ctx)
	h.observe(OpUndo, cmd, start, err)
	if err != nil {
		h.logger.Error("undo failed", "command", cmd.Name(), "kind", cmd.Kind(), "id", cmd.ID(), "err", err)
		h.markDesynchronized(ctx, cmd)
		return false, err
	}

	h.mu.Lock()
	if h.cursor >= 0 && h.stack[h.cursor].ID() == cmd.ID() {
		h.cursor--
	}
	h.mu.Unlock()

	h.markSynchronized(ctx, eventCompensationSucceeded)
	return true, nil
}

// Redo re-applies the command after the cursor.
// It returns false with a nil error when there is nothing to redo.
// On failure the cursor is not moved and the history is marked
// desynchronized.
func (h *History) Redo(ctx context.Context) (bool, error) {
	h.mu.Lock()
	if h.cursor >= len(h.stack)-1 {
		h.mu.Unlock()
		return false, nil
	}
	cmd := h.stack[h.cursor+1]
	h.mu.Unlock()

	start := time.Now()
	err := cmd.Redo(ctx)
	h.observe(OpRedo, cmd, start, err)
	if err != nil {
		h.logger.Error("redo failed", "command", cmd.Name(), "kind", cmd.Kind(), "id", cmd.ID(), "err", err)
		h.markDesynchronized(ctx, cmd)
		return false, err
	}

	h.mu.Lock()
	if h.cursor+1 < len(h.stack) && h.stack[h.cursor+1].ID() == cmd.ID() {
		h.cursor++
	}
	h.mu.Unlock()

	h.markSynchronized(ctx, eventCompensationSucceeded)
	return true, nil
}

// Reconcile clears the desynchronized flag after an operator has checked
// the remote store by hand.
func (h *History) Reconcile(ctx context.Context) {
	h.markSynchronized(ctx, eventReconcile)
}

// markDesynchronized records cmd as suspect and notifies listeners.
func (h *History) markDesynchronized(ctx context.Context, cmd Command) {
	if err := h.sync.fire(ctx, eventCompensationFailed); err != nil {
		h.logger.Warn("sync status transition failed", "err", err)
	}
	rec := RecordVisitor{OmitPayload: true}.Visit(cmd)

	h.mu.Lock()
	h.suspect = &rec
	state, listeners := h.stateLocked(), h.listenersLocked()
	h.mu.Unlock()

	notify(listeners, state)
}

// markSynchronized clears the suspect and notifies listeners.
func (h *History) markSynchronized(ctx context.Context, event string) {
	if err := h.sync.fire(ctx, event); err != nil {
		h.logger.Warn("sync status transition failed", "err", err)
	}

	h.mu.Lock()
	h.suspect = nil
	state, listeners := h.stateLocked(), h.listenersLocked()
	h.mu.Unlock()

	notify(listeners, state)
}

// Subscribe registers l and immediately delivers the current state.
// Registering the same listener twice has no further effect on delivery.
// The returned function unsubscribes; calling it more than once is safe.
//
// A listener must not run, undo or redo from inside the callback.
func (h *History) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}

	h.mu.Lock()
	sub := h.subscriptionLocked(l)
	if sub == nil {
		sub = &subscription{listener: l}
		h.listeners = append(h.listeners, sub)
	}
	state := h.stateLocked()
	h.mu.Unlock()

	l.HistoryChanged(state)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if i := slices.Index(h.listeners, sub); i >= 0 {
				h.listeners = slices.Delete(h.listeners, i, i+1)
			}
		})
	}
}

// subscription is one registered listener.
type subscription struct {
	listener Listener
}

// subscriptionLocked finds the registration of a pointer listener.
// Listener values are never compared with ==, which would panic for
// uncomparable dynamic types.
func (h *History) subscriptionLocked(l Listener) *subscription {
	v := reflect.ValueOf(l)
	if v.Kind() != reflect.Pointer {
		return nil
	}
	for _, sub := range h.listeners {
		w := reflect.ValueOf(sub.listener)
		if w.Type() == v.Type() && w.Pointer() == v.Pointer() {
			return sub
		}
	}
	return nil
}

// Serialize maps the stack through v in chronological order.
// A nil visitor uses RecordVisitor.
func (h *History) Serialize(v Visitor) []Record {
	if v == nil {
		v = RecordVisitor{}
	}

	h.mu.Lock()
	cmds := slices.Clone(h.stack)
	h.mu.Unlock()

	records := make([]Record, len(cmds))
	for i, cmd := range cmds {
		records[i] = v.Visit(cmd)
	}
	return records
}

// State returns a snapshot of the current position.
func (h *History) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stateLocked()
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor >= 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor < len(h.stack)-1
}

// PeekUndo returns the record of the next command to undo.
func (h *History) PeekUndo() (Record, bool) {
	h.mu.Lock()
	if h.cursor < 0 {
		h.mu.Unlock()
		return Record{}, false
	}
	cmd := h.stack[h.cursor]
	h.mu.Unlock()
	return RecordVisitor{}.Visit(cmd), true
}

// PeekRedo returns the record of the next command to redo.
func (h *History) PeekRedo() (Record, bool) {
	h.mu.Lock()
	if h.cursor >= len(h.stack)-1 {
		h.mu.Unlock()
		return Record{}, false
	}
	cmd := h.stack[h.cursor+1]
	h.mu.Unlock()
	return RecordVisitor{}.Visit(cmd), true
}

// Clear removes all history and resets the sync status.
func (h *History) Clear() {
	h.mu.Lock()
	h.stack = nil
	h.cursor = -1
	h.mu.Unlock()

	h.markSynchronized(context.Background(), eventReconcile)
}

// SetCapacity changes the maximum number of commands kept.
// If the current stack is larger, the oldest entries are removed and the
// cursor moves with them.
func (h *History) SetCapacity(n int) {
	if n <= 0 {
		n = DefaultCapacity
	}

	h.mu.Lock()
	h.capacity = n
	if excess := len(h.stack) - n; excess > 0 {
		h.stack = slices.Delete(h.stack, 0, excess)
		h.cursor = max(h.cursor-excess, -1)
	}
	state, listeners := h.stateLocked(), h.listenersLocked()
	h.mu.Unlock()

	notify(listeners, state)
}

// Capacity returns the maximum number of commands kept.
func (h *History) Capacity() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.capacity
}

func (h *History) stateLocked() State {
	state := State{
		Cursor:         h.cursor,
		Size:           len(h.stack),
		Capacity:       h.capacity,
		CanUndo:        h.cursor >= 0,
		CanRedo:        h.cursor < len(h.stack)-1,
		Desynchronized: h.sync.desynchronized(),
	}
	if h.suspect != nil {
		rec := *h.suspect
		state.Suspect = &rec
	}
	return state
}

func (h *History) listenersLocked() []Listener {
	out := make([]Listener, len(h.listeners))
	for i, sub := range h.listeners {
		out[i] = sub.listener
	}
	return out
}

func (h *History) observe(op Op, cmd Command, start time.Time, err error) {
	elapsed := time.Since(start)
	for _, o := range h.observers {
		o.ObserveOperation(op, cmd.Kind(), elapsed, err)
	}
}

func notify(listeners []Listener, state State) {
	for _, l := range listeners {
		l.HistoryChanged(state)
	}
}
