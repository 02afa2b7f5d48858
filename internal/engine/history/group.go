package history

import (
	"context"
	"errors"
	"fmt"
)

// ErrGroupClosed is returned when a Recorder is used after Commit or
// Rollback.
var ErrGroupClosed = errors.New("group already closed")

// Recorder executes commands one by one and collects them so they can be
// pushed as a single undo unit.
// Usage:
//
//	rec := h.Group("Season setup")
//	if err := rec.Do(ctx, cmd1); err != nil {
//	    return rec.Rollback(ctx)
//	}
//	rec.Commit()
type Recorder struct {
	history *History
	name    string
	done    []Command
	active  bool
}

// Group starts a new recorder.
// Nothing reaches the history until Commit.
func (h *History) Group(name string) *Recorder {
	return &Recorder{
		history: h,
		name:    name,
		active:  true,
	}
}

// Do executes cmd and records it on success.
func (r *Recorder) Do(ctx context.Context, cmd Command) error {
	if !r.active {
		return ErrGroupClosed
	}
	if cmd == nil {
		return ErrNilCommand
	}
	if err := cmd.Execute(ctx); err != nil {
		return err
	}
	r.done = append(r.done, cmd)
	return nil
}

// Len returns the number of recorded commands.
func (r *Recorder) Len() int {
	return len(r.done)
}

// Commit pushes the recorded commands as one entry without executing them
// again. A single command is pushed as is; an empty group pushes nothing.
// Safe to call multiple times; only the first call has effect.
func (r *Recorder) Commit() Command {
	if !r.active {
		return nil
	}
	r.active = false

	var cmd Command
	switch len(r.done) {
	case 0:
		return nil
	case 1:
		cmd = r.done[0]
	default:
		cmd = newAppliedBatch(r.name, r.done...)
	}
	r.history.Push(cmd)
	r.done = nil
	return cmd
}

// Rollback undoes the recorded commands in reverse order without touching
// the history.
func (r *Recorder) Rollback(ctx context.Context) error {
	if !r.active {
		return ErrGroupClosed
	}
	r.active = false

	var errs []error
	for i := len(r.done) - 1; i >= 0; i-- {
		if err := r.done[i].Undo(ctx); err != nil {
			errs = append(errs, fmt.Errorf("rollback %q: %w", r.done[i].Name(), err))
		}
	}
	r.done = nil
	return errors.Join(errs...)
}

// RunGroup runs multiple commands as a single undo unit.
func (h *History) RunGroup(ctx context.Context, name string, cmds ...Command) error {
	if len(cmds) == 0 {
		return nil
	}

	if len(cmds) == 1 {
		// Single command doesn't need grouping
		return h.Run(ctx, cmds[0])
	}

	return h.Run(ctx, NewBatch(name, cmds...))
}

// Checkpoint represents a point in history that can be returned to.
type Checkpoint struct {
	id string
}

// IsStart returns true if the checkpoint was taken before any applied
// command.
func (c Checkpoint) IsStart() bool {
	return c.id == ""
}

// Checkpoint captures the current history position.
func (h *History) Checkpoint() Checkpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor < 0 {
		return Checkpoint{}
	}
	return Checkpoint{id: h.stack[h.cursor].ID()}
}

// RestoreTo undoes or redoes until the cursor is back at cp.
// It stops at the first failure.
func (h *History) RestoreTo(ctx context.Context, cp Checkpoint) error {
	for {
		target, cursor, err := h.checkpointIndex(cp)
		if err != nil {
			return err
		}

		var moved bool
		switch {
		case target == cursor:
			return nil
		case target < cursor:
			moved, err = h.Undo(ctx)
		default:
			moved, err = h.Redo(ctx)
		}
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
	}
}

func (h *History) checkpointIndex(cp Checkpoint) (target, cursor int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cp.id == "" {
		return -1, h.cursor, nil
	}
	for i, cmd := range h.stack {
		if cmd.ID() == cp.id {
			return i, h.cursor, nil
		}
	}
	return 0, h.cursor, ErrCheckpointEvicted
}
