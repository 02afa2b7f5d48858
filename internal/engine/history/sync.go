package history

import (
	"context"
	"errors"
	"log/slog"

	"github.com/looplab/fsm"
)

// Sync statuses.
const (
	StatusSynced         = "synced"
	StatusDesynchronized = "desynchronized"
)

const (
	eventCompensationFailed    = "compensation_failed"
	eventCompensationSucceeded = "compensation_succeeded"
	eventReconcile             = "reconcile"
)

// syncMachine tracks whether the cursor can be trusted to reflect the
// remote store.
type syncMachine struct {
	*fsm.FSM
}

func newSyncMachine(logger *slog.Logger) *syncMachine {
	m := &syncMachine{}

	events := fsm.Events{
		{Name: eventCompensationFailed, Src: []string{StatusSynced, StatusDesynchronized}, Dst: StatusDesynchronized},
		{Name: eventCompensationSucceeded, Src: []string{StatusDesynchronized}, Dst: StatusSynced},
		{Name: eventReconcile, Src: []string{StatusDesynchronized}, Dst: StatusSynced},
	}

	callbacks := fsm.Callbacks{
		"enter_" + StatusDesynchronized: func(_ context.Context, e *fsm.Event) {
			logger.Warn("history desynchronized from remote store", "event", e.Event)
		},
		"enter_" + StatusSynced: func(_ context.Context, e *fsm.Event) {
			logger.Info("history back in sync", "event", e.Event)
		},
	}

	m.FSM = fsm.NewFSM(StatusSynced, events, callbacks)
	return m
}

// fire triggers event if the current status allows it.
// Staying in the same status is not an error.
func (m *syncMachine) fire(ctx context.Context, event string) error {
	if !m.Can(event) {
		return nil
	}
	err := m.Event(ctx, event)
	if isTransitionError(err) {
		return err
	}
	return nil
}

func (m *syncMachine) desynchronized() bool {
	return m.Is(StatusDesynchronized)
}

func isTransitionError(err error) bool {
	if err == nil {
		return false
	}

	var noTransition fsm.NoTransitionError
	var canceled fsm.CanceledError

	if errors.As(err, &noTransition) || errors.As(err, &canceled) {
		return false
	}

	return true
}
