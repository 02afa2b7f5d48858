package console

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ballotdesk/internal/engine/history"
	"github.com/dshills/ballotdesk/internal/input/hotkey"
	"github.com/dshills/ballotdesk/internal/resource/memstore"
)

type harness struct {
	t       *testing.T
	screen  tcell.SimulationScreen
	session *Session
	done    chan error
}

func startConsole(t *testing.T) *harness {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	session := NewSession(history.New(), memstore.New())
	binder := hotkey.NewBinder(session.History, hotkey.WithBindings(hotkey.DefaultBindings("linux")))

	h := &harness{t: t, screen: screen, session: session, done: make(chan error, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { h.done <- New(screen, session, binder).Run(ctx) }()
	return h
}

// post retries until the event queue accepts ev. The queue only exists
// once Run has initialized the screen.
func (h *harness) post(ev tcell.Event) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return h.screen.PostEvent(ev) == nil
	}, 2*time.Second, time.Millisecond)
}

func (h *harness) key(k tcell.Key, mod tcell.ModMask) {
	h.post(tcell.NewEventKey(k, 0, mod))
}

func (h *harness) typeLine(line string) {
	for _, r := range line {
		h.post(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
	h.key(tcell.KeyEnter, tcell.ModNone)
}

func (h *harness) waitState(cond func(history.State) bool) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return cond(h.session.History.State())
	}, 2*time.Second, 5*time.Millisecond)
}

func (h *harness) quit() {
	h.t.Helper()
	h.key(tcell.KeyCtrlC, tcell.ModCtrl)
	select {
	case err := <-h.done:
		assert.NoError(h.t, err)
	case <-time.After(2 * time.Second):
		h.t.Fatal("console did not quit")
	}
}

func TestConsoleInputAndHotkeys(t *testing.T) {
	h := startConsole(t)

	h.typeLine("game new Jam")
	h.waitState(func(s history.State) bool { return s.Size == 1 && s.CanUndo })

	// Chords are ignored while the input has focus
	h.key(tcell.KeyCtrlZ, tcell.ModCtrl)
	h.typeLine("games")
	h.typeLine("game new Second")
	h.waitState(func(s history.State) bool { return s.Size == 2 })
	assert.False(t, h.session.History.CanRedo())

	// History focus routes Ctrl+Z to undo
	h.key(tcell.KeyTab, tcell.ModNone)
	h.key(tcell.KeyCtrlZ, tcell.ModCtrl)
	h.waitState(func(s history.State) bool { return s.Cursor == 0 && s.CanRedo })

	h.key(tcell.KeyCtrlY, tcell.ModCtrl)
	h.waitState(func(s history.State) bool { return s.Cursor == 1 && !s.CanRedo })

	h.quit()
}

func TestConsoleQuitCommand(t *testing.T) {
	h := startConsole(t)
	h.typeLine("quit")
	select {
	case err := <-h.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("console did not quit")
	}
}

func TestConsoleContextCancel(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	session := NewSession(history.New(), memstore.New())
	binder := hotkey.NewBinder(session.History)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(screen, session, binder).Run(ctx) }()

	// Wait for the screen before cancelling
	require.Eventually(t, func() bool {
		return screen.PostEvent(tcell.NewEventInterrupt(nil)) == nil
	}, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("console did not stop")
	}
}
