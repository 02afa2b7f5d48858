// Package console is the terminal UI of ballotdesk.
//
// The screen shows the command history with the cursor marked, a status
// line and an input line. Tab moves focus between the input and the
// history list. Undo and redo chords go through a hotkey.Binder, so they
// are ignored while the input has focus and the input keeps its own
// editing keys.
//
// All operations run on one worker goroutine in submission order; the
// event loop only draws and queues work.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/ballotdesk/internal/engine/history"
	"github.com/dshills/ballotdesk/internal/input/hotkey"
	"github.com/dshills/ballotdesk/internal/input/key"
)

// focus is the element that receives key events.
type focus int

const (
	focusInput focus = iota
	focusHistory
)

// IsEditable implements hotkey.Target.
func (f focus) IsEditable() bool {
	return f == focusInput
}

// job is one queued operation.
type job struct {
	label string
	fn    func(ctx context.Context) (string, error)
}

// result is posted back to the event loop after a job settles.
type result struct {
	msg string
	err error
}

// Console runs the terminal UI.
type Console struct {
	screen  tcell.Screen
	session *Session
	binder  *hotkey.Binder
	logger  *slog.Logger

	jobs chan job

	// Owned by the event loop goroutine
	focus   focus
	input   []rune
	message string
	isError bool
	busy    int
	scroll  int

	mu    sync.Mutex
	state history.State
}

// Option configures a Console.
type Option func(*Console)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Console) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a console drawing on screen. The screen is initialized by
// Run.
func New(screen tcell.Screen, session *Session, binder *hotkey.Binder, opts ...Option) *Console {
	c := &Console{
		screen:  screen,
		session: session,
		binder:  binder,
		logger:  slog.New(slog.DiscardHandler),
		jobs:    make(chan job, 16),
		message: "Tab switches focus, Ctrl+C quits, type help for commands",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run initializes the screen and processes events until the operator
// quits or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	if err := c.screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer c.screen.Fini()

	ctx, cancel := context.WithCancel(ctx)

	unsubscribe := c.session.History.Subscribe(history.OnChange(func(s history.State) {
		c.mu.Lock()
		c.state = s
		c.mu.Unlock()
		c.wake(nil)
	}))
	defer unsubscribe()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.work(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	go func() {
		<-ctx.Done()
		c.wake(ctx.Err())
	}()

	c.submit("load", func(ctx context.Context) (string, error) {
		if err := c.session.Mirror.Load(ctx, c.session.Factory.Store); err != nil {
			return "", fmt.Errorf("load remote state: %w", err)
		}
		return fmt.Sprintf("connected, %d games", len(c.session.Mirror.Games())), nil
	})

	for {
		c.draw()

		switch ev := c.screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			c.screen.Sync()
		case *tcell.EventInterrupt:
			switch data := ev.Data().(type) {
			case result:
				c.busy--
				c.message, c.isError = data.msg, data.err != nil
				if data.err != nil {
					if errors.Is(data.err, ErrQuit) {
						return nil
					}
					c.message = data.err.Error()
				}
			case error:
				return nil
			}
		case *tcell.EventKey:
			if c.handleKey(ev) {
				return nil
			}
		}
	}
}

// handleKey processes a key press. It returns true to quit.
func (c *Console) handleKey(ev *tcell.EventKey) bool {
	k := key.FromTcell(ev)

	switch {
	case k.Equals(key.RuneEvent('c', key.ModCtrl)):
		return true
	case k.Key == key.KeyTab || k.Key == key.KeyBacktab:
		if c.focus == focusInput {
			c.focus = focusHistory
		} else {
			c.focus = focusInput
		}
		return false
	}

	if c.focus == focusHistory {
		switch k.Key {
		case key.KeyUp:
			c.scroll++
		case key.KeyDown:
			c.scroll = max(c.scroll-1, 0)
		}
	}

	// Chords are offered to the binder before the focused element
	target := c.focus
	if !target.IsEditable() {
		if action, ok := c.binder.Bindings().Match(k); ok {
			c.submit(string(action), func(ctx context.Context) (string, error) {
				handled, err := c.binder.Handle(ctx, k, target)
				if err != nil {
					return "", err
				}
				if !handled {
					return "nothing to " + string(action), nil
				}
				return string(action) + " done", nil
			})
			return false
		}
	}

	if c.focus == focusInput {
		c.edit(k)
	}
	return false
}

// edit applies a key to the input line.
func (c *Console) edit(k key.Event) {
	switch {
	case k.Key == key.KeyEnter:
		line := strings.TrimSpace(string(c.input))
		c.input = c.input[:0]
		if line == "" {
			return
		}
		c.submit(line, func(ctx context.Context) (string, error) {
			return c.session.Exec(ctx, line)
		})
	case k.Key == key.KeyBackspace:
		if len(c.input) > 0 {
			c.input = c.input[:len(c.input)-1]
		}
	case k.Key == key.KeyEscape:
		c.input = c.input[:0]
	case k.IsChar():
		c.input = append(c.input, k.Rune)
	}
}

// submit queues fn on the worker.
func (c *Console) submit(label string, fn func(ctx context.Context) (string, error)) {
	c.busy++
	c.message, c.isError = label+"...", false
	select {
	case c.jobs <- job{label: label, fn: fn}:
	default:
		c.busy--
		c.message, c.isError = "busy, try again", true
	}
}

// work runs queued jobs one at a time.
func (c *Console) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-c.jobs:
			msg, err := j.fn(ctx)
			if err != nil && !errors.Is(err, ErrQuit) {
				c.logger.Warn("operation failed", "op", j.label, "err", err)
			}
			c.wake(result{msg: msg, err: err})
		}
	}
}

// wake posts data to the event loop.
func (c *Console) wake(data any) {
	_ = c.screen.PostEvent(tcell.NewEventInterrupt(data))
}

func (c *Console) historyState() history.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
