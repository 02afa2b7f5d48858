package hotkey

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/ballotdesk/internal/input/key"
)

// Action identifies what a chord triggers.
type Action string

// Actions.
const (
	ActionUndo Action = "undo"
	ActionRedo Action = "redo"
)

// ErrNoChord is returned when an action has no chords bound.
var ErrNoChord = errors.New("no chord bound")

// Bindings holds the chords for each action.
type Bindings struct {
	Undo []key.Event
	Redo []key.Event
}

// DefaultBindings returns the platform convention for goos.
// Darwin uses Cmd where other platforms use Ctrl.
func DefaultBindings(goos string) Bindings {
	mod := "Ctrl"
	if goos == "darwin" {
		mod = "Meta"
	}
	return Bindings{
		Undo: []key.Event{key.MustParse(mod + "+Z")},
		Redo: []key.Event{
			key.MustParse(mod + "+Y"),
			key.MustParse(mod + "+Shift+Z"),
		},
	}
}

// ParseBindings builds bindings from key specs.
func ParseBindings(undo, redo []string) (Bindings, error) {
	u, err := key.ParseAll(undo)
	if err != nil {
		return Bindings{}, fmt.Errorf("undo: %w", err)
	}
	r, err := key.ParseAll(redo)
	if err != nil {
		return Bindings{}, fmt.Errorf("redo: %w", err)
	}
	b := Bindings{Undo: u, Redo: r}
	return b, b.Validate()
}

// Validate reports an action without chords or a chord bound twice.
func (b Bindings) Validate() error {
	if len(b.Undo) == 0 {
		return fmt.Errorf("%s: %w", ActionUndo, ErrNoChord)
	}
	if len(b.Redo) == 0 {
		return fmt.Errorf("%s: %w", ActionRedo, ErrNoChord)
	}
	for _, u := range b.Undo {
		for _, r := range b.Redo {
			if u.Equals(r) {
				return fmt.Errorf("chord %s bound to both undo and redo", u)
			}
		}
	}
	return nil
}

// Match returns the action bound to ev.
func (b Bindings) Match(ev key.Event) (Action, bool) {
	for _, c := range b.Undo {
		if c.Equals(ev) {
			return ActionUndo, true
		}
	}
	for _, c := range b.Redo {
		if c.Equals(ev) {
			return ActionRedo, true
		}
	}
	return "", false
}

// Specs returns the bindings as canonical key specs.
func (b Bindings) Specs() (undo, redo []string) {
	for _, c := range b.Undo {
		undo = append(undo, c.String())
	}
	for _, c := range b.Redo {
		redo = append(redo, c.String())
	}
	return undo, redo
}

// String returns a summary like "undo=Ctrl+Z redo=Ctrl+Y,Ctrl+Shift+Z".
func (b Bindings) String() string {
	undo, redo := b.Specs()
	return "undo=" + strings.Join(undo, ",") + " redo=" + strings.Join(redo, ",")
}

func (b Bindings) clone() Bindings {
	return Bindings{
		Undo: append([]key.Event(nil), b.Undo...),
		Redo: append([]key.Event(nil), b.Redo...),
	}
}
