package key

import (
	"fmt"
	"strings"
	"unicode"
)

// Event represents a single key press.
type Event struct {
	// Key identifies the key pressed.
	Key Key

	// Rune is the character for KeyRune events.
	Rune rune

	// Modifiers contains the active modifier keys.
	Modifiers Modifier
}

// RuneEvent creates a key event for a character.
func RuneEvent(r rune, mods Modifier) Event {
	return Event{Key: KeyRune, Rune: r, Modifiers: mods}
}

// SpecialEvent creates a key event for a special key.
func SpecialEvent(k Key, mods Modifier) Event {
	return Event{Key: k, Modifiers: mods}
}

// IsRune returns true if this is a character key event.
func (e Event) IsRune() bool {
	return e.Key == KeyRune && e.Rune != 0
}

// IsChar returns true if this is a printable character typed without
// Ctrl, Alt or Meta.
func (e Event) IsChar() bool {
	return e.IsRune() && unicode.IsPrint(e.Rune) && !e.Modifiers.Has(ModCtrl|ModAlt|ModMeta)
}

// Normalize returns the canonical form of a chord. An uppercase letter
// implies Shift. With Ctrl, Alt or Meta held the letter is lowercased;
// without them a shifted letter is uppercased.
func (e Event) Normalize() Event {
	if e.Key != KeyRune {
		return e
	}
	if unicode.IsUpper(e.Rune) {
		e.Modifiers = e.Modifiers.With(ModShift)
	}
	switch {
	case e.Modifiers.Has(ModCtrl | ModAlt | ModMeta):
		e.Rune = unicode.ToLower(e.Rune)
	case e.Modifiers.Has(ModShift):
		e.Rune = unicode.ToUpper(e.Rune)
	}
	return e
}

// Equals returns true if two events are the same chord.
func (e Event) Equals(other Event) bool {
	return e.Normalize() == other.Normalize()
}

// String returns a canonical spec like "Ctrl+Shift+Z" that Parse accepts.
func (e Event) String() string {
	n := e.Normalize()
	modified := n.Modifiers.Has(ModCtrl | ModAlt | ModMeta)

	var name string
	switch {
	case n.Key == KeyRune && n.Rune == ' ':
		name = "Space"
	case n.Key == KeyRune && !modified:
		return string(n.Rune)
	case n.Key == KeyRune:
		name = string(unicode.ToUpper(n.Rune))
	default:
		name = n.Key.String()
	}
	if mods := n.Modifiers.String(); mods != "" {
		return mods + "+" + name
	}
	return name
}

// GoString implements fmt.GoStringer for debugging.
func (e Event) GoString() string {
	return fmt.Sprintf("Event{Key: %s, Rune: %q, Modifiers: %s}",
		e.Key, e.Rune, strings.ReplaceAll(e.Modifiers.String(), "+", "|"))
}
