package key

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Parse errors
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Parse parses a key specification string into an Event.
//
// Supported formats:
//   - Single character or key name: "a", "Enter", "F5"
//   - With modifiers: "Ctrl+Z", "Ctrl+Shift+Z", "Meta+Z"
//   - Vim-style: "<C-z>", "<C-S-z>", "<D-z>", "<Esc>"
//
// The result is normalized.
func Parse(spec string) (Event, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Event{}, ErrEmptySpec
	}

	var (
		mods    Modifier
		keyPart string
	)
	switch {
	case len(spec) > 2 && strings.HasPrefix(spec, "<") && strings.HasSuffix(spec, ">"):
		parts := strings.Split(spec[1:len(spec)-1], "-")
		keyPart = parts[len(parts)-1]
		for _, p := range parts[:len(parts)-1] {
			mod, ok := vimModifiers[strings.ToLower(strings.TrimSpace(p))]
			if !ok {
				return Event{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
			}
			mods = mods.With(mod)
		}
	case len(spec) > 1 && strings.Contains(spec, "+"):
		// "Ctrl++" binds the plus key
		var head string
		if strings.HasSuffix(spec, "++") {
			head, keyPart = spec[:len(spec)-2], "+"
		} else {
			i := strings.LastIndex(spec, "+")
			head, keyPart = spec[:i], spec[i+1:]
		}
		for _, p := range strings.Split(head, "+") {
			mod, ok := modifierNames[strings.ToLower(strings.TrimSpace(p))]
			if !ok {
				return Event{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
			}
			mods = mods.With(mod)
		}
	default:
		keyPart = spec
	}

	ev, err := parseKey(strings.TrimSpace(keyPart), mods)
	if err != nil {
		return Event{}, err
	}
	return ev.Normalize(), nil
}

func parseKey(keyPart string, mods Modifier) (Event, error) {
	if keyPart == "" {
		return Event{}, ErrInvalidSpec
	}
	switch strings.ToLower(keyPart) {
	case "space":
		return RuneEvent(' ', mods), nil
	case "lt":
		return RuneEvent('<', mods), nil
	case "gt":
		return RuneEvent('>', mods), nil
	case "plus":
		return RuneEvent('+', mods), nil
	}
	if k := FromName(keyPart); k != KeyNone {
		return SpecialEvent(k, mods), nil
	}
	if runes := []rune(keyPart); len(runes) == 1 {
		r := runes[0]
		// "Ctrl+Z" means z; Shift must be spelled out
		if mods.Has(ModCtrl | ModAlt | ModMeta) {
			r = unicode.ToLower(r)
		}
		return RuneEvent(r, mods), nil
	}
	return Event{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, keyPart)
}

// ParseAll parses every spec, stopping at the first error.
func ParseAll(specs []string) ([]Event, error) {
	events := make([]Event, 0, len(specs))
	for _, spec := range specs {
		ev, err := Parse(spec)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", spec, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// MustParse parses a key specification and panics on error.
// Use only for known-valid specs in initialization code.
func MustParse(spec string) Event {
	event, err := Parse(spec)
	if err != nil {
		panic("invalid key specification: " + spec + ": " + err.Error())
	}
	return event
}
