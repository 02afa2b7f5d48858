package key

import (
	"testing"
)

func TestRuneEvent(t *testing.T) {
	e := RuneEvent('a', ModNone)
	if e.Key != KeyRune {
		t.Errorf("RuneEvent key = %v, want KeyRune", e.Key)
	}
	if e.Rune != 'a' {
		t.Errorf("RuneEvent rune = %q, want 'a'", e.Rune)
	}
	if e.Modifiers != ModNone {
		t.Errorf("RuneEvent modifiers = %v, want ModNone", e.Modifiers)
	}
}

func TestEventIsChar(t *testing.T) {
	tests := []struct {
		event Event
		want  bool
	}{
		{RuneEvent('a', ModNone), true},
		{RuneEvent('A', ModShift), true},
		{RuneEvent(' ', ModNone), true},
		{RuneEvent('\n', ModNone), false}, // Not printable
		{RuneEvent('z', ModCtrl), false},
		{SpecialEvent(KeyEscape, ModNone), false},
		{Event{Key: KeyRune, Rune: 0}, false}, // Zero rune
	}

	for _, tt := range tests {
		if got := tt.event.IsChar(); got != tt.want {
			t.Errorf("IsChar() = %v, want %v for %#v", got, tt.want, tt.event)
		}
	}
}

func TestEventNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Event
		want Event
	}{
		{"plain", RuneEvent('a', ModNone), RuneEvent('a', ModNone)},
		{"uppercase implies shift", RuneEvent('A', ModNone), RuneEvent('A', ModShift)},
		{"shifted letter uppercased", RuneEvent('a', ModShift), RuneEvent('A', ModShift)},
		{"ctrl lowercases", RuneEvent('Z', ModCtrl), RuneEvent('z', ModCtrl|ModShift)},
		{"meta shift", RuneEvent('Z', ModMeta|ModShift), RuneEvent('z', ModMeta|ModShift)},
		{"special untouched", SpecialEvent(KeyEnter, ModShift), SpecialEvent(KeyEnter, ModShift)},
	}

	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("%s: Normalize() = %#v, want %#v", tt.name, got, tt.want)
		}
	}
}

func TestEventEquals(t *testing.T) {
	if !RuneEvent('z', ModCtrl|ModShift).Equals(RuneEvent('Z', ModCtrl)) {
		t.Error("Ctrl+Shift+z should equal Ctrl+Z typed uppercase")
	}
	if RuneEvent('z', ModCtrl).Equals(RuneEvent('z', ModCtrl|ModShift)) {
		t.Error("Ctrl+z should not equal Ctrl+Shift+z")
	}
	if RuneEvent('z', ModCtrl).Equals(RuneEvent('z', ModMeta)) {
		t.Error("Ctrl+z should not equal Meta+z")
	}
}

func TestEventString(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{RuneEvent('a', ModNone), "a"},
		{RuneEvent('A', ModShift), "A"},
		{RuneEvent('z', ModCtrl), "Ctrl+Z"},
		{RuneEvent('z', ModCtrl|ModShift), "Ctrl+Shift+Z"},
		{RuneEvent('z', ModMeta|ModShift), "Meta+Shift+Z"},
		{RuneEvent(' ', ModCtrl), "Ctrl+Space"},
		{SpecialEvent(KeyF5, ModNone), "F5"},
		{SpecialEvent(KeyTab, ModShift), "Shift+Tab"},
	}

	for _, tt := range tests {
		if got := tt.event.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		// Round trip
		parsed, err := Parse(tt.event.String())
		if err != nil {
			t.Errorf("Parse(%q) error = %v", tt.event.String(), err)
			continue
		}
		if !parsed.Equals(tt.event) {
			t.Errorf("Parse(%q) = %#v, want %#v", tt.event.String(), parsed, tt.event)
		}
	}
}

func TestModifierString(t *testing.T) {
	tests := []struct {
		mod  Modifier
		want string
	}{
		{ModNone, ""},
		{ModCtrl, "Ctrl"},
		{ModCtrl | ModShift, "Ctrl+Shift"},
		{ModMeta | ModAlt, "Alt+Meta"},
	}

	for _, tt := range tests {
		if got := tt.mod.String(); got != tt.want {
			t.Errorf("Modifier(%d).String() = %q, want %q", tt.mod, got, tt.want)
		}
	}
}

func TestKeyString(t *testing.T) {
	if KeyPageDown.String() != "PageDown" {
		t.Errorf("KeyPageDown.String() = %q", KeyPageDown.String())
	}
	if Key(200).String() != "Key(200)" {
		t.Errorf("unknown key = %q", Key(200).String())
	}
	if !KeyF1.IsSpecial() || KeyRune.IsSpecial() || KeyNone.IsSpecial() {
		t.Error("IsSpecial mismatch")
	}
}
