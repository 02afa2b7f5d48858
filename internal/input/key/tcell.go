package key

import (
	"unicode"

	"github.com/gdamore/tcell/v2"
)

var tcellKeys = map[tcell.Key]Key{
	tcell.KeyEscape:     KeyEscape,
	tcell.KeyEnter:      KeyEnter,
	tcell.KeyTab:        KeyTab,
	tcell.KeyBacktab:    KeyBacktab,
	tcell.KeyBackspace:  KeyBackspace,
	tcell.KeyBackspace2: KeyBackspace,
	tcell.KeyDelete:     KeyDelete,
	tcell.KeyInsert:     KeyInsert,
	tcell.KeyHome:       KeyHome,
	tcell.KeyEnd:        KeyEnd,
	tcell.KeyPgUp:       KeyPageUp,
	tcell.KeyPgDn:       KeyPageDown,
	tcell.KeyUp:         KeyUp,
	tcell.KeyDown:       KeyDown,
	tcell.KeyLeft:       KeyLeft,
	tcell.KeyRight:      KeyRight,
	tcell.KeyF1:         KeyF1,
	tcell.KeyF2:         KeyF2,
	tcell.KeyF3:         KeyF3,
	tcell.KeyF4:         KeyF4,
	tcell.KeyF5:         KeyF5,
	tcell.KeyF6:         KeyF6,
	tcell.KeyF7:         KeyF7,
	tcell.KeyF8:         KeyF8,
	tcell.KeyF9:         KeyF9,
	tcell.KeyF10:        KeyF10,
	tcell.KeyF11:        KeyF11,
	tcell.KeyF12:        KeyF12,
}

// FromTcell converts a terminal key event. Control characters such as
// tcell.KeyCtrlZ become the letter with ModCtrl.
func FromTcell(ev *tcell.EventKey) Event {
	mods := fromTcellMod(ev.Modifiers())
	k := ev.Key()

	if mapped, ok := tcellKeys[k]; ok {
		return SpecialEvent(mapped, mods)
	}

	switch {
	case k == tcell.KeyRune:
		r := ev.Rune()
		if mods.Has(ModCtrl | ModAlt | ModMeta) {
			// Terminals report the shifted letter as uppercase
			if unicode.IsUpper(r) {
				mods = mods.With(ModShift)
			}
			r = unicode.ToLower(r)
		}
		return RuneEvent(r, mods)
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		return RuneEvent('a'+rune(k-tcell.KeyCtrlA), mods.With(ModCtrl))
	case k == tcell.KeyCtrlSpace:
		return RuneEvent(' ', mods.With(ModCtrl))
	}
	return Event{Modifiers: mods}
}

func fromTcellMod(m tcell.ModMask) Modifier {
	var result Modifier
	if m&tcell.ModShift != 0 {
		result |= ModShift
	}
	if m&tcell.ModCtrl != 0 {
		result |= ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		result |= ModAlt
	}
	if m&tcell.ModMeta != 0 {
		result |= ModMeta
	}
	return result
}
