// Package hotkey maps global keyboard shortcuts to history undo and redo.
//
// A Binder receives key-down events together with the element that has
// focus. Events aimed at an editable target are left alone so text fields
// keep their own undo behaviour.
//
//	b := hotkey.NewBinder(h, hotkey.WithOnHandled(func(a hotkey.Action) {
//	    status.Flash(string(a))
//	}))
//	handled, err := b.Handle(ctx, key.FromTcell(ev), focused)
//
// Chords are written in the formats accepted by key.Parse, for example
// "Ctrl+Z", "Ctrl+Shift+Z" or "<D-z>".
package hotkey
