// Package history provides undo/redo for administrative mutations made
// against the remote resource store.
//
// The history system uses the Command pattern: every mutation is wrapped in a
// Command that can be executed, undone and redone. Undo cannot throw away
// local state; it issues compensating remote calls.
//
// # Commands
//
// A Command carries an identity (id, kind, name, creation time) and
// Execute/Undo/Redo methods that block on remote calls. Embed Base to get
// the identity half:
//
//	type MyCommand struct {
//	    history.Base
//	    // snapshot and collaborators
//	}
//
// Kind is a closed set of tags. Batch groups several commands into one undo
// unit.
//
// # History
//
// History keeps an ordered stack of applied commands and a cursor pointing
// at the last applied one (-1 when nothing is applied):
//
//	h := history.New(history.WithCapacity(100))
//
//	if err := h.Run(ctx, cmd); err != nil {
//	    // cmd was not added
//	}
//
//	h.Undo(ctx)
//	h.Redo(ctx)
//
// Running a new command discards everything after the cursor. The stack is
// bounded; the oldest command ages out once capacity is exceeded.
//
// Callers must not start a Run, Undo or Redo before the previous one has
// returned. History does not serialize them for you; the mutex it holds only
// guards reads of its state.
//
// # Failed compensation
//
// When Undo or Redo fails the error is returned, the cursor stays where it
// was, and the history is marked desynchronized until a later undo/redo
// succeeds or Reconcile is called. A remote call that failed after the
// server applied it leaves the remote store ahead of the cursor; operators
// have to reconcile that by hand.
//
// # Audit
//
// Serialize maps the stack through a Visitor into Records that hold no live
// references and can be displayed or written out.
package history
