package commands

import "errors"

// Action tells a SyncFunc which direction an operation went.
type Action string

// Actions.
const (
	ActionApply Action = "apply"
	ActionUndo  Action = "undo"
	ActionRedo  Action = "redo"
)

// Meta carries extra detail for a SyncFunc.
type Meta struct {
	// DeletedID is set when the operation removed the entity. The entity
	// passed alongside is nil in that case.
	DeletedID string
}

// SyncFunc receives the entity an operation produced.
type SyncFunc[T any] func(entity *T, action Action, meta Meta)

func (f SyncFunc[T]) call(entity *T, action Action, meta Meta) {
	if f != nil {
		f(entity, action, meta)
	}
}

// ErrNotApplied is returned by Undo or Redo on a command that never ran.
var ErrNotApplied = errors.New("command was never applied")
