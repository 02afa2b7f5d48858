package script

import "errors"

// Errors returned by script runs.
var (
	// ErrStepLimit is returned when a script issues more desk calls than
	// allowed.
	ErrStepLimit = errors.New("script step limit exceeded")

	// ErrRolledBack wraps the failure of a script whose commands were
	// undone.
	ErrRolledBack = errors.New("script rolled back")
)
