package plan

import "errors"

var (
	// ErrPhaseNotFound indicates the referenced phase doesn't exist.
	ErrPhaseNotFound = errors.New("phase not found")
	// ErrTaskNotFound indicates the referenced microtask doesn't exist.
	ErrTaskNotFound = errors.New("microtask not found")
	// ErrInvalidInput indicates invalid input for a plan mutation.
	ErrInvalidInput = errors.New("invalid plan input")
)
