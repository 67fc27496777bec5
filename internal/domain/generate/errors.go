package generate

import "errors"

var (
	// ErrInvalidInput indicates a generation request missing its description.
	ErrInvalidInput = errors.New("invalid generation input")
	// ErrInvalidBreakdown indicates the generator returned a tree that fails
	// schema validation; nothing is applied.
	ErrInvalidBreakdown = errors.New("invalid generated breakdown")
)
