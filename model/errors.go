package model

import "errors"

var (
	// ErrPatternNotFound means the fragment pattern matched nowhere. The document is left untouched.
	ErrPatternNotFound = errors.New("pattern not found")
	// ErrAmbiguousMatch means a pattern that must be unique matched more than once.
	ErrAmbiguousMatch = errors.New("pattern matched more than once")
	// ErrDuplicateFragment means the extracted fragment text occurs more than once,
	// so literal removal would delete every copy.
	ErrDuplicateFragment = errors.New("fragment text occurs more than once")
	// ErrAnchorNotFound means the insertion point could not be located after removal.
	ErrAnchorNotFound = errors.New("insertion anchor not found")
	// ErrInvalidResult means the relocated document no longer parses.
	ErrInvalidResult = errors.New("relocated document has syntax errors")
)
