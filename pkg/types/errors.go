package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidFragmentID   = errors.New("invalid fragment ID")
	ErrInvalidFragmentKind = errors.New("invalid fragment kind")
	ErrInvalidLineSpan     = errors.New("start line must be >= 0 and <= end line")
	ErrMissingFileInfo     = errors.New("file path is required")
)

// Errors surfaced by the public operations
var (
	ErrEmptyQuery   = errors.New("query cannot be empty")
	ErrInvalidRoot  = errors.New("project root must be an existing directory")
	ErrFileNotFound = errors.New("file not found in project")
)
