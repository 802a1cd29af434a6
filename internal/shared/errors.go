package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnknownUser indicates the caller identity could not be resolved.
	ErrUnknownUser = errors.New("unknown user")
)
