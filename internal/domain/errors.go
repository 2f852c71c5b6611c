package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// Fatal configuration errors; a run aborts on these.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrSchema           = errors.New("schema setup failed")
)
