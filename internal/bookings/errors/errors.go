package errors

import "errors"

var (
	// ErrNotFound is the repository-level miss for by-id and by-user lookups.
	// The service layer translates it into the caller-facing taxonomy.
	ErrNotFound = errors.New("booking not found")

	ErrLockHeld = errors.New("slot lock already held")
)
