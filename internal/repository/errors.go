package repository

import "errors"

// Sentinel errors returned by the persistence layer. The sync gateway maps
// these onto its caller-facing taxonomy.
var (
	// ErrNotFound is returned when the target task does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrConflict is returned when the caller's expected revision is stale.
	ErrConflict = errors.New("task modified concurrently")

	// ErrInvalid is returned when the payload fails validation.
	ErrInvalid = errors.New("invalid task payload")
)
