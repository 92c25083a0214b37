package gateway

import "errors"

// Error kinds surfaced to callers. Every remote failure is normalized to one
// of these before it leaves the gateway.

// NotFoundError means the mutation target no longer exists remotely.
type NotFoundError struct {
	err error
}

func (e *NotFoundError) Error() string { return e.err.Error() }
func (e *NotFoundError) Unwrap() error { return e.err }

// ValidationError means the remote rejected the payload.
type ValidationError struct {
	err error
}

func (e *ValidationError) Error() string { return e.err.Error() }
func (e *ValidationError) Unwrap() error { return e.err }

// ConflictError means the remote state changed underneath the mutation. The
// gateway responds with a forced refresh rather than a blind rollback.
type ConflictError struct {
	err error
}

func (e *ConflictError) Error() string { return e.err.Error() }
func (e *ConflictError) Unwrap() error { return e.err }

// NetworkError is a transport-level failure. Reads may retry it; mutations
// never do, to avoid duplicate writes.
type NetworkError struct {
	err error
}

func (e *NetworkError) Error() string { return e.err.Error() }
func (e *NetworkError) Unwrap() error { return e.err }

// UnknownError is the catch-all for failures outside the taxonomy.
type UnknownError struct {
	err error
}

func (e *UnknownError) Error() string { return e.err.Error() }
func (e *UnknownError) Unwrap() error { return e.err }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool {
	var target *NetworkError
	return errors.As(err, &target)
}

// IsUnknown reports whether err is an UnknownError.
func IsUnknown(err error) bool {
	var target *UnknownError
	return errors.As(err, &target)
}
