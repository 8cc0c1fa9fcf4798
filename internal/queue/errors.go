package queue

import "errors"

var (
	// ErrUnknownPackage is returned when a transition names a package that has
	// no row. It indicates a caller bug and must not be swallowed.
	ErrUnknownPackage = errors.New("unknown package")
	// ErrInvalidTransition is returned when a transition is requested from a
	// status that does not allow it.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrMalformedBatch is returned when a batch of identifiers cannot be
	// loaded. Nothing from the batch is inserted.
	ErrMalformedBatch = errors.New("malformed package batch")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)
