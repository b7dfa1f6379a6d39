package store

import "errors"

var (
	// ErrConflict reports that the store refused a write that would break the
	// non-overlap rule, or aborted a transaction that raced with another.
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
)
