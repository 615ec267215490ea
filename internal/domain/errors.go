package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)

// ErrTransient marks a store failure worth retrying (lost connection, serialization
// failure, deadlock, lock timeout). Store adapters wrap it together with the cause.
var ErrTransient = errors.New("transient store failure")
