package service

import "errors"

// Service-specific errors.
var (
	ErrUnknownService = errors.New("no supported service found for host")
	ErrNotSupported   = errors.New("operation not supported by this tracker")
	ErrBadReference   = errors.New("invalid issue reference for this tracker")

	// errNotFound marks a confirmed 404 from a backend. Adapters translate
	// it into the not-found sentinel issue instead of letting it escape.
	errNotFound = errors.New("not found")
)
