package batch

import "errors"

var (
	// ErrResolveHost is returned in strict mode when a host cannot be
	// matched to any tracker backend.
	ErrResolveHost = errors.New("failed to resolve host to a tracker backend")
)
