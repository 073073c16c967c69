package issue

import "errors"

// Issue-specific error types.
var (
	ErrUnknownField = errors.New("unknown sort field")
)
