package creds

import "errors"

var (
	// ErrNotFound is returned when the credentials file does not exist.
	ErrNotFound = errors.New("credentials file not found")
	// ErrPermissions is returned when the credentials file is readable by
	// group or others.
	ErrPermissions = errors.New("credentials file is readable by group or others")
)
