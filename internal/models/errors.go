package models

import "errors"

// Error kinds shared by repositories and handlers. Specific failures wrap one
// of these so callers can match with errors.Is and map to an HTTP status.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)
