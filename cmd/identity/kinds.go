package identity

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to auth results).
var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrNotFound     = errors.New("not_found")
	ErrConflict     = errors.New("conflict")
)
