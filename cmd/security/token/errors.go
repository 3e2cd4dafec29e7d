package token

import "errors"

// Public, stable errors for callers.
var (
	ErrKeyMissing  = errors.New("session signing key missing")
	ErrKeyTooShort = errors.New("session signing key too short")
)
