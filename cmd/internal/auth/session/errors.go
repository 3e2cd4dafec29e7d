package session

import "errors"

var (
	// ErrInvalidToken is returned when a session token is malformed or its
	// signature does not verify.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when a structurally valid token is past its
	// expiry at verification time.
	ErrExpiredToken = errors.New("token expired")

	// ErrNoSession is returned by Store.Get when no token is persisted under
	// the given session key (or the entry has expired).
	ErrNoSession = errors.New("no session")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
