// Package session implements Carelink's session tokens and persistence.
//
// Session tokens are signed, time-bounded envelopes carrying account claims
// (id, email, display name, origin). They are issued per successful login or
// signup with a 7-day default TTL and verified statelessly: verification is a
// pure function of (token, current time, signing key) and is safe to call
// from any number of goroutines.
//
// Persistence stores the current token under an opaque client session key in
// an external medium (Redis in production, memory in dev/tests) with the
// token's remaining TTL. The stored token is opaque to the medium.
//
// HTTP transport integration (cookies) lives in cookie.go; the core types
// never assume a particular storage technology.
package session
