package auth

import (
	"time"

	"carelink/cmd/identity"
)

// FailureCode classifies expected business failures. It is stable for
// callers and tests; transient infrastructure failures are returned as Go
// errors instead, so only they are retryable.
type FailureCode string

const (
	// CodeInvalidCredentials covers a wrong email/password pair. Callers are
	// never told which half was wrong.
	CodeInvalidCredentials FailureCode = "invalid_credentials"

	// CodeAccountExists covers signup with an email already bound to an
	// account.
	CodeAccountExists FailureCode = "account_exists"

	// CodeInvalidInput covers inputs the store refuses to persist (missing
	// email/display name, unhashable password).
	CodeInvalidInput FailureCode = "invalid_input"
)

// Result is the uniform outcome of every facade operation.
// Business failures are values, not errors: Success is false, Code set, and
// Message suitable for display.
type Result struct {
	Success bool
	Code    FailureCode
	Message string

	// Set only on success.
	Account *identity.Account
	Token   string
	// ExpiresAt is the session expiry, for cookie alignment at the transport
	// layer.
	ExpiresAt time.Time
}

func failure(code FailureCode, msg string) Result {
	return Result{Success: false, Code: code, Message: msg}
}
