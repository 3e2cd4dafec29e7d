package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"os"
	"strings"
)

const (
	// SigningKeyEnv is the env var name for the session signing key.
	// #nosec G101 -- not a credential; it's an environment variable name.
	SigningKeyEnv = "CARELINK_SESSION_HMAC_KEY"

	// MinKeyBytes is the minimum accepted signing key length.
	MinKeyBytes = 32
)

// SignHMACSHA256 returns the HMAC-SHA256 of payload under key.
func SignHMACSHA256(payload, key []byte) []byte {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write(payload)
	return m.Sum(nil)
}

// VerifyHMACSHA256 reports whether sig is a valid MAC for payload under key.
// The comparison is constant time.
func VerifyHMACSHA256(payload, sig, key []byte) bool {
	return hmac.Equal(sig, SignHMACSHA256(payload, key))
}

// KeyFromEnv returns the configured signing key bytes (trimmed), enforcing
// the minimum byte length. Missing/blank -> ErrKeyMissing; too short ->
// ErrKeyTooShort.
func KeyFromEnv() ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(SigningKeyEnv))
	if raw == "" {
		return nil, ErrKeyMissing
	}
	b := []byte(raw)
	if len(b) < MinKeyBytes {
		return nil, ErrKeyTooShort
	}
	return b, nil
}
