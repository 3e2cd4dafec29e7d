package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NewKey generates a cryptographically secure client session key.
// 32 bytes = 256 bits of entropy.
func NewKey() (string, error) {
	const size = 32

	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: failed to generate key: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
