package session

import (
	"os"
	"time"

	"carelink/cmd/security/token"
)

// Config defines runtime configuration for the session subsystem.
//
// It controls the session-token TTL and carries the signing key. The key is
// environment-provisioned; it must never appear as a literal in source.
type Config struct {
	// TokenTTL is the lifetime of issued session tokens. The persisted
	// session entry uses the same TTL, so token expiry and persistence expiry
	// stay aligned.
	TokenTTL time.Duration

	// SigningKey is the HMAC-SHA256 key for token signatures.
	SigningKey []byte
}

// DefaultTokenTTL matches the product's 7-day session window.
const DefaultTokenTTL = 7 * 24 * time.Hour

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - CARELINK_SESSION_HMAC_KEY (>= 32 bytes)
//
// Optional:
//   - CARELINK_SESSION_TTL (Go duration string, default 168h)
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{TokenTTL: DefaultTokenTTL}

	if v := os.Getenv("CARELINK_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.TokenTTL = d
	}

	key, err := token.KeyFromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg.SigningKey = key

	return cfg, nil
}
