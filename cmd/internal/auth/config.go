package auth

import (
	"os"
	"time"
)

// Config controls facade behavior.
type Config struct {
	// StoreTimeout bounds every call into the credential and session stores.
	// When it elapses, the operation fails with a transient error callers may
	// retry; business rejections are never produced by a timeout.
	StoreTimeout time.Duration
}

// DefaultConfig returns facade defaults suitable for interactive requests.
func DefaultConfig() Config {
	return Config{
		StoreTimeout: 3 * time.Second,
	}
}

// LoadConfigFromEnv loads facade configuration.
//
// Optional:
//   - CARELINK_AUTH_STORE_TIMEOUT (Go duration string, default 3s)
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("CARELINK_AUTH_STORE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.StoreTimeout = d
		}
	}

	return cfg
}
