package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	MaxBodyBytes int64

	// CookieSecure toggles the Secure attribute on session cookies. It must
	// stay true anywhere but plain-HTTP local development.
	CookieSecure bool

	// Login throttling per identifier (normalized email).
	LoginRatePerMinute int
	LoginBurst         int

	// StateTTL bounds the federated state cookie lifetime.
	StateTTL time.Duration
}

// LoadConfigFromEnv loads auth API config from environment variables with
// safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		MaxBodyBytes:       envInt64("CARELINK_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
		CookieSecure:       envBool("CARELINK_AUTH_COOKIE_SECURE", true),
		LoginRatePerMinute: envInt("CARELINK_AUTH_LOGIN_RATE_PER_MIN", 10),
		LoginBurst:         envInt("CARELINK_AUTH_LOGIN_BURST", 5),
		StateTTL:           envDuration("CARELINK_AUTH_STATE_TTL", 10*time.Minute),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 10 * time.Minute
	}

	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
