package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// Empty DatabaseURL selects the in-memory account store.
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	DBSchema    string

	// MigrateOnStart applies pending schema migrations before serving.
	MigrateOnStart bool

	// Empty RedisURL selects the in-memory session store.
	RedisURL string

	// DevSeed loads the demo accounts at startup. Development only.
	DevSeed bool

	// If true:
	// - /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool

	// Google federated login. All three must be set to enable the provider.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("CARELINK_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("CARELINK_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("CARELINK_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("CARELINK_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("CARELINK_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("CARELINK_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("CARELINK_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("CARELINK_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("CARELINK_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("CARELINK_DB_MIN_CONNS", 0),
		DBSchema:    EnvString("CARELINK_DB_SCHEMA", "carelink"),

		MigrateOnStart: EnvBool("CARELINK_DB_MIGRATE_ON_START", true),

		RedisURL: EnvString("CARELINK_REDIS_URL", ""),

		DevSeed: EnvBool("CARELINK_DEV_SEED", false),

		ReadinessRequireDB: EnvBool("CARELINK_READINESS_REQUIRE_DB", false),

		GoogleClientID:     EnvString("CARELINK_GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: EnvString("CARELINK_GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  EnvString("CARELINK_GOOGLE_REDIRECT_URL", ""),
	}
}

// GoogleEnabled reports whether the Google provider is fully configured.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}
