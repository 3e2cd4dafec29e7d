package session

import (
	"strings"
	"testing"
	"time"

	"carelink/cmd/security/token"
)

func TestLoadConfigFromEnv_MissingKey(t *testing.T) {
	t.Setenv(token.SigningKeyEnv, "")
	if _, err := LoadConfigFromEnv(); err != token.ErrKeyMissing {
		t.Fatalf("expected ErrKeyMissing, got %v", err)
	}
}

func TestLoadConfigFromEnv_ShortKey(t *testing.T) {
	t.Setenv(token.SigningKeyEnv, "too-short")
	if _, err := LoadConfigFromEnv(); err != token.ErrKeyTooShort {
		t.Fatalf("expected ErrKeyTooShort, got %v", err)
	}
}

func TestLoadConfigFromEnv_BadTTL(t *testing.T) {
	t.Setenv(token.SigningKeyEnv, strings.Repeat("k", 32))
	t.Setenv("CARELINK_SESSION_TTL", "-5m")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for negative ttl, got %v", err)
	}

	t.Setenv("CARELINK_SESSION_TTL", "soon")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for garbage ttl, got %v", err)
	}
}

func TestLoadConfigFromEnv_Valid(t *testing.T) {
	t.Setenv(token.SigningKeyEnv, strings.Repeat("k", 32))
	t.Setenv("CARELINK_SESSION_TTL", "24h")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv error: %v", err)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Fatalf("expected 24h ttl, got %v", cfg.TokenTTL)
	}
	if len(cfg.SigningKey) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(cfg.SigningKey))
	}
}

func TestLoadConfigFromEnv_DefaultTTL(t *testing.T) {
	t.Setenv(token.SigningKeyEnv, strings.Repeat("k", 32))
	t.Setenv("CARELINK_SESSION_TTL", "")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv error: %v", err)
	}
	if cfg.TokenTTL != DefaultTokenTTL {
		t.Fatalf("expected default ttl %v, got %v", DefaultTokenTTL, cfg.TokenTTL)
	}
}
