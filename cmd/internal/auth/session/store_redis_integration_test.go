package session

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Integration tests are opt-in and require CARELINK_REDIS_URL.

func mustOpenTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("CARELINK_REDIS_URL"))
	if raw == "" {
		t.Skip("integration test skipped: CARELINK_REDIS_URL is not set")
	}

	opt, err := redis.ParseURL(raw)
	if err != nil {
		t.Fatalf("parse CARELINK_REDIS_URL: %v", err)
	}

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("integration test skipped: Redis unreachable: %v", err)
	}
	return client
}

func TestRedisStore_SetGetClear(t *testing.T) {
	client := mustOpenTestRedis(t)
	s := NewRedisStore(client)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key, err := NewKey()
	if err != nil {
		t.Fatalf("NewKey error: %v", err)
	}
	t.Cleanup(func() { _ = s.Clear(context.Background(), key) })

	if _, err := s.Get(ctx, key); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	if err := s.Set(ctx, key, "token1", time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	got, err := s.Get(ctx, key)
	if err != nil || got != "token1" {
		t.Fatalf("Get = (%q, %v)", got, err)
	}

	if err := s.Clear(ctx, key); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if _, err := s.Get(ctx, key); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	client := mustOpenTestRedis(t)
	s := NewRedisStore(client)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key, err := NewKey()
	if err != nil {
		t.Fatalf("NewKey error: %v", err)
	}
	t.Cleanup(func() { _ = s.Clear(context.Background(), key) })

	if err := s.Set(ctx, key, "token1", 500*time.Millisecond); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	time.Sleep(700 * time.Millisecond)

	if _, err := s.Get(ctx, key); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession after ttl, got %v", err)
	}
}
