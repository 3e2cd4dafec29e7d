package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryStore is a dev/test fallback when Redis is not configured.
// Expiry is enforced lazily on Get; a dev process does not need a sweeper.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

type memEntry struct {
	token     string
	expiresAt time.Time
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]memEntry)}
}

func (s *InMemoryStore) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" || token == "" {
		return fmt.Errorf("session: missing key or token")
	}
	if ttl <= 0 {
		return fmt.Errorf("session: ttl must be positive")
	}

	s.mu.Lock()
	s.entries[key] = memEntry{token: token, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return "", ErrNoSession
	}
	if !time.Now().Before(e.expiresAt) {
		delete(s.entries, key)
		return "", ErrNoSession
	}
	return e.token, nil
}

func (s *InMemoryStore) Clear(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}
