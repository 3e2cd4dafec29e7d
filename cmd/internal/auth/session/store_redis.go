package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists session tokens in Redis with a native TTL.
// The client is owned by the caller; this store must NOT close it.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "session:",
	}
}

func (r *RedisStore) key(sessionKey string) string {
	return r.prefix + sessionKey
}

func (r *RedisStore) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	if key == "" || token == "" {
		return fmt.Errorf("session: missing key or token")
	}
	if ttl <= 0 {
		return fmt.Errorf("session: ttl must be positive")
	}
	return r.client.Set(ctx, r.key(key), token, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *RedisStore) Clear(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
