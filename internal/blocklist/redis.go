// Package blocklist is the revocation store: a TTL-bound set of token ids
// that must never be accepted again.
package blocklist

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "blocklist:jti:"

// MinTTL is the shortest lifetime an entry is written with. Redis treats a
// zero expiration as "never expire".
const MinTTL = time.Second

type Store interface {
	// Add records jti for ttl. Adding an existing jti refreshes its TTL.
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
	// Consume records jti and reports whether this call was the first to do so.
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, jti string) error
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Open parses a redis:// URL, connects and pings.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyPrefix+jti, "", clampTTL(ttl)).Err(); err != nil {
		return fmt.Errorf("failed to add jti to blocklist: %w", err)
	}
	return nil
}

func (s *RedisStore) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blocklist: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+jti, "", clampTTL(ttl)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume jti: %w", err)
	}
	return ok, nil
}

// Release forgets jti so it can be consumed again.
func (s *RedisStore) Release(ctx context.Context, jti string) error {
	if err := s.client.Del(ctx, keyPrefix+jti).Err(); err != nil {
		return fmt.Errorf("failed to release jti: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl < MinTTL {
		return MinTTL
	}
	return ttl
}
