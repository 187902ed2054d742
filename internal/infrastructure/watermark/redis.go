// Package watermark stores the last-successful-run timestamp in Redis.
package watermark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"techpost/internal/ports"
)

const defaultKey = "techpost:last_post_run"

// RedisStore holds the single process-wide watermark value.
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ ports.WatermarkStore = (*RedisStore)(nil)

// NewRedisStore wires a redis client. An empty key selects the default.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = defaultKey
	}
	return &RedisStore{client: client, key: key}
}

// Get returns the watermark, or the zero time when none has been written.
func (s *RedisStore) Get(ctx context.Context) (time.Time, error) {
	value, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get watermark: %w", err)
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse watermark %q: %w", value, err)
	}
	return t, nil
}

// Set writes the watermark.
func (s *RedisStore) Set(ctx context.Context, t time.Time) error {
	if err := s.client.Set(ctx, s.key, t.UTC().Format(time.RFC3339), 0).Err(); err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}
	return nil
}
