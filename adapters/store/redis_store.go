package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/geogift/geogift/core"
	"github.com/geogift/geogift/ports"
)

// incrExScript increments the counter and, on the first hit only, starts the
// window TTL, as one unit so two concurrent requests cannot both observe an
// under-limit count. The window is fixed: later hits never extend it.
var incrExScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisStore is the Redis implementation of the Store port.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) ports.Store {
	return &RedisStore{
		client: client,
		prefix: "geogift:",
	}
}

func (s *RedisStore) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, core.ErrUnavailable)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, core.ErrUnavailable)
	}
	return value, true, nil
}

// Delete relies on DEL's removed-key count for the atomic check-and-delete:
// under concurrent deletes of the same key only one caller sees true.
func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	removed, err := s.client.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del %s: %w", key, core.ErrUnavailable)
	}
	return removed > 0, nil
}

func (s *RedisStore) IncrEx(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := incrExScript.Run(ctx, s.client, []string{s.prefix + key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, core.ErrUnavailable)
	}
	return count, nil
}
