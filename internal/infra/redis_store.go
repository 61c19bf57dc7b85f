package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const idempotencyPending = "pending"

// RedisIdempotencyStore keeps client request keys in Redis.
type RedisIdempotencyStore struct {
	rdb *redis.Client
}

func NewRedisIdempotencyStore(rdb *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{rdb: rdb}
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotent-key:%s", key)
}

func (s *RedisIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	rk := idempotencyKey(key)

	ok, err := s.rdb.SetNX(ctx, rk, idempotencyPending, ttl).Result()
	if err != nil {
		return false, "", fmt.Errorf("redis setnx: %w", err)
	}
	if ok {
		return true, "", nil
	}

	val, err := s.rdb.Get(ctx, rk).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls; let the caller retry
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("redis get: %w", err)
	}
	if val == idempotencyPending {
		return false, "", nil
	}

	return false, val, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, orderID string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, idempotencyKey(key), orderID, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Forget(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, idempotencyKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// RedisCache stores JSON values in Redis.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("json.Unmarshal: %w", err)
	}
	return true, nil
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
