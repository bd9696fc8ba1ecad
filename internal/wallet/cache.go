package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "wallet:v1:"

// Cache stores token reads per query key.
type Cache interface {
	Get(ctx context.Context, key string) (*big.Int, bool, error)
	Set(ctx context.Context, key string, value *big.Int, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisCache shares reads across instances through Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache builds a Redis-backed cache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns the cached value for key.
func (c *RedisCache) Get(ctx context.Context, key string) (*big.Int, bool, error) {
	raw, err := c.client.Get(ctx, cachePrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, false, fmt.Errorf("corrupt cache entry %s", key)
	}
	return v, true, nil
}

// Set stores value under key for ttl.
func (c *RedisCache) Set(ctx context.Context, key string, value *big.Int, ttl time.Duration) error {
	return c.client.Set(ctx, cachePrefix+key, value.String(), ttl).Err()
}

// Delete drops keys.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = cachePrefix + k
	}
	return c.client.Del(ctx, prefixed...).Err()
}
