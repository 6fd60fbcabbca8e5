package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "pricehub:http:"

// RedisCache stores responses in Redis so several service instances share one
// upstream fetch budget.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	// retain keeps expired entries around for conditional revalidation.
	retain time.Duration
}

// NewRedis connects to the Redis instance at url and verifies it with PING.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl, retain: 24 * ttl}, nil
}

// Get retrieves a cached entry if it exists.
func (c *RedisCache) Get(ctx context.Context, key string) (*Entry, bool) {
	val, err := c.client.Get(ctx, redisKeyPrefix+hashKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis cache read failed", "error", err)
		}
		return nil, false
	}

	var entry Entry
	if err := sonic.Unmarshal(val, &entry); err != nil {
		return nil, false
	}
	return &entry, isFresh(&entry, c.ttl)
}

// Set stores an entry in the cache.
func (c *RedisCache) Set(ctx context.Context, key string, entry *Entry) error {
	entry.CachedAt = time.Now()
	data, err := sonic.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	return c.client.Set(ctx, redisKeyPrefix+hashKey(key), data, c.retain).Err()
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
