package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	applog "hoteldash/internal/log"
)

// RedisCache stores JSON-encoded values under a key prefix. Redis errors
// are logged and reported as misses so the caller recomputes.
type RedisCache[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Cache[int] = (*RedisCache[int])(nil)

// NewRedisClient connects to addr and pings it with a short timeout.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisCache wraps client. Keys are stored as "<prefix>:<key>".
func NewRedisCache[T any](client *redis.Client, prefix string, ttl time.Duration) *RedisCache[T] {
	return &RedisCache[T]{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache[T]) key(k string) string {
	return c.prefix + ":" + k
}

// Get retrieves a value from Redis
func (c *RedisCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	bs, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			warn(ctx, "Redis get failed", key, err)
		}
		return zero, false
	}
	var v T
	if err := json.Unmarshal(bs, &v); err != nil {
		warn(ctx, "Discarding undecodable cache entry", key, err)
		return zero, false
	}
	return v, true
}

// Set stores a value in Redis with the cache TTL
func (c *RedisCache[T]) Set(ctx context.Context, key string, data T) {
	bs, err := json.Marshal(data)
	if err != nil {
		warn(ctx, "Cache value not encodable", key, err)
		return
	}
	if err := c.client.Set(ctx, c.key(key), bs, c.ttl).Err(); err != nil {
		warn(ctx, "Redis set failed", key, err)
	}
}

// Delete removes a key from Redis
func (c *RedisCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		warn(ctx, "Redis delete failed", key, err)
	}
}

func warn(ctx context.Context, msg, key string, err error) {
	slog.WarnContext(ctx, msg,
		applog.FieldComponent, applog.ComponentCache,
		applog.FieldCacheKey, key,
		applog.FieldError, err)
}
