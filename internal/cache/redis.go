// Package cache provides the Redis-backed cache used for point totals and
// leaderboard snapshots.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/streakfarm/streakfarm-api/internal/config"
	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

// Cache is the subset of Redis operations the services depend on. A mock
// implementation lives in test/mocks.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Health(ctx context.Context) error
	Close() error
}

// RedisCache implements Cache on a go-redis client.
type RedisCache struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg *config.RedisConfig, log *logger.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Int("db", cfg.DB).
		Msg("Connected to Redis")

	return &RedisCache{client: client, log: log}, nil
}

// NewRedisCacheFromClient wraps an existing client (used with miniredis in tests).
func NewRedisCacheFromClient(client *redis.Client, log *logger.Logger) *RedisCache {
	return &RedisCache{client: client, log: log}
}

// Get retrieves a value. A missing key yields an empty string, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

// Set stores a value with an expiration.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// Del deletes keys.
func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

// Incr increments a key's integer value.
func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, key).Result()
}

// SetNX sets a key only if it does not exist.
func (c *RedisCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, expiration).Result()
}

// Health pings the server.
func (c *RedisCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Cache key helpers. Kept together so key formats stay consistent across
// services.

// TotalPointsKey is the cached ledger total for a user.
func TotalPointsKey(userID uint) string {
	return fmt.Sprintf("points:total:%d", userID)
}

// LeaderboardKey is the cached leaderboard snapshot for a period.
func LeaderboardKey(period string, limit int) string {
	return fmt.Sprintf("leaderboard:%s:%d", period, limit)
}
