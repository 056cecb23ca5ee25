// Package cache holds the Redis-backed statistics cache used by the stock report.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stock-engine/internal/config"
	"stock-engine/internal/core"
)

// RedisCache is a cache-aside store for report statistics. Entries expire after ttl and are
// dropped wholesale whenever stock data changes. Entries live under prefix+"s:"; the
// generation counter lives at prefix+"gen" and never expires.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ core.StatsCache = (*RedisCache)(nil)

func New(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// Connect dials Redis from cfg and verifies the connection.
func Connect(ctx context.Context, cfg config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to ping redis at %s: %w", cfg.Addr, err)
	}
	return New(client, cfg.Prefix, cfg.TTL), nil
}

func (c *RedisCache) entryKey(key string) string {
	return c.prefix + "s:" + key
}

func (c *RedisCache) generationKey() string {
	return c.prefix + "gen"
}

// Generation returns the invalidation counter, 0 before the first invalidation.
func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache generation error: %w", err)
	}
	return gen, nil
}

func (c *RedisCache) GetStatistics(ctx context.Context, key string) (*core.Statistics, bool, error) {
	data, err := c.client.Get(ctx, c.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get error: %w", err)
	}
	var st core.Statistics
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, false, fmt.Errorf("cache unmarshal error: %w", err)
	}
	return &st, true, nil
}

func (c *RedisCache) SetStatistics(ctx context.Context, key string, st core.Statistics) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if err := c.client.Set(ctx, c.entryKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// Invalidate advances the generation, then deletes every entry under the cache prefix.
// Writers still holding the old generation can only add entries nobody reads.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("cache generation error: %w", err)
	}
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.entryKey("*"), 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan error: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache delete error: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
