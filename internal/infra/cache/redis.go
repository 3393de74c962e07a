// Package cache provides the TTL cache implementations backing the catalog:
// a Redis store that survives restarts, a bounded in-memory store, and a
// fallback wrapper that degrades from the former to the latter when Redis is
// unavailable.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis implements domain.Cache on a Redis client with prefix-based
// namespacing. Expiry is native: Get on an expired key is a miss.
type Redis struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
}

// NewRedis creates a Redis cache. keyPrefix namespaces all keys so the
// service never collides with other applications on the same instance.
func NewRedis(client *redis.Client, logger *zap.Logger, keyPrefix string) *Redis {
	return &Redis{
		client:    client,
		logger:    logger,
		keyPrefix: keyPrefix,
	}
}

// Get retrieves a value by key. Returns (nil, nil) when the key is absent or
// expired.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.buildKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		c.logger.Error("cache get failed",
			zap.String("key", key),
			zap.Error(err),
		)

		return nil, err
	}

	c.logger.Debug("cache hit",
		zap.String("key", key),
		zap.Int("bytes", len(data)),
	)

	return data, nil
}

// Set stores a value with the given TTL.
func (c *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.buildKey(key), value, ttl).Err(); err != nil {
		c.logger.Error("cache set failed",
			zap.String("key", key),
			zap.Int("bytes", len(value)),
			zap.Error(err),
		)

		return err
	}

	c.logger.Debug("cache set",
		zap.String("key", key),
		zap.Int("bytes", len(value)),
		zap.Duration("ttl", ttl),
	)

	return nil
}

// Delete removes a value by key. Idempotent.
func (c *Redis) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.buildKey(key)).Err(); err != nil {
		c.logger.Error("cache delete failed",
			zap.String("key", key),
			zap.Error(err),
		)

		return err
	}

	return nil
}

// DeletePrefix removes every key under the given prefix. Uses SCAN, which is
// safe for production use (non-blocking).
func (c *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	return c.deletePattern(ctx, c.buildKey(prefix)+"*")
}

// Clear removes all cached values under the configured keyPrefix.
func (c *Redis) Clear(ctx context.Context) error {
	return c.deletePattern(ctx, c.keyPrefix+":*")
}

func (c *Redis) deletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()

	keys := []string{}
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Error("cache scan failed",
			zap.String("pattern", pattern),
			zap.Error(err),
		)

		return err
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.logger.Error("cache bulk delete failed",
				zap.Int("key_count", len(keys)),
				zap.Error(err),
			)

			return err
		}

		c.logger.Info("cache keys removed",
			zap.String("pattern", pattern),
			zap.Int("key_count", len(keys)),
		)
	}

	return nil
}

func (c *Redis) buildKey(key string) string {
	return c.keyPrefix + ":" + key
}
