// Package cache tracks indexed file content hashes in Redis so re-index
// runs can skip unchanged files. Caching is advisory; a cold or absent
// cache only costs re-processing.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache provides change tracking via Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects and pings a Redis instance.
func NewRedisCache(url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis connection failed: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// ContentHash returns the hash used to detect file changes.
func ContentHash(content []byte) string {
	h := sha256.Sum256(content)
	return fmt.Sprintf("%x", h[:16])
}

// FileHash returns the stored hash for a path, empty when unknown.
func (c *RedisCache) FileHash(ctx context.Context, collection, path string) (string, error) {
	val, err := c.client.Get(ctx, fileKey(collection, path)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// SetFileHash records the hash of a freshly indexed file.
func (c *RedisCache) SetFileHash(ctx context.Context, collection, path, hash string, ttl time.Duration) error {
	return c.client.Set(ctx, fileKey(collection, path), hash, ttl).Err()
}

// InvalidateCollection drops every stored hash for a collection.
func (c *RedisCache) InvalidateCollection(ctx context.Context, collection string) error {
	iter := c.client.Scan(ctx, 0, fileKey(collection, "*"), 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// IndexVersion returns the current index version for a collection.
func (c *RedisCache) IndexVersion(ctx context.Context, collection string) (int64, error) {
	val, err := c.client.Get(ctx, "index:version:"+collection).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// BumpIndexVersion increments the index version after a run.
func (c *RedisCache) BumpIndexVersion(ctx context.Context, collection string) (int64, error) {
	return c.client.Incr(ctx, "index:version:"+collection).Result()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func fileKey(collection, path string) string {
	return fmt.Sprintf("index:file:%s:%s", collection, path)
}
