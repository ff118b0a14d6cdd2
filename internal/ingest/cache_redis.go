package ingest

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"volunteerd/internal/platform/redis"
)

// RedisTextCache stores recognized OCR text in Redis keyed by image URL, so
// repeated ingestion runs skip the fetch and OCR of cards already seen.
type RedisTextCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTextCache creates a cache with the given entry TTL. A zero ttl
// means entries never expire.
func NewRedisTextCache(client *redis.Client, ttl time.Duration) *RedisTextCache {
	return &RedisTextCache{client: client, ttl: ttl}
}

func (c *RedisTextCache) key(url string) string {
	return "volunteerd:ocr-text:" + url
}

// Get returns the cached text for the image URL, if present.
func (c *RedisTextCache) Get(ctx context.Context, url string) (string, bool, error) {
	text, err := c.client.Get(ctx, c.key(url)).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get cached text: %w", err)
	}
	return text, true, nil
}

// Set caches the recognized text for the image URL.
func (c *RedisTextCache) Set(ctx context.Context, url, text string) error {
	if err := c.client.Set(ctx, c.key(url), text, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache recognized text: %w", err)
	}
	return nil
}
