package redis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"royalty-split-manager/internal/config"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin read-cache over redis. A nil client degrades every
// operation to a miss so the app runs without redis.
type Cache struct {
	client *redis.Client
}

func NewCache() *Cache {
	client := redis.NewClient(&redis.Options{
		Addr: config.AppConfig.RedisAddress,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		log.Println("Redis not available. Running without Redis.")
		return &Cache{client: nil}
	}

	log.Println("Redis connected successfully.")
	return &Cache{client: client}
}

// NewDisabledCache returns a cache where every read misses and every write
// is dropped. Used in tests and when redis is not configured.
func NewDisabledCache() *Cache {
	return &Cache{client: nil}
}

func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Printf("cache set failed for %s: %v", key, err)
	}
}

// GetVersion returns the current version counter for a key, 0 when unset.
func (c *Cache) GetVersion(ctx context.Context, key string) int64 {
	if c.client == nil {
		return 0
	}
	v, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return v
}

// IncrementVersion bumps a version counter, invalidating every cache key
// derived from the previous version.
func (c *Cache) IncrementVersion(ctx context.Context, key string) {
	if c.client == nil {
		return
	}
	if err := c.client.Incr(ctx, key).Err(); err != nil {
		log.Printf("cache version bump failed for %s: %v", key, err)
	}
}
