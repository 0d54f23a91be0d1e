package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheHelper provides common caching operations for repositories
type CacheHelper struct {
	client *redis.Client
	prefix string
}

// NewCacheHelper creates a new cache helper instance
func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{
		client: client,
		prefix: prefix,
	}
}

// CacheConfig defines cache configuration for different data types
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

// Cache configurations for the catalogue and the one-time credential stores
var (
	// Course documents, invalidated on every write
	CourseCacheConfig = CacheConfig{
		TTL:    5 * time.Minute,
		Prefix: "course:",
	}

	// Password reset tokens and rate-limit markers
	ResetCacheConfig = CacheConfig{
		TTL:    10 * time.Minute,
		Prefix: "reset:",
	}
)

// GetCacheKey generates a cache key with prefix
func (c *CacheHelper) GetCacheKey(key string) string {
	return fmt.Sprintf("%s%s", c.prefix, key)
}

// Get retrieves and unmarshals data from cache
func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	cacheKey := c.GetCacheKey(key)
	data, err := c.client.Get(ctx, cacheKey).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheNotFound
		}
		// Sanitize error to prevent log injection
		return fmt.Errorf("cache get error for key type: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}

	return nil
}

// Set marshals and stores data in cache
func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil // Graceful degradation when cache not available
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	cacheKey := c.GetCacheKey(key)
	return c.client.Set(ctx, cacheKey, data, ttl).Err()
}

// SetString stores string data in cache
func (c *CacheHelper) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	cacheKey := c.GetCacheKey(key)
	return c.client.Set(ctx, cacheKey, value, ttl).Err()
}

// Delete removes data from cache using pipeline for multiple keys
func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil {
		return nil
	}

	if len(keys) == 0 {
		return nil
	}

	cacheKeys := make([]string, len(keys))
	for i, key := range keys {
		cacheKeys[i] = c.GetCacheKey(key)
	}

	// Use pipeline for multiple keys
	if len(cacheKeys) > 1 {
		pipe := c.client.Pipeline()
		pipe.Del(ctx, cacheKeys...)
		_, err := pipe.Exec(ctx)
		return err
	}

	return c.client.Del(ctx, cacheKeys...).Err()
}

// Exists checks if a key exists in cache
func (c *CacheHelper) Exists(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, ErrCacheNotAvailable
	}

	cacheKey := c.GetCacheKey(key)
	count, err := c.client.Exists(ctx, cacheKey).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists error: %w", err)
	}

	return count > 0, nil
}

// SetNX stores value only when key is absent. It reports whether the key was set.
func (c *CacheHelper) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	if c.client == nil {
		return false, ErrCacheNotAvailable
	}

	cacheKey := c.GetCacheKey(key)
	ok, err := c.client.SetNX(ctx, cacheKey, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache setnx error: %w", err)
	}

	return ok, nil
}

// GetDel atomically reads and removes a string key
func (c *CacheHelper) GetDel(ctx context.Context, key string) (string, error) {
	if c.client == nil {
		return "", ErrCacheNotAvailable
	}

	cacheKey := c.GetCacheKey(key)
	result, err := c.client.GetDel(ctx, cacheKey).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheNotFound
		}
		return "", fmt.Errorf("cache getdel error: %w", err)
	}

	return result, nil
}

// TTL returns the remaining lifetime of key
func (c *CacheHelper) TTL(ctx context.Context, key string) (time.Duration, error) {
	if c.client == nil {
		return 0, ErrCacheNotAvailable
	}

	ttl, err := c.client.TTL(ctx, c.GetCacheKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("cache ttl error: %w", err)
	}
	return ttl, nil
}

// Cache errors
var (
	ErrCacheNotAvailable = fmt.Errorf("cache not available")
	ErrCacheNotFound     = fmt.Errorf("cache not found")
)

// CacheManager manages multiple cache helpers
type CacheManager struct {
	Course *CacheHelper
	Reset  *CacheHelper
}

// NewCacheManager creates cache manager with all cache helpers
func NewCacheManager(client *redis.Client) *CacheManager {
	if client == nil {
		return &CacheManager{
			Course: NewCacheHelper(nil, ""),
			Reset:  NewCacheHelper(nil, ""),
		}
	}

	return &CacheManager{
		Course: NewCacheHelper(client, CourseCacheConfig.Prefix),
		Reset:  NewCacheHelper(client, ResetCacheConfig.Prefix),
	}
}

// Available reports whether a redis client backs the manager
func (cm *CacheManager) Available() bool {
	return cm.Course.client != nil
}

// HealthCheck verifies cache connectivity
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if !cm.Available() {
		return ErrCacheNotAvailable
	}

	_, err := cm.Course.client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}

	return nil
}
