// Package cache holds the Redis-backed cache for file listings and search
// results. The database stays the source of truth; every file mutation drops
// all cached entries, since one user's public or shared file shows up in
// other users' listings.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stratus/internal/database"
)

// Cache wraps a Redis client with TTL'd get/set for file listings.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(addr, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &Cache{client: client, ttl: ttl}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// ListKey is the cache key for a user's accessible-files listing.
func ListKey(userID int) string {
	return fmt.Sprintf("files:%d", userID)
}

// SearchKey is the cache key for one search request.
func SearchKey(userID int, query, tag string) string {
	return fmt.Sprintf("search:%d:%s:%s", userID, query, tag)
}

// GetFiles returns the cached listing for key, or (nil, nil) on a miss.
func (c *Cache) GetFiles(ctx context.Context, key string) ([]*database.File, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	var files []*database.File
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("failed to decode cached listing: %w", err)
	}
	return files, nil
}

// SetFiles stores a listing under key with the configured TTL.
func (c *Cache) SetFiles(ctx context.Context, key string, files []*database.File) error {
	data, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("failed to encode listing: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Invalidate drops every listing and search entry. Eviction is global
// because a mutation to one user's files can change what other users see:
// public files and permission grants appear in their listings too.
func (c *Cache) Invalidate(ctx context.Context) error {
	for _, pattern := range []string{"files:*", "search:*"} {
		if err := c.deleteByPattern(ctx, pattern); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) deleteByPattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to invalidate %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan %s entries: %w", pattern, err)
	}
	return nil
}
