/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for directory lookups.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default TTL values for different cache types
const (
	DefaultStationTTL = 5 * time.Minute
	DefaultUserTTL    = 5 * time.Minute
)

// Key prefixes for Redis cache
const (
	KeyStation = "muninn:cache:station:" // + station_id
	KeyUser    = "muninn:cache:user:"    // + user_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	StationTTL time.Duration
	UserTTL    time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		StationTTL:     DefaultStationTTL,
		UserTTL:        DefaultUserTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// New creates a new cache instance. A failed Redis ping yields a disabled
// cache rather than an error; directory reads fall through to the database.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

// set stores a value in cache with TTL.
func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// delete removes a key from cache.
func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}

	return nil
}

// deletePattern deletes all keys matching a pattern.
func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.IsAvailable() {
		return nil
	}

	// Use SCAN to find keys (safer than KEYS for production)
	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err, "delete_batch")
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}

// Station caching methods

// CachedStation represents a cached station record.
type CachedStation struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
	Active   bool   `json:"active"`
}

// GetStation retrieves a cached station by ID.
func (c *Cache) GetStation(ctx context.Context, stationID string) (*CachedStation, bool) {
	var station CachedStation
	found, err := c.get(ctx, KeyStation+stationID, &station)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("station_id", stationID).Msg("station cache hit")
	return &station, true
}

// SetStation caches a station.
func (c *Cache) SetStation(ctx context.Context, station *CachedStation) error {
	c.logger.Debug().Str("station_id", station.ID).Msg("caching station")
	return c.set(ctx, KeyStation+station.ID, station, c.config.StationTTL)
}

// InvalidateStation removes a station from cache.
func (c *Cache) InvalidateStation(ctx context.Context, stationID string) error {
	c.logger.Debug().Str("station_id", stationID).Msg("invalidating station cache")
	return c.delete(ctx, KeyStation+stationID)
}

// User caching methods

// CachedUser represents a cached user record.
type CachedUser struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// GetUser retrieves a cached user by ID.
func (c *Cache) GetUser(ctx context.Context, userID string) (*CachedUser, bool) {
	var user CachedUser
	found, err := c.get(ctx, KeyUser+userID, &user)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("user_id", userID).Msg("user cache hit")
	return &user, true
}

// SetUser caches a user.
func (c *Cache) SetUser(ctx context.Context, user *CachedUser) error {
	c.logger.Debug().Str("user_id", user.ID).Msg("caching user")
	return c.set(ctx, KeyUser+user.ID, user, c.config.UserTTL)
}

// InvalidateUser removes a user from cache.
func (c *Cache) InvalidateUser(ctx context.Context, userID string) error {
	c.logger.Debug().Str("user_id", userID).Msg("invalidating user cache")
	return c.delete(ctx, KeyUser+userID)
}

// FlushAll removes all cached data (use sparingly).
func (c *Cache) FlushAll(ctx context.Context) error {
	c.logger.Warn().Msg("flushing all cache data")
	return c.deletePattern(ctx, "muninn:cache:*")
}
