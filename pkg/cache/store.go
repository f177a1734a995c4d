package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss indicates the requested key was not found in the cache.
var ErrCacheMiss = errors.New("cache miss")

// Store is a thin typed wrapper over the Redis string primitives.
type Store struct {
	redis *redis.Client
}

// NewStore creates a new cache store over the given Redis client.
func NewStore(redisClient *redis.Client) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{
		redis: redisClient,
	}
}

// Get retrieves the raw string value for key.
// Returns ErrCacheMiss if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.WithLabelValues(keyScope(key)).Inc()
			return "", ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return "", fmt.Errorf("redis get: %w", err)
	}

	CacheHits.WithLabelValues(keyScope(key)).Inc()
	return value, nil
}

// Set stores value under key with the given TTL. An existing entry is fully
// overwritten, never patched.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// BatchGet retrieves the values for keys in a single round trip. The result
// is positional: same length and order as keys, nil for each absent key.
func (s *Store) BatchGet(ctx context.Context, keys []string) ([]*string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	raw, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		CacheErrors.WithLabelValues("batch_get").Inc()
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	values := make([]*string, len(keys))
	for i, v := range raw {
		str, ok := v.(string)
		if !ok {
			CacheMisses.WithLabelValues(keyScope(keys[i])).Inc()
			continue
		}
		CacheHits.WithLabelValues(keyScope(keys[i])).Inc()
		values[i] = &str
	}

	return values, nil
}

// GetJSON retrieves the value for key and unmarshals it into v.
// Returns ErrCacheMiss if the key does not exist.
func (s *Store) GetJSON(ctx context.Context, key string, v any) error {
	value, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(value), v); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return fmt.Errorf("unmarshal cache entry %s: %w", key, err)
	}
	return nil
}

// SetJSON marshals v and stores it under key with the given TTL.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data), ttl)
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
