package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces every key this service owns so it can share a
// Redis instance with other Parlo services.
const redisKeyPrefix = "parlo:tab:"

// defaultRedisTTL bounds how long tab state lives without a write. Redis
// expiry replaces the janitor sweep used by the SQLite backend.
const defaultRedisTTL = 24 * time.Hour

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// EntryTTL is how long a key survives without being rewritten.
	// Zero means defaultRedisTTL.
	EntryTTL time.Duration
}

// RedisStore implements Store on Redis, for multi-node deployments where
// any instance may serve any tab.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	ttl := cfg.EntryTTL
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

func redisKey(scope Scope, key string) string {
	return redisKeyPrefix + scope.DeviceID + ":" + scope.TabID + ":" + key
}

// Get retrieves the value for a key within a scope.
func (r *RedisStore) Get(ctx context.Context, scope Scope, key string) (string, error) {
	val, err := r.client.Get(ctx, redisKey(scope, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

// Set writes a value and refreshes its TTL.
func (r *RedisStore) Set(ctx context.Context, scope Scope, key string, value string) error {
	if err := r.client.Set(ctx, redisKey(scope, key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a key.
func (r *RedisStore) Delete(ctx context.Context, scope Scope, key string) error {
	if err := r.client.Del(ctx, redisKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping verifies Redis connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
