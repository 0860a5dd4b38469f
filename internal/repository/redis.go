package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taxbook/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	queryKeyPrefix     = "query:"
	rateLimitKeyPrefix = "rate_limit:"
	scanBatch          = 100
)

// RedisQueryCache stores JSON-encoded query results in Redis.
type RedisQueryCache struct {
	client *redis.Client
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisQueryCache(client *redis.Client) *RedisQueryCache {
	return &RedisQueryCache{client: client}
}

func (r *RedisQueryCache) Get(ctx context.Context, key string, out any) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, queryKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %q from redis: %w", key, err)
	}
	if err := json.Unmarshal(val, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}
	return true, nil
}

func (r *RedisQueryCache) Set(ctx context.Context, key string, val any, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}
	if err := r.client.Set(ctx, queryKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %q in redis: %w", key, err)
	}
	return nil
}

// Invalidate removes every cached query whose key starts with prefix.
func (r *RedisQueryCache) Invalidate(ctx context.Context, prefix string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, queryKeyPrefix+prefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan %q: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete %q: %w", prefix, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (r *RedisQueryCache) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("%s%d", rateLimitKeyPrefix, userID)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
