package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sumire/jobtracker/internal/domain"
)

const redisMarkerPrefix = "jobtracker:session:"

// RedisMarkerStore keeps session markers in Redis with the session TTL.
type RedisMarkerStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMarkerStore connects to the Redis instance at redisURL.
func NewRedisMarkerStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisMarkerStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisMarkerStore{client: client, ttl: ttl}, nil
}

// Load returns the username remembered for key, or domain.ErrNotFound.
func (s *RedisMarkerStore) Load(ctx context.Context, key string) (string, error) {
	username, err := s.client.Get(ctx, redisMarkerPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load session marker: %w", err)
	}
	return username, nil
}

// Save remembers username under key until the session TTL passes.
func (s *RedisMarkerStore) Save(ctx context.Context, key, username string) error {
	if err := s.client.Set(ctx, redisMarkerPrefix+key, username, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session marker: %w", err)
	}
	return nil
}

// Clear forgets key. Unknown keys are not an error.
func (s *RedisMarkerStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisMarkerPrefix+key).Err(); err != nil {
		return fmt.Errorf("clear session marker: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisMarkerStore) Close() error {
	return s.client.Close()
}
