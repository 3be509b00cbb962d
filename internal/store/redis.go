package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "livechat:"

// RedisStore implements KV using Redis.
type RedisStore struct {
	client *redis.Client
	opts   Options
}

// NewRedis creates a Redis-backed store from opts.
func NewRedis(opts Options) (*RedisStore, error) {
	if opts.RedisAddr == "" {
		return nil, fmt.Errorf("redis store: empty address")
	}
	client := redis.NewClient(&redis.Options{
		Addr: opts.RedisAddr,
		DB:   opts.RedisDB,
	})
	return NewRedisWithClient(client, opts), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, opts Options) *RedisStore {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, opts: opts}
}

func (s *RedisStore) key(k string) string {
	return s.opts.KeyPrefix + k
}

// Get implements KV.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set implements KV.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.opts.TTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping implements KV.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements KV.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
