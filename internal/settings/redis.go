package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis initializes a Redis client from URL or host:port input.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// RedisStore keeps one hash per (scope, scopeID).
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "xapi:settings:"}
}

func (s *RedisStore) hashKey(scope Scope, scopeID string) string {
	return s.prefix + string(scope) + ":" + scopeID
}

func (s *RedisStore) Get(ctx context.Context, scope Scope, scopeID, key string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.hashKey(scope, scopeID), key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, scope Scope, scopeID, key, value string) error {
	return s.client.HSet(ctx, s.hashKey(scope, scopeID), key, value).Err()
}

func (s *RedisStore) Delete(ctx context.Context, scope Scope, scopeID, key string) error {
	return s.client.HDel(ctx, s.hashKey(scope, scopeID), key).Err()
}
