package cache

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"
)

func Connect(ctx context.Context, url string) (*redis.Client, error) {
    opts, err := redis.ParseURL(url)
    if err != nil {
        return nil, fmt.Errorf("parse redis url: %w", err)
    }
    client := redis.NewClient(opts)
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("ping redis: %w", err)
    }
    return client, nil
}

// RedisStore adapts a redis client to the visit cache.
type RedisStore struct {
    client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore { return &RedisStore{client: client} }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
    raw, err := s.client.Get(ctx, key).Bytes()
    if errors.Is(err, redis.Nil) {
        return nil, false, nil
    }
    if err != nil {
        return nil, false, err
    }
    return raw, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
    return s.client.Set(ctx, key, value, ttl).Err()
}
