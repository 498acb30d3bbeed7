package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "bemcuidar:"

type Redis struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedis connects to addr and pings it before returning.
func NewRedis(addr string, ttl time.Duration) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{rdb: rdb, ttl: ttl}, nil
}

func (cache *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := cache.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (cache *Redis) Set(ctx context.Context, key string, value []byte) error {
	if cache.ttl <= 0 {
		return nil
	}
	return cache.rdb.Set(ctx, redisKeyPrefix+key, value, cache.ttl).Err()
}

func (cache *Redis) Delete(ctx context.Context, key string) error {
	return cache.rdb.Del(ctx, redisKeyPrefix+key).Err()
}

func (cache *Redis) Close() error {
	return cache.rdb.Close()
}
