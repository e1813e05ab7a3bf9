package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type redisCache struct {
	rdb *redis.Client
}

var _ Cache = (*redisCache)(nil)

// NewRedis connects to Redis and verifies the connection with a PING.
func NewRedis(address, username, password string) (Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     address,
		Username: username,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &redisCache{rdb: rdb}, nil
}

// NewWithFallback returns a Redis-backed cache when the connectivity probe
// succeeds, otherwise the bounded in-process cache. The surrounding
// operations never see the difference.
func NewWithFallback(address, username, password string) Cache {
	if address != "" {
		c, err := NewRedis(address, username, password)
		if err == nil {
			log.Info().Str("address", address).Msg("connected to redis cache")
			return c
		}
		log.Error().Err(err).Msg("redis unavailable, falling back to in-process cache")
	}
	return NewMemory(DefaultMemoryCap)
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Error().Err(err).Str("key", key).Msg("redis get failed")
		}
		return "", false
	}
	return value, true
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("redis set failed")
	}
}

func (c *redisCache) Delete(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("redis delete failed")
	}
}

func (c *redisCache) DeletePattern(ctx context.Context, pattern string) int {
	deleted := 0
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			log.Error().Err(err).Str("key", iter.Val()).Msg("redis delete failed")
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		log.Error().Err(err).Str("pattern", pattern).Msg("redis scan failed")
	}
	return deleted
}
