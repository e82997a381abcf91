package cache

import (
	"context"
	"time"
	"royale-tracker/internal/config"
	"royale-tracker/internal/constants"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore is the production Store backed by go-redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis. An unreachable Redis is logged but not
// fatal: every cache operation degrades to a miss.
func NewRedisStore(cfg *config.Config, logger zerolog.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), constants.CacheTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, cache reads will miss")
	} else {
		logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
	}

	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return raw, true, nil
}

func (s *RedisStore) SetEx(ctx context.Context, key, payload string, ttl time.Duration) error {
	return s.client.Set(ctx, key, payload, ttl).Err()
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
