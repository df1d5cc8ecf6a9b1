package config

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// ConnectRedis returns nil when Redis is not configured or unreachable;
// callers fall back to uncached lookups
func ConnectRedis(ctx context.Context, s *Settings) *redis.Client {
	if s.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         s.RedisAddr,
		Password:     s.RedisPassword,
		DB:           s.RedisDB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logger.Warn().Err(err).Msg("Redis connection failed; default owner caching disabled")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", s.RedisAddr).Msg("connected to Redis")
	return client
}
