package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the configured Redis. It returns nil when no
// address is set or the server does not answer; callers then run without
// the availability cache and the rate limiter.
func NewRedisClient(cfg RedisConfig, logger *slog.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unavailable, caching and rate limiting disabled", "addr", cfg.Addr, "error", err)
		client.Close()
		return nil
	}
	return client
}
