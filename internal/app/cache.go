package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"appointment-service/internal/scheduling"
)

// RedisCache keeps computed availability under a per-calendar version.
// Invalidate bumps the version, which orphans every older entry until its TTL
// runs out.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *slog.Logger
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration, prefix string, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if prefix == "" {
		prefix = "avail"
	}
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: prefix, log: logger.With("component", "cache")}
}

func (c *RedisCache) versionKey(calendarID string) string {
	return fmt.Sprintf("%s:%s:ver", c.prefix, calendarID)
}

func (c *RedisCache) entryKey(calendarID, version, key string) string {
	return fmt.Sprintf("%s:%s:%s:%s", c.prefix, calendarID, version, key)
}

func (c *RedisCache) Get(ctx context.Context, calendarID, key string) (*scheduling.AvailabilityWindow, string, bool) {
	version, err := c.rdb.Get(ctx, c.versionKey(calendarID)).Result()
	if errors.Is(err, redis.Nil) {
		version = "0"
	} else if err != nil {
		c.log.Warn("Cache version read failed", "calendar_id", calendarID, "error", err)
		return nil, "", false
	}

	raw, err := c.rdb.Get(ctx, c.entryKey(calendarID, version, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Cache read failed", "calendar_id", calendarID, "error", err)
		}
		return nil, version, false
	}
	var w scheduling.AvailabilityWindow
	if err := json.Unmarshal(raw, &w); err != nil {
		c.log.Warn("Cache entry corrupt", "calendar_id", calendarID, "error", err)
		return nil, version, false
	}
	return &w, version, true
}

func (c *RedisCache) Put(ctx context.Context, calendarID, version, key string, w *scheduling.AvailabilityWindow) {
	// Without a version from Get the current one is unknown; skip rather than
	// risk writing under a version that was already invalidated.
	if version == "" {
		return
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.entryKey(calendarID, version, key), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Cache write failed", "calendar_id", calendarID, "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, calendarID string) {
	if err := c.rdb.Incr(ctx, c.versionKey(calendarID)).Err(); err != nil {
		c.log.Error("Cache invalidation failed", "calendar_id", calendarID, "error", err)
	}
}
