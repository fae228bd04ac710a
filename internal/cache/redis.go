package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/nstreif/mlb-wins-pool/internal/models"
)

// TTL for today's snapshot. Past dates are stored without expiry since
// finalized standings are immutable; today's entry has to age out so a
// long-running worker and a cron-run reporter sharing the cache do not pin a
// stale intraday value.
const todayTTL = 10 * time.Minute

// Config holds Redis connection parameters.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache is a SnapshotCache backed by Redis, shared across process
// invocations.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache connects to Redis and verifies connectivity with a ping.
func NewRedisCache(ctx context.Context, cfg Config) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", cfg.Addr).Msg("Redis snapshot cache connected")
	return &RedisCache{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

func snapshotKey(day time.Time) string {
	return "standings:" + models.FormatDay(day)
}

func (c *RedisCache) Get(ctx context.Context, day time.Time) (models.Snapshot, bool, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(day)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", snapshotKey(day), err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached snapshot %s: %w", snapshotKey(day), err)
	}
	return snap, true, nil
}

func (c *RedisCache) Set(ctx context.Context, day time.Time, snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snapshotKey(day), err)
	}

	var ttl time.Duration
	if !models.Day(day).Before(models.Day(time.Now())) {
		ttl = todayTTL
	}

	if err := c.rdb.Set(ctx, snapshotKey(day), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", snapshotKey(day), err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, day time.Time) error {
	if err := c.rdb.Del(ctx, snapshotKey(day)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", snapshotKey(day), err)
	}
	return nil
}

var _ SnapshotCache = (*RedisCache)(nil)
