package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"studiobook/internal/availability"
)

const snapshotKey = "studiobook:reservations"

// CachedSource keeps the last good snapshot in redis. When the underlying source
// fails, the cached snapshot is served instead so the store can still load.
type CachedSource struct {
	src    Source
	redis  *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

// NewCachedSource wraps src. A nil client or non-positive ttl disables caching.
func NewCachedSource(src Source, client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *CachedSource {
	return &CachedSource{src: src, redis: client, ttl: ttl, logger: logger}
}

// Reservations reads from the source and refreshes the cache, or falls back to the
// cached snapshot when the source errors.
func (c *CachedSource) Reservations(ctx context.Context) ([]availability.Reservation, error) {
	res, err := c.src.Reservations(ctx)
	if err == nil {
		c.writeCache(ctx, res)
		return res, nil
	}

	var cached []availability.Reservation
	if c.readCache(ctx, &cached) {
		if c.logger != nil {
			c.logger.Warn().Err(err).Int("reservations", len(cached)).Msg("feed source failed, serving cached snapshot")
		}
		return cached, nil
	}
	return nil, err
}

// Cached returns the last cached snapshot, if any.
func (c *CachedSource) Cached(ctx context.Context) ([]availability.Reservation, bool) {
	var cached []availability.Reservation
	ok := c.readCache(ctx, &cached)
	return cached, ok
}

func (c *CachedSource) readCache(ctx context.Context, out any) bool {
	if c.redis == nil || c.ttl <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, snapshotKey).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *CachedSource) writeCache(ctx context.Context, val any) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.Warn().Err(err).Msg("cache reservations snapshot")
	}
}
