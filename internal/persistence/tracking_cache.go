package persistence

import (
	"context"
	"strconv"
	"time"
)

const (
	trackingKeyPrefix = "tracking:"
	trackingTTL       = 15 * time.Minute
)

// TrackingCache caches tracking-token lookups in Redis so repeated polls of
// the public tracking page do not hit Postgres. Misses and Redis outages fall
// through to the database.
type TrackingCache struct {
	redis *Redis
}

// NewTrackingCache wraps the shared Redis client.
func NewTrackingCache(r *Redis) *TrackingCache {
	return &TrackingCache{redis: r}
}

// GetComplaintID returns the cached complaint id for a token.
func (c *TrackingCache) GetComplaintID(ctx context.Context, token string) (int64, bool) {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return 0, false
	}
	val, err := c.redis.Client.Get(ctx, trackingKeyPrefix+token).Result()
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// StoreComplaintID caches the token to complaint id mapping.
func (c *TrackingCache) StoreComplaintID(ctx context.Context, token string, id int64) {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return
	}
	c.redis.Client.Set(ctx, trackingKeyPrefix+token, strconv.FormatInt(id, 10), trackingTTL)
}
