package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/postpulse/postpulse/internal/domain"
	"github.com/postpulse/postpulse/internal/metrics"
)

const timelineCachePrefix = "timeline:"

// TimelineCache implements domain.TimelineCache on Redis. Keys carry the
// snapshot version (the subject's latest run ID), so a new analysis run
// invalidates old entries by construction; stale keys simply expire.
type TimelineCache struct {
	rdb goredis.Cmdable
	ttl time.Duration
}

func NewTimelineCache(rdb goredis.Cmdable, ttl time.Duration) *TimelineCache {
	return &TimelineCache{rdb: rdb, ttl: ttl}
}

func timelineKey(subjectHandle string, period domain.Period, snapshot uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s:%s", timelineCachePrefix, subjectHandle, period, snapshot)
}

// Get returns the cached bucket series. Misses and Redis failures both come
// back as (nil, false, nil): the caller recomputes, a degraded cache never
// fails a read.
func (c *TimelineCache) Get(ctx context.Context, subjectHandle string, period domain.Period, snapshot uuid.UUID) ([]domain.TimeBucket, bool, error) {
	data, err := c.rdb.Get(ctx, timelineKey(subjectHandle, period, snapshot)).Bytes()
	if errors.Is(err, goredis.Nil) {
		metrics.TimelineCacheHits.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.TimelineCacheHits.WithLabelValues("error").Inc()
		slog.Warn("Timeline cache GET failed, recomputing",
			"subject_handle", subjectHandle, "period", period, "error", err)
		return nil, false, nil
	}

	var buckets []domain.TimeBucket
	if err := json.Unmarshal(data, &buckets); err != nil {
		metrics.TimelineCacheHits.WithLabelValues("error").Inc()
		slog.Warn("Failed to unmarshal cached timeline, recomputing",
			"subject_handle", subjectHandle, "period", period, "error", err)
		return nil, false, nil
	}

	metrics.TimelineCacheHits.WithLabelValues("hit").Inc()
	return buckets, true, nil
}

// Set stores a computed bucket series, best-effort.
func (c *TimelineCache) Set(ctx context.Context, subjectHandle string, period domain.Period, snapshot uuid.UUID, buckets []domain.TimeBucket) error {
	encoded, err := json.Marshal(buckets)
	if err != nil {
		return fmt.Errorf("failed to marshal timeline: %w", err)
	}

	if err := c.rdb.Set(ctx, timelineKey(subjectHandle, period, snapshot), encoded, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store timeline in cache: %w", err)
	}
	return nil
}
