package payment

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventDeduper remembers which webhook events have been handled.
type EventDeduper interface {
	// MarkProcessing reports true the first time eventID is seen.
	MarkProcessing(ctx context.Context, eventID string) (bool, error)
	// Forget clears the mark so a redelivery is processed again.
	Forget(ctx context.Context, eventID string) error
}

// RedisDeduper keeps event marks in Redis for ttl.
type RedisDeduper struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisDeduper(rdb redis.UniversalClient, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func dedupeKey(eventID string) string {
	return "webhook:stripe:" + eventID
}

func (d *RedisDeduper) MarkProcessing(ctx context.Context, eventID string) (bool, error) {
	return d.rdb.SetNX(ctx, dedupeKey(eventID), time.Now().Unix(), d.ttl).Result()
}

func (d *RedisDeduper) Forget(ctx context.Context, eventID string) error {
	return d.rdb.Del(ctx, dedupeKey(eventID)).Err()
}
