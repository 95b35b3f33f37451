package jti

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "jti:"
	minRedisTTL    = time.Second
)

var _ Tracker = (*RedisTracker)(nil)

// RedisTracker shares replay ids between processes with SETNX.
type RedisTracker struct {
	rdb     redis.UniversalClient
	nowTime func() time.Time
}

func NewRedisTracker(rdb redis.UniversalClient) *RedisTracker {
	return &RedisTracker{rdb: rdb, nowTime: time.Now}
}

func (r *RedisTracker) MarkSeen(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(r.nowTime())
	if ttl < minRedisTTL {
		ttl = minRedisTTL
	}
	ok, err := r.rdb.SetNX(ctx, redisKeyPrefix+id, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("jti setnx: %w", err)
	}
	return ok, nil
}
