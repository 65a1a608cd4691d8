package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements a sliding window limiter backed by Redis sorted sets, so all
// API replicas share one budget per client.
type RedisLimiter struct {
	Client *redis.Client
	Prefix string
}

// Allow registers an event for key and reports whether it is within the limit.
func (l RedisLimiter) Allow(ctx context.Context, key string, window time.Duration, limit int) (Decision, error) {
	now := time.Now()
	if l.Client == nil || limit <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: limit, ResetAt: now.Add(window)}, nil
	}

	redisKey := l.Prefix + key
	member := fmt.Sprintf("%s:%s", key, uuid.NewString())

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%d", now.Add(-window).UnixNano()))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("sliding window %s: %w", key, err)
	}

	resetAt := now.Add(window)
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		resetAt = time.Unix(0, int64(oldest[0].Score)).Add(window)
	}
	current := int(countCmd.Val())
	return Decision{
		Allowed:   current <= limit,
		Remaining: max(0, limit-current),
		ResetAt:   resetAt,
	}, nil
}
