package redislimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a redis-backed sliding-window limiter using ZSETs, for
// deployments where authorization attempts from one client spread across
// many processes.
type Limiter struct {
	rdb    *redis.Client
	keyNS  string
	limit  int
	window time.Duration
	ctx    context.Context
}

// New constructs a limiter allowing at most limit calls per key per window.
func New(rdb *redis.Client, keyPrefix string, limit int, window time.Duration) *Limiter {
	if keyPrefix == "" {
		keyPrefix = "authz:ratelimit:"
	}
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		rdb:    rdb,
		keyNS:  keyPrefix,
		limit:  limit,
		window: window,
		ctx:    context.Background(),
	}
}

// Allow records an attempt for the key and reports whether it is within the
// limit. A redis failure allows the attempt: the full validation pipeline
// still runs either way, and an unavailable limiter must not deny every
// caller.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.rdb == nil || key == "" {
		return true
	}

	now := time.Now().UnixNano() / 1e6 // ms
	start := now - l.window.Milliseconds()
	limitKey := l.keyNS + key

	pipe := l.rdb.TxPipeline()
	pipe.ZAdd(l.ctx, limitKey, redis.Z{Score: float64(now), Member: now})
	pipe.ZRemRangeByScore(l.ctx, limitKey, "0", fmt.Sprintf("%d", start))
	countCmd := pipe.ZCard(l.ctx, limitKey)
	pipe.Expire(l.ctx, limitKey, l.window+time.Second)
	if _, err := pipe.Exec(l.ctx); err != nil {
		return true
	}
	count, err := countCmd.Result()
	if err != nil {
		return true
	}
	if count > int64(l.limit) {
		// Over the limit: remove this attempt so denied calls do not extend
		// the window.
		l.rdb.ZRem(l.ctx, limitKey, now)
		return false
	}
	return true
}
