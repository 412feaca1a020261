package scheduler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TickLock lets multiple scheduler processes share one tick cadence without
// double-firing launchers. A deployment with only one scheduler
// process can skip this entirely — Scheduler.Run works fine with a nil lock.
type TickLock interface {
	// TryAcquire returns true if this process won the tick, false if
	// another process currently holds it.
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context)
}

// RedisTickLock implements TickLock with a SETNX-with-TTL lease against
// Redis, so only one process runs a given scheduler tick.
type RedisTickLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisTickLock builds a lock keyed by key, held for ttl before it
// auto-expires (so a crashed holder never wedges every other process out
// permanently).
func NewRedisTickLock(client *redis.Client, key string, ttl time.Duration) *RedisTickLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisTickLock{client: client, key: key, ttl: ttl}
}

func (l *RedisTickLock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, "1", l.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (l *RedisTickLock) Release(ctx context.Context) {
	l.client.Del(ctx, l.key)
}
