// Package cache keeps computed results and run leases in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/smukkama/growth-index/internal/alignment"
	"github.com/smukkama/growth-index/internal/engine"
	"github.com/smukkama/growth-index/pkg/config"
)

// Connect opens a client and checks it answers.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// ResultKey is health_index:<store>:<start>:<end>.
func ResultKey(storeID string, w alignment.Window) string {
	return fmt.Sprintf("health_index:%s:%s:%s", storeID, w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly))
}

// ResultCache stores on-demand results for a short TTL.
type ResultCache struct {
	redis redis.Cmdable
	ttl   time.Duration
}

func NewResultCache(rdb redis.Cmdable, ttl time.Duration) *ResultCache {
	return &ResultCache{redis: rdb, ttl: ttl}
}

// Get returns the cached result; ok is false on a miss.
func (c *ResultCache) Get(ctx context.Context, storeID string, w alignment.Window) (*engine.Result, bool, error) {
	data, err := c.redis.Get(ctx, ResultKey(storeID, w)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get result from Redis: %w", err)
	}

	var res engine.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &res, true, nil
}

func (c *ResultCache) Set(ctx context.Context, res *engine.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.redis.Set(ctx, ResultKey(res.StoreID, res.Window()), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set result in Redis: %w", err)
	}
	return nil
}

// Invalidate drops a cached result. Dropping a missing key is not an error.
func (c *ResultCache) Invalidate(ctx context.Context, storeID string, w alignment.Window) error {
	return c.redis.Del(ctx, ResultKey(storeID, w)).Err()
}

var ErrLockNotObtained = errors.New("lock not obtained")

// RunLocker hands out short leases so that only one process runs a given
// scheduled job at a time.
type RunLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

func NewRunLocker(rdb redislock.RedisClient, ttl time.Duration) *RunLocker {
	return &RunLocker{client: redislock.New(rdb), ttl: ttl}
}

// Lease is a held lock.
type Lease struct {
	lock *redislock.Lock
}

// Obtain takes the lease for key without waiting. ErrLockNotObtained means
// another holder owns it.
func (l *RunLocker) Obtain(ctx context.Context, key string) (*Lease, error) {
	lock, err := l.client.Obtain(ctx, "lock:"+key, l.ttl, nil)
	if err == redislock.ErrNotObtained {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return &Lease{lock: lock}, nil
}

func (l *Lease) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if err == redislock.ErrLockNotHeld {
		return nil
	}
	return err
}
