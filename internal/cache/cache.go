// Package cache keeps computed reports in Redis. A ReportCache without a
// client is valid and simply computes every report.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	keyPrefix = "parstock:report:"
	keyIndex  = "parstock:report:keys" // set of every cached report key
	keyGen    = "parstock:report:generation"
	lockTTL   = 10 * time.Second
)

// ReportCache stores report results as JSON with a fixed TTL.
type ReportCache struct {
	rdb    *redis.Client
	locker *redislock.Client
	ttl    time.Duration
	logger logrus.FieldLogger
}

// New wraps rdb. A nil rdb disables caching.
func New(rdb *redis.Client, ttl time.Duration, logger logrus.FieldLogger) *ReportCache {
	c := &ReportCache{rdb: rdb, ttl: ttl, logger: logger}
	if rdb != nil {
		c.locker = redislock.New(rdb)
	}
	return c
}

// Connect dials addr and pings it. An empty addr returns a disabled cache.
func Connect(ctx context.Context, addr string, ttl time.Duration, logger logrus.FieldLogger) (*ReportCache, error) {
	if addr == "" {
		logger.Info("REDIS_ADDR not set; report cache disabled")
		return New(nil, ttl, logger), nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	logger.WithField("addr", addr).Info("connected to redis")
	return New(rdb, ttl, logger), nil
}

// Enabled reports whether a Redis client is configured.
func (c *ReportCache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Close releases the Redis client.
func (c *ReportCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}

// Key builds a report cache key from a report name and its parameters.
func Key(report string, params ...any) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, report)
	for _, p := range params {
		parts = append(parts, fmt.Sprint(p))
	}
	return keyPrefix + strings.Join(parts, ":")
}

// GetOrFill returns the cached value at key or computes it with fill. Only one
// process fills a given key at a time; a caller that cannot get the fill lock
// computes the value without storing it. Redis failures never fail the call.
func GetOrFill[T any](ctx context.Context, c *ReportCache, key string, fill func(context.Context) (T, error)) (T, error) {
	if !c.Enabled() {
		return fill(ctx)
	}

	if v, ok := get[T](ctx, c, key); ok {
		return v, nil
	}

	lock, err := c.locker.Obtain(ctx, key+":lock", lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 20),
	})
	if err != nil {
		if !errors.Is(err, redislock.ErrNotObtained) {
			c.logger.WithError(err).WithField("key", key).Warn("report cache lock failed")
		}
		return fill(ctx)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			c.logger.WithError(err).WithField("key", key).Warn("report cache unlock failed")
		}
	}()

	// Another holder of the lock may have filled it while we waited.
	if v, ok := get[T](ctx, c, key); ok {
		return v, nil
	}

	// Read before filling: an Invalidate that lands during fill bumps the
	// generation and the result is returned without being stored.
	gen, err := c.generation(ctx, c.rdb)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("report cache generation read failed")
		return fill(ctx)
	}
	v, err := fill(ctx)
	if err != nil {
		return v, err
	}
	c.set(ctx, key, v, gen)
	return v, nil
}

// getter is the part of *redis.Client and *redis.Tx that generation needs.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *ReportCache) generation(ctx context.Context, cmd getter) (int64, error) {
	gen, err := cmd.Get(ctx, keyGen).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func get[T any](ctx context.Context, c *ReportCache, key string) (T, bool) {
	var v T
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("key", key).Warn("report cache read failed")
		}
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("report cache entry unreadable")
		return v, false
	}
	return v, true
}

// set stores v at key unless the cache was invalidated since gen was read.
func (c *ReportCache) set(ctx context.Context, key string, v any, gen int64) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("report cache encode failed")
		return
	}
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := c.generation(ctx, tx)
		if err != nil {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, raw, c.ttl)
			p.SAdd(ctx, keyIndex, key)
			return nil
		})
		return err
	}, keyGen)
	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		c.logger.WithField("key", key).Debug("report invalidated during fill; not cached")
	default:
		c.logger.WithError(err).WithField("key", key).Warn("report cache write failed")
	}
}

var errStale = errors.New("report cache invalidated during fill")

// Invalidate drops every cached report and bumps the generation so fills
// already running are not stored. It runs after any stock mutation.
func (c *ReportCache) Invalidate(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.rdb.Incr(ctx, keyGen).Err(); err != nil {
		return fmt.Errorf("failed to bump report cache generation: %w", err)
	}
	keys, err := c.rdb.SMembers(ctx, keyIndex).Result()
	if err != nil {
		return fmt.Errorf("failed to list cached reports: %w", err)
	}
	keys = append(keys, keyIndex)
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached reports: %w", err)
	}
	return nil
}
