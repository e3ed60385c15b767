package cache_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"parstock/internal/cache"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	Count int `json:"count"`
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestKey(t *testing.T) {
	assert.Equal(t, "parstock:report:alerts", cache.Key("alerts"))
	assert.Equal(t, "parstock:report:usage-trends:7:30", cache.Key("usage-trends", 7, 30))
}

func TestDisabledCacheAlwaysFills(t *testing.T) {
	c := cache.New(nil, time.Minute, quietLogger())
	assert.False(t, c.Enabled())

	calls := 0
	fill := func(context.Context) (report, error) {
		calls++
		return report{Count: calls}, nil
	}
	for i := 1; i <= 3; i++ {
		got, err := cache.GetOrFill(context.Background(), c, cache.Key("alerts"), fill)
		require.NoError(t, err)
		assert.Equal(t, i, got.Count)
	}
	assert.NoError(t, c.Invalidate(context.Background()))
}

func TestDisabledCachePropagatesFillError(t *testing.T) {
	c := cache.New(nil, time.Minute, quietLogger())
	boom := errors.New("boom")
	_, err := cache.GetOrFill(context.Background(), c, "k", func(context.Context) (report, error) {
		return report{}, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRedisCache_FillOnceThenInvalidate(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping redis test")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(ctx).Err())
	c := cache.New(rdb, time.Minute, quietLogger())
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Invalidate(ctx))

	calls := 0
	fill := func(context.Context) (report, error) {
		calls++
		return report{Count: 42}, nil
	}
	key := cache.Key("test", time.Now().UnixNano())

	for i := 0; i < 3; i++ {
		got, err := cache.GetOrFill(ctx, c, key, fill)
		require.NoError(t, err)
		assert.Equal(t, 42, got.Count)
	}
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Invalidate(ctx))
	_, err := cache.GetOrFill(ctx, c, key, fill)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRedisCache_InvalidateDuringFillIsNotStored(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping redis test")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(ctx).Err())
	c := cache.New(rdb, time.Minute, quietLogger())
	t.Cleanup(func() { _ = c.Close() })

	key := cache.Key("test", time.Now().UnixNano())
	calls := 0
	fill := func(ctx context.Context) (report, error) {
		calls++
		if calls == 1 {
			// A stock mutation commits while the first fill is still computing.
			require.NoError(t, c.Invalidate(ctx))
		}
		return report{Count: calls}, nil
	}

	got, err := cache.GetOrFill(ctx, c, key, fill)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count, "the caller still gets its result")

	got, err = cache.GetOrFill(ctx, c, key, fill)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count, "the pre-invalidation result must not be served")

	got, err = cache.GetOrFill(ctx, c, key, fill)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count, "a fill with no invalidation is cached")
	assert.Equal(t, 2, calls)
}
