package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Goal       float64 `json:"goal"`
	Confidence float64 `json:"confidence"`
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisCacheFromClient(client, "test")
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", payload{Goal: 30, Confidence: 1}, time.Minute))
	var got payload
	require.NoError(t, mc.Get(ctx, "k", &got))
	assert.Equal(t, payload{Goal: 30, Confidence: 1}, got)

	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mc.Delete(ctx, "k"))
	assert.ErrorIs(t, mc.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryClock(clock.now))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", "v", time.Minute))
	clock.advance(30 * time.Second)
	var s string
	require.NoError(t, mc.Get(ctx, "k", &s))
	assert.Equal(t, "v", s)

	clock.advance(time.Minute)
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
	assert.Equal(t, 0, mc.Len())
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryClock(clock.now), WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	clock.advance(time.Second)
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	clock.advance(time.Second)

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	clock.advance(time.Second)
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, rc := newMiniRedis(t)

	require.NoError(t, rc.Set(ctx, "goal:abc", payload{Goal: 5.05, Confidence: 1}, time.Minute))
	assert.True(t, mr.Exists("test:goal:abc"))

	var got payload
	require.NoError(t, rc.Get(ctx, "goal:abc", &got))
	assert.Equal(t, 5.05, got.Goal)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, rc.Get(ctx, "goal:abc", &got), ErrCacheMiss)
	require.NoError(t, rc.Ping(ctx))
}

func TestLayeredCacheFillsL1FromRedis(t *testing.T) {
	ctx := context.Background()
	mr, rc := newMiniRedis(t)
	lc := NewLayeredCache(rc, WithLayeredMemorySize(10))
	defer lc.memCache.Close()

	require.NoError(t, mr.Set("test:k", `{"goal":11,"confidence":0.5}`))

	var got payload
	require.NoError(t, lc.Get(ctx, "k", &got))
	assert.Equal(t, payload{Goal: 11, Confidence: 0.5}, got)

	mr.Del("test:k")
	var again payload
	require.NoError(t, lc.Get(ctx, "k", &again))
	assert.Equal(t, got, again)
}

func TestLayeredCacheWriteThrough(t *testing.T) {
	ctx := context.Background()
	mr, rc := newMiniRedis(t)
	lc := NewLayeredCache(rc)
	defer lc.memCache.Close()

	require.NoError(t, lc.Set(ctx, "k", payload{Goal: 1}, time.Minute))
	stored, err := mr.Get("test:k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"goal":1,"confidence":0}`, stored)

	require.NoError(t, lc.Delete(ctx, "k"))
	var got payload
	assert.ErrorIs(t, lc.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestHashKeyIsStable(t *testing.T) {
	a := HashKey([]byte(`{"records":[1,2]}`))
	assert.Equal(t, a, HashKey([]byte(`{"records":[1,2]}`)))
	assert.NotEqual(t, a, HashKey([]byte(`{"records":[2,1]}`)))
	assert.Len(t, a, 64)
	assert.Equal(t, "forecast:abc", GenerateKey("forecast", "abc"))
}
