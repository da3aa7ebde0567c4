package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanpilot/internal/model"
)

func newTestCache(t *testing.T, ttl time.Duration) (*PredictionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &PredictionCache{redis: client, ttl: ttl}, mr
}

func TestPredictionCachePutGet(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, hit, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Put(ctx, "abc123", 42500))

	amount, hit, err := cache.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 42500.0, amount)
}

func TestPredictionCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "abc123", 100))
	mr.FastForward(time.Minute)

	_, hit, err := cache.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestPredictionCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "h1", 1))
	require.NoError(t, cache.Put(ctx, "h2", 2))
	require.NoError(t, cache.PutModelInfo(ctx, &model.ModelInfo{Trees: 10}))

	require.NoError(t, cache.Invalidate(ctx))

	_, hit, err := cache.Get(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, hit)
	_, hit, err = cache.Get(ctx, "h2")
	require.NoError(t, err)
	assert.False(t, hit)

	// Model info is not a prediction and survives invalidation
	info, err := cache.GetModelInfo(ctx)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, 10, info.Trees)
}

func TestProfileHashStability(t *testing.T) {
	p1 := &model.ApplicantProfile{Gender: "F", Age: 40, LoanAmountRequest: 50000}
	p2 := &model.ApplicantProfile{Gender: "F", Age: 40, LoanAmountRequest: 50000}
	p3 := &model.ApplicantProfile{Gender: "M", Age: 40, LoanAmountRequest: 50000}

	h1, err := ProfileHash(p1)
	require.NoError(t, err)
	h2, err := ProfileHash(p2)
	require.NoError(t, err)
	h3, err := ProfileHash(p3)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}
