package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medhelper/labcart/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, time.Minute), mr
}

func sampleCart() *domain.Cart {
	date := domain.Date{Year: 2025, Month: time.June, Day: 1}
	clock := domain.TimeOfDay{Hour: 14, Minute: 30}
	return &domain.Cart{
		ID:     3,
		UserID: 7,
		Lines: []domain.CartLine{
			{ID: 1, CartID: 3, AnalysisID: 1, Quantity: 2, ScheduledDate: &date, ScheduledTime: &clock},
			{ID: 2, CartID: 3, AnalysisID: 4, Quantity: 1},
		},
		CreatedAt: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestStoreThenGet(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	v, err := cache.Version(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, v)

	stored, err := cache.StoreIfCurrent(ctx, 7, v, sampleCart())
	require.NoError(t, err)
	assert.True(t, stored)

	ttl := mr.TTL("cart:7")
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.Less(t, ttl, 6*time.Minute)

	got, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, sampleCart(), got)
}

func TestStoreIfCurrent_InvalidatedSinceRead(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	v, err := cache.Version(ctx, 7)
	require.NoError(t, err)

	// a writer commits and invalidates while the reader is loading
	require.NoError(t, cache.Invalidate(ctx, 7))

	stored, err := cache.StoreIfCurrent(ctx, 7, v, sampleCart())
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists("cart:7"))

	_, err = cache.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrCacheMiss)

	// a reader that starts after the invalidation may fill the cache
	v, err = cache.Version(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	stored, err = cache.StoreIfCurrent(ctx, 7, v, sampleCart())
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestInvalidate(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	_, err := cache.StoreIfCurrent(ctx, 7, 0, sampleCart())
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(ctx, 7))
	assert.False(t, mr.Exists("cart:7"))
	assert.True(t, mr.Exists("cart:7:v"))
	assert.Greater(t, mr.TTL("cart:7:v"), time.Hour)

	// invalidating an absent cart still bumps the version
	require.NoError(t, cache.Invalidate(ctx, 7))
	v, err := cache.Version(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestGet_Miss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	_, err := cache.Get(context.Background(), 99)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGet_CorruptPayload(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:7", "{not json"))

	_, err := cache.Get(context.Background(), 7)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestRedisDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background(), 7)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	_, err = cache.Version(context.Background(), 7)
	assert.Error(t, err)
}
