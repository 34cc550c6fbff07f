package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/dto"
)

func setupTestRedis(t *testing.T) (*PreferenceCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewPreferenceCache(client, 10*time.Minute), mr
}

func TestPreferenceCache_SetThenGet(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	total := decimal.RequireFromString("1150.5")

	session := &dto.CheckoutSession{PreferenceID: "pref-1", InitPoint: "https://mp/init"}
	require.NoError(t, cache.Set(ctx, 17, total, session))

	assert.True(t, mr.Exists("checkout:preference:17:1150.50"))
	assert.Equal(t, 10*time.Minute, mr.TTL("checkout:preference:17:1150.50"))

	got, err := cache.Get(ctx, 17, total)
	require.NoError(t, err)
	assert.Equal(t, "pref-1", got.PreferenceID)
	assert.Equal(t, "https://mp/init", got.InitPoint)
}

func TestPreferenceCache_MissWhenTotalChanges(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 17, decimal.RequireFromString("1000"), &dto.CheckoutSession{PreferenceID: "pref-1"}))

	got, err := cache.Get(ctx, 17, decimal.RequireFromString("1150.50"))
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestPreferenceCache_Expires(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	total := decimal.RequireFromString("10")

	require.NoError(t, cache.Set(ctx, 3, total, &dto.CheckoutSession{PreferenceID: "pref-3"}))
	mr.FastForward(11 * time.Minute)

	_, err := cache.Get(ctx, 3, total)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestPreferenceCache_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Set("checkout:preference:5:10.00", "not json")

	_, err := cache.Get(context.Background(), 5, decimal.RequireFromString("10"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestPreferenceCache_RedisDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background(), 5, decimal.RequireFromString("10"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
