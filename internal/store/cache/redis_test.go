package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	catalog "github.com/fjod/snapeat/internal/catalog/domain"
	"github.com/fjod/snapeat/internal/store/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCache(client), mr
}

func sampleSnapshot() domain.Snapshot {
	s := domain.EmptySnapshot()
	s.CartProduct = append(s.CartProduct, domain.CartLine{
		Product:  catalog.Product{ID: 1, Name: "Tea", RegularPrice: 100, DiscountedPrice: 90},
		Quantity: 2,
	})
	s.FavoriteProduct = append(s.FavoriteProduct, catalog.Product{ID: 3})
	return s
}

func TestGet_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)

	data, _ := json.Marshal(sampleSnapshot())
	require.NoError(t, mr.Set(cacheKey("s1"), string(data)))

	result, err := cache.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, result.CartProduct, 1)
	assert.Equal(t, 2, result.CartProduct[0].Quantity)
	assert.Len(t, result.FavoriteProduct, 1)
	assert.NotNil(t, result.CompareProducts)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	_, err := cache.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("s1"), `{"cartProduct":[`))

	_, err := cache.Get(context.Background(), "s1")
	require.ErrorContains(t, err, "unmarshal session failed")
}

func TestGet_LegacyBlobWithoutLists(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("s1"), `{"cartProduct":[{"_id":4,"name":"Soap","quantity":1}]}`))

	result, err := cache.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.CartProduct[0].ID)
	assert.Empty(t, result.FavoriteProduct)
	assert.NotNil(t, result.FavoriteProduct)
}

func TestSet_StoresBlobShape(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), "s2", sampleSnapshot()))

	stored, err := mr.Get(cacheKey("s2"))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(stored), &raw))
	assert.Contains(t, raw, "cartProduct")
	assert.Contains(t, raw, "favoriteProduct")
	assert.Contains(t, raw, "compareProducts")
}

func TestSet_WithTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), "s3", domain.EmptySnapshot()))

	ttl := mr.TTL(cacheKey("s3"))
	assert.True(t, ttl >= 15*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl <= 20*time.Minute, "TTL should be base + max jitter")
}

func TestDelete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("s4"), "{}"))

	require.NoError(t, cache.Delete(context.Background(), "s4"))
	assert.False(t, mr.Exists(cacheKey("s4")))

	assert.NoError(t, cache.Delete(context.Background(), "nonexistent"))
}

func TestCacheKey_Format(t *testing.T) {
	assert.Equal(t, "supergear-storage:abc", cacheKey("abc"))
}

func TestPing(t *testing.T) {
	cache, mr := setupTestRedis(t)
	assert.NoError(t, cache.Ping(context.Background()))

	mr.Close()
	assert.Error(t, cache.Ping(context.Background()))
}
