package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCache(client, time.Minute)
}

func TestFetchJSONPopulatesAndReuses(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(ctx context.Context) (any, error) {
		loads++
		return map[string]int{"value": loads}, nil
	}

	key, err := cache.BuildKey(ctx, "analytics", "dashboard")
	require.NoError(t, err)

	var first map[string]int
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	require.Equal(t, 1, first["value"])

	var second map[string]int
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))
	require.Equal(t, 1, second["value"])
	require.Equal(t, 1, loads)
}

func TestBumpInvalidatesVersionedKeys(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(ctx context.Context) (any, error) {
		loads++
		return map[string]int{"value": loads}, nil
	}

	key, err := cache.BuildKey(ctx, "analytics", "dashboard")
	require.NoError(t, err)
	var out map[string]int
	require.NoError(t, cache.FetchJSON(ctx, key, &out, loader))
	require.Equal(t, 1, out["value"])

	require.NoError(t, cache.Bump(ctx))

	// The key changes with the version, so the old entry is never seen again.
	bumpedKey, err := cache.BuildKey(ctx, "analytics", "dashboard")
	require.NoError(t, err)
	require.NotEqual(t, key, bumpedKey)

	require.NoError(t, cache.FetchJSON(ctx, bumpedKey, &out, loader))
	require.Equal(t, 2, out["value"])
	require.Equal(t, 2, loads)
}

func TestNilCacheFallsThroughToLoader(t *testing.T) {
	var cache *Cache
	var out map[string]int
	err := cache.FetchJSON(context.Background(), "any", &out, func(ctx context.Context) (any, error) {
		return map[string]int{"value": 9}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 9, out["value"])
}
