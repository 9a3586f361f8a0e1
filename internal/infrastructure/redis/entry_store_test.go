package redisstore_test

import (
	"context"
	"testing"
	"time"

	"pricetracker-service/internal/domain"
	"pricetracker-service/internal/infrastructure/cache"
	redisstore "pricetracker-service/internal/infrastructure/redis"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, idle time.Duration) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.New(client, idle), mr
}

func entry(at time.Time) cache.Entry {
	return cache.Entry{
		Key: domain.NewBatchKey([]domain.AssetID{"ethereum", "bitcoin"}),
		Prices: map[domain.AssetID]decimal.Decimal{
			"bitcoin":  decimal.RequireFromString("43250.1234"),
			"ethereum": decimal.RequireFromString("2280.5"),
		},
		FetchedAt: at,
		LastUsed:  at,
	}
}

func TestStore_SetGet(t *testing.T) {
	store, mr := newStore(t, 10*time.Minute)
	ctx := context.Background()
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Set(ctx, entry(at)))
	require.True(t, mr.Exists("pricetracker:cache:bitcoin,ethereum"))
	require.Equal(t, 10*time.Minute, mr.TTL("pricetracker:cache:bitcoin,ethereum"))

	got, ok, err := store.Get(ctx, "bitcoin,ethereum")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.FetchedAt.Equal(at))
	require.True(t, got.Prices["bitcoin"].Equal(decimal.RequireFromString("43250.1234")))
	require.Len(t, got.Prices, 2)
}

func TestStore_MissingKey(t *testing.T) {
	store, _ := newStore(t, time.Minute)
	_, ok, err := store.Get(context.Background(), "dogecoin")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_TouchExtendsIdle(t *testing.T) {
	store, mr := newStore(t, 10*time.Minute)
	ctx := context.Background()
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Set(ctx, entry(at)))

	mr.FastForward(8 * time.Minute)
	require.NoError(t, store.Touch(ctx, "bitcoin,ethereum", at.Add(8*time.Minute)))
	require.Equal(t, 10*time.Minute, mr.TTL("pricetracker:cache:bitcoin,ethereum"))
	mr.FastForward(8 * time.Minute)
	got, ok, err := store.Get(ctx, "bitcoin,ethereum")
	require.NoError(t, err)
	require.True(t, ok)
	// Expiry moved; the stored LastUsed is left as written.
	require.True(t, got.LastUsed.Equal(at))

	mr.FastForward(11 * time.Minute)
	_, ok, err = store.Get(ctx, "bitcoin,ethereum")
	require.NoError(t, err)
	require.False(t, ok)

	n, err := store.Purge(ctx, time.Now())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestStore_CorruptValue(t *testing.T) {
	store, mr := newStore(t, time.Minute)
	require.NoError(t, mr.Set("pricetracker:cache:bitcoin", "{not json"))
	_, ok, err := store.Get(context.Background(), "bitcoin")
	require.Error(t, err)
	require.False(t, ok)
}

func TestStore_ServerDown(t *testing.T) {
	store, mr := newStore(t, time.Minute)
	mr.Close()
	ctx := context.Background()
	_, _, err := store.Get(ctx, "bitcoin")
	require.Error(t, err)
	require.Error(t, store.Ping(ctx))
}

// The cache keeps working through the Redis store, sharing entries across
// cache instances.
func TestStore_BacksCache(t *testing.T) {
	store, _ := newStore(t, time.Minute)
	calls := 0
	f := fetcherFunc(func(ctx context.Context, assets []domain.AssetID) (map[domain.AssetID]decimal.Decimal, error) {
		calls++
		return map[domain.AssetID]decimal.Decimal{"bitcoin": decimal.NewFromInt(1)}, nil
	})
	ctx := context.Background()

	_, err := cache.New(f, store).GetOrFetch(ctx, []domain.AssetID{"bitcoin"}, time.Minute)
	require.NoError(t, err)
	got, err := cache.New(f, store).GetOrFetch(ctx, []domain.AssetID{"bitcoin"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.True(t, got["bitcoin"].Equal(decimal.NewFromInt(1)))
}

type fetcherFunc func(ctx context.Context, assets []domain.AssetID) (map[domain.AssetID]decimal.Decimal, error)

func (f fetcherFunc) Fetch(ctx context.Context, assets []domain.AssetID) (map[domain.AssetID]decimal.Decimal, error) {
	return f(ctx, assets)
}
