package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"pricetracker-service/internal/domain"
	infracfg "pricetracker-service/internal/infrastructure/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var errNoAssets = errors.New("no assets requested")

type Fetcher interface {
	Fetch(ctx context.Context, assets []domain.AssetID) (map[domain.AssetID]decimal.Decimal, error)
}

type Clock interface {
	Now() time.Time
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

// Entry is one memoized batch result.
type Entry struct {
	Key       domain.BatchKey                    `json:"key"`
	Prices    map[domain.AssetID]decimal.Decimal `json:"prices"`
	FetchedAt time.Time                          `json:"fetched_at"`
	LastUsed  time.Time                          `json:"last_used"`
}

// Store holds entries by batch key. Implementations must be safe for
// concurrent use; Get reports a missing key as ok=false with a nil error.
type Store interface {
	Get(ctx context.Context, key domain.BatchKey) (Entry, bool, error)
	Set(ctx context.Context, e Entry) error
	// Touch marks key used at at. Stores that evict through key expiry may
	// only push the expiry out, in which case Entry.LastUsed keeps the value
	// from Set and is advisory.
	Touch(ctx context.Context, key domain.BatchKey, at time.Time) error
	// Purge drops entries last used before idleBefore and returns how many.
	Purge(ctx context.Context, idleBefore time.Time) (int, error)
}

type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Fetches uint64 `json:"fetches"`
	Shared  uint64 `json:"shared"`
}

// Cache memoizes Fetcher results per batch of assets and coalesces
// concurrent identical requests into a single upstream call.
type Cache struct {
	fetcher      Fetcher
	store        Store
	clock        Clock
	log          *zap.Logger
	idle         time.Duration
	fetchTimeout time.Duration

	group singleflight.Group

	hits, misses, fetches, shared atomic.Uint64
}

type Option func(*Cache)

func WithClock(c Clock) Option { return func(x *Cache) { x.clock = c } }
func WithLogger(l *zap.Logger) Option { return func(x *Cache) { x.log = l } }
func WithIdle(d time.Duration) Option { return func(x *Cache) { x.idle = d } }

// WithFetchTimeout bounds each shared upstream call.
func WithFetchTimeout(d time.Duration) Option { return func(x *Cache) { x.fetchTimeout = d } }

func New(fetcher Fetcher, store Store, opts ...Option) *Cache {
	c := &Cache{fetcher: fetcher, store: store}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	if c.clock == nil {
		c.clock = utcClock{}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.idle <= 0 {
		c.idle = infracfg.DefaultIdleFactor * infracfg.DefaultCacheTTL
	}
	if c.fetchTimeout <= 0 {
		c.fetchTimeout = infracfg.DefaultFetchTimeout
	}
	return c
}

func (c *Cache) Idle() time.Duration { return c.idle }

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Fetches: c.fetches.Load(),
		Shared:  c.shared.Load(),
	}
}

// GetOrFetch returns the prices for assets, fetching at most once per batch
// per ttl. The flight runs detached from ctx so one caller giving up does not
// fail the others sharing it; a caller whose ctx ends returns ctx.Err().
func (c *Cache) GetOrFetch(ctx context.Context, assets []domain.AssetID, ttl time.Duration) (map[domain.AssetID]decimal.Decimal, error) {
	if len(assets) == 0 {
		return nil, domain.InvalidRequest("cache", errNoAssets)
	}
	assets = domain.UniqueAssets(assets)
	key := domain.NewBatchKey(assets)

	if e, ok := c.lookup(ctx, key, ttl); ok {
		c.hits.Add(1)
		return copyPrices(e.Prices), nil
	}
	c.misses.Add(1)

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(string(key), func() (any, error) {
		// An identical flight may have stored the entry since our lookup.
		if e, ok := c.lookup(flightCtx, key, ttl); ok {
			return e.Prices, nil
		}
		return c.fetch(flightCtx, key, assets)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.shared.Add(1)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return copyPrices(res.Val.(map[domain.AssetID]decimal.Decimal)), nil
	}
}

func (c *Cache) fetch(ctx context.Context, key domain.BatchKey, assets []domain.AssetID) (map[domain.AssetID]decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	c.fetches.Add(1)
	start := c.clock.Now()
	prices, err := c.fetcher.Fetch(ctx, assets)
	if err != nil {
		c.log.Warn("cache.fetch_failed", zap.String("batch", string(key)), zap.Error(err))
		return nil, err
	}
	now := c.clock.Now()
	e := Entry{Key: key, Prices: copyPrices(prices), FetchedAt: now, LastUsed: now}
	if err := c.store.Set(ctx, e); err != nil {
		c.log.Warn("cache.store_set_failed", zap.String("batch", string(key)), zap.Error(err))
	}
	c.log.Debug("cache.fetched",
		zap.String("batch", string(key)),
		zap.Int("prices", len(prices)),
		zap.Duration("duration", now.Sub(start)),
	)
	return e.Prices, nil
}

// lookup returns a fresh entry and marks it used. Store errors read as a
// miss.
func (c *Cache) lookup(ctx context.Context, key domain.BatchKey, ttl time.Duration) (Entry, bool) {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache.store_get_failed", zap.String("batch", string(key)), zap.Error(err))
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}
	now := c.clock.Now()
	if now.Sub(e.FetchedAt) >= ttl {
		return Entry{}, false
	}
	if err := c.store.Touch(ctx, key, now); err != nil {
		c.log.Warn("cache.store_touch_failed", zap.String("batch", string(key)), zap.Error(err))
	}
	return e, true
}

// Purge drops entries that have not been hit or stored within the idle
// window.
func (c *Cache) Purge(ctx context.Context) int {
	n, err := c.store.Purge(ctx, c.clock.Now().Add(-c.idle))
	if err != nil {
		c.log.Warn("cache.purge_failed", zap.Error(err))
	}
	if n > 0 {
		c.log.Info("cache.purged", zap.Int("entries", n))
	}
	return n
}

func copyPrices(in map[domain.AssetID]decimal.Decimal) map[domain.AssetID]decimal.Decimal {
	out := make(map[domain.AssetID]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
