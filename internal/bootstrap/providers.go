package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pricetracker-service/internal/application"
	"pricetracker-service/internal/config"
	"pricetracker-service/internal/infrastructure/cache"
	infracfg "pricetracker-service/internal/infrastructure/config"
	"pricetracker-service/internal/infrastructure/history"
	httpserver "pricetracker-service/internal/infrastructure/http"
	"pricetracker-service/internal/infrastructure/logx"
	"pricetracker-service/internal/infrastructure/provider"
	redisstore "pricetracker-service/internal/infrastructure/redis"
	"pricetracker-service/internal/infrastructure/worker"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App is everything cmd/tracker needs to run.
type App struct {
	Config    config.Config
	Log       *zap.Logger
	Scheduler *application.Scheduler
	Janitor   *worker.Janitor
	Handler   http.Handler
}

func ProvideLogger() *zap.Logger { return logx.L() }

func ProvideConfig() config.Config { return config.Load() }

func cacheIdle(cfg config.Config) time.Duration {
	if cfg.CacheIdle > 0 {
		return cfg.CacheIdle
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = infracfg.DefaultCacheTTL
	}
	return infracfg.DefaultIdleFactor * ttl
}

// ProvideRedisClient connects only for CACHE_BACKEND=redis; otherwise the
// client is nil. The first ping is retried with exponential backoff.
func ProvideRedisClient(ctx context.Context, cfg config.Config, log *zap.Logger) (*redis.Client, func(), error) {
	if cfg.CacheBackend != "redis" {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = infracfg.DefaultRedisPingMax
	ping := func() error { return client.Ping(ctx).Err() }
	notify := func(err error, next time.Duration) {
		log.Warn("redis_ping_retry", zap.Error(err), zap.Duration("next", next))
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(b, ctx), notify); err != nil {
		_ = client.Close()
		return nil, func() {}, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	log.Info("redis_connected", zap.String("addr", cfg.RedisAddr))

	cleanup := func() {
		log.Info("closing redis")
		_ = client.Close()
	}
	return client, cleanup, nil
}

func ProvideCacheStore(cfg config.Config, client *redis.Client) (cache.Store, error) {
	switch cfg.CacheBackend {
	case "", "memory":
		return cache.NewMemoryStore(), nil
	case "redis":
		if client == nil {
			return nil, ErrMissingRedis
		}
		return redisstore.New(client, cacheIdle(cfg)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCacheBackend, cfg.CacheBackend)
	}
}

func ProvidePriceFetcher(cfg config.Config) (application.PriceFetcher, error) {
	switch cfg.Provider {
	case "coincap":
		return provider.NewCoinCap(cfg.CoinCapBaseURL, cfg.CoinCapAPIKey, cfg.FetchTimeout), nil
	case "fake":
		return provider.NewFake(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

func ProvideCache(cfg config.Config, f application.PriceFetcher, store cache.Store, log *zap.Logger) *cache.Cache {
	return cache.New(f, store,
		cache.WithLogger(log),
		cache.WithIdle(cacheIdle(cfg)),
		cache.WithFetchTimeout(cfg.FetchTimeout),
	)
}

func ProvideHistory(cfg config.Config) *history.Store { return history.New(cfg.HistoryCapacity) }

func ProvideScheduler(cfg config.Config, c *cache.Cache, h *history.Store, log *zap.Logger) *application.Scheduler {
	return application.NewScheduler(c, h,
		application.WithLogger(log),
		application.WithCacheTTL(cfg.CacheTTL),
	)
}

// ProvideJanitor sweeps idle entries every half idle window.
func ProvideJanitor(cfg config.Config, c *cache.Cache, log *zap.Logger) *worker.Janitor {
	return &worker.Janitor{Cache: c, Every: cacheIdle(cfg) / 2, Log: log}
}

func ProvideServer(cfg config.Config, s *application.Scheduler, c *cache.Cache) *httpserver.Server {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = infracfg.DefaultCacheTTL
	}
	srv := httpserver.NewServer(s, c, ttl)
	srv.SetCacheStats(c.Stats)
	return srv
}

func ProvideApp(cfg config.Config, log *zap.Logger, s *application.Scheduler, j *worker.Janitor, srv *httpserver.Server) *App {
	return &App{
		Config:    cfg,
		Log:       log,
		Scheduler: s,
		Janitor:   j,
		Handler:   httpserver.NewRouter(srv),
	}
}
