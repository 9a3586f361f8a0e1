package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultFetchTimeout    = 10 * time.Second
	DefaultCacheTTL        = 60 * time.Second
	// DefaultIdleFactor multiplies the cache ttl into the idle eviction window.
	DefaultIdleFactor     = 10
	DefaultRedisKeyPrefix = "pricetracker:cache:"
	DefaultRedisPingMax   = 15 * time.Second
)
