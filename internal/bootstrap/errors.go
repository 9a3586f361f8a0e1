package bootstrap

import "errors"

var (
	ErrMissingRedis        = errors.New("redis client is required for CACHE_BACKEND=redis")
	ErrUnknownCacheBackend = errors.New("unknown CACHE_BACKEND")
	ErrUnknownProvider     = errors.New("unknown PROVIDER")
)
