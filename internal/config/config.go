package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port            string
	ShutdownTimeout time.Duration
	// Provider
	Provider       string
	CoinCapBaseURL string
	CoinCapAPIKey  string
	FetchTimeout   time.Duration
	// Tracking
	TrackAssets          string
	TrackIntervalSeconds int
	TrackAutostart       bool
	HistoryCapacity      int
	// Cache
	CacheBackend string
	CacheTTL     time.Duration
	CacheIdle    time.Duration
	// Redis (cache backend)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func boolDef(s string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return b
}

func durMS(key string, defMS int) time.Duration {
	return time.Duration(atoiDef(getEnv(key, strconv.Itoa(defMS)), defMS)) * time.Millisecond
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:                  getEnv("ENV", "local"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		Port:                 getEnv("PORT", "8080"),
		ShutdownTimeout:      durMS("SHUTDOWN_TIMEOUT_MS", 10000),
		Provider:             getEnv("PROVIDER", "coincap"),
		CoinCapBaseURL:       getEnv("COINCAP_BASE_URL", "https://api.coincap.io"),
		CoinCapAPIKey:        getEnv("COINCAP_API_KEY", ""),
		FetchTimeout:         durMS("FETCH_TIMEOUT_MS", 10000),
		TrackAssets:          getEnv("TRACK_ASSETS", "bitcoin,ethereum,dogecoin"),
		TrackIntervalSeconds: atoiDef(getEnv("TRACK_INTERVAL_SECONDS", "60"), 60),
		TrackAutostart:       boolDef(getEnv("TRACK_AUTOSTART", "true"), true),
		HistoryCapacity:      atoiDef(getEnv("HISTORY_CAPACITY", "100"), 100),
		CacheBackend:         getEnv("CACHE_BACKEND", "memory"),
		CacheTTL:             durMS("CACHE_TTL_MS", 60000),
		CacheIdle:            durMS("CACHE_IDLE_MS", 0),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              atoiDef(getEnv("REDIS_DB", "0"), 0),
	}
}
