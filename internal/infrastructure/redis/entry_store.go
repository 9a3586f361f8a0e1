package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pricetracker-service/internal/domain"
	"pricetracker-service/internal/infrastructure/cache"
	infracfg "pricetracker-service/internal/infrastructure/config"

	"github.com/redis/go-redis/v9"
)

var _ cache.Store = (*Store)(nil)

// Store keeps cache entries as JSON values whose key expiry is the idle
// window. A hit pushes the expiry out again, so Redis does the idle eviction.
type Store struct {
	Client *redis.Client
	Prefix string
	Idle   time.Duration
}

func New(client *redis.Client, idle time.Duration) *Store {
	return &Store{Client: client, Prefix: infracfg.DefaultRedisKeyPrefix, Idle: idle}
}

func (s *Store) key(k domain.BatchKey) string { return s.Prefix + string(k) }

func (s *Store) Get(ctx context.Context, k domain.BatchKey) (cache.Entry, bool, error) {
	raw, err := s.Client.Get(ctx, s.key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("redis get: %w", err)
	}
	var e cache.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return cache.Entry{}, false, fmt.Errorf("redis decode %s: %w", k, err)
	}
	return e, true, nil
}

func (s *Store) Set(ctx context.Context, e cache.Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", e.Key, err)
	}
	if err := s.Client.Set(ctx, s.key(e.Key), raw, s.Idle).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Touch only refreshes the key expiry. LastUsed in the stored value stays as
// written by Set; Redis expiry, not LastUsed, does the idle eviction here.
func (s *Store) Touch(ctx context.Context, k domain.BatchKey, _ time.Time) error {
	if err := s.Client.PExpire(ctx, s.key(k), s.Idle).Err(); err != nil {
		return fmt.Errorf("redis pexpire: %w", err)
	}
	return nil
}

// Purge is a no-op: idle keys expire on their own.
func (s *Store) Purge(context.Context, time.Time) (int, error) { return 0, nil }

func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}
