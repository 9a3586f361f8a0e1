package cache

import (
	"context"
	"sync"
	"time"

	"pricetracker-service/internal/domain"
)

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[domain.BatchKey]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[domain.BatchKey]Entry{}}
}

func (m *MemoryStore) Get(_ context.Context, key domain.BatchKey) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	e.Prices = copyPrices(e.Prices)
	return e, true, nil
}

func (m *MemoryStore) Set(_ context.Context, e Entry) error {
	e.Prices = copyPrices(e.Prices)
	m.mu.Lock()
	m.entries[e.Key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Touch(_ context.Context, key domain.BatchKey, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		e.LastUsed = at
		m.entries[key] = e
	}
	return nil
}

func (m *MemoryStore) Purge(_ context.Context, idleBefore time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if e.LastUsed.Before(idleBefore) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
