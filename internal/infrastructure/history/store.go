package history

import (
	"sync"

	"pricetracker-service/internal/domain"
)

// ring is a fixed-capacity FIFO of samples, oldest at start.
type ring struct {
	buf   []domain.PriceSample
	start int
	n     int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]domain.PriceSample, capacity)}
}

func (r *ring) push(s domain.PriceSample) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = s
		r.n++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) slice() []domain.PriceSample {
	out := make([]domain.PriceSample, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Store keeps one ring per asset. Reads return copies.
type Store struct {
	mu       sync.RWMutex
	capacity int
	series   map[domain.AssetID]*ring
}

// New returns a store bounded at capacity samples per asset;
// capacity <= 0 means domain.HistoryCapacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = domain.HistoryCapacity
	}
	return &Store{capacity: capacity, series: map[domain.AssetID]*ring{}}
}

func (s *Store) Capacity() int { return s.capacity }

func (s *Store) Append(asset domain.AssetID, sample domain.PriceSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.series[asset]
	if !ok {
		r = newRing(s.capacity)
		s.series[asset] = r
	}
	r.push(sample)
}

// Get returns the series oldest first, or an empty slice for an untracked
// asset.
func (s *Store) Get(asset domain.AssetID) []domain.PriceSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.series[asset]
	if !ok {
		return []domain.PriceSample{}
	}
	return r.slice()
}

func (s *Store) Len(asset domain.AssetID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.series[asset]; ok {
		return r.n
	}
	return 0
}

func (s *Store) All() map[domain.AssetID][]domain.PriceSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.AssetID][]domain.PriceSample, len(s.series))
	for a, r := range s.series {
		out[a] = r.slice()
	}
	return out
}

func (s *Store) Reset(assets []domain.AssetID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keep := make(map[domain.AssetID]*ring, len(assets))
	for _, a := range assets {
		if r, ok := s.series[a]; ok {
			keep[a] = r
			continue
		}
		keep[a] = newRing(s.capacity)
	}
	s.series = keep
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series = map[domain.AssetID]*ring{}
}
