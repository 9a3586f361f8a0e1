package domain

import "time"

// Snapshot is the read view published after every poll attempt. A published
// Snapshot is never modified; readers must treat its maps and slices as
// read-only.
type Snapshot struct {
	SessionID string
	Cycle     uint64
	UpdatedAt time.Time
	Assets    []AssetID
	Prices    map[AssetID]PriceSample
	Histories map[AssetID][]PriceSample
	Stale     bool
	LastError error
}

// Price returns the latest sample for asset, if one was ever observed.
func (s Snapshot) Price(asset AssetID) (PriceSample, bool) {
	p, ok := s.Prices[asset]
	return p, ok
}

// History returns the asset series, or nil for an untracked asset.
func (s Snapshot) History(asset AssetID) []PriceSample {
	return s.Histories[asset]
}
