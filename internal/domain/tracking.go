package domain

import (
	"fmt"
	"time"
)

const (
	MinIntervalSeconds     = 60
	DefaultIntervalSeconds = 60
	// MaxIntervalSeconds keeps Interval() far from Duration overflow.
	MaxIntervalSeconds = 24 * 60 * 60
	// HistoryCapacity bounds every per-asset series.
	HistoryCapacity = 100
)

// TrackingConfig is fixed for the lifetime of a tracking session.
type TrackingConfig struct {
	Assets          []AssetID
	IntervalSeconds int
}

// NewTrackingConfig parses the free-text asset list. An interval of 0 means
// DefaultIntervalSeconds.
func NewTrackingConfig(rawAssets string, intervalSeconds int) (TrackingConfig, error) {
	assets, err := ParseAssets(rawAssets)
	if err != nil {
		return TrackingConfig{}, err
	}
	if intervalSeconds == 0 {
		intervalSeconds = DefaultIntervalSeconds
	}
	cfg := TrackingConfig{Assets: assets, IntervalSeconds: intervalSeconds}
	if err := cfg.Validate(); err != nil {
		return TrackingConfig{}, err
	}
	return cfg, nil
}

func (c TrackingConfig) Validate() error {
	if len(c.Assets) == 0 {
		return InvalidRequest("validate config", fmt.Errorf("asset set is empty"))
	}
	seen := make(map[AssetID]bool, len(c.Assets))
	for _, a := range c.Assets {
		if !assetRe.MatchString(string(a)) {
			return InvalidRequest("validate config", fmt.Errorf("malformed asset id %q", a))
		}
		if seen[a] {
			return InvalidRequest("validate config", fmt.Errorf("duplicate asset %q", a))
		}
		seen[a] = true
	}
	if c.IntervalSeconds < MinIntervalSeconds {
		return InvalidRequest("validate config",
			fmt.Errorf("interval %ds below minimum %ds", c.IntervalSeconds, MinIntervalSeconds))
	}
	if c.IntervalSeconds > MaxIntervalSeconds {
		return InvalidRequest("validate config",
			fmt.Errorf("interval %ds above maximum %ds", c.IntervalSeconds, MaxIntervalSeconds))
	}
	return nil
}

func (c TrackingConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Clone returns a copy that does not share the asset slice.
func (c TrackingConfig) Clone() TrackingConfig {
	c.Assets = append([]AssetID(nil), c.Assets...)
	return c
}
