package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// AssetID is a normalized (trimmed, lower-cased) upstream asset identifier.
type AssetID string

var assetRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// NormalizeAsset trims and lower-cases s and checks it against the id format.
func NormalizeAsset(s string) (AssetID, error) {
	id := strings.ToLower(strings.TrimSpace(s))
	if !assetRe.MatchString(id) {
		return "", InvalidRequest("normalize asset", fmt.Errorf("malformed asset id %q", s))
	}
	return AssetID(id), nil
}

// ParseAssets splits a comma-separated free-text list. Empty items are skipped
// and duplicates collapsed; the first occurrence keeps its position.
func ParseAssets(raw string) ([]AssetID, error) {
	var out []AssetID
	seen := map[AssetID]bool{}
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := NormalizeAsset(part)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, InvalidRequest("parse assets", fmt.Errorf("no assets in %q", raw))
	}
	return out, nil
}

// UniqueAssets returns the distinct ids of assets in sorted order.
func UniqueAssets(assets []AssetID) []AssetID {
	seen := make(map[AssetID]struct{}, len(assets))
	out := make([]AssetID, 0, len(assets))
	for _, a := range assets {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BatchKey addresses a set of assets requested together. Order and
// duplicates do not change the key.
type BatchKey string

func NewBatchKey(assets []AssetID) BatchKey {
	ids := UniqueAssets(assets)
	parts := make([]string, len(ids))
	for i, a := range ids {
		parts[i] = string(a)
	}
	return BatchKey(strings.Join(parts, ","))
}
