package application

import (
	"context"
	"time"

	"pricetracker-service/internal/domain"

	"github.com/shopspring/decimal"
)

// PriceFetcher performs one upstream round trip for a batch of assets.
// Assets missing from the upstream response are absent from the result.
type PriceFetcher interface {
	Fetch(ctx context.Context, assets []domain.AssetID) (map[domain.AssetID]decimal.Decimal, error)
}

// PriceCache memoizes fetches per batch for ttl and coalesces concurrent
// identical requests.
type PriceCache interface {
	GetOrFetch(ctx context.Context, assets []domain.AssetID, ttl time.Duration) (map[domain.AssetID]decimal.Decimal, error)
}

// HistoryStore keeps a bounded series per tracked asset.
type HistoryStore interface {
	Append(asset domain.AssetID, sample domain.PriceSample)
	Get(asset domain.AssetID) []domain.PriceSample
	All() map[domain.AssetID][]domain.PriceSample
	// Reset keeps series of assets still listed, creates empty series for
	// new ones and drops the rest.
	Reset(assets []domain.AssetID)
	Clear()
}
