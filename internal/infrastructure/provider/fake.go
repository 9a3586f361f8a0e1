package provider

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"pricetracker-service/internal/application"
	"pricetracker-service/internal/domain"

	"github.com/shopspring/decimal"
)

var _ application.PriceFetcher = (*Fake)(nil)

// Fake quotes every asset with a stable price derived from its id, drifting
// by minute so a running tracker shows movement.
type Fake struct {
	Now func() time.Time
}

func NewFake() *Fake { return &Fake{Now: time.Now} }

func (f *Fake) Fetch(_ context.Context, assets []domain.AssetID) (map[domain.AssetID]decimal.Decimal, error) {
	ids := domain.UniqueAssets(assets)
	if len(ids) == 0 {
		return nil, domain.InvalidRequest("fake", errors.New("empty asset set"))
	}
	minute := int64(0)
	if f.Now != nil {
		minute = f.Now().Unix() / 60
	}
	out := make(map[domain.AssetID]decimal.Decimal, len(ids))
	for _, id := range ids {
		h := fnv.New32a()
		_, _ = h.Write([]byte(id))
		base := decimal.NewFromInt(int64(h.Sum32()%100000) + 1)
		drift := decimal.NewFromInt((minute%21)-10).Shift(-2)
		out[id] = base.Add(base.Mul(drift).Shift(-2)).Round(4)
	}
	return out, nil
}
