package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PriceSample struct {
	Asset      AssetID
	Price      decimal.Decimal
	ObservedAt time.Time
}
