package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pricetracker-service/internal/application"
	"pricetracker-service/internal/domain"
	"pricetracker-service/internal/infrastructure/httpx"

	"github.com/shopspring/decimal"
)

const (
	coinCapAssetsPath = "/v2/assets"
	opCoinCap         = "coincap"
)

// CoinCap fetches USD prices from the CoinCap assets endpoint. Each Fetch is
// exactly one GET.
type CoinCap struct {
	BaseURL string
	Client  *httpx.Client
	// Timeout, when set, bounds each call on top of the caller's context.
	Timeout time.Duration
}

var _ application.PriceFetcher = (*CoinCap)(nil)

func NewCoinCap(baseURL, apiKey string, timeout time.Duration) *CoinCap {
	return &CoinCap{
		BaseURL: baseURL,
		Client: &httpx.Client{
			HTTP:  &http.Client{Timeout: timeout},
			Token: apiKey,
		},
		Timeout: timeout,
	}
}

var errMissingData = errors.New("missing data array")

type coinCapAsset struct {
	ID       string  `json:"id"`
	PriceUSD *string `json:"priceUsd"`
}

// Data is a pointer so a body without the array is told apart from an
// empty result.
type coinCapAssetsResp struct {
	Data      *[]coinCapAsset `json:"data"`
	Error     string          `json:"error"`
	Timestamp int64           `json:"timestamp"`
}

func (p *CoinCap) Fetch(ctx context.Context, assets []domain.AssetID) (map[domain.AssetID]decimal.Decimal, error) {
	ids := domain.UniqueAssets(assets)
	if len(ids) == 0 {
		return nil, domain.InvalidRequest(opCoinCap, errors.New("empty asset set"))
	}
	if p.BaseURL == "" {
		return nil, domain.InvalidRequest(opCoinCap, errors.New("missing base url"))
	}

	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return nil, domain.InvalidRequest(opCoinCap+": invalid base url", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + coinCapAssetsPath
	q := u.Query()
	q.Set("ids", string(domain.NewBatchKey(ids)))
	u.RawQuery = q.Encode()

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, domain.InvalidRequest(opCoinCap+": create request", err)
	}

	client := p.Client
	if client == nil {
		client = &httpx.Client{}
	}
	var body coinCapAssetsResp
	if err := client.DoJSON(ctx, req, &body); err != nil {
		return nil, classify(err)
	}
	if body.Error != "" {
		return nil, domain.UpstreamError(opCoinCap+": api error", errors.New(body.Error))
	}
	if body.Data == nil {
		return nil, domain.UpstreamError(opCoinCap+": decode response", errMissingData)
	}

	wanted := make(map[domain.AssetID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := make(map[domain.AssetID]decimal.Decimal, len(ids))
	for _, a := range *body.Data {
		id := domain.AssetID(strings.ToLower(a.ID))
		if !wanted[id] || a.PriceUSD == nil || *a.PriceUSD == "" {
			continue
		}
		price, err := decimal.NewFromString(*a.PriceUSD)
		if err != nil {
			return nil, domain.UpstreamError(opCoinCap+": parse price", fmt.Errorf("%s: %w", id, err))
		}
		out[id] = price
	}
	return out, nil
}

func classify(err error) error {
	var se *httpx.StatusError
	if errors.As(err, &se) {
		return domain.UpstreamError(opCoinCap+": status", err)
	}
	var de *httpx.DecodeError
	if errors.As(err, &de) {
		return domain.UpstreamError(opCoinCap+": decode response", de.Err)
	}
	return domain.NetworkError(opCoinCap+": do request", err)
}
