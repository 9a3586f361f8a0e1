package provider_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pricetracker-service/internal/domain"
	"pricetracker-service/internal/infrastructure/httpx"
	"pricetracker-service/internal/infrastructure/provider"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func respond(code int, body string) roundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: code,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
			Request:    r,
		}, nil
	}
}

func coinCap(rt http.RoundTripper) *provider.CoinCap {
	return &provider.CoinCap{
		BaseURL: "https://api.coincap.io",
		Client: &httpx.Client{
			HTTP:  &http.Client{Timeout: 2 * time.Second, Transport: rt},
			Token: "secret",
		},
	}
}

const assetsOK = `{
  "data": [
    {"id": "bitcoin", "symbol": "BTC", "priceUsd": "43250.1234567890"},
    {"id": "ethereum", "symbol": "ETH", "priceUsd": "2280.50"},
    {"id": "tether", "symbol": "USDT", "priceUsd": "1.0001"}
  ],
  "timestamp": 1735689600000
}`

func TestFetch_ParsesRequestedPrices(t *testing.T) {
	var seen *http.Request
	p := coinCap(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = r
		return respond(200, assetsOK)(r)
	}))

	got, err := p.Fetch(context.Background(), []domain.AssetID{"ethereum", "bitcoin", "bitcoin"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.True(t, got["bitcoin"].Equal(decimal.RequireFromString("43250.123456789")))
	require.True(t, got["ethereum"].Equal(decimal.RequireFromString("2280.5")))

	require.Equal(t, "/v2/assets", seen.URL.Path)
	require.Equal(t, "bitcoin,ethereum", seen.URL.Query().Get("ids"))
	require.Equal(t, "Bearer secret", seen.Header.Get("Authorization"))
}

func TestFetch_MissingAssetIsAbsent(t *testing.T) {
	body := `{"data":[{"id":"bitcoin","priceUsd":"1"},{"id":"dogecoin","priceUsd":null},{"id":"ethereum","priceUsd":""}]}`
	p := coinCap(respond(200, body))
	got, err := p.Fetch(context.Background(), []domain.AssetID{"bitcoin", "dogecoin", "ethereum", "solana"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	_, ok := got["dogecoin"]
	require.False(t, ok)
}

func TestFetch_EmptyDataIsNotAnError(t *testing.T) {
	got, err := coinCap(respond(200, `{"data":[]}`)).Fetch(context.Background(), []domain.AssetID{"bitcoin"})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFetch_OneCallPerInvocation(t *testing.T) {
	var calls atomic.Int32
	p := coinCap(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return respond(503, "unavailable")(r)
	}))
	_, err := p.Fetch(context.Background(), []domain.AssetID{"bitcoin"})
	require.ErrorIs(t, err, domain.ErrUpstream)
	require.Equal(t, int32(1), calls.Load())
}

func TestFetch_ErrorKinds(t *testing.T) {
	cases := []struct {
		name     string
		rt       roundTripFunc
		sentinel error
	}{
		{"status 500", respond(500, "oops"), domain.ErrUpstream},
		{"status 404", respond(404, `{"error":"not found"}`), domain.ErrUpstream},
		{"malformed json", respond(200, `{"data": [`), domain.ErrUpstream},
		{"bad price", respond(200, `{"data":[{"id":"bitcoin","priceUsd":"abc"}]}`), domain.ErrUpstream},
		{"empty object", respond(200, `{}`), domain.ErrUpstream},
		{"null data", respond(200, `{"data":null}`), domain.ErrUpstream},
		{"api error body", respond(200, `{"error":"rate limited"}`), domain.ErrUpstream},
		{"json array", respond(200, `[]`), domain.ErrUpstream},
		{"connection refused", func(*http.Request) (*http.Response, error) {
			return nil, errors.New("dial tcp: connection refused")
		}, domain.ErrNetwork},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := coinCap(c.rt).Fetch(context.Background(), []domain.AssetID{"bitcoin"})
			require.ErrorIs(t, err, c.sentinel)
			require.Contains(t, err.Error(), "coincap")
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	p := coinCap(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		<-r.Context().Done()
		return nil, r.Context().Err()
	}))
	p.Timeout = 20 * time.Millisecond

	_, err := p.Fetch(context.Background(), []domain.AssetID{"bitcoin"})
	require.ErrorIs(t, err, domain.ErrNetwork)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	require.True(t, fe.Retriable())
}

func TestFetch_EmptyIsInvalid(t *testing.T) {
	var calls atomic.Int32
	p := coinCap(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return respond(200, assetsOK)(r)
	}))
	_, err := p.Fetch(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	require.Zero(t, calls.Load())
}

func TestNewCoinCap(t *testing.T) {
	p := provider.NewCoinCap("https://api.coincap.io", "k", 10*time.Second)
	require.Equal(t, 10*time.Second, p.Client.HTTP.Timeout)
	require.Equal(t, "k", p.Client.Token)
}

func TestFake_Deterministic(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &provider.Fake{Now: func() time.Time { return at }}
	a, err := f.Fetch(context.Background(), []domain.AssetID{"bitcoin", "ethereum"})
	require.NoError(t, err)
	b, err := f.Fetch(context.Background(), []domain.AssetID{"ethereum", "bitcoin"})
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.True(t, a["bitcoin"].IsPositive())

	_, err = f.Fetch(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}
