package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chain_reader/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usdcBody = `{
  "id": "usd-coin",
  "symbol": "usdc",
  "name": "USDC",
  "asset_platform_id": "ethereum",
  "image": {"thumb": "https://img/thumb.png", "small": "https://img/small.png"},
  "detail_platforms": {"ethereum": {"decimal_place": 6, "contract_address": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"}},
  "market_data": {"current_price": {"usd": 0.9998, "eur": 0.92}}
}`

func TestFetchMetadata(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-cg-pro-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(usdcBody))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "secret", time.Second, nil, nil)
	md, err := c.FetchMetadata(context.Background(), "ethereum", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	require.NoError(t, err)

	assert.Equal(t, "/coins/ethereum/contract/0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "USDC", md.Name)
	assert.Equal(t, "USDC", md.Symbol)
	assert.Equal(t, uint8(6), md.Decimals)
	assert.Equal(t, "https://img/small.png", md.IconURL)
	assert.Equal(t, "ethereum", md.ChainLabel)
	require.NotNil(t, md.PriceUSD)
	assert.InDelta(t, 0.9998, *md.PriceUSD, 1e-9)
}

func TestFetchMetadataStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, func(t *testing.T, err error) {
			assert.True(t, errors.Is(err, entity.ErrRateLimited))
		}},
		{"not found", http.StatusNotFound, `{"error":"coin not found"}`, func(t *testing.T, err error) {
			assert.True(t, errors.Is(err, ErrNotFound))
			assert.False(t, errors.Is(err, entity.ErrRateLimited))
		}},
		{"server error", http.StatusBadGateway, `oops`, func(t *testing.T, err error) {
			assert.Error(t, err)
			assert.False(t, errors.Is(err, entity.ErrRateLimited))
		}},
		{"bad json", http.StatusOK, `{"name":`, func(t *testing.T, err error) {
			assert.Error(t, err)
		}},
		{"empty entry", http.StatusOK, `{}`, func(t *testing.T, err error) {
			assert.Error(t, err)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewCoinGeckoClient(srv.URL, "", time.Second, nil, nil)
			md, err := c.FetchMetadata(context.Background(), "ethereum", "0xdead")
			assert.Nil(t, md)
			tt.check(t, err)
		})
	}
}

func TestFetchMetadataCancelledContext(t *testing.T) {
	c := NewCoinGeckoClient("http://127.0.0.1:1", "", time.Second, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchMetadata(ctx, "ethereum", "0xdead")
	assert.ErrorIs(t, err, context.Canceled)
}
