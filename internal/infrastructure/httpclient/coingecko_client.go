package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"chain_reader/internal/domain/entity"
	"chain_reader/internal/pkg/metrics"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultCoinGeckoBaseURL is the public API root.
const DefaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// ErrNotFound is returned when the service has no entry for the contract.
var ErrNotFound = errors.New("metadata not found")

type coinGeckoContractResponse struct {
	ID              string `json:"id"`
	Symbol          string `json:"symbol"`
	Name            string `json:"name"`
	AssetPlatformID string `json:"asset_platform_id"`
	Image           struct {
		Thumb string `json:"thumb"`
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"image"`
	DetailPlatforms map[string]struct {
		DecimalPlace    *int   `json:"decimal_place"`
		ContractAddress string `json:"contract_address"`
	} `json:"detail_platforms"`
	MarketData struct {
		CurrentPrice map[string]float64 `json:"current_price"`
	} `json:"market_data"`
}

// CoinGeckoClient fetches token metadata by contract address.
type CoinGeckoClient struct {
	client  *fasthttp.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCoinGeckoClient creates a client. An empty baseURL uses the public API; apiKey may be empty.
func NewCoinGeckoClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoinGeckoClient{
		client:  &fasthttp.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		logger:  logger.Named("CoinGeckoClient"),
		metrics: m,
	}
}

// FetchMetadata loads metadata for contractAddress on the given platform.
// A 429 response returns an error wrapping entity.ErrRateLimited.
func (c *CoinGeckoClient) FetchMetadata(ctx context.Context, platformID, contractAddress string) (*entity.TokenMetadata, error) {
	address := strings.ToLower(contractAddress)
	requestURL := fmt.Sprintf("%s/coins/%s/contract/%s?localization=false&tickers=false&community_data=false&developer_data=false&sparkline=false",
		c.baseURL, url.PathEscape(platformID), url.PathEscape(address))

	c.logger.Debug("Requesting token metadata", zap.String("url", requestURL))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-pro-api-key", c.apiKey)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var err error
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < c.timeout {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		c.metrics.ObserveMetadataFetch("transport_error")
		c.logger.Warn("Failed to execute metadata request", zap.String("url", requestURL), zap.Error(err))
		return nil, fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
	}

	switch status := resp.StatusCode(); status {
	case fasthttp.StatusOK:
	case fasthttp.StatusTooManyRequests:
		c.metrics.ObserveMetadataFetch("rate_limited")
		c.logger.Info("Metadata request throttled", zap.String("platform", platformID), zap.String("address", address))
		return nil, fmt.Errorf("metadata request for %s on %s: %w", address, platformID, entity.ErrRateLimited)
	case fasthttp.StatusNotFound:
		c.metrics.ObserveMetadataFetch("not_found")
		return nil, fmt.Errorf("%s on %s: %w", address, platformID, ErrNotFound)
	default:
		c.metrics.ObserveMetadataFetch("http_error")
		c.logger.Warn("Metadata request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", status),
			zap.ByteString("responseBody", resp.Body()))
		return nil, fmt.Errorf("metadata request to %s failed with status %d", requestURL, status)
	}

	var body coinGeckoContractResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		c.metrics.ObserveMetadataFetch("decode_error")
		return nil, fmt.Errorf("failed to unmarshal metadata response from %s: %w", requestURL, err)
	}
	if body.Name == "" && body.Symbol == "" {
		c.metrics.ObserveMetadataFetch("decode_error")
		return nil, fmt.Errorf("metadata response for %s on %s has no name or symbol", address, platformID)
	}

	md := &entity.TokenMetadata{
		ContractAddress: address,
		Name:            body.Name,
		Symbol:          strings.ToUpper(body.Symbol),
		IconURL:         body.Image.Small,
		ChainLabel:      body.AssetPlatformID,
	}
	if md.IconURL == "" {
		md.IconURL = body.Image.Thumb
	}
	if detail, ok := body.DetailPlatforms[platformID]; ok && detail.DecimalPlace != nil && *detail.DecimalPlace >= 0 && *detail.DecimalPlace <= 255 {
		md.Decimals = uint8(*detail.DecimalPlace)
	}
	if price, ok := body.MarketData.CurrentPrice["usd"]; ok {
		md.PriceUSD = &price
	}

	c.metrics.ObserveMetadataFetch("ok")
	return md, nil
}
