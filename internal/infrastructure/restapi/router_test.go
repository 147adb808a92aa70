package restapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chain_reader/internal/domain/entity"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const usdt = "0xdAC17F958D2ee523a2206206994597C13D831ec7"

type fakeReader struct {
	got    []entity.ReadRequest
	report *entity.ReadReport
	err    error
}

func (f *fakeReader) Read(_ context.Context, req entity.ReadRequest) (*entity.ReadReport, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func (f *fakeReader) ReadMany(context.Context, []entity.ReadRequest) ([]*entity.ReadReport, []entity.ReadError) {
	return nil, nil
}

type staticNetworks []entity.NetworkDefinition

func (s staticNetworks) GetAllNetworkDefinitions() []entity.NetworkDefinition { return s }

func (s staticNetworks) GetNetworkDefinitionByName(name string) (entity.NetworkDefinition, bool) {
	for _, d := range s {
		if strings.EqualFold(d.Identifier, name) {
			return d, true
		}
	}
	return entity.NetworkDefinition{}, false
}

type fakeEnricher struct {
	cached   map[string]*entity.TokenMetadata
	lookup   *entity.TokenMetadata
	enqueued []string
}

func (f *fakeEnricher) Enqueue(chainKey, addr string) <-chan *entity.TokenMetadata {
	f.enqueued = append(f.enqueued, entity.MetadataKey(chainKey, addr))
	return make(chan *entity.TokenMetadata, 1)
}

func (f *fakeEnricher) Lookup(ctx context.Context, chainKey, addr string) (*entity.TokenMetadata, error) {
	return f.lookup, nil
}

func (f *fakeEnricher) Cached(chainKey, addr string) (*entity.TokenMetadata, bool) {
	md, ok := f.cached[entity.MetadataKey(chainKey, addr)]
	return md, ok
}

func newTestRouter(reader *fakeReader, enricher *fakeEnricher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	networks := staticNetworks{{Identifier: "ethereum", Name: "Ethereum", ChainID: 1, NativeSymbol: "ETH", Decimals: 18, PrimaryRPCURL: "https://secret.rpc"}}
	var h *ReaderHandler
	if enricher == nil {
		h = NewReaderHandler(reader, networks, nil, zap.NewNop())
	} else {
		h = NewReaderHandler(reader, networks, enricher, zap.NewNop())
	}
	return SetupRouter(h, zap.NewNop(), prometheus.NewRegistry())
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListNetworksHidesRPC(t *testing.T) {
	w := do(newTestRouter(&fakeReader{}, nil), http.MethodGet, "/api/v1/networks", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"identifier":"ethereum"`)
	assert.NotContains(t, w.Body.String(), "secret.rpc")
}

func TestReadBalances(t *testing.T) {
	reader := &fakeReader{report: &entity.ReadReport{Network: "ethereum", ChainID: 1, CallCount: 4, RoundTrips: 1}}
	w := do(newTestRouter(reader, nil), http.MethodPost, "/api/v1/networks/ethereum/balances",
		`{"tokens":["`+usdt+`"],"holders":["0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"],"includeNative":true}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"roundTrips":1`)
	require.Len(t, reader.got, 1)
	assert.Equal(t, "ethereum", reader.got[0].Network)
	assert.True(t, reader.got[0].IncludeNative)
	assert.Equal(t, []string{usdt}, reader.got[0].Tokens)
}

func TestReadCallsKeepsLargeNumbers(t *testing.T) {
	reader := &fakeReader{report: &entity.ReadReport{Network: "ethereum"}}
	w := do(newTestRouter(reader, nil), http.MethodPost, "/api/v1/networks/ethereum/calls",
		`{"calls":[{"id":"a","target":"`+usdt+`","signature":"allowance(address,uint256)(uint256)","args":["0x0000000000000000000000000000000000000001",123456789012345678901234567890]}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, reader.got, 1)
	require.Len(t, reader.got[0].Calls, 1)
	assert.Equal(t, "123456789012345678901234567890", fmt.Sprint(reader.got[0].Calls[0].Args[1]))
}

func TestReadErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"encoding", &entity.EncodingError{Method: "balanceOf", ArgIndex: 0, Reason: "invalid address"}, http.StatusBadRequest},
		{"unknown network", fmt.Errorf("%w: mars", entity.ErrUnknownNetwork), http.StatusNotFound},
		{"network", &entity.NetworkError{Network: "ethereum", Op: "eth_call", Err: errors.New("connection refused")}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(newTestRouter(&fakeReader{err: tc.err}, nil), http.MethodPost, "/api/v1/networks/ethereum/calls",
				`{"calls":[{"id":"a","target":"`+usdt+`","signature":"totalSupply()(uint256)"}]}`)
			assert.Equal(t, tc.want, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestReadRejectsBadBodies(t *testing.T) {
	r := newTestRouter(&fakeReader{}, nil)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/v1/networks/ethereum/calls", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/v1/networks/ethereum/calls", `{"calls":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/v1/networks/ethereum/balances", `{"tokens":["`+usdt+`"]}`).Code)
}

func TestGetMetadata(t *testing.T) {
	key := strings.ToLower(usdt)
	enricher := &fakeEnricher{
		cached: map[string]*entity.TokenMetadata{entity.MetadataKey("ethereum", key): {Name: "Tether USD", Symbol: "USDT"}},
		lookup: nil,
	}
	r := newTestRouter(&fakeReader{}, enricher)

	w := do(r, http.MethodGet, "/api/v1/metadata/ethereum/"+usdt, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"available"`)
	assert.Contains(t, w.Body.String(), `"symbol":"USDT"`)

	other := "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	w = do(r, http.MethodGet, "/api/v1/metadata/ethereum/"+other, "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
	assert.Equal(t, []string{entity.MetadataKey("ethereum", other)}, enricher.enqueued)

	w = do(r, http.MethodGet, "/api/v1/metadata/ethereum/"+other+"?wait=true", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"unavailable"`)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/metadata/mars/"+usdt, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/metadata/ethereum/0x12", "").Code)
}

func TestGetMetadataDisabled(t *testing.T) {
	w := do(newTestRouter(&fakeReader{}, nil), http.MethodGet, "/api/v1/metadata/ethereum/"+usdt, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	w := do(newTestRouter(&fakeReader{}, nil), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
