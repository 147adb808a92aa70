package restapi

import (
	"errors"
	"net/http"
	"strings"

	"chain_reader/internal/app/port"
	"chain_reader/internal/app/service"
	"chain_reader/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BalancesRequest is the body of the balances endpoint.
type BalancesRequest struct {
	Tokens        []string `json:"tokens"`
	Holders       []string `json:"holders"`
	IncludeNative bool     `json:"includeNative"`
	WaitMetadata  bool     `json:"waitMetadata"`
}

// CallsRequest is the body of the custom calls endpoint.
type CallsRequest struct {
	Calls []entity.ContractCall `json:"calls"`
}

// NetworkView is the public part of a network definition.
type NetworkView struct {
	Identifier         string `json:"identifier"`
	Name               string `json:"name"`
	ChainID            uint64 `json:"chainId"`
	NativeSymbol       string `json:"nativeSymbol"`
	Decimals           uint8  `json:"decimals"`
	BlockExplorerURL   string `json:"blockExplorerUrl,omitempty"`
	MetadataPlatformID string `json:"metadataPlatformId,omitempty"`
}

// MetadataResponse is the body of the metadata endpoint.
type MetadataResponse struct {
	Network  string                `json:"network"`
	Address  string                `json:"address"`
	Status   entity.MetadataStatus `json:"status"`
	Metadata *entity.TokenMetadata `json:"metadata,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ReaderHandler serves contract reads and metadata lookups over HTTP.
type ReaderHandler struct {
	reader   port.ReaderService
	networks port.NetworkDefinitionProvider
	enricher port.MetadataEnricher
	logger   *zap.Logger
}

// NewReaderHandler creates a ReaderHandler. enricher may be nil when metadata is disabled.
func NewReaderHandler(reader port.ReaderService, networks port.NetworkDefinitionProvider, enricher port.MetadataEnricher, logger *zap.Logger) *ReaderHandler {
	return &ReaderHandler{
		reader:   reader,
		networks: networks,
		enricher: enricher,
		logger:   logger.Named("restapi"),
	}
}

// ListNetworks returns the active networks.
func (h *ReaderHandler) ListNetworks(c *gin.Context) {
	defs := h.networks.GetAllNetworkDefinitions()
	views := make([]NetworkView, 0, len(defs))
	for _, d := range defs {
		views = append(views, NetworkView{
			Identifier:         d.Identifier,
			Name:               d.Name,
			ChainID:            d.ChainID,
			NativeSymbol:       d.NativeSymbol,
			Decimals:           d.NativeDecimals(),
			BlockExplorerURL:   d.BlockExplorerURL,
			MetadataPlatformID: d.MetadataPlatformID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"networks": views})
}

// ReadBalances reads token infos and balances for every (token, holder) pair.
func (h *ReaderHandler) ReadBalances(c *gin.Context) {
	var body BalancesRequest
	if !h.bind(c, &body) {
		return
	}
	if len(body.Holders) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "holders must not be empty"})
		return
	}
	h.read(c, entity.ReadRequest{
		Network:       c.Param("network"),
		Tokens:        body.Tokens,
		Holders:       body.Holders,
		IncludeNative: body.IncludeNative,
		WaitMetadata:  body.WaitMetadata,
	})
}

// ReadCalls executes arbitrary read calls in one batch.
func (h *ReaderHandler) ReadCalls(c *gin.Context) {
	var body CallsRequest
	if !h.bind(c, &body) {
		return
	}
	if len(body.Calls) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "calls must not be empty"})
		return
	}
	h.read(c, entity.ReadRequest{Network: c.Param("network"), Calls: body.Calls})
}

// GetMetadata returns the metadata of one token. With wait=true it blocks until
// the queue resolves the token or the request is cancelled; otherwise an unresolved
// token is enqueued and reported as pending.
func (h *ReaderHandler) GetMetadata(c *gin.Context) {
	if h.enricher == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "metadata enrichment is disabled"})
		return
	}
	netDef, ok := h.networks.GetNetworkDefinitionByName(c.Param("network"))
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: entity.ErrUnknownNetwork.Error() + ": " + c.Param("network")})
		return
	}
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid token address: " + address})
		return
	}
	address = strings.ToLower(common.HexToAddress(address).Hex())

	resp := MetadataResponse{Network: netDef.Identifier, Address: address}
	if c.Query("wait") == "true" {
		md, err := h.enricher.Lookup(c.Request.Context(), netDef.Identifier, address)
		if err != nil {
			c.JSON(http.StatusGatewayTimeout, errorResponse{Error: err.Error()})
			return
		}
		resp.Status, resp.Metadata = resolvedStatus(md), md
		c.JSON(http.StatusOK, resp)
		return
	}

	if md, ok := h.enricher.Cached(netDef.Identifier, address); ok {
		resp.Status, resp.Metadata = resolvedStatus(md), md
		c.JSON(http.StatusOK, resp)
		return
	}
	h.enricher.Enqueue(netDef.Identifier, address)
	resp.Status = entity.MetadataPending
	c.JSON(http.StatusAccepted, resp)
}

func resolvedStatus(md *entity.TokenMetadata) entity.MetadataStatus {
	if md == nil {
		return entity.MetadataUnavailable
	}
	return entity.MetadataAvailable
}

func (h *ReaderHandler) bind(c *gin.Context, dst any) bool {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (h *ReaderHandler) read(c *gin.Context, req entity.ReadRequest) {
	report, err := h.reader.Read(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Read failed", zap.String("network", req.Network), zap.Error(err))
		}
		c.JSON(status, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func statusFor(err error) int {
	var netErr *entity.NetworkError
	switch {
	case service.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrUnknownNetwork):
		return http.StatusNotFound
	case errors.As(err, &netErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
