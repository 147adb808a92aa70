package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"

	"chain_reader/internal/app/batch"
	"chain_reader/internal/app/port"
	"chain_reader/internal/domain/entity"
	"chain_reader/internal/infrastructure/abicodec"
	"chain_reader/internal/pkg/metrics"
	"chain_reader/internal/pkg/utils"

	"golang.org/x/sync/errgroup"
)

const defaultMaxCallsPerBatch = 500

// ReaderOptions bound the size and parallelism of reads.
type ReaderOptions struct {
	MaxCallsPerBatch      int
	MaxConcurrentRoutines int
}

// ReaderServiceImpl implements port.ReaderService.
type ReaderServiceImpl struct {
	networkProvider    port.NetworkDefinitionProvider
	aggregatorProvider port.AggregatorProvider
	enricher           port.MetadataEnricher
	logger             port.Logger
	metrics            *metrics.Metrics
	opts               ReaderOptions
}

// NewReaderService creates a reader. enricher may be nil, which disables metadata enrichment.
func NewReaderService(
	np port.NetworkDefinitionProvider,
	ap port.AggregatorProvider,
	enricher port.MetadataEnricher,
	opts ReaderOptions,
	l port.Logger,
	m *metrics.Metrics,
) *ReaderServiceImpl {
	if opts.MaxCallsPerBatch <= 0 {
		opts.MaxCallsPerBatch = defaultMaxCallsPerBatch
	}
	if opts.MaxConcurrentRoutines <= 0 {
		opts.MaxConcurrentRoutines = 1
	}
	return &ReaderServiceImpl{
		networkProvider:    np,
		aggregatorProvider: ap,
		enricher:           enricher,
		logger:             l,
		metrics:            m,
		opts:               opts,
	}
}

// Read executes every logical request of req against one network.
// Invalid input fails with *entity.EncodingError before any RPC is made.
func (s *ReaderServiceImpl) Read(ctx context.Context, req entity.ReadRequest) (*entity.ReadReport, error) {
	netDef, ok := s.networkProvider.GetNetworkDefinitionByName(req.Network)
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrUnknownNetwork, req.Network)
	}

	report, err := s.read(ctx, netDef, req)
	if err != nil {
		s.metrics.ObserveRead(netDef.Identifier, "error")
		return nil, err
	}
	s.metrics.ObserveRead(netDef.Identifier, "ok")
	return report, nil
}

func (s *ReaderServiceImpl) read(ctx context.Context, netDef entity.NetworkDefinition, req entity.ReadRequest) (*entity.ReadReport, error) {
	aggregator, err := s.aggregatorProvider.GetAggregator(ctx, netDef)
	if err != nil {
		return nil, err
	}

	tokens := utils.UniqueFold(req.Tokens, strings.ToLower)
	holders := utils.UniqueFold(req.Holders, strings.ToLower)

	builder, err := batch.NewBuilder(aggregator.Address().Hex())
	if err != nil {
		return nil, err
	}

	includeNative := req.IncludeNative
	erc20 := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if strings.EqualFold(token, entity.ZeroAddress) {
			includeNative = true
			continue
		}
		if err := builder.AddTokenInfo(token); err != nil {
			return nil, err
		}
		erc20 = append(erc20, token)
	}
	for _, holder := range holders {
		for _, token := range erc20 {
			if err := builder.AddBalance(token, holder); err != nil {
				return nil, err
			}
		}
		if includeNative {
			if err := builder.AddNativeBalance(holder); err != nil {
				return nil, err
			}
		}
	}
	for _, call := range req.Calls {
		if err := builder.AddCall(call.ID, call.Target, call.Signature, call.Args...); err != nil {
			return nil, err
		}
	}

	b := builder.Build()
	report := &entity.ReadReport{
		Network:   netDef.Identifier,
		ChainID:   netDef.ChainID,
		CallCount: b.Len(),
	}
	if b.Len() == 0 {
		return report, nil
	}

	chunks := b.Chunk(s.opts.MaxCallsPerBatch)
	results := make([]entity.CallResult, 0, b.Len())
	for i, chunk := range chunks {
		chunkResults, err := aggregator.Aggregate(ctx, chunk.Calls)
		if err != nil {
			s.logger.Error("Aggregate call failed", "network", netDef.Name, "chunk", i, "chunks", len(chunks), "error", err)
			return nil, err
		}
		results = append(results, chunkResults...)
	}
	report.RoundTrips = len(chunks)

	decoded, err := abicodec.DecodeAll(b.Calls, results)
	if err != nil {
		return nil, &entity.NetworkError{Network: netDef.Name, Op: "decode", Err: err}
	}
	for _, d := range decoded {
		s.metrics.ObserveCall(netDef.Identifier, string(d.Status))
	}

	assembled, err := batch.Assemble(b, decoded, batch.Native{
		ChainID:  netDef.ChainID,
		Symbol:   netDef.NativeSymbol,
		Decimals: netDef.NativeDecimals(),
	})
	if err != nil {
		return nil, &entity.NetworkError{Network: netDef.Name, Op: "assemble", Err: err}
	}
	report.Tokens = assembled.Tokens
	report.Balances = assembled.Balances
	report.Calls = assembled.Calls

	s.enrich(ctx, netDef, report, req.WaitMetadata)

	s.logger.Debug("Read completed",
		"network", netDef.Name,
		"calls", report.CallCount,
		"round_trips", report.RoundTrips,
		"balances", len(report.Balances))
	return report, nil
}

// enrich attaches metadata states to the report. With wait set it blocks until every
// token resolves or ctx ends; unresolved tokens stay pending.
func (s *ReaderServiceImpl) enrich(ctx context.Context, netDef entity.NetworkDefinition, report *entity.ReadReport, wait bool) {
	if s.enricher == nil || len(report.Tokens) == 0 {
		return
	}

	states := make(map[string]entity.MetadataState, len(report.Tokens))
	pending := make(map[string]<-chan *entity.TokenMetadata)
	for _, token := range report.Tokens {
		addr := strings.ToLower(token.Address)
		if md, found := s.enricher.Cached(netDef.Identifier, addr); found {
			states[addr] = metadataState(md)
			continue
		}
		states[addr] = entity.MetadataState{Status: entity.MetadataPending}
		pending[addr] = s.enricher.Enqueue(netDef.Identifier, addr)
	}

	if wait {
		for addr, ch := range pending {
			select {
			case md := <-ch:
				states[addr] = metadataState(md)
			case <-ctx.Done():
				s.logger.Warn("Stopped waiting for metadata", "network", netDef.Name, "error", ctx.Err())
			}
			if ctx.Err() != nil {
				break
			}
		}
	}

	report.TokenMetadata = states
	for i := range report.Balances {
		rec := &report.Balances[i]
		if rec.Native {
			continue
		}
		state, ok := states[strings.ToLower(rec.TokenAddress)]
		if !ok {
			continue
		}
		rec.MetadataStatus = state.Status
		rec.Metadata = state.Metadata
		if rec.TokenSymbol == "" && state.Metadata != nil {
			rec.TokenSymbol = state.Metadata.Symbol
		}
		rec.ValueUSD = valueUSD(rec, state.Metadata)
	}
}

func metadataState(md *entity.TokenMetadata) entity.MetadataState {
	if md == nil {
		return entity.MetadataState{Status: entity.MetadataUnavailable}
	}
	return entity.MetadataState{Status: entity.MetadataAvailable, Metadata: md}
}

func valueUSD(rec *entity.BalanceRecord, md *entity.TokenMetadata) *float64 {
	if md == nil || md.PriceUSD == nil || rec.Amount == nil || !rec.DecimalsKnown {
		return nil
	}
	raw, ok := new(big.Int).SetString(rec.Amount.Raw, 10)
	if !ok {
		return nil
	}
	v, err := utils.CalculateValueUSD(raw, rec.Amount.Scale, *md.PriceUSD)
	if err != nil {
		return nil
	}
	return &v
}

// ReadMany runs the requests concurrently, one per network. A failing network is reported
// in the error list and does not affect the others. Reports keep the order of reqs.
func (s *ReaderServiceImpl) ReadMany(ctx context.Context, reqs []entity.ReadRequest) ([]*entity.ReadReport, []entity.ReadError) {
	reports := make([]*entity.ReadReport, len(reqs))
	var readErrors []entity.ReadError
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxConcurrentRoutines)
	for i, req := range reqs {
		g.Go(func() error {
			report, err := s.Read(gctx, req)
			if err != nil {
				s.logger.Error("Network read failed", "network", req.Network, "error", err)
				readErr := entity.ReadError{NetworkName: req.Network, Message: err.Error()}
				if def, ok := s.networkProvider.GetNetworkDefinitionByName(req.Network); ok {
					readErr.ChainID = strconv.FormatUint(def.ChainID, 10)
				}
				mu.Lock()
				readErrors = append(readErrors, readErr)
				mu.Unlock()
				return nil
			}
			reports[i] = report
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*entity.ReadReport, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, readErrors
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	var encErr *entity.EncodingError
	return errors.As(err, &encErr)
}
