package client

import (
	"context"
	"fmt"
	"sync"

	"chain_reader/internal/app/port"
	"chain_reader/internal/domain/entity"
	"chain_reader/internal/pkg/metrics"

	"go.uber.org/zap"
)

// DialFunc creates an aggregator for one network.
type DialFunc func(ctx context.Context, netDef entity.NetworkDefinition) (port.Aggregator, error)

// aggregatorProvider implements port.AggregatorProvider with one cached client per network.
// Dials run outside mu; concurrent callers for the same network share one dial.
type aggregatorProvider struct {
	clients  map[string]port.Aggregator
	inflight map[string]*dialCall
	mu       sync.Mutex
	dial     DialFunc
	logger   *zap.Logger
}

type dialCall struct {
	done   chan struct{}
	client port.Aggregator
	err    error
}

// NewAggregatorProvider creates a provider that dials real RPC endpoints.
func NewAggregatorProvider(opts Options, logger *zap.Logger, m *metrics.Metrics) port.AggregatorProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	dial := func(ctx context.Context, netDef entity.NetworkDefinition) (port.Aggregator, error) {
		c, err := Dial(ctx, netDef, opts, logger, m)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return NewAggregatorProviderWithDialer(dial, logger)
}

// NewAggregatorProviderWithDialer creates a provider around a custom dial function.
func NewAggregatorProviderWithDialer(dial DialFunc, logger *zap.Logger) port.AggregatorProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &aggregatorProvider{
		clients:  make(map[string]port.Aggregator),
		inflight: make(map[string]*dialCall),
		dial:     dial,
		logger:   logger.Named("aggregator_provider"),
	}
}

// GetAggregator returns the cached client for the network, dialing it on first use.
// A failed dial is not cached; the next call retries it.
func (p *aggregatorProvider) GetAggregator(ctx context.Context, netDef entity.NetworkDefinition) (port.Aggregator, error) {
	key := netDef.Identifier

	p.mu.Lock()
	if client, exists := p.clients[key]; exists {
		p.mu.Unlock()
		return client, nil
	}
	if call, pending := p.inflight[key]; pending {
		p.mu.Unlock()
		select {
		case <-call.done:
			return call.client, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &dialCall{done: make(chan struct{})}
	p.inflight[key] = call
	p.mu.Unlock()

	p.logger.Info("Creating aggregator client", zap.String("network", netDef.Name), zap.String("rpc_primary", netDef.PrimaryRPCURL))
	client, err := p.dial(ctx, netDef)
	if err != nil {
		p.logger.Error("Failed to create aggregator client", zap.String("network", netDef.Name), zap.Error(err))
		call.err = fmt.Errorf("failed to create aggregator client for %s: %w", netDef.Name, err)
	} else {
		call.client = client
	}

	p.mu.Lock()
	delete(p.inflight, key)
	if call.err == nil {
		p.clients[key] = client
	}
	p.mu.Unlock()
	close(call.done)

	return call.client, call.err
}
