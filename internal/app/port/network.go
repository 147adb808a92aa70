package port

import (
	"context"

	"chain_reader/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
)

// Aggregator executes a batch of read calls in one round trip.
// The result slice has the same length and order as calls.
type Aggregator interface {
	Aggregate(ctx context.Context, calls []entity.CallDescriptor) ([]entity.CallResult, error)

	// VerifyChainID checks the remote chain ID against the network definition.
	VerifyChainID(ctx context.Context) (uint64, error)

	// Address is the aggregator contract, which also serves native balance calls.
	Address() common.Address
}

// NetworkDefinitionProvider defines the interface for providing network definitions.
type NetworkDefinitionProvider interface {
	// GetAllNetworkDefinitions returns all available network definitions as a slice.
	GetAllNetworkDefinitions() []entity.NetworkDefinition

	// GetNetworkDefinitionByName returns a specific network definition by its name or identifier.
	GetNetworkDefinitionByName(nameOrIdentifier string) (entity.NetworkDefinition, bool)
}

// AggregatorProvider hands out one aggregator per network.
type AggregatorProvider interface {
	GetAggregator(ctx context.Context, networkDefinition entity.NetworkDefinition) (Aggregator, error)
}
