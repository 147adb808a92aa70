package port

import (
	"context"

	"chain_reader/internal/domain/entity"
)

// TokenProvider defines the interface for fetching token address lists.
type TokenProvider interface {
	// GetTokensByNetwork returns token addresses keyed by network identifier.
	GetTokensByNetwork(activeNetworkDefs []entity.NetworkDefinition) (map[string][]string, error)
}

// MetadataFetcher loads off-chain metadata for one token.
// It returns an error wrapping entity.ErrRateLimited when the service throttles the request.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, platformID, contractAddress string) (*entity.TokenMetadata, error)
}

// MetadataCache stores metadata per key. A nil value is a negative entry.
type MetadataCache interface {
	Get(key string) (*entity.TokenMetadata, bool)
	// Add inserts the value unless the key already has one; it reports whether it inserted.
	Add(key string, value *entity.TokenMetadata) bool
}

// MetadataEnricher resolves token metadata through the rate-limited queue.
type MetadataEnricher interface {
	Enqueue(chainKey, contractAddress string) <-chan *entity.TokenMetadata
	Lookup(ctx context.Context, chainKey, contractAddress string) (*entity.TokenMetadata, error)
	Cached(chainKey, contractAddress string) (*entity.TokenMetadata, bool)
}

// ReaderService reads contract state for one or more networks.
type ReaderService interface {
	Read(ctx context.Context, req entity.ReadRequest) (*entity.ReadReport, error)
	ReadMany(ctx context.Context, reqs []entity.ReadRequest) ([]*entity.ReadReport, []entity.ReadError)
}
