package entity

// NetworkDefinition holds the configuration for a specific blockchain network.
// This structure is defined at the domain level to be used across application and infrastructure layers.
type NetworkDefinition struct {
	ChainID          uint64   `json:"chainId" yaml:"chainId"`
	Name             string   `json:"name" yaml:"name"`
	Identifier       string   `json:"identifier" yaml:"identifier"` // chain key, e.g. "ethereum", "bsc"
	NativeSymbol     string   `json:"nativeSymbol" yaml:"nativeSymbol"`
	Decimals         int32    `json:"decimals" yaml:"decimals"` // native currency decimals
	PrimaryRPCURL    string   `json:"primaryRpcUrl" yaml:"primaryRpcUrl"`
	FallbackRPCURLs  []string `json:"fallbackRpcUrls" yaml:"fallbackRpcUrls"`
	BlockExplorerURL string   `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
	// AggregatorAddress overrides the default aggregator contract for this network.
	AggregatorAddress string `json:"aggregatorAddress,omitempty" yaml:"aggregatorAddress,omitempty"`
	// MetadataPlatformID is the metadata service's platform identifier. Empty means unmapped.
	MetadataPlatformID string `json:"metadataPlatformId,omitempty" yaml:"metadataPlatformId,omitempty"`
	LimiterPeriod      string `json:"-" yaml:"limiterPeriod,omitempty"`
	LimiterBurst       int    `json:"-" yaml:"limiterBurst,omitempty"`
}

// NativeDecimals returns the native currency decimals, defaulting to 18.
func (n NetworkDefinition) NativeDecimals() uint8 {
	if n.Decimals <= 0 || n.Decimals > 255 {
		return 18
	}
	return uint8(n.Decimals)
}
