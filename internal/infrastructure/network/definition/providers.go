package networkdefinition

import (
	"fmt"
	"sort"
	"strings"

	"chain_reader/internal/app/port"
	"chain_reader/internal/domain/entity"
)

// NetworkDefinitionProvider provides network definitions.
type NetworkDefinitionProvider struct {
	logger            port.Logger
	allNetworkDefs    map[string]entity.NetworkDefinition
	activeNetworkDefs []entity.NetworkDefinition
}

// Options select and override the built-in definitions.
type Options struct {
	// Active lists the network identifiers to serve. Empty means every known network.
	Active []string
	// Overrides replace non-zero fields of a built-in definition, or add a new network
	// when the identifier is unknown and the override carries a chain ID and an RPC URL.
	Overrides map[string]entity.NetworkDefinition
	// PlatformMapping overrides the metadata platform ID per network identifier.
	// An empty value unmaps the network.
	PlatformMapping map[string]string
}

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.NetworkDefinition{
		ChainID:            1,
		Name:               "Ethereum Mainnet",
		Identifier:         "ethereum",
		NativeSymbol:       "ETH",
		Decimals:           18,
		PrimaryRPCURL:      "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:    []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
		BlockExplorerURL:   "https://etherscan.io",
		MetadataPlatformID: "ethereum",
	}
	BSC = entity.NetworkDefinition{
		ChainID:            56,
		Name:               "BNB Smart Chain",
		Identifier:         "bsc",
		NativeSymbol:       "BNB",
		Decimals:           18,
		PrimaryRPCURL:      "https://1rpc.io/bnb",
		FallbackRPCURLs:    []string{"https://bsc-dataseed2.binance.org/", "https://bsc.publicnode.com"},
		BlockExplorerURL:   "https://bscscan.com",
		MetadataPlatformID: "binance-smart-chain",
	}
	Polygon = entity.NetworkDefinition{
		ChainID:            137,
		Name:               "Polygon PoS",
		Identifier:         "polygon",
		NativeSymbol:       "POL",
		Decimals:           18,
		PrimaryRPCURL:      "https://polygon-rpc.com/",
		FallbackRPCURLs:    []string{"https://rpc.ankr.com/polygon", "https://polygon.publicnode.com"},
		BlockExplorerURL:   "https://polygonscan.com",
		MetadataPlatformID: "polygon-pos",
	}
	Arbitrum = entity.NetworkDefinition{
		ChainID:            42161,
		Name:               "Arbitrum One",
		Identifier:         "arbitrum",
		NativeSymbol:       "ETH",
		Decimals:           18,
		PrimaryRPCURL:      "https://arb1.arbitrum.io/rpc",
		FallbackRPCURLs:    []string{"https://arbitrum.llamarpc.com", "https://arbitrum.publicnode.com"},
		BlockExplorerURL:   "https://arbiscan.io",
		MetadataPlatformID: "arbitrum-one",
	}
	Avalanche = entity.NetworkDefinition{
		ChainID:            43114,
		Name:               "Avalanche C-Chain",
		Identifier:         "avalanche",
		NativeSymbol:       "AVAX",
		Decimals:           18,
		PrimaryRPCURL:      "https://api.avax.network/ext/bc/C/rpc",
		FallbackRPCURLs:    []string{"https://avalanche.public-rpc.com", "https://rpc.ankr.com/avalanche"},
		BlockExplorerURL:   "https://snowtrace.io",
		MetadataPlatformID: "avalanche",
	}
	Base = entity.NetworkDefinition{
		ChainID:            8453,
		Name:               "Base Mainnet",
		Identifier:         "base",
		NativeSymbol:       "ETH",
		Decimals:           18,
		PrimaryRPCURL:      "https://1rpc.io/base",
		FallbackRPCURLs:    []string{"https://base.publicnode.com", "https://base.llamarpc.com"},
		BlockExplorerURL:   "https://basescan.org",
		MetadataPlatformID: "base",
	}
	Blast = entity.NetworkDefinition{
		ChainID:            81457,
		Name:               "Blast Mainnet",
		Identifier:         "blast",
		NativeSymbol:       "ETH",
		Decimals:           18,
		PrimaryRPCURL:      "https://rpc.ankr.com/blast",
		FallbackRPCURLs:    []string{"https://blast.blockpi.network/v1/rpc/public", "https://blastl2-mainnet.public.blastapi.io"},
		BlockExplorerURL:   "https://blastscan.io",
		MetadataPlatformID: "blast",
	}
	Celo = entity.NetworkDefinition{
		ChainID:            42220,
		Name:               "Celo Mainnet",
		Identifier:         "celo",
		NativeSymbol:       "CELO",
		Decimals:           18,
		PrimaryRPCURL:      "https://rpc.ankr.com/celo",
		BlockExplorerURL:   "https://celoscan.io",
		MetadataPlatformID: "celo",
	}
	Fantom = entity.NetworkDefinition{
		ChainID:            250,
		Name:               "Fantom Opera",
		Identifier:         "fantom",
		NativeSymbol:       "FTM",
		Decimals:           18,
		PrimaryRPCURL:      "https://1rpc.io/ftm",
		FallbackRPCURLs:    []string{"https://fantom.publicnode.com", "https://rpc.ankr.com/fantom"},
		BlockExplorerURL:   "https://ftmscan.com",
		MetadataPlatformID: "fantom",
	}
	Gnosis = entity.NetworkDefinition{
		ChainID:            100,
		Name:               "Gnosis Chain",
		Identifier:         "gnosis",
		NativeSymbol:       "xDAI",
		Decimals:           18,
		PrimaryRPCURL:      "https://rpc.gnosischain.com",
		FallbackRPCURLs:    []string{"https://rpc.ankr.com/gnosis", "https://gnosis.publicnode.com"},
		BlockExplorerURL:   "https://gnosisscan.io",
		MetadataPlatformID: "xdai",
	}
	Linea = entity.NetworkDefinition{
		ChainID:            59144,
		Name:               "Linea Mainnet",
		Identifier:         "linea",
		NativeSymbol:       "ETH",
		Decimals:           18,
		PrimaryRPCURL:      "https://rpc.linea.build",
		FallbackRPCURLs:    []string{"https://linea.blockpi.network/v1/rpc/public"},
		BlockExplorerURL:   "https://lineascan.build",
		MetadataPlatformID: "linea",
	}
	Mantle = entity.NetworkDefinition{
		ChainID:            5000,
		Name:               "Mantle Network",
		Identifier:         "mantle",
		NativeSymbol:       "MNT",
		Decimals:           18,
		PrimaryRPCURL:      "https://rpc.mantle.xyz",
		BlockExplorerURL:   "https://explorer.mantle.xyz",
		MetadataPlatformID: "mantle",
	}
	Optimism = entity.NetworkDefinition{
		ChainID:            10,
		Name:               "OP Mainnet",
		Identifier:         "optimism",
		NativeSymbol:       "ETH",
		Decimals:           18,
		PrimaryRPCURL:      "https://op-pokt.nodies.app",
		FallbackRPCURLs:    []string{"https://optimism.publicnode.com", "https://rpc.ankr.com/optimism"},
		BlockExplorerURL:   "https://optimistic.etherscan.io",
		MetadataPlatformID: "optimistic-ethereum",
	}
	Scroll = entity.NetworkDefinition{
		ChainID:            534352,
		Name:               "Scroll",
		Identifier:         "scroll",
		NativeSymbol:       "ETH",
		Decimals:           18,
		PrimaryRPCURL:      "https://rpc.scroll.io",
		FallbackRPCURLs:    []string{"https://scroll.blockpi.network/v1/rpc/public"},
		BlockExplorerURL:   "https://scrollscan.com",
		MetadataPlatformID: "scroll",
	}
	ZkSync = entity.NetworkDefinition{ // zkSync Era
		ChainID:            324,
		Name:               "zkSync Era Mainnet",
		Identifier:         "zksync",
		NativeSymbol:       "ETH",
		Decimals:           18,
		PrimaryRPCURL:      "https://mainnet.era.zksync.io",
		BlockExplorerURL:   "https://explorer.zksync.io",
		AggregatorAddress:  "0xF9cda624FBC7e059355ce98a31693d299FACd963", // Multicall3 has its own deployment on zkSync
		MetadataPlatformID: "zksync",
	}
	Zora = entity.NetworkDefinition{
		ChainID:            7777777,
		Name:               "Zora Mainnet",
		Identifier:         "zora",
		NativeSymbol:       "ETH",
		Decimals:           18,
		PrimaryRPCURL:      "https://zora.drpc.org",
		FallbackRPCURLs:    []string{"https://rpc.zora.energy", "https://1rpc.io/zora"},
		BlockExplorerURL:   "https://explorer.zora.energy",
		MetadataPlatformID: "zora-network",
	}
)

// KnownDefinitions returns a copy of the built-in definitions keyed by identifier.
func KnownDefinitions() map[string]entity.NetworkDefinition {
	defs := []entity.NetworkDefinition{
		Ethereum, BSC, Polygon, Arbitrum, Avalanche, Base, Blast, Celo,
		Fantom, Gnosis, Linea, Mantle, Optimism, Scroll, ZkSync, Zora,
	}
	out := make(map[string]entity.NetworkDefinition, len(defs))
	for _, def := range defs {
		out[def.Identifier] = def
	}
	return out
}

// NewNetworkDefinitionProvider creates a new NetworkDefinitionProvider.
func NewNetworkDefinitionProvider(log port.Logger, opts Options) (*NetworkDefinitionProvider, error) {
	p := &NetworkDefinitionProvider{
		logger:         log,
		allNetworkDefs: KnownDefinitions(),
	}

	for identifier, override := range opts.Overrides {
		identifier = strings.ToLower(identifier)
		base, known := p.allNetworkDefs[identifier]
		if !known {
			if override.ChainID == 0 || override.PrimaryRPCURL == "" {
				return nil, fmt.Errorf("network %q is not built in and its override needs chainId and primaryRpcUrl", identifier)
			}
			base = entity.NetworkDefinition{Identifier: identifier, Name: identifier, Decimals: 18}
		}
		p.allNetworkDefs[identifier] = mergeDefinition(base, override)
	}

	for identifier, platform := range opts.PlatformMapping {
		identifier = strings.ToLower(identifier)
		def, ok := p.allNetworkDefs[identifier]
		if !ok {
			p.logger.Warn("Platform mapping for unknown network ignored", "network", identifier)
			continue
		}
		def.MetadataPlatformID = platform
		p.allNetworkDefs[identifier] = def
	}

	if len(opts.Active) == 0 {
		for _, def := range p.allNetworkDefs {
			p.activeNetworkDefs = append(p.activeNetworkDefs, def)
		}
		sort.Slice(p.activeNetworkDefs, func(i, j int) bool {
			return p.activeNetworkDefs[i].ChainID < p.activeNetworkDefs[j].ChainID
		})
	} else {
		seen := make(map[string]struct{}, len(opts.Active))
		for _, identifier := range opts.Active {
			identifier = strings.ToLower(strings.TrimSpace(identifier))
			if _, dup := seen[identifier]; dup {
				continue
			}
			def, ok := p.allNetworkDefs[identifier]
			if !ok {
				return nil, fmt.Errorf("%w: %s", entity.ErrUnknownNetwork, identifier)
			}
			seen[identifier] = struct{}{}
			p.activeNetworkDefs = append(p.activeNetworkDefs, def)
		}
	}

	p.logger.Info("NetworkDefinitionProvider initialized", "active_networks", len(p.activeNetworkDefs))
	for _, netDef := range p.activeNetworkDefs {
		p.logger.Debug("Active network", "name", netDef.Name, "identifier", netDef.Identifier, "chain_id", netDef.ChainID, "platform", netDef.MetadataPlatformID)
	}
	return p, nil
}

func mergeDefinition(base, override entity.NetworkDefinition) entity.NetworkDefinition {
	if override.ChainID != 0 {
		base.ChainID = override.ChainID
	}
	if override.Name != "" {
		base.Name = override.Name
	}
	if override.NativeSymbol != "" {
		base.NativeSymbol = override.NativeSymbol
	}
	if override.Decimals != 0 {
		base.Decimals = override.Decimals
	}
	if override.PrimaryRPCURL != "" {
		base.PrimaryRPCURL = override.PrimaryRPCURL
	}
	if len(override.FallbackRPCURLs) > 0 {
		base.FallbackRPCURLs = override.FallbackRPCURLs
	}
	if override.BlockExplorerURL != "" {
		base.BlockExplorerURL = override.BlockExplorerURL
	}
	if override.AggregatorAddress != "" {
		base.AggregatorAddress = override.AggregatorAddress
	}
	if override.MetadataPlatformID != "" {
		base.MetadataPlatformID = override.MetadataPlatformID
	}
	if override.LimiterPeriod != "" {
		base.LimiterPeriod = override.LimiterPeriod
	}
	if override.LimiterBurst != 0 {
		base.LimiterBurst = override.LimiterBurst
	}
	return base
}

// GetAllNetworkDefinitions returns the list of active network definitions.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	defsCopy := make([]entity.NetworkDefinition, len(p.activeNetworkDefs))
	copy(defsCopy, p.activeNetworkDefs)
	return defsCopy
}

// GetNetworkDefinitionByName returns an active network definition by identifier or display name.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByName(nameOrIdentifier string) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.activeNetworkDefs {
		if strings.EqualFold(def.Identifier, nameOrIdentifier) || strings.EqualFold(def.Name, nameOrIdentifier) {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}

// GetNetworkDefinitionByChainID returns an active network definition by its chain ID.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByChainID(chainID uint64) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.activeNetworkDefs {
		if def.ChainID == chainID {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}

// PlatformTable returns the chain key to metadata platform mapping of every known network.
// Networks without a platform are left out.
func (p *NetworkDefinitionProvider) PlatformTable() map[string]string {
	table := make(map[string]string, len(p.allNetworkDefs))
	for identifier, def := range p.allNetworkDefs {
		if def.MetadataPlatformID != "" {
			table[identifier] = def.MetadataPlatformID
		}
	}
	return table
}
