package networkdefinition

import (
	"errors"
	"testing"

	"chain_reader/internal/domain/entity"
	"chain_reader/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderAllKnownByDefault(t *testing.T) {
	p, err := NewNetworkDefinitionProvider(logger.NewNop(), Options{})
	require.NoError(t, err)

	defs := p.GetAllNetworkDefinitions()
	assert.Len(t, defs, len(KnownDefinitions()))
	assert.Equal(t, uint64(1), defs[0].ChainID, "sorted by chain ID")

	def, ok := p.GetNetworkDefinitionByName("BNB Smart Chain")
	require.True(t, ok)
	assert.Equal(t, "bsc", def.Identifier)

	def, ok = p.GetNetworkDefinitionByChainID(324)
	require.True(t, ok)
	assert.Equal(t, "0xF9cda624FBC7e059355ce98a31693d299FACd963", def.AggregatorAddress)
}

func TestProviderActiveSubsetAndOverrides(t *testing.T) {
	p, err := NewNetworkDefinitionProvider(logger.NewNop(), Options{
		Active: []string{"ethereum", "devnet", "ethereum"},
		Overrides: map[string]entity.NetworkDefinition{
			"ethereum": {PrimaryRPCURL: "http://localhost:8545", LimiterPeriod: "50ms", LimiterBurst: 4},
			"devnet":   {ChainID: 31337, PrimaryRPCURL: "http://localhost:9545", NativeSymbol: "ETH"},
		},
		PlatformMapping: map[string]string{"ethereum": "", "unknown": "x"},
	})
	require.NoError(t, err)

	defs := p.GetAllNetworkDefinitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "http://localhost:8545", defs[0].PrimaryRPCURL)
	assert.Equal(t, "Ethereum Mainnet", defs[0].Name)
	assert.Equal(t, 4, defs[0].LimiterBurst)
	assert.Empty(t, defs[0].MetadataPlatformID)
	assert.Equal(t, "devnet", defs[1].Identifier)
	assert.Equal(t, uint8(18), defs[1].NativeDecimals())

	table := p.PlatformTable()
	_, mapped := table["ethereum"]
	assert.False(t, mapped)
	assert.Equal(t, "polygon-pos", table["polygon"])

	_, ok := p.GetNetworkDefinitionByName("polygon")
	assert.False(t, ok, "inactive networks are not served")
}

func TestProviderErrors(t *testing.T) {
	_, err := NewNetworkDefinitionProvider(logger.NewNop(), Options{Active: []string{"nowhere"}})
	assert.True(t, errors.Is(err, entity.ErrUnknownNetwork))

	_, err = NewNetworkDefinitionProvider(logger.NewNop(), Options{
		Overrides: map[string]entity.NetworkDefinition{"devnet": {ChainID: 31337}},
	})
	assert.Error(t, err)
}
