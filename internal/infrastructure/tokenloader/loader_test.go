package tokenloader

import (
	"os"
	"path/filepath"
	"testing"

	"chain_reader/internal/domain/entity"
	"chain_reader/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTokensByNetwork(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ethereum.json"), []byte(`[
		{"chainId": 1, "address": "0xdac17f958d2ee523a2206206994597c13d831ec7"},
		{"chainId": 56, "address": "0x55d398326f99059fF775485246999027B3197955"},
		"0x6B175474E89094C44Da98b954EedeAC495271d0F",
		"0x6b175474e89094c44da98b954eedeac495271d0f",
		"bogus"
	]`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bsc.json"), []byte(`[]`), 0o600))

	defs := []entity.NetworkDefinition{
		{Identifier: "ethereum", ChainID: 1},
		{Identifier: "bsc", ChainID: 56},
		{Identifier: "polygon", ChainID: 137},
	}
	got, err := NewTokenLoader(dir, logger.NewNop()).GetTokensByNetwork(defs)
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"ethereum": {
			"0xdAC17F958D2ee523a2206206994597C13D831ec7",
			"0x6B175474E89094C44Da98b954EedeAC495271d0F",
		},
	}, got)
}

func TestGetTokensByNetworkErrors(t *testing.T) {
	_, err := NewTokenLoader(filepath.Join(t.TempDir(), "missing"), logger.NewNop()).
		GetTokensByNetwork([]entity.NetworkDefinition{{Identifier: "ethereum", ChainID: 1}})
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ethereum.json"), []byte(`{`), 0o600))
	_, err = NewTokenLoader(dir, logger.NewNop()).
		GetTokensByNetwork([]entity.NetworkDefinition{{Identifier: "ethereum", ChainID: 1}})
	assert.Error(t, err)
}
