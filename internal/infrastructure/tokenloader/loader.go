package tokenloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chain_reader/internal/app/port"
	"chain_reader/internal/domain/entity"
	"chain_reader/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
)

var _ port.TokenProvider = (*TokenFileLoader)(nil)

// DefaultTokenDirectoryPath is used when no directory is configured.
const DefaultTokenDirectoryPath = "data/tokens"

// TokenFileLoader implements the port.TokenProvider interface.
// Each active network reads <dir>/<identifier>.json, a list of token objects or addresses.
type TokenFileLoader struct {
	tokenDirPath string
	logger       port.Logger
}

// NewTokenLoader creates a new TokenFileLoader.
func NewTokenLoader(tokenDirPath string, logger port.Logger) *TokenFileLoader {
	if tokenDirPath == "" {
		tokenDirPath = DefaultTokenDirectoryPath
	}
	return &TokenFileLoader{tokenDirPath: tokenDirPath, logger: logger}
}

// GetTokensByNetwork returns checksummed token addresses keyed by network identifier.
// Networks without a token file are absent from the map. Tokens whose chainId
// disagrees with the network are skipped.
func (l *TokenFileLoader) GetTokensByNetwork(activeNetworkDefs []entity.NetworkDefinition) (map[string][]string, error) {
	if _, err := os.Stat(l.tokenDirPath); err != nil {
		return nil, fmt.Errorf("failed to read token directory %s: %w", l.tokenDirPath, err)
	}

	tokensByNetwork := make(map[string][]string)
	for _, netDef := range activeNetworkDefs {
		filePath := filepath.Join(l.tokenDirPath, netDef.Identifier+".json")
		tokens, err := utils.LoadTokensFromJSON(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Debug("No token file for network", "network", netDef.Identifier, "path", filePath)
				continue
			}
			return nil, fmt.Errorf("failed to load tokens for %s: %w", netDef.Identifier, err)
		}

		addresses := make([]string, 0, len(tokens))
		for _, token := range tokens {
			if token.ChainID != 0 && token.ChainID != netDef.ChainID {
				l.logger.Warn("Token has mismatched ChainID in file, skipping token.",
					"file", filePath, "token_address", token.Address,
					"token_chain_id", token.ChainID, "expected_chain_id", netDef.ChainID)
				continue
			}
			if !common.IsHexAddress(token.Address) {
				l.logger.Warn("Skipping invalid token address", "file", filePath, "token_address", token.Address)
				continue
			}
			addresses = append(addresses, common.HexToAddress(token.Address).Hex())
		}
		addresses = utils.UniqueFold(addresses, strings.ToLower)
		if len(addresses) == 0 {
			continue
		}
		tokensByNetwork[netDef.Identifier] = addresses
		l.logger.Info("Loaded tokens for network", "network", netDef.Identifier, "count", len(addresses))
	}
	return tokensByNetwork, nil
}
