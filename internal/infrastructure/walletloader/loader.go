package walletloader

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"chain_reader/internal/app/port"
	"chain_reader/internal/domain/entity"
	"chain_reader/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
)

var _ port.WalletProvider = (*WalletFileLoader)(nil)

// DefaultWalletFilePath is used when no path is configured.
const DefaultWalletFilePath = "data/wallets.txt"

// WalletFileLoader implements the port.WalletProvider interface by loading holder addresses from a file.
// The file holds one address per line; blank lines and lines starting with '#' are ignored.
type WalletFileLoader struct {
	filePath string
	logger   port.Logger
}

// NewWalletFileLoader creates a new WalletFileLoader.
func NewWalletFileLoader(filePath string, logger port.Logger) *WalletFileLoader {
	if filePath == "" {
		filePath = DefaultWalletFilePath
	}
	return &WalletFileLoader{filePath: filePath, logger: logger}
}

// GetWallets reads holder addresses from the configured file path.
// Invalid lines are skipped, duplicates are dropped and addresses are checksummed.
func (l *WalletFileLoader) GetWallets() ([]entity.Wallet, error) {
	file, err := os.Open(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet file %s: %w", l.filePath, err)
	}
	defer file.Close()

	var addresses []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "0x") || !common.IsHexAddress(line) {
			l.logger.Warn("Skipping invalid wallet address", "file", l.filePath, "line_number", lineNum, "address", line)
			continue
		}
		addresses = append(addresses, common.HexToAddress(line).Hex())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning wallet file %s: %w", l.filePath, err)
	}

	addresses = utils.UniqueFold(addresses, strings.ToLower)
	wallets := make([]entity.Wallet, 0, len(addresses))
	for _, addr := range addresses {
		wallets = append(wallets, entity.Wallet{Address: addr})
	}
	l.logger.Info("Wallets loaded from file", "count", len(wallets), "path", l.filePath)
	return wallets, nil
}

// GetWalletByAddress searches for a wallet by its address in the file.
func (l *WalletFileLoader) GetWalletByAddress(address string) (*entity.Wallet, error) {
	wallets, err := l.GetWallets()
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets when searching by address '%s': %w", address, err)
	}
	for _, wallet := range wallets {
		if strings.EqualFold(wallet.Address, address) {
			return &wallet, nil
		}
	}
	return nil, fmt.Errorf("wallet with address %s not found in %s", address, l.filePath)
}

// Addresses returns the holder addresses as plain strings.
func Addresses(wallets []entity.Wallet) []string {
	out := make([]string, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, w.Address)
	}
	return out
}
