package port

import "chain_reader/internal/domain/entity"

// WalletProvider defines the interface for fetching holder addresses.
type WalletProvider interface {
	GetWallets() ([]entity.Wallet, error)
}
