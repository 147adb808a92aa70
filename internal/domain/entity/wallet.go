package entity

// Wallet is a holder address whose balances are read.
type Wallet struct {
	Address string `json:"address"`
}
