package entity

import "strings"

// TokenInfo holds the on-chain details of a specific token.
type TokenInfo struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Name     string `json:"name,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals uint8  `json:"decimals"`
	// DecimalsKnown is false when the decimals() call failed; Decimals is then meaningless.
	DecimalsKnown bool     `json:"decimalsKnown"`
	Errors        []string `json:"errors,omitempty"`
}

// TokenMetadata is the off-chain metadata of a token, keyed by (ChainKey, ContractAddress).
type TokenMetadata struct {
	ChainKey        string   `json:"chainKey"`
	ContractAddress string   `json:"contractAddress"`
	Name            string   `json:"name"`
	Symbol          string   `json:"symbol"`
	IconURL         string   `json:"iconUrl,omitempty"`
	Decimals        uint8    `json:"decimals"`
	PriceUSD        *float64 `json:"priceUsd,omitempty"`
	ChainLabel      string   `json:"chainLabel,omitempty"`
}

// MetadataStatus tells a pending lookup apart from a confirmed absence.
type MetadataStatus string

const (
	MetadataPending     MetadataStatus = "pending"
	MetadataAvailable   MetadataStatus = "available"
	MetadataUnavailable MetadataStatus = "unavailable"
)

// MetadataKey builds the cache key for a (chain, contract) pair. Addresses are case-normalized.
func MetadataKey(chainKey, contractAddress string) string {
	return strings.ToLower(chainKey) + ":" + strings.ToLower(contractAddress)
}
