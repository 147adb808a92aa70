package entity

// BalanceRecord is the display-ready balance of one (token, holder) pair.
// DecimalsKnown is false when the token's decimals() call failed; the record is then
// Failed, Amount holds raw base units at scale 0 and FormattedBalance is empty.
type BalanceRecord struct {
	Holder           string         `json:"holder"`
	TokenAddress     string         `json:"tokenAddress,omitempty"`
	Native           bool           `json:"native"`
	TokenSymbol      string         `json:"tokenSymbol,omitempty"`
	Decimals         uint8          `json:"decimals"`
	DecimalsKnown    bool           `json:"decimalsKnown"`
	Amount           *Amount        `json:"amount,omitempty"`
	FormattedBalance string         `json:"formattedBalance,omitempty"`
	Failed           bool           `json:"failed"`
	FailureReason    string         `json:"failureReason,omitempty"`
	RawReturnData    string         `json:"rawReturnData,omitempty"`
	MetadataStatus   MetadataStatus `json:"metadataStatus,omitempty"`
	Metadata         *TokenMetadata `json:"metadata,omitempty"`
	ValueUSD         *float64       `json:"valueUsd,omitempty"`
}

// CallOutcome is the display form of a custom contract read.
type CallOutcome struct {
	RequestID     string       `json:"id"`
	Target        string       `json:"target"`
	Status        DecodeStatus `json:"status"`
	Values        []string     `json:"values,omitempty"`
	RawReturnData string       `json:"rawReturnData,omitempty"`
	Reason        string       `json:"reason,omitempty"`
}

// ReadReport is the decoded result of one network read.
type ReadReport struct {
	Network    string          `json:"network"`
	ChainID    uint64          `json:"chainId"`
	CallCount  int             `json:"callCount"`
	RoundTrips int             `json:"roundTrips"`
	Tokens     []TokenInfo     `json:"tokens,omitempty"`
	Balances   []BalanceRecord `json:"balances,omitempty"`
	Calls      []CallOutcome   `json:"calls,omitempty"`
	// TokenMetadata maps lower-case token addresses to their enrichment state.
	TokenMetadata map[string]MetadataState `json:"tokenMetadata,omitempty"`
}

// MetadataState is the enrichment state of one token in a report.
type MetadataState struct {
	Status   MetadataStatus `json:"status"`
	Metadata *TokenMetadata `json:"metadata,omitempty"`
}
