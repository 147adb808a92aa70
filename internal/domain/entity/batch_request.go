package entity

// ZeroAddress represents the Ethereum zero address.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// ContractCall is a logical request to read one contract method.
type ContractCall struct {
	ID        string `json:"id"`
	Target    string `json:"target"`
	Signature string `json:"signature"` // e.g. "balanceOf(address)(uint256)"
	Args      []any  `json:"args,omitempty"`
}

// ReadRequest is the set of logical reads for one network.
type ReadRequest struct {
	Network       string         `json:"network"`
	Tokens        []string       `json:"tokens,omitempty"`
	Holders       []string       `json:"holders,omitempty"`
	IncludeNative bool           `json:"includeNative,omitempty"`
	Calls         []ContractCall `json:"calls,omitempty"`
	// WaitMetadata makes the read wait for metadata enrichment, bounded by the caller's context.
	WaitMetadata bool `json:"waitMetadata,omitempty"`
}
