package entity

import "github.com/ethereum/go-ethereum/common"

// TypeTag is a canonical ABI type string such as "uint256", "string" or "address[]".
type TypeTag string

// CallKind identifies which logical request a call was built for.
type CallKind string

const (
	CallKindBalance       CallKind = "balance"
	CallKindNativeBalance CallKind = "native_balance"
	CallKindName          CallKind = "name"
	CallKindSymbol        CallKind = "symbol"
	CallKindDecimals      CallKind = "decimals"
	CallKindCustom        CallKind = "custom"
)

// CallTag carries the back-references needed to reassociate a result after a batch round-trip.
type CallTag struct {
	RequestID string
	Kind      CallKind
	Token     common.Address
	Holder    common.Address
}

// CallDescriptor is one encoded read call. It is not modified after it is built.
type CallDescriptor struct {
	Target      common.Address
	CallData    []byte
	OutputShape []TypeTag
	Tag         CallTag
}

// CallResult is the raw outcome of one call inside an aggregated batch.
// Position i of a batch result always corresponds to position i of the batch.
type CallResult struct {
	Success    bool
	ReturnData []byte
}

// DecodeStatus is the per-call outcome after decoding.
type DecodeStatus string

const (
	DecodeOK       DecodeStatus = "ok"
	DecodeReverted DecodeStatus = "reverted"
	DecodeFailed   DecodeStatus = "decode_failed"
)

// DecodedValue is either the decoded outputs of a call or a failure that keeps the raw bytes.
type DecodedValue struct {
	Status DecodeStatus
	Values []any
	Raw    []byte
	Reason string
}

// OK reports whether the call succeeded and decoded.
func (v DecodedValue) OK() bool {
	return v.Status == DecodeOK
}

// Value returns the output at position 0, or nil for failed or empty results.
func (v DecodedValue) Value() any {
	if !v.OK() || len(v.Values) == 0 {
		return nil
	}
	return v.Values[0]
}
