// Package batch turns logical read requests into an ordered list of encoded calls
// and maps decoded results back onto those requests.
package batch

import (
	"fmt"

	"chain_reader/internal/domain/entity"
	"chain_reader/internal/infrastructure/abicodec"
	"chain_reader/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
)

// Batch is an ordered, immutable set of calls for one aggregator contract.
type Batch struct {
	Aggregator common.Address
	Calls      []entity.CallDescriptor
}

// Len returns the number of calls.
func (b Batch) Len() int {
	return len(b.Calls)
}

// Chunk splits the batch into consecutive sub-batches of at most size calls.
// Concatenating the chunk results in order gives a result for the whole batch.
func (b Batch) Chunk(size int) []Batch {
	parts := utils.Chunk(b.Calls, size)
	out := make([]Batch, len(parts))
	for i, part := range parts {
		out[i] = Batch{Aggregator: b.Aggregator, Calls: part}
	}
	return out
}

type balanceKey struct {
	token  common.Address
	holder common.Address
}

// Builder accumulates calls in insertion order. It is not safe for concurrent use.
type Builder struct {
	aggregator common.Address
	calls      []entity.CallDescriptor
	infoTokens map[common.Address]struct{}
	balances   map[balanceKey]struct{}
	natives    map[common.Address]struct{}
}

// NewBuilder creates a builder for the given aggregator contract address.
func NewBuilder(aggregator string) (*Builder, error) {
	addr, err := abicodec.ParseAddress(aggregator)
	if err != nil {
		return nil, &entity.EncodingError{Method: "aggregator", ArgIndex: -1, Reason: err.Error()}
	}
	return &Builder{
		aggregator: addr,
		infoTokens: make(map[common.Address]struct{}),
		balances:   make(map[balanceKey]struct{}),
		natives:    make(map[common.Address]struct{}),
	}, nil
}

// AddTokenInfo appends the name, symbol and decimals calls for token. Repeated tokens are ignored.
func (b *Builder) AddTokenInfo(token string) error {
	addr, err := abicodec.ParseAddress(token)
	if err != nil {
		return &entity.EncodingError{Method: "token info", ArgIndex: -1, Reason: err.Error()}
	}
	if _, ok := b.infoTokens[addr]; ok {
		return nil
	}

	calls := make([]entity.CallDescriptor, 0, 3)
	for _, item := range []struct {
		method abicodec.Method
		kind   entity.CallKind
	}{
		{nameMethod, entity.CallKindName},
		{symbolMethod, entity.CallKindSymbol},
		{decimalsMethod, entity.CallKindDecimals},
	} {
		desc, err := item.method.Encode(addr.Hex())
		if err != nil {
			return err
		}
		desc.Tag = entity.CallTag{Kind: item.kind, Token: addr}
		calls = append(calls, desc)
	}

	b.infoTokens[addr] = struct{}{}
	b.calls = append(b.calls, calls...)
	return nil
}

// AddBalance appends one balanceOf call for the (token, holder) pair. Repeated pairs are ignored.
func (b *Builder) AddBalance(token, holder string) error {
	desc, err := balanceOfMethod.Encode(token, holder)
	if err != nil {
		return err
	}
	holderAddr := common.HexToAddress(holder)
	key := balanceKey{token: desc.Target, holder: holderAddr}
	if _, ok := b.balances[key]; ok {
		return nil
	}
	desc.Tag = entity.CallTag{Kind: entity.CallKindBalance, Token: desc.Target, Holder: holderAddr}
	b.balances[key] = struct{}{}
	b.calls = append(b.calls, desc)
	return nil
}

// AddNativeBalance appends a getEthBalance call for holder against the aggregator contract.
func (b *Builder) AddNativeBalance(holder string) error {
	desc, err := getEthBalanceMethod.Encode(b.aggregator.Hex(), holder)
	if err != nil {
		return err
	}
	holderAddr := common.HexToAddress(holder)
	if _, ok := b.natives[holderAddr]; ok {
		return nil
	}
	desc.Tag = entity.CallTag{Kind: entity.CallKindNativeBalance, Holder: holderAddr}
	b.natives[holderAddr] = struct{}{}
	b.calls = append(b.calls, desc)
	return nil
}

// AddCall appends an arbitrary read identified by id.
func (b *Builder) AddCall(id, target, signature string, args ...any) error {
	desc, err := abicodec.EncodeCall(target, signature, args...)
	if err != nil {
		return fmt.Errorf("call %q: %w", id, err)
	}
	desc.Tag = entity.CallTag{RequestID: id, Kind: entity.CallKindCustom, Token: desc.Target}
	b.calls = append(b.calls, desc)
	return nil
}

// Len returns the number of calls added so far.
func (b *Builder) Len() int {
	return len(b.calls)
}

// Build returns the accumulated calls in insertion order.
func (b *Builder) Build() Batch {
	calls := make([]entity.CallDescriptor, len(b.calls))
	copy(calls, b.calls)
	return Batch{Aggregator: b.aggregator, Calls: calls}
}
