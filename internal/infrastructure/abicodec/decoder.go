package abicodec

import (
	"fmt"
	"strings"

	"chain_reader/internal/domain/entity"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
)

// shapeCache maps joined type tags to parsed arguments. Custom calls carry
// caller-supplied signatures, so the cache is bounded.
var shapeCache = lru.NewCache[string, abi.Arguments](1024)

func argumentsFor(shape []entity.TypeTag) (abi.Arguments, error) {
	parts := make([]string, len(shape))
	for i, tag := range shape {
		parts[i] = string(tag)
	}
	key := strings.Join(parts, ",")
	if cached, ok := shapeCache.Get(key); ok {
		return cached, nil
	}

	args, err := toArguments(parts)
	if err != nil {
		return nil, err
	}
	shapeCache.Add(key, args)
	return args, nil
}

// Decode classifies one call result and unpacks its return data per the descriptor's output shape.
// Failures are reported in the returned value, never as an error.
func Decode(desc entity.CallDescriptor, res entity.CallResult) (decoded entity.DecodedValue) {
	raw := common.CopyBytes(res.ReturnData)

	if !res.Success {
		reason := "call reverted"
		if msg, err := abi.UnpackRevert(raw); err == nil && msg != "" {
			reason += ": " + msg
		}
		return entity.DecodedValue{Status: entity.DecodeReverted, Raw: raw, Reason: reason}
	}
	if len(raw) == 0 {
		return entity.DecodedValue{Status: entity.DecodeReverted, Raw: raw, Reason: "call returned no data"}
	}

	defer func() {
		if r := recover(); r != nil {
			decoded = entity.DecodedValue{Status: entity.DecodeFailed, Raw: raw, Reason: fmt.Sprintf("decode error: %v", r)}
		}
	}()

	args, err := argumentsFor(desc.OutputShape)
	if err != nil {
		return entity.DecodedValue{Status: entity.DecodeFailed, Raw: raw, Reason: "decode error: " + err.Error()}
	}
	values, err := args.Unpack(raw)
	if err != nil {
		return entity.DecodedValue{Status: entity.DecodeFailed, Raw: raw, Reason: "decode error: " + err.Error()}
	}
	return entity.DecodedValue{Status: entity.DecodeOK, Values: values, Raw: raw}
}

// DecodeAll decodes a batch result positionally. It fails only when the lengths differ.
func DecodeAll(calls []entity.CallDescriptor, results []entity.CallResult) ([]entity.DecodedValue, error) {
	if len(calls) != len(results) {
		return nil, fmt.Errorf("result count %d does not match call count %d", len(results), len(calls))
	}
	decoded := make([]entity.DecodedValue, len(calls))
	for i := range calls {
		decoded[i] = Decode(calls[i], results[i])
	}
	return decoded, nil
}
