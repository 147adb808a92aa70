package batch

import (
	"fmt"

	"chain_reader/internal/domain/entity"
	"chain_reader/internal/infrastructure/abicodec"
	"chain_reader/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Native describes the network's native currency for native balance records.
type Native struct {
	ChainID  uint64
	Symbol   string
	Decimals uint8
}

// Assembly is the per-request view of a decoded batch.
type Assembly struct {
	Tokens   []entity.TokenInfo
	Balances []entity.BalanceRecord
	Calls    []entity.CallOutcome
}

// Assemble maps decoded values back to their logical requests through each call's tag.
// decoded must be positionally aligned with batch.Calls.
func Assemble(b Batch, decoded []entity.DecodedValue, native Native) (Assembly, error) {
	if len(decoded) != len(b.Calls) {
		return Assembly{}, fmt.Errorf("decoded count %d does not match call count %d", len(decoded), len(b.Calls))
	}

	var out Assembly
	tokenIndex := make(map[common.Address]int)
	decimalsFailures := make(map[common.Address]string)
	tokenFor := func(addr common.Address) *entity.TokenInfo {
		i, ok := tokenIndex[addr]
		if !ok {
			i = len(out.Tokens)
			tokenIndex[addr] = i
			out.Tokens = append(out.Tokens, entity.TokenInfo{ChainID: native.ChainID, Address: addr.Hex()})
		}
		return &out.Tokens[i]
	}

	for i, desc := range b.Calls {
		d := decoded[i]
		switch desc.Tag.Kind {
		case entity.CallKindName:
			info := tokenFor(desc.Tag.Token)
			if s, ok := textValue(d); ok {
				info.Name = s
			} else {
				info.Errors = append(info.Errors, "name: "+failureReason(d))
			}
		case entity.CallKindSymbol:
			info := tokenFor(desc.Tag.Token)
			if s, ok := textValue(d); ok {
				info.Symbol = s
			} else {
				info.Errors = append(info.Errors, "symbol: "+failureReason(d))
			}
		case entity.CallKindDecimals:
			info := tokenFor(desc.Tag.Token)
			if dec, err := decimalsValue(d); err == nil {
				info.Decimals = dec
				info.DecimalsKnown = true
			} else {
				info.Errors = append(info.Errors, "decimals: "+err.Error())
				decimalsFailures[desc.Tag.Token] = err.Error()
			}
		}
	}

	for i, desc := range b.Calls {
		d := decoded[i]
		switch desc.Tag.Kind {
		case entity.CallKindBalance:
			rec := entity.BalanceRecord{
				Holder:       desc.Tag.Holder.Hex(),
				TokenAddress: desc.Tag.Token.Hex(),
			}
			decimalsErr := "token info not requested"
			if idx, ok := tokenIndex[desc.Tag.Token]; ok {
				info := out.Tokens[idx]
				rec.TokenSymbol = info.Symbol
				if info.DecimalsKnown {
					rec.Decimals = info.Decimals
					rec.DecimalsKnown = true
				} else {
					decimalsErr = decimalsFailures[desc.Tag.Token]
				}
			}
			fillBalance(&rec, d)
			if !rec.Failed && !rec.DecimalsKnown {
				// Raw base units stay available; no scale is guessed.
				rec.Failed = true
				rec.FailureReason = "decimals unknown: " + decimalsErr
				rec.FormattedBalance = ""
			}
			out.Balances = append(out.Balances, rec)
		case entity.CallKindNativeBalance:
			rec := entity.BalanceRecord{
				Holder:        desc.Tag.Holder.Hex(),
				Native:        true,
				TokenSymbol:   native.Symbol,
				Decimals:      native.Decimals,
				DecimalsKnown: true,
			}
			fillBalance(&rec, d)
			out.Balances = append(out.Balances, rec)
		case entity.CallKindCustom:
			outcome := entity.CallOutcome{
				RequestID: desc.Tag.RequestID,
				Target:    desc.Target.Hex(),
				Status:    d.Status,
				Reason:    d.Reason,
			}
			if d.OK() {
				outcome.Values = make([]string, len(d.Values))
				for j, v := range d.Values {
					outcome.Values[j] = abicodec.Stringify(v)
				}
			} else if len(d.Raw) > 0 {
				outcome.RawReturnData = hexutil.Encode(d.Raw)
			}
			out.Calls = append(out.Calls, outcome)
		}
	}
	return out, nil
}

// fillBalance sets the amount fields from a balance call. rec.Decimals must already be set.
func fillBalance(rec *entity.BalanceRecord, d entity.DecodedValue) {
	if !d.OK() {
		rec.Failed = true
		rec.FailureReason = d.Reason
		if len(d.Raw) > 0 {
			rec.RawReturnData = hexutil.Encode(d.Raw)
		}
		return
	}

	value, err := abicodec.AsBigInt(d.Value())
	if err == nil && value.Sign() < 0 {
		err = fmt.Errorf("negative balance %s", value)
	}
	if err != nil {
		rec.Failed = true
		rec.FailureReason = "decode error: " + err.Error()
		rec.RawReturnData = hexutil.Encode(d.Raw)
		return
	}

	amount := entity.NewAmount(value, rec.Decimals)
	formatted, err := utils.FormatAmount(amount)
	if err != nil {
		rec.Failed = true
		rec.FailureReason = err.Error()
		return
	}
	rec.Amount = &amount
	rec.FormattedBalance = formatted
}

// textValue reads a string output, falling back to bytes32 for tokens that predate string metadata.
func textValue(d entity.DecodedValue) (string, bool) {
	if d.OK() {
		if s, ok := d.Value().(string); ok {
			return s, true
		}
		return abicodec.Bytes32String(d.Value())
	}
	if d.Status == entity.DecodeFailed && len(d.Raw) == 32 {
		var word [32]byte
		copy(word[:], d.Raw)
		return abicodec.Bytes32String(word)
	}
	return "", false
}

func decimalsValue(d entity.DecodedValue) (uint8, error) {
	if !d.OK() {
		return 0, fmt.Errorf("%s", d.Reason)
	}
	n, err := abicodec.AsBigInt(d.Value())
	if err != nil {
		return 0, err
	}
	if n.Sign() < 0 || n.BitLen() > 8 {
		return 0, fmt.Errorf("decimals %s out of range", n)
	}
	return uint8(n.Uint64()), nil
}

func failureReason(d entity.DecodedValue) string {
	if d.Reason != "" {
		return d.Reason
	}
	return "unexpected value type"
}
