package abicodec

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// convertArg turns v into the Go value abi.Arguments.Pack expects for t.
func convertArg(t abi.Type, v any) (any, error) {
	switch t.T {
	case abi.AddressTy:
		return toAddress(v)
	case abi.UintTy, abi.IntTy:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		if err := checkRange(t, n); err != nil {
			return nil, err
		}
		return fitInteger(t, n), nil
	case abi.BoolTy:
		return toBool(v)
	case abi.StringTy:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	case abi.BytesTy:
		return toBytes(v)
	case abi.FixedBytesTy:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("expected at most %d bytes, got %d", t.Size, len(b))
		}
		arr := reflect.New(reflect.ArrayOf(t.Size, reflect.TypeOf(byte(0)))).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil
	case abi.SliceTy, abi.ArrayTy:
		return toList(t, v)
	default:
		return nil, fmt.Errorf("unsupported argument type %s", t.String())
	}
}

func toAddress(v any) (common.Address, error) {
	switch a := v.(type) {
	case common.Address:
		return a, nil
	case *common.Address:
		if a == nil {
			return common.Address{}, fmt.Errorf("nil address")
		}
		return *a, nil
	case string:
		return ParseAddress(a)
	default:
		return common.Address{}, fmt.Errorf("expected address, got %T", v)
	}
}

func toBigInt(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(n), nil
	case big.Int:
		return new(big.Int).Set(&n), nil
	case string:
		return parseIntString(n)
	case json.Number:
		return parseIntString(n.String())
	case float64:
		if math.IsInf(n, 0) || math.IsNaN(n) || math.Trunc(n) != n {
			return nil, fmt.Errorf("%v is not an integer", n)
		}
		i, _ := big.NewFloat(n).Int(nil)
		return i, nil
	case float32:
		return toBigInt(float64(n))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return new(big.Int).SetUint64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("expected integer, got %T", v)
}

func parseIntString(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	body := strings.TrimPrefix(s, "-")

	base := 10
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		base = 16
		body = body[2:]
	}
	if body == "" {
		return nil, fmt.Errorf("%q is not an integer", s)
	}
	n, ok := new(big.Int).SetString(body, base)
	if !ok {
		return nil, fmt.Errorf("%q is not an integer", s)
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}

func checkRange(t abi.Type, n *big.Int) error {
	bits := uint(t.Size)
	if t.T == abi.UintTy {
		if n.Sign() < 0 {
			return fmt.Errorf("%s is negative for %s", n, t.String())
		}
		if n.BitLen() > int(bits) {
			return fmt.Errorf("%s overflows %s", n, t.String())
		}
		return nil
	}

	limit := new(big.Int).Lsh(big.NewInt(1), bits-1)
	lower := new(big.Int).Neg(limit)
	if n.Cmp(lower) < 0 || n.Cmp(limit) >= 0 {
		return fmt.Errorf("%s out of range for %s", n, t.String())
	}
	return nil
}

// fitInteger returns the sized Go integer go-ethereum uses for 8/16/32/64-bit types and *big.Int otherwise.
func fitInteger(t abi.Type, n *big.Int) any {
	if t.T == abi.UintTy {
		switch t.Size {
		case 8:
			return uint8(n.Uint64())
		case 16:
			return uint16(n.Uint64())
		case 32:
			return uint32(n.Uint64())
		case 64:
			return n.Uint64()
		}
		return n
	}
	switch t.Size {
	case 8:
		return int8(n.Int64())
	case 16:
		return int16(n.Int64())
	case 32:
		return int32(n.Int64())
	case 64:
		return n.Int64()
	}
	return n
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("%q is not a bool", b)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("expected bool, got %T", v)
	}
}

func toBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		s := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(b), "0x"), "0X")
		if len(s)%2 == 1 {
			s = "0" + s
		}
		decoded, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%q is not hex bytes", b)
		}
		return decoded, nil
	case common.Hash:
		return b.Bytes(), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		out := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(out), rv)
		return out, nil
	}
	return nil, fmt.Errorf("expected bytes, got %T", v)
}

func toList(t abi.Type, v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected list for %s, got %T", t.String(), v)
	}
	n := rv.Len()
	if t.T == abi.ArrayTy && n != t.Size {
		return nil, fmt.Errorf("expected %d elements for %s, got %d", t.Size, t.String(), n)
	}

	elemType := t.Elem.GetType()
	var out reflect.Value
	if t.T == abi.ArrayTy {
		out = reflect.New(reflect.ArrayOf(n, elemType)).Elem()
	} else {
		out = reflect.MakeSlice(reflect.SliceOf(elemType), n, n)
	}

	for i := 0; i < n; i++ {
		elem, err := convertArg(*t.Elem, rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(reflect.ValueOf(elem))
	}
	return out.Interface(), nil
}
