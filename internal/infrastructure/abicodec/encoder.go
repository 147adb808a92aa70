package abicodec

import (
	"fmt"
	"strings"

	"chain_reader/internal/domain/entity"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Method is a contract read method: its name, argument types, output types and selector.
type Method struct {
	method abi.Method
}

// ParseSignature parses a human-readable signature such as
// "balanceOf(address)(uint256)" or "balanceOf(address owner) returns (uint256)".
// Tuple types are not accepted here; use FromABI for them.
func ParseSignature(signature string) (Method, error) {
	sig := strings.TrimSpace(signature)
	open := strings.Index(sig, "(")
	if open <= 0 {
		return Method{}, &entity.EncodingError{Method: signature, ArgIndex: -1, Reason: "signature must look like name(type,...)(type,...)"}
	}
	name := strings.TrimSpace(sig[:open])
	if strings.ContainsAny(name, " \t") {
		return Method{}, &entity.EncodingError{Method: signature, ArgIndex: -1, Reason: "invalid method name"}
	}

	inputTypes, rest, err := splitTypeList(sig[open:])
	if err != nil {
		return Method{}, &entity.EncodingError{Method: signature, ArgIndex: -1, Reason: err.Error()}
	}

	rest = strings.TrimSpace(rest)
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "returns"))
	var outputTypes []string
	if rest != "" {
		var tail string
		outputTypes, tail, err = splitTypeList(rest)
		if err != nil {
			return Method{}, &entity.EncodingError{Method: signature, ArgIndex: -1, Reason: err.Error()}
		}
		if strings.TrimSpace(tail) != "" {
			return Method{}, &entity.EncodingError{Method: signature, ArgIndex: -1, Reason: fmt.Sprintf("unexpected trailing text %q", tail)}
		}
	}

	inputs, err := toArguments(inputTypes)
	if err != nil {
		return Method{}, &entity.EncodingError{Method: signature, ArgIndex: -1, Reason: err.Error()}
	}
	outputs, err := toArguments(outputTypes)
	if err != nil {
		return Method{}, &entity.EncodingError{Method: signature, ArgIndex: -1, Reason: err.Error()}
	}

	return Method{method: abi.NewMethod(name, name, abi.Function, "view", true, false, inputs, outputs)}, nil
}

// MustParseSignature is ParseSignature for package-level method tables.
func MustParseSignature(signature string) Method {
	m, err := ParseSignature(signature)
	if err != nil {
		panic(err)
	}
	return m
}

// FromABI looks a method up in a parsed ABI definition.
func FromABI(parsed abi.ABI, name string) (Method, error) {
	m, ok := parsed.Methods[name]
	if !ok {
		return Method{}, &entity.EncodingError{Method: name, ArgIndex: -1, Reason: "method not found in ABI"}
	}
	return Method{method: m}, nil
}

// Name returns the method name.
func (m Method) Name() string {
	return m.method.Name
}

// Sig returns the canonical signature, e.g. "balanceOf(address)".
func (m Method) Sig() string {
	return m.method.Sig
}

// Selector returns the 4-byte method ID.
func (m Method) Selector() []byte {
	return common.CopyBytes(m.method.ID)
}

// OutputShape returns the output type tags used to decode the method's return data.
func (m Method) OutputShape() []entity.TypeTag {
	shape := make([]entity.TypeTag, len(m.method.Outputs))
	for i, out := range m.method.Outputs {
		shape[i] = entity.TypeTag(out.Type.String())
	}
	return shape
}

// EncodeArgs returns selector ++ ABI-encoded arguments.
func (m Method) EncodeArgs(args ...any) ([]byte, error) {
	if len(args) != len(m.method.Inputs) {
		return nil, &entity.EncodingError{
			Method:   m.method.Sig,
			ArgIndex: -1,
			Reason:   fmt.Sprintf("expected %d arguments, got %d", len(m.method.Inputs), len(args)),
		}
	}

	converted := make([]any, len(args))
	for i, arg := range args {
		v, err := convertArg(m.method.Inputs[i].Type, arg)
		if err != nil {
			return nil, &entity.EncodingError{Method: m.method.Sig, ArgIndex: i, Reason: err.Error()}
		}
		converted[i] = v
	}

	packed, err := m.method.Inputs.Pack(converted...)
	if err != nil {
		return nil, &entity.EncodingError{Method: m.method.Sig, ArgIndex: -1, Reason: err.Error()}
	}

	data := make([]byte, 0, len(m.method.ID)+len(packed))
	data = append(data, m.method.ID...)
	return append(data, packed...), nil
}

// Encode builds the call descriptor for calling the method on target.
// The descriptor's tag is left empty for the caller to fill.
func (m Method) Encode(target string, args ...any) (entity.CallDescriptor, error) {
	addr, err := ParseAddress(target)
	if err != nil {
		return entity.CallDescriptor{}, &entity.EncodingError{Method: m.method.Sig, ArgIndex: -1, Reason: "target: " + err.Error()}
	}
	data, err := m.EncodeArgs(args...)
	if err != nil {
		return entity.CallDescriptor{}, err
	}
	return entity.CallDescriptor{
		Target:      addr,
		CallData:    data,
		OutputShape: m.OutputShape(),
	}, nil
}

// DecodeArgs decodes calldata produced by EncodeArgs back into argument values.
func (m Method) DecodeArgs(data []byte) ([]any, error) {
	if len(data) < 4 || string(data[:4]) != string(m.method.ID) {
		return nil, fmt.Errorf("calldata does not start with selector of %s", m.method.Sig)
	}
	return m.method.Inputs.Unpack(data[4:])
}

// EncodeCall parses signature and encodes a call to target in one step.
func EncodeCall(target, signature string, args ...any) (entity.CallDescriptor, error) {
	m, err := ParseSignature(signature)
	if err != nil {
		return entity.CallDescriptor{}, err
	}
	return m.Encode(target, args...)
}

// ParseAddress validates a hex address string.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%q is not a valid address", s)
	}
	return common.HexToAddress(s), nil
}

// splitTypeList reads "(t1,t2,...)" from the start of s and returns the types and the remainder.
func splitTypeList(s string) ([]string, string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") {
		return nil, "", fmt.Errorf("expected '(' in %q", s)
	}
	end := strings.Index(s, ")")
	if end < 0 {
		return nil, "", fmt.Errorf("missing ')' in %q", s)
	}
	inner := strings.TrimSpace(s[1:end])
	if strings.Contains(inner, "(") {
		return nil, "", fmt.Errorf("tuple types are not supported in signatures")
	}
	if inner == "" {
		return nil, s[end+1:], nil
	}

	parts := strings.Split(inner, ",")
	types := make([]string, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			return nil, "", fmt.Errorf("empty type in %q", s)
		}
		types = append(types, canonicalType(fields[0]))
	}
	return types, s[end+1:], nil
}

// canonicalType expands the uint/int aliases, which abi.NewType parses as zero-sized.
func canonicalType(t string) string {
	for _, alias := range []string{"uint", "int"} {
		if t == alias {
			return alias + "256"
		}
		if strings.HasPrefix(t, alias+"[") {
			return alias + "256" + t[len(alias):]
		}
	}
	return t
}

func toArguments(types []string) (abi.Arguments, error) {
	args := make(abi.Arguments, 0, len(types))
	for _, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", t, err)
		}
		args = append(args, abi.Argument{Type: typ})
	}
	return args, nil
}
