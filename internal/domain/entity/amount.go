package entity

import "math/big"

// Amount is an exact token amount in base units plus its decimal scale.
type Amount struct {
	Raw   string `json:"raw"`
	Scale uint8  `json:"scale"`
}

// NewAmount builds an Amount from a non-negative integer. A nil value is zero.
func NewAmount(value *big.Int, scale uint8) Amount {
	if value == nil {
		return Amount{Raw: "0", Scale: scale}
	}
	return Amount{Raw: value.String(), Scale: scale}
}

// IsZero reports whether the raw value is zero. Malformed raw values are not zero.
func (a Amount) IsZero() bool {
	v, ok := new(big.Int).SetString(a.Raw, 10)
	return ok && v.Sign() == 0
}
