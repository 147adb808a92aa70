package utils

import (
	"fmt"
	"math/big"
	"strings"

	"chain_reader/internal/domain/entity"
)

// NormalizeUnits converts a base-unit integer given as decimal digits into an exact
// human-readable decimal string using scale as the power-of-ten divisor.
// Example: raw="1234500000000000000", scale=18 => "1.2345"
// Only integer and string arithmetic is used, so 77-digit balances are exact.
func NormalizeUnits(raw string, scale uint8) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty amount")
	}
	for _, ch := range raw {
		if ch < '0' || ch > '9' {
			return "", fmt.Errorf("amount %q is not an unsigned decimal integer", raw)
		}
	}

	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return "", fmt.Errorf("amount %q is not an unsigned decimal integer", raw)
	}
	if value.Sign() == 0 {
		return "0", nil
	}
	if scale == 0 {
		return value.String(), nil
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
	whole, frac := new(big.Int).QuoRem(value, divisor, new(big.Int))
	if frac.Sign() == 0 {
		return whole.String(), nil
	}

	fracStr := frac.String()
	if len(fracStr) < int(scale) {
		fracStr = strings.Repeat("0", int(scale)-len(fracStr)) + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")
	return whole.String() + "." + fracStr, nil
}

// FormatAmount formats an Amount with NormalizeUnits.
func FormatAmount(a entity.Amount) (string, error) {
	return NormalizeUnits(a.Raw, a.Scale)
}

// FormatBigInt converts a big.Int value to a human-readable string,
// considering the given number of decimals. Negative values are rejected.
func FormatBigInt(amount *big.Int, decimals uint8) (string, error) {
	if amount == nil {
		return "0", nil
	}
	if amount.Sign() < 0 {
		return "", fmt.Errorf("negative amount %s", amount.String())
	}
	return NormalizeUnits(amount.String(), decimals)
}

// CalculateValueUSD returns amount / 10^decimals * priceUSD.
// The product is computed exactly and only the result is rounded to float64.
func CalculateValueUSD(amount *big.Int, decimals uint8, priceUSD float64) (float64, error) {
	if amount == nil {
		return 0, nil
	}
	price := new(big.Rat)
	if price.SetFloat64(priceUSD) == nil {
		return 0, fmt.Errorf("invalid price %v", priceUSD)
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	value := new(big.Rat).SetFrac(amount, divisor)
	value.Mul(value, price)
	f, _ := value.Float64()
	return f, nil
}
