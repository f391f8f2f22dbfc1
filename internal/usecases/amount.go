package usecases

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	// TokenDecimals is the declared precision of the bridged asset
	TokenDecimals = 6
	// NativeDecimals is the precision of the source chain's gas currency
	NativeDecimals = 18
)

// NormalizeAmount sanitizes raw user input into a non-negative decimal string
// with at most decimals fractional digits. Total and idempotent.
func NormalizeAmount(raw string, decimals int) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if !hasDot {
		return whole
	}
	frac = strings.ReplaceAll(frac, ".", "")
	if decimals <= 0 {
		return whole
	}
	if len(frac) > decimals {
		frac = frac[:decimals]
	}
	return whole + "." + frac
}

// ParseUnits converts a decimal string to a fixed-point integer, truncating
// digits beyond decimals.
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	normalized := NormalizeAmount(amount, decimals)
	if normalized != strings.TrimSpace(amount) && strings.ContainsAny(amount, "-+eE") {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	whole, frac, _ := strings.Cut(normalized, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	if len(frac) < decimals {
		frac += strings.Repeat("0", decimals-len(frac))
	}
	digits := strings.TrimLeft(whole+frac, "0")
	if digits == "" {
		return new(big.Int), nil
	}
	out, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	return out, nil
}

// FormatUnits renders v with exactly decimals fractional digits
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		v = new(big.Int)
	}
	neg := v.Sign() < 0
	digits := new(big.Int).Abs(v).String()
	if decimals > 0 {
		if len(digits) <= decimals {
			digits = strings.Repeat("0", decimals-len(digits)+1) + digits
		}
		cut := len(digits) - decimals
		digits = digits[:cut] + "." + digits[cut:]
	}
	if neg {
		return "-" + digits
	}
	return digits
}
