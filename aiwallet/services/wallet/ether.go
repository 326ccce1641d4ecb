package wallet

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid ether amount")

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ParseEther converts a decimal ether string into wei. At most 18 fractional
// digits are accepted.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 18 {
		return nil, fmt.Errorf("%w: %q has more than 18 decimals", ErrInvalidAmount, s)
	}
	frac += strings.Repeat("0", 18-len(frac))
	wei, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return wei, nil
}

// FormatEther renders wei as a decimal ether string. Trailing zeros are
// trimmed but one fractional digit is always kept ("1.0", "0.5").
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0.0"
	}
	neg := wei.Sign() < 0
	abs := new(big.Int).Abs(wei)
	whole, rem := new(big.Int).QuoRem(abs, weiPerEther, new(big.Int))
	frac := fmt.Sprintf("%018s", rem.String())
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		frac = "0"
	}
	out := whole.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}
