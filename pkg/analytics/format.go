package analytics

import (
	"math/big"
	"strings"

	"github.com/vitalspace/somnia-mcp/internal/constants"
)

// FormatUnits renders a base-unit amount as a decimal string with the given
// decimal count, trimming trailing fractional zeros ("1.5", not "1.500000").
func FormatUnits(value *big.Int, decimals int) string {
	if decimals <= 0 {
		return value.String()
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	quo, rem := new(big.Int).QuoRem(value, divisor, new(big.Int))

	negative := rem.Sign() < 0
	rem.Abs(rem)
	if rem.Sign() == 0 {
		return quo.String()
	}

	frac := strings.TrimRight(padLeft(rem.String(), decimals), "0")

	whole := quo.String()
	if negative && quo.Sign() == 0 {
		whole = "-0"
	}
	return whole + "." + frac
}

// FormatPercentage renders rawBalance / totalSupply * 100 with four decimal
// places. Returns "" when the supply is unknown or zero.
func FormatPercentage(rawBalance, totalSupply *big.Int) string {
	if totalSupply == nil || totalSupply.Sign() == 0 {
		return ""
	}

	// Scale so integer division keeps PercentageDecimals fractional digits
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(constants.PercentageDecimals), nil)
	scaled := new(big.Int).Mul(rawBalance, big.NewInt(constants.PercentageMultiplier))
	scaled.Mul(scaled, scale)
	scaled.Quo(scaled, totalSupply)

	quo, rem := new(big.Int).QuoRem(scaled, scale, new(big.Int))
	return quo.String() + "." + padLeft(rem.Abs(rem).String(), constants.PercentageDecimals)
}

func padLeft(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
