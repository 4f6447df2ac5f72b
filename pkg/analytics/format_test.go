package analytics

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		decimals int
		want     string
	}{
		{name: "zero decimals", value: "12345", decimals: 0, want: "12345"},
		{name: "whole number", value: "2000000000000000000", decimals: 18, want: "2"},
		{name: "fraction trimmed", value: "1500000000000000000", decimals: 18, want: "1.5"},
		{name: "small fraction", value: "1", decimals: 18, want: "0.000000000000000001"},
		{name: "zero", value: "0", decimals: 18, want: "0"},
		{name: "gwei", value: "1230000000", decimals: 9, want: "1.23"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := new(big.Int).SetString(tt.value, 10)
			if !ok {
				t.Fatalf("bad value %q", tt.value)
			}
			assert.Equal(t, tt.want, FormatUnits(v, tt.decimals))
		})
	}
}

func TestFormatPercentage(t *testing.T) {
	tests := []struct {
		name    string
		balance int64
		supply  int64
		want    string
	}{
		{name: "quarter", balance: 250, supply: 1000, want: "25.0000"},
		{name: "all", balance: 1000, supply: 1000, want: "100.0000"},
		{name: "rounds down", balance: 1, supply: 3, want: "33.3333"},
		{name: "tiny share", balance: 1, supply: 1000000, want: "0.0001"},
		{name: "below resolution", balance: 1, supply: 100000000, want: "0.0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatPercentage(big.NewInt(tt.balance), big.NewInt(tt.supply))
			assert.Equal(t, tt.want, got)
		})
	}

	// Unknown or zero supply yields empty
	assert.Empty(t, FormatPercentage(big.NewInt(10), nil))
	assert.Empty(t, FormatPercentage(big.NewInt(10), big.NewInt(0)))
}
