package contract

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const erc20ABI = `[
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

func TestPackTransfer(t *testing.T) {
	call := &Call{
		Address:  common.HexToAddress("0x01"),
		ABI:      erc20ABI,
		Function: "transfer",
		Args: []interface{}{
			"0x1122334455667788991122334455667788991122",
			"1000000000000000000", // JSON string for a 256-bit amount
		},
	}

	data, err := call.Pack()
	require.NoError(t, err)
	// a9059cbb is the transfer(address,uint256) selector
	assert.Equal(t, "a9059cbb", common.Bytes2Hex(data[:4]))
	assert.Len(t, data, 4+32+32)
}

func TestPackNumericShapes(t *testing.T) {
	// Numbers may arrive as JSON float64, decimal strings, or hex strings
	for _, arg := range []interface{}{float64(1000), "1000", "0x3e8"} {
		call := &Call{
			ABI:      erc20ABI,
			Function: "transfer",
			Args:     []interface{}{"0x1122334455667788991122334455667788991122", arg},
		}
		data, err := call.Pack()
		require.NoError(t, err, "arg %v", arg)
		// Amount is the last word
		assert.Equal(t, big.NewInt(1000), new(big.Int).SetBytes(data[4+32:]))
	}
}

func TestPackErrors(t *testing.T) {
	tests := []struct {
		name string
		call *Call
	}{
		{
			name: "bad abi",
			call: &Call{ABI: "not json", Function: "transfer"},
		},
		{
			name: "unknown function",
			call: &Call{ABI: erc20ABI, Function: "mint", Args: []interface{}{}},
		},
		{
			name: "arg count mismatch",
			call: &Call{ABI: erc20ABI, Function: "transfer", Args: []interface{}{"0x01"}},
		},
		{
			name: "invalid address",
			call: &Call{ABI: erc20ABI, Function: "transfer", Args: []interface{}{"nope", float64(1)}},
		},
		{
			name: "negative unsigned",
			call: &Call{ABI: erc20ABI, Function: "transfer", Args: []interface{}{
				"0x1122334455667788991122334455667788991122", float64(-5)}},
		},
		{
			name: "fractional number",
			call: &Call{ABI: erc20ABI, Function: "transfer", Args: []interface{}{
				"0x1122334455667788991122334455667788991122", 1.5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.call.Pack()
			assert.Error(t, err)
		})
	}
}

const boundedABI = `[
	{"inputs":[{"name":"level","type":"uint8"}],"name":"setLevel","outputs":[],"type":"function"},
	{"inputs":[{"name":"offset","type":"int8"}],"name":"setOffset","outputs":[],"type":"function"},
	{"inputs":[{"name":"count","type":"uint64"}],"name":"setCount","outputs":[],"type":"function"}
]`

func TestPackIntegerBounds(t *testing.T) {
	pack := func(fn string, arg interface{}) error {
		call := &Call{ABI: boundedABI, Function: fn, Args: []interface{}{arg}}
		_, err := call.Pack()
		return err
	}

	// Values at the edge of the width encode
	require.NoError(t, pack("setLevel", float64(255)))
	require.NoError(t, pack("setOffset", float64(127)))
	require.NoError(t, pack("setOffset", float64(-128)))
	require.NoError(t, pack("setCount", "18446744073709551615"))

	// Values past it are rejected, never truncated
	assert.Error(t, pack("setLevel", float64(256)))
	assert.Error(t, pack("setLevel", float64(300)))
	assert.Error(t, pack("setOffset", float64(128)))
	assert.Error(t, pack("setOffset", float64(-129)))
	assert.Error(t, pack("setCount", "18446744073709551616"))
	assert.Error(t, pack("setCount", "0x100000000000000000000000000000000")) // 2^128

	// uint256 overflows too
	wide := &Call{ABI: erc20ABI, Function: "transfer", Args: []interface{}{
		"0x1122334455667788991122334455667788991122",
		"0x10000000000000000000000000000000000000000000000000000000000000000", // 2^256
	}}
	_, err := wide.Pack()
	assert.Error(t, err)
}

func TestUnpack(t *testing.T) {
	call := &Call{ABI: erc20ABI, Function: "balanceOf"}

	// One 32-byte word holding 42
	word := make([]byte, 32)
	word[31] = 42

	values, err := call.Unpack(word)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, big.NewInt(42), values[0])
}

func TestPackNoArgs(t *testing.T) {
	call := &Call{ABI: erc20ABI, Function: "decimals", Args: []interface{}{}}
	data, err := call.Pack()
	require.NoError(t, err)
	assert.Len(t, data, 4)
}
