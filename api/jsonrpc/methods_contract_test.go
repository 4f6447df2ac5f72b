package jsonrpc

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitalspace/somnia-mcp/pkg/chain"
)

const counterABI = `[{"inputs":[],"name":"count","outputs":[{"name":"","type":"uint256"}],"type":"function","stateMutability":"view"}]`

func packUint256(t *testing.T, n int64) []byte {
	t.Helper()
	uint256Ty, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	out, err := abi.Arguments{{Type: uint256Ty}}.Pack(big.NewInt(n))
	require.NoError(t, err)
	return out
}

func TestReadContract(t *testing.T) {
	fake := newFakeChain()
	fake.callFn = func(msg ethereum.CallMsg) ([]byte, error) {
		return packUint256(t, 77), nil
	}
	server := newTestServer(t, fake)

	resp := call(t, server, "readContract", map[string]interface{}{
		"address":  "0xcc00000000000000000000000000000000000001",
		"abi":      counterABI,
		"function": "count",
		"args":     []interface{}{},
	})
	m := result(t, resp)

	assert.Equal(t, "count", m["function"])
	values, ok := m["values"].([]interface{})
	require.True(t, ok)
	require.Len(t, values, 1)
	assert.Equal(t, "77", values[0])
}

func TestReadContractUnknownFunction(t *testing.T) {
	server := newTestServer(t, newFakeChain())

	resp := call(t, server, "readContract", map[string]interface{}{
		"address":  "0xcc00000000000000000000000000000000000001",
		"abi":      counterABI,
		"function": "nope",
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)
}

func TestReadContractNoCode(t *testing.T) {
	fake := newFakeChain()
	fake.code = nil
	fake.callFn = func(msg ethereum.CallMsg) ([]byte, error) {
		t.Fatal("eth_call must not be issued against an address without code")
		return nil, nil
	}
	server := newTestServer(t, fake)

	resp := call(t, server, "readContract", map[string]interface{}{
		"address":  "0xcc00000000000000000000000000000000000001",
		"abi":      counterABI,
		"function": "count",
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidRequest, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "no contract code")
}

func TestGetTokenInfo(t *testing.T) {
	fake := newFakeChain()
	fake.callFn = tokenCallFn(t, "Somnia Token", "SOMT", 6, 1_000_000)
	server := newTestServer(t, fake)

	resp := call(t, server, "getTokenInfo", map[string]interface{}{
		"token": "0x7070000000000000000000000000000000000000",
	})
	m := result(t, resp)

	assert.Equal(t, "Somnia Token", m["name"])
	assert.Equal(t, "SOMT", m["symbol"])
	assert.Equal(t, float64(6), m["decimals"])
	assert.Equal(t, "1000000", m["totalSupply"])
	assert.Equal(t, "1", m["totalSupplyFormatted"])
}

func TestGetTokenBalance(t *testing.T) {
	fake := newFakeChain()
	fake.callFn = tokenCallFn(t, "Somnia Token", "SOMT", 6, 1_000_000)
	server := newTestServer(t, fake)

	resp := call(t, server, "getTokenBalance", map[string]interface{}{
		"token":   "0x7070000000000000000000000000000000000000",
		"address": "0x1122334455667788991122334455667788991122",
	})
	m := result(t, resp)

	assert.Equal(t, "42000000", m["balance"])
	assert.Equal(t, "42", m["formatted"])
	assert.Equal(t, "SOMT", m["symbol"])
}

// tokenCallFn routes eth_call by selector the way an ERC-20 would answer
func tokenCallFn(t *testing.T, name, symbol string, decimals uint8, supply int64) func(msg ethereum.CallMsg) ([]byte, error) {
	t.Helper()
	stringTy, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packString := func(s string) []byte {
		out, err := abi.Arguments{{Type: stringTy}}.Pack(s)
		require.NoError(t, err)
		return out
	}

	return func(msg ethereum.CallMsg) ([]byte, error) {
		selector := hexutil.Encode(msg.Data[:4])
		switch selector {
		case "0x06fdde03": // name()
			return packString(name), nil
		case "0x95d89b41": // symbol()
			return packString(symbol), nil
		case "0x313ce567": // decimals()
			return packUint256(t, int64(decimals)), nil
		case "0x18160ddd": // totalSupply()
			return packUint256(t, supply), nil
		case "0x70a08231": // balanceOf(address)
			return packUint256(t, 42_000_000), nil
		}
		return nil, ethereum.NotFound
	}
}

func TestMulticall(t *testing.T) {
	const aggregate3ABI = `[{"inputs":[{"components":[{"name":"target","type":"address"},{"name":"allowFailure","type":"bool"},{"name":"callData","type":"bytes"}],"name":"calls","type":"tuple[]"}],"name":"aggregate3","outputs":[{"components":[{"name":"success","type":"bool"},{"name":"returnData","type":"bytes"}],"name":"returnData","type":"tuple[]"}],"stateMutability":"payable","type":"function"}]`
	parsed, err := abi.JSON(strings.NewReader(aggregate3ABI))
	require.NoError(t, err)

	reply, err := parsed.Methods["aggregate3"].Outputs.Pack([]struct {
		Success    bool   `json:"success"`
		ReturnData []byte `json:"returnData"`
	}{
		{Success: true, ReturnData: packUint256(t, 1)},
		{Success: false, ReturnData: nil},
	})
	require.NoError(t, err)

	fake := newFakeChain()
	var captured ethereum.CallMsg
	fake.callFn = func(msg ethereum.CallMsg) ([]byte, error) {
		captured = msg
		return reply, nil
	}
	server := newTestServer(t, fake)

	resp := call(t, server, "multicall", map[string]interface{}{
		"calls": []map[string]interface{}{
			{"target": "0xcc00000000000000000000000000000000000001", "callData": "0x06fdde03"},
			{"target": "0xcc00000000000000000000000000000000000002", "callData": "0x95d89b41"},
		},
	})
	m := result(t, resp)

	// Builtin networks carry the canonical Multicall3 deployment
	assert.Equal(t, common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11"), *captured.To)
	assert.True(t, bytes.HasPrefix(captured.Data, parsed.Methods["aggregate3"].ID))

	assert.Equal(t, "aggregate3", m["method"])
	responses, ok := m["responses"].([]interface{})
	require.True(t, ok)
	require.Len(t, responses, 2)
	assert.Equal(t, true, responses[0].(map[string]interface{})["success"])
	assert.Equal(t, false, responses[1].(map[string]interface{})["success"])
}

func TestMulticallRequiresCallData(t *testing.T) {
	server := newTestServer(t, newFakeChain())

	resp := call(t, server, "multicall", map[string]interface{}{
		"calls": []map[string]interface{}{
			{"target": "0xcc00000000000000000000000000000000000001"},
		},
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)
}

func TestMulticallWithoutDeployment(t *testing.T) {
	fake := newFakeChain()
	registry := chain.NewRegistry()
	require.NoError(t, registry.Register(&chain.Network{
		Identifier:   "bare",
		Name:         "Bare",
		ChainID:      999,
		RPCEndpoint:  "http://localhost:8545",
		NativeSymbol: "BARE",
	}))
	handler := NewHandler(registry, func(n *chain.Network) (ChainClient, error) {
		return fake, nil
	}, zap.NewNop())
	t.Cleanup(handler.Close)
	server := NewServer(handler, zap.NewNop())

	resp := call(t, server, "multicall", map[string]interface{}{
		"network": "bare",
		"calls": []map[string]interface{}{
			{"target": "0xcc00000000000000000000000000000000000001", "callData": "0x06fdde03"},
		},
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidRequest, resp.Error.Code)
}
