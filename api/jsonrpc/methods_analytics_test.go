package jsonrpc

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalspace/somnia-mcp/internal/testutil"
)

var (
	holderToken = common.HexToAddress("0x7070000000000000000000000000000000000000")
	holderA     = common.HexToAddress("0xa000000000000000000000000000000000000001")
	holderB     = common.HexToAddress("0xb000000000000000000000000000000000000002")
	zeroAddr    = common.Address{}
)

func TestGetTopTokenHolders(t *testing.T) {
	fake := newFakeChain()
	fake.head = 100
	// Mint 100 to A, A sends 40 to B
	fake.logs = []types.Log{
		testutil.NewTransferLog(holderToken, zeroAddr, holderA, big.NewInt(100), 10),
		testutil.NewTransferLog(holderToken, holderA, holderB, big.NewInt(40), 20),
	}
	server := newTestServer(t, fake)

	resp := call(t, server, "getTopTokenHolders", map[string]interface{}{
		"token": holderToken.Hex(),
		"limit": 10,
	})
	m := result(t, resp)

	assert.Equal(t, float64(2), m["transferCount"])
	assert.Equal(t, float64(2), m["totalHolders"])

	holders, ok := m["holders"].([]interface{})
	require.True(t, ok)
	require.Len(t, holders, 2)

	first := holders[0].(map[string]interface{})
	second := holders[1].(map[string]interface{})
	// A keeps 60, B holds 40, descending order
	assert.Equal(t, "60", first["rawBalance"])
	assert.Equal(t, "40", second["rawBalance"])
}

func TestGetTopTokenHoldersLimitBounds(t *testing.T) {
	server := newTestServer(t, newFakeChain())

	for _, limit := range []int{-1, 101} {
		resp := call(t, server, "getTopTokenHolders", map[string]interface{}{
			"token": holderToken.Hex(),
			"limit": limit,
		})
		require.NotNil(t, resp.Error, "limit %d", limit)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	}
}

func TestGetTopNativeHoldersLimitBounds(t *testing.T) {
	server := newTestServer(t, newFakeChain())

	// Native holder limit caps at 50
	resp := call(t, server, "getTopNativeHolders", map[string]interface{}{"limit": 51})
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)
}

func TestGetERC20TransactionVolume(t *testing.T) {
	fake := newFakeChain()
	fake.head = 100
	fake.logs = []types.Log{
		testutil.NewTransferLog(holderToken, holderA, holderB, big.NewInt(300), 10),
		testutil.NewTransferLog(holderToken, holderB, holderA, big.NewInt(200), 11),
	}
	server := newTestServer(t, fake)

	resp := call(t, server, "getERC20TransactionVolume", map[string]interface{}{
		"token":     holderToken.Hex(),
		"fromBlock": 0,
		"toBlock":   100,
	})
	m := result(t, resp)

	assert.Equal(t, "500", m["totalValue"])
	assert.Equal(t, float64(2), m["transferCount"])
	assert.Equal(t, float64(0), m["skippedLogs"])
}

func TestGetTransactionFee(t *testing.T) {
	fake := newFakeChain()
	hash := common.HexToHash("0xfee1")
	fake.receipts[hash] = testutil.NewTestReceipt(hash, 60, 1)
	server := newTestServer(t, fake)

	resp := call(t, server, "getTransactionFee", map[string]interface{}{"hash": hash.Hex()})
	m := result(t, resp)

	// testutil receipts burn 21000 gas at price 1
	assert.Equal(t, "21000", m["fee"])
	assert.Equal(t, float64(60), m["blockNumber"])
}

func TestGetTransactionFeeNotFound(t *testing.T) {
	server := newTestServer(t, newFakeChain())

	resp := call(t, server, "getTransactionFee", map[string]interface{}{
		"hash": common.HexToHash("0xdead").Hex(),
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, InternalError, resp.Error.Code)
}
