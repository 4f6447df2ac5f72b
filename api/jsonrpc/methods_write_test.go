package jsonrpc

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalspace/somnia-mcp/internal/testutil"
)

// Well-known anvil dev key, safe to embed in tests
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestTransfer(t *testing.T) {
	fake := newFakeChain()
	server := newTestServer(t, fake)

	resp := call(t, server, "transfer", map[string]interface{}{
		"privateKey": testKey,
		"to":         "0x1122334455667788991122334455667788991122",
		"amount":     "1000",
	})
	m := result(t, resp)

	assert.True(t, strings.HasPrefix(m["transactionHash"].(string), "0x"))
	assert.Equal(t, "1000", m["amount"])
	require.Len(t, fake.sent, 1)
	assert.Equal(t, "1000", fake.sent[0].Value().String())
}

func TestTransferRequiresKey(t *testing.T) {
	server := newTestServer(t, newFakeChain())

	resp := call(t, server, "transfer", map[string]interface{}{
		"to":     "0x1122334455667788991122334455667788991122",
		"amount": "1000",
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidRequest, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "private key")
}

func TestTransferInvalidAmount(t *testing.T) {
	server := newTestServer(t, newFakeChain())

	for _, amount := range []string{"", "abc", "-5", "1.5"} {
		resp := call(t, server, "transfer", map[string]interface{}{
			"privateKey": testKey,
			"to":         "0x1122334455667788991122334455667788991122",
			"amount":     amount,
		})
		require.NotNil(t, resp.Error, "amount %q", amount)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	}
}

func TestWriteContractMethod(t *testing.T) {
	fake := newFakeChain()
	server := newTestServer(t, fake)

	resp := call(t, server, "writeContract", map[string]interface{}{
		"privateKey": testKey,
		"address":    "0xcc00000000000000000000000000000000000001",
		"abi":        `[{"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}]`,
		"function":   "transfer",
		"args":       []interface{}{"0x1122334455667788991122334455667788991122", "500"},
	})
	m := result(t, resp)

	assert.Equal(t, "transfer", m["function"])
	require.Len(t, fake.sent, 1)
	assert.NotEmpty(t, fake.sent[0].Data())
}

func TestBatchTransferContinueOnError(t *testing.T) {
	fake := newFakeChain()
	fake.sendErr = errors.New("insufficient funds")
	server := newTestServer(t, fake)

	resp := call(t, server, "batchTransfer", map[string]interface{}{
		"privateKey": testKey,
		"transfers": []map[string]interface{}{
			{"to": "0x1122334455667788991122334455667788991122", "amount": "1"},
			{"to": "0x1122334455667788991122334455667788991122", "amount": "2"},
		},
	})
	m := result(t, resp)

	// Both broadcasts fail but the batch itself succeeds with accounting
	assert.Equal(t, float64(2), m["totalOperations"])
	assert.Equal(t, float64(0), m["successful"])
	assert.Equal(t, float64(2), m["failed"])

	results, ok := m["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 2)
	entry := results[0].(map[string]interface{})
	assert.Equal(t, false, entry["success"])
	assert.Contains(t, entry["error"], "insufficient funds")
}

func TestBatchTransferStopOnError(t *testing.T) {
	fake := newFakeChain()
	fake.sendErr = errors.New("insufficient funds")
	server := newTestServer(t, fake)

	resp := call(t, server, "batchTransfer", map[string]interface{}{
		"privateKey":      testKey,
		"continueOnError": false,
		"transfers": []map[string]interface{}{
			{"to": "0x1122334455667788991122334455667788991122", "amount": "1"},
			{"to": "0x1122334455667788991122334455667788991122", "amount": "2"},
			{"to": "0x1122334455667788991122334455667788991122", "amount": "3"},
		},
	})
	m := result(t, resp)

	assert.Equal(t, float64(3), m["totalOperations"])
	assert.Equal(t, float64(1), m["failed"])
	assert.Equal(t, true, m["stopped"])

	results := m["results"].([]interface{})
	assert.Len(t, results, 1)
}

func TestBatchTransferMalformedEntry(t *testing.T) {
	fake := newFakeChain()
	server := newTestServer(t, fake)

	resp := call(t, server, "batchTransfer", map[string]interface{}{
		"privateKey": testKey,
		"transfers": []map[string]interface{}{
			{"to": "0x1122334455667788991122334455667788991122", "amount": "1"},
			{"to": "not-an-address", "amount": "2"},
		},
	})
	m := result(t, resp)

	// The malformed entry fails in place without rejecting the batch
	assert.Equal(t, float64(2), m["totalOperations"])
	assert.Equal(t, float64(1), m["successful"])
	assert.Equal(t, float64(1), m["failed"])
	require.Len(t, fake.sent, 1)
}

func TestBatchTransferEmpty(t *testing.T) {
	server := newTestServer(t, newFakeChain())

	resp := call(t, server, "batchTransfer", map[string]interface{}{
		"privateKey": testKey,
		"transfers":  []map[string]interface{}{},
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)
}

func TestSendRawTransaction(t *testing.T) {
	server := newTestServer(t, newFakeChain())

	resp := call(t, server, "sendRawTransaction", map[string]interface{}{
		"signedTx": "0xf86b808504a817c800825208",
	})
	m := result(t, resp)
	assert.NotEmpty(t, m["transactionHash"])
}

func TestMonitorTransactionConfirmed(t *testing.T) {
	fake := newFakeChain()
	fake.head = 100
	hash := common.HexToHash("0xmonitored")
	fake.receipts[hash] = testutil.NewTestReceipt(hash, 95, 1)
	server := newTestServer(t, fake)

	resp := call(t, server, "monitorTransaction", map[string]interface{}{
		"hash":           hash.Hex(),
		"confirmations":  3,
		"timeoutSeconds": 5,
	})
	m := result(t, resp)

	assert.Equal(t, "confirmed", m["status"])
	assert.Equal(t, float64(95), m["blockNumber"])
	assert.Equal(t, float64(6), m["confirmations"])
}

func TestMonitorTransactionTimeout(t *testing.T) {
	fake := newFakeChain()
	server := newTestServer(t, fake)

	resp := call(t, server, "monitorTransaction", map[string]interface{}{
		"hash":           common.HexToHash("0x404").Hex(),
		"timeoutSeconds": 1,
	})
	m := result(t, resp)
	assert.Equal(t, "timeout", m["status"])
}
