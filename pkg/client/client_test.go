package client

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRPCStub starts an HTTP JSON-RPC stub that answers each method with a
// canned result.
func newRPCStub(t *testing.T, results map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("stub failed to decode request: %v", err)
			return
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      json.RawMessage(req.ID),
		}
		if result, ok := results[req.Method]; ok {
			resp["result"] = result
		} else {
			resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("stub failed to encode response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newBatchStub answers eth_getBlockByNumber batch requests from a canned
// block set keyed by height. Unknown heights get a null result, the way a
// node answers for blocks it does not have.
func newBatchStub(t *testing.T, blocks map[uint64]json.RawMessage) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqs []struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
			t.Errorf("stub failed to decode batch request: %v", err)
			return
		}

		resps := make([]map[string]interface{}, len(reqs))
		for i, req := range reqs {
			resp := map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      json.RawMessage(req.ID),
			}
			if req.Method != "eth_getBlockByNumber" || len(req.Params) == 0 {
				resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
				resps[i] = resp
				continue
			}

			var numHex string
			if err := json.Unmarshal(req.Params[0], &numHex); err != nil {
				t.Errorf("stub failed to decode block number: %v", err)
				return
			}
			num, err := strconv.ParseUint(strings.TrimPrefix(numHex, "0x"), 16, 64)
			if err != nil {
				t.Errorf("stub got bad block number %q: %v", numHex, err)
				return
			}

			if raw, ok := blocks[num]; ok {
				resp["result"] = raw
			} else {
				resp["result"] = nil
			}
			resps[i] = resp
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resps); err != nil {
			t.Errorf("stub failed to encode batch response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// blockJSON renders a block the way eth_getBlockByNumber does: header fields
// at the top level with the transaction list alongside
func blockJSON(t *testing.T, height uint64, txs []*types.Transaction) json.RawMessage {
	t.Helper()
	header := &types.Header{
		Number:     big.NewInt(int64(height)),
		Difficulty: big.NewInt(1),
		GasLimit:   8000000,
		BaseFee:    big.NewInt(1),
	}
	raw, err := json.Marshal(header)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	fields["transactions"] = txs

	out, err := json.Marshal(fields)
	require.NoError(t, err)
	return out
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(&Config{})
	assert.Error(t, err)
}

func TestBlockNumber(t *testing.T) {
	srv := newRPCStub(t, map[string]interface{}{
		"eth_blockNumber": "0x10",
	})

	c, err := NewClient(&Config{Endpoint: srv.URL})
	require.NoError(t, err)
	defer c.Close()

	num, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(16), num)
}

func TestChainID(t *testing.T) {
	srv := newRPCStub(t, map[string]interface{}{
		"eth_chainId": "0x13a7", // 5031
	})

	c, err := NewClient(&Config{Endpoint: srv.URL})
	require.NoError(t, err)
	defer c.Close()

	id, err := c.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5031), id.Uint64())
}

func TestBlockNumberRPCError(t *testing.T) {
	srv := newRPCStub(t, map[string]interface{}{})

	c, err := NewClient(&Config{Endpoint: srv.URL})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.BlockNumber(context.Background())
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	srv := newRPCStub(t, map[string]interface{}{
		"eth_chainId": "0x13a7",
	})

	c, err := NewClient(&Config{Endpoint: srv.URL})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, srv.URL, c.Endpoint())
}

func TestPingUnresponsiveEndpoint(t *testing.T) {
	srv := newRPCStub(t, map[string]interface{}{})

	c, err := NewClient(&Config{Endpoint: srv.URL})
	require.NoError(t, err)
	defer c.Close()

	assert.Error(t, c.Ping(context.Background()))
}

func TestBatchGetBlocks(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	to := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	tx, err := types.SignNewTx(key, types.LatestSignerForChainID(big.NewInt(5031)), &types.LegacyTx{
		Nonce:    0,
		To:       &to,
		Value:    big.NewInt(700),
		Gas:      21000,
		GasPrice: big.NewInt(1),
	})
	require.NoError(t, err)

	srv := newBatchStub(t, map[uint64]json.RawMessage{
		5: blockJSON(t, 5, []*types.Transaction{tx}),
		7: blockJSON(t, 7, nil),
	})

	c, err := NewClient(&Config{Endpoint: srv.URL})
	require.NoError(t, err)
	defer c.Close()

	blocks, err := c.BatchGetBlocks(context.Background(), []uint64{5, 6, 7})
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	require.NotNil(t, blocks[0])
	assert.Equal(t, uint64(5), blocks[0].NumberU64())
	require.Len(t, blocks[0].Transactions(), 1)
	assert.Equal(t, big.NewInt(700), blocks[0].Transactions()[0].Value())

	// Height 6 is unknown to the node and must come back nil, not fail the batch
	assert.Nil(t, blocks[1])

	require.NotNil(t, blocks[2])
	assert.Equal(t, uint64(7), blocks[2].NumberU64())
	assert.Empty(t, blocks[2].Transactions())
}

func TestBatchGetBlocksEmpty(t *testing.T) {
	srv := newRPCStub(t, map[string]interface{}{})

	c, err := NewClient(&Config{Endpoint: srv.URL})
	require.NoError(t, err)
	defer c.Close()

	blocks, err := c.BatchGetBlocks(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, blocks)
}

func TestRateLimiterHonorsContext(t *testing.T) {
	srv := newRPCStub(t, map[string]interface{}{
		"eth_blockNumber": "0x1",
	})

	// One request per hour with no burst: the second call must block until
	// the context expires.
	c, err := NewClient(&Config{
		Endpoint:      srv.URL,
		RatePerSecond: 1.0 / 3600.0,
		RateBurst:     1,
	})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.BlockNumber(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.BlockNumber(ctx)
	assert.Error(t, err)
}
