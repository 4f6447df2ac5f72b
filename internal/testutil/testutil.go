// Package testutil provides shared helpers for building chain fixtures in
// tests.
package testutil

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// NewTestLogger creates a logger wired to the test's output
func NewTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t)
}

// transferEventTopic is keccak256("Transfer(address,address,uint256)")
const transferEventTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// NewTransferLog builds an ERC-20 Transfer event log from token, from, to
// and value, encoded the way it appears on the wire
func NewTransferLog(token, from, to common.Address, value *big.Int, blockNumber uint64) types.Log {
	data := make([]byte, 32)
	value.FillBytes(data)

	return types.Log{
		Address: token,
		Topics: []common.Hash{
			common.HexToHash(transferEventTopic),
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:        data,
		BlockNumber: blockNumber,
	}
}

// NewTestBlock creates a block header-only fixture at the given height
func NewTestBlock(height uint64) *types.Block {
	header := &types.Header{
		Number:     big.NewInt(int64(height)),
		Time:       uint64(time.Now().Unix()),
		Difficulty: big.NewInt(1),
		GasLimit:   8000000,
	}
	return types.NewBlockWithHeader(header)
}

// NewTestReceipt creates a receipt fixture for the given transaction
func NewTestReceipt(txHash common.Hash, blockNumber uint64, status uint64) *types.Receipt {
	return &types.Receipt{
		Type:              types.LegacyTxType,
		Status:            status,
		TxHash:            txHash,
		BlockNumber:       big.NewInt(int64(blockNumber)),
		GasUsed:           21000,
		EffectiveGasPrice: big.NewInt(1),
	}
}
