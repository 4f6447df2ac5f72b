// Package monitor watches a broadcast transaction until it reaches the
// requested confirmation depth or a deadline passes. The chain is polled
// on a fixed interval; there is no subscription path.
package monitor

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/vitalspace/somnia-mcp/internal/constants"
)

// Status is the terminal state of a monitored transaction
type Status string

const (
	// StatusConfirmed means the transaction succeeded and reached the
	// requested confirmation depth
	StatusConfirmed Status = "confirmed"
	// StatusFailed means the transaction was mined but reverted
	StatusFailed Status = "failed"
	// StatusTimeout means the deadline passed before the transaction was
	// mined and confirmed
	StatusTimeout Status = "timeout"
)

// Reader is the chain surface needed to track a transaction
type Reader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Result describes the outcome of a watch
type Result struct {
	Status        Status      `json:"status"`
	TxHash        common.Hash `json:"txHash"`
	BlockNumber   uint64      `json:"blockNumber,omitempty"`
	GasUsed       uint64      `json:"gasUsed,omitempty"`
	Confirmations uint64      `json:"confirmations"`
	Fee           *big.Int    `json:"fee,omitempty"`
}

// Options tune a single watch. Zero values fall back to the defaults.
type Options struct {
	Confirmations uint64
	Timeout       time.Duration
	PollInterval  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Confirmations == 0 {
		o.Confirmations = constants.DefaultConfirmations
	}
	if o.Timeout == 0 {
		o.Timeout = constants.DefaultMonitorTimeout
	}
	if o.PollInterval == 0 {
		o.PollInterval = constants.ReceiptPollInterval
	}
	return o
}

// Monitor polls for transaction receipts
type Monitor struct {
	reader Reader
	logger *zap.Logger
}

// New creates a transaction monitor
func New(reader Reader, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{reader: reader, logger: logger}
}

// Wait polls until the transaction is confirmed, reverts, or the timeout
// elapses. A missing receipt is the expected pending state, never an error;
// timeout is reported as a result, not an error, so callers can distinguish
// "still pending" from a broken transport.
func (m *Monitor) Wait(ctx context.Context, hash common.Hash, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		result, done := m.check(ctx, hash, opts.Confirmations)
		if done {
			return result, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				m.logger.Info("transaction watch timed out",
					zap.String("hash", hash.Hex()),
					zap.Duration("timeout", opts.Timeout))
				return &Result{Status: StatusTimeout, TxHash: hash}, nil
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// check performs one poll round. done is false while the transaction is
// still pending or under-confirmed.
func (m *Monitor) check(ctx context.Context, hash common.Hash, confirmations uint64) (*Result, bool) {
	receipt, err := m.reader.TransactionReceipt(ctx, hash)
	if err != nil {
		if !errors.Is(err, ethereum.NotFound) {
			m.logger.Debug("receipt poll failed",
				zap.String("hash", hash.Hex()), zap.Error(err))
		}
		return nil, false
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return &Result{
			Status:      StatusFailed,
			TxHash:      hash,
			BlockNumber: receipt.BlockNumber.Uint64(),
			GasUsed:     receipt.GasUsed,
			Fee:         receiptFee(receipt),
		}, true
	}

	head, err := m.reader.BlockNumber(ctx)
	if err != nil {
		m.logger.Debug("head poll failed", zap.Error(err))
		return nil, false
	}

	mined := receipt.BlockNumber.Uint64()
	depth := head - mined + 1
	if head < mined {
		depth = 0
	}
	if depth < confirmations {
		return nil, false
	}

	return &Result{
		Status:        StatusConfirmed,
		TxHash:        hash,
		BlockNumber:   mined,
		GasUsed:       receipt.GasUsed,
		Confirmations: depth,
		Fee:           receiptFee(receipt),
	}, true
}

func receiptFee(receipt *types.Receipt) *big.Int {
	if receipt.EffectiveGasPrice == nil {
		return nil
	}
	return new(big.Int).Mul(
		new(big.Int).SetUint64(receipt.GasUsed),
		receipt.EffectiveGasPrice,
	)
}
