// Package batch executes ordered sequences of write operations with
// per-operation outcome accounting. Each operation is attempted at most
// once; a failure is recorded, never retried, and only stops the sequence
// when the caller asked for stop-on-error.
package batch

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/vitalspace/somnia-mcp/pkg/contract"
)

// ErrEmptyBatch is returned when a batch contains no operations
var ErrEmptyBatch = errors.New("batch contains no operations")

// Sender is the write surface batches execute against
type Sender interface {
	SendNative(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error)
	WriteContract(ctx context.Context, call *contract.Call) (common.Hash, error)
}

// Operation is one unit of work in a batch. Exactly one of Transfer or
// Write must be set.
type Operation struct {
	Transfer *NativeTransfer
	Write    *contract.Call
}

// NativeTransfer moves native currency to a single recipient
type NativeTransfer struct {
	To     common.Address
	Amount *big.Int
}

// Result records the outcome of one operation, in submission order
type Result struct {
	Index   int         `json:"index"`
	Success bool        `json:"success"`
	TxHash  common.Hash `json:"txHash,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Summary aggregates a batch run. TotalOperations always reflects the
// submitted batch size, including operations never attempted after an
// early stop.
type Summary struct {
	TotalOperations int      `json:"totalOperations"`
	Successful      int      `json:"successful"`
	Failed          int      `json:"failed"`
	Results         []Result `json:"results"`
	Stopped         bool     `json:"stopped,omitempty"`
}

// Executor runs batches against a single sender
type Executor struct {
	sender Sender
	logger *zap.Logger
}

// NewExecutor creates a batch executor
func NewExecutor(sender Sender, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{sender: sender, logger: logger}
}

// Execute runs the operations in order. With continueOnError, every
// operation is attempted and failures become entries in the result list;
// without it, execution stops after the first failure and later
// operations are never attempted.
func (e *Executor) Execute(ctx context.Context, ops []*Operation, continueOnError bool) (*Summary, error) {
	if len(ops) == 0 {
		return nil, ErrEmptyBatch
	}

	summary := &Summary{
		TotalOperations: len(ops),
		Results:         make([]Result, 0, len(ops)),
	}

	for i, op := range ops {
		hash, err := e.run(ctx, op)
		if err != nil {
			summary.Failed++
			summary.Results = append(summary.Results, Result{
				Index: i,
				Error: err.Error(),
			})
			operationsFailed.Inc()
			e.logger.Warn("batch operation failed",
				zap.Int("index", i),
				zap.Error(err))

			if !continueOnError {
				summary.Stopped = true
				e.logger.Info("batch stopped on first failure",
					zap.Int("index", i),
					zap.Int("remaining", len(ops)-i-1))
				break
			}
			continue
		}

		summary.Successful++
		summary.Results = append(summary.Results, Result{
			Index:   i,
			Success: true,
			TxHash:  hash,
		})
		operationsExecuted.Inc()
	}

	e.logger.Info("batch complete",
		zap.Int("total", summary.TotalOperations),
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

// run dispatches one operation. Malformed operations fail locally without
// touching the network.
func (e *Executor) run(ctx context.Context, op *Operation) (common.Hash, error) {
	switch {
	case op == nil:
		return common.Hash{}, errors.New("operation is nil")
	case op.Transfer != nil && op.Write != nil:
		return common.Hash{}, errors.New("operation sets both transfer and write")
	case op.Transfer != nil:
		if op.Transfer.Amount == nil || op.Transfer.Amount.Sign() <= 0 {
			return common.Hash{}, fmt.Errorf("invalid transfer amount")
		}
		return e.sender.SendNative(ctx, op.Transfer.To, op.Transfer.Amount)
	case op.Write != nil:
		return e.sender.WriteContract(ctx, op.Write)
	default:
		return common.Hash{}, errors.New("operation sets neither transfer nor write")
	}
}
