package analytics

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/vitalspace/somnia-mcp/internal/constants"
	"github.com/vitalspace/somnia-mcp/pkg/logs"
)

var (
	// ErrRangeTooLarge is returned when a volume query spans more blocks
	// than the calculator is willing to walk
	ErrRangeTooLarge = errors.New("block range too large")

	// ErrReceiptNotFound is returned when a transaction has no receipt yet
	// (unmined or unknown hash)
	ErrReceiptNotFound = errors.New("transaction receipt not found")
)

// BlockReader is the chain surface the volume calculators need
type BlockReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockByNumber(ctx context.Context, number uint64) (*types.Block, error)
}

// BatchBlockReader is implemented by transports that can retrieve several
// blocks in one round trip. The calculators use it when available and fall
// back to per-block fetches otherwise.
type BatchBlockReader interface {
	BatchGetBlocks(ctx context.Context, numbers []uint64) ([]*types.Block, error)
}

// ReceiptReader fetches transaction receipts
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// VolumeResult is the outcome of a native transaction volume query
type VolumeResult struct {
	FromBlock        uint64   `json:"fromBlock"`
	ToBlock          uint64   `json:"toBlock"`
	TotalValue       *big.Int `json:"-"`
	TransactionCount int      `json:"transactionCount"`
	BlocksProcessed  int      `json:"blocksProcessed"`
	BlocksFailed     int      `json:"blocksFailed"`
	Warnings         []string `json:"warnings,omitempty"`
}

// NativeFlowResult is the outcome of folding native value transfers into a
// balance ledger
type NativeFlowResult struct {
	Ledger          *Ledger
	FromBlock       uint64
	ToBlock         uint64
	TransferCount   int
	BlocksProcessed int
	BlocksFailed    int
	Warnings        []string
}

// VolumeCalculator walks block ranges and folds per-transaction numeric
// fields into totals. All iteration is strictly sequential.
type VolumeCalculator struct {
	reader BlockReader
	logger *zap.Logger
}

// NewVolumeCalculator creates a volume calculator
func NewVolumeCalculator(reader BlockReader, logger *zap.Logger) *VolumeCalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VolumeCalculator{reader: reader, logger: logger}
}

// checkRange validates an inclusive block range against the walk cap
func checkRange(from, to uint64) error {
	if from > to {
		return fmt.Errorf("%w: %d > %d", logs.ErrInvalidRange, from, to)
	}
	if to-from > constants.MaxVolumeBlockSpan {
		return fmt.Errorf("%w: %d blocks (max %d)",
			ErrRangeTooLarge, to-from+1, constants.MaxVolumeBlockSpan)
	}
	return nil
}

// fetchRange retrieves [from, to] inclusive, one batched request when the
// transport supports it, per-block otherwise. A nil entry marks a block that
// could not be retrieved; reasons holds the matching warning text.
func (c *VolumeCalculator) fetchRange(ctx context.Context, from, to uint64) (blocks []*types.Block, reasons []string) {
	count := int(to - from + 1)
	reasons = make([]string, count)

	if batcher, ok := c.reader.(BatchBlockReader); ok {
		numbers := make([]uint64, count)
		for i := range numbers {
			numbers[i] = from + uint64(i)
		}
		batched, err := batcher.BatchGetBlocks(ctx, numbers)
		if err == nil && len(batched) == count {
			for i, block := range batched {
				if block == nil {
					reasons[i] = "not returned by node"
				}
			}
			return batched, reasons
		}
		c.logger.Warn("batch block fetch failed, falling back to sequential",
			zap.Error(err))
	}

	blocks = make([]*types.Block, count)
	for i := range blocks {
		number := from + uint64(i)
		block, err := c.reader.BlockByNumber(ctx, number)
		if err != nil {
			reasons[i] = err.Error()
			c.logger.Warn("failed to fetch block, skipping",
				zap.Uint64("block_number", number),
				zap.Error(err))
			continue
		}
		blocks[i] = block
	}
	return blocks, reasons
}

// TransactionVolume retrieves every block in [from, to] with full transaction
// bodies and sums transaction values. A single block's retrieval failure is
// logged and skipped, never aborting the whole range.
func (c *VolumeCalculator) TransactionVolume(ctx context.Context, from, to uint64) (*VolumeResult, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}

	result := &VolumeResult{
		FromBlock:  from,
		ToBlock:    to,
		TotalValue: new(big.Int),
	}

	blocks, reasons := c.fetchRange(ctx, from, to)
	for i, block := range blocks {
		if block == nil {
			result.BlocksFailed++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("skipped block %d: %s", from+uint64(i), reasons[i]))
			continue
		}

		for _, tx := range block.Transactions() {
			result.TotalValue.Add(result.TotalValue, tx.Value())
			result.TransactionCount++
		}
		result.BlocksProcessed++
		blocksProcessed.Inc()
	}

	return result, nil
}

// NativeFlows folds native value transfers in [from, to] into a balance
// ledger: each transaction debits its sender and credits its recipient.
// Contract creations (nil recipient) only debit. The same windowed
// approximation caveat as the token ledger applies.
func (c *VolumeCalculator) NativeFlows(ctx context.Context, chainID *big.Int, from, to uint64) (*NativeFlowResult, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}

	signer := types.LatestSignerForChainID(chainID)
	result := &NativeFlowResult{
		Ledger:    NewLedger(),
		FromBlock: from,
		ToBlock:   to,
	}

	blocks, reasons := c.fetchRange(ctx, from, to)
	for i, block := range blocks {
		if block == nil {
			result.BlocksFailed++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("skipped block %d: %s", from+uint64(i), reasons[i]))
			continue
		}

		for _, tx := range block.Transactions() {
			if tx.Value().Sign() == 0 {
				continue
			}

			sender, err := types.Sender(signer, tx)
			if err != nil {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("skipped tx %s: cannot recover sender: %v", tx.Hash().Hex(), err))
				continue
			}

			result.Ledger.Debit(sender.Hex(), tx.Value())
			if to := tx.To(); to != nil {
				result.Ledger.Credit(to.Hex(), tx.Value())
			}
			result.TransferCount++
		}
		result.BlocksProcessed++
		blocksProcessed.Inc()
	}

	return result, nil
}

// FeeResult is the fee breakdown of a mined transaction
type FeeResult struct {
	TxHash            string   `json:"transactionHash"`
	GasUsed           uint64   `json:"gasUsed"`
	EffectiveGasPrice *big.Int `json:"-"`
	Fee               *big.Int `json:"-"`
	Status            uint64   `json:"status"`
	BlockNumber       uint64   `json:"blockNumber"`
}

// TransactionFee computes gasUsed x effectiveGasPrice from a transaction's
// receipt. Returns ErrReceiptNotFound when the transaction is unmined or the
// hash is unknown.
func TransactionFee(ctx context.Context, reader ReceiptReader, hash common.Hash) (*FeeResult, error) {
	receipt, err := reader.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("%w: %s", ErrReceiptNotFound, hash.Hex())
		}
		return nil, err
	}

	price := receipt.EffectiveGasPrice
	if price == nil {
		price = new(big.Int)
	}

	result := &FeeResult{
		TxHash:            hash.Hex(),
		GasUsed:           receipt.GasUsed,
		EffectiveGasPrice: new(big.Int).Set(price),
		Fee:               new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), price),
		Status:            receipt.Status,
	}
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return result, nil
}
