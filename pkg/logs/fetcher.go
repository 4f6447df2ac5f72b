// Package logs fetches event logs across arbitrarily large block ranges by
// chunking queries around the provider's per-query block-span limit.
package logs

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
)

// ErrInvalidRange is returned when fromBlock is greater than toBlock
var ErrInvalidRange = errors.New("invalid block range: fromBlock is after toBlock")

// Reader is the chain surface the fetcher needs
type Reader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Range is an inclusive block range
type Range struct {
	From uint64
	To   uint64
}

// Span returns toBlock - fromBlock
func (r Range) Span() uint64 {
	return r.To - r.From
}

// Query describes a log fetch request. FromBlock and ToBlock are optional;
// missing bounds are resolved against the latest block number observed at
// call time, using Window as the lookback.
type Query struct {
	Address   common.Address
	Topics    [][]common.Hash
	FromBlock *uint64
	ToBlock   *uint64

	// Window is the default lookback (in blocks) when FromBlock is not given.
	// Zero means constants.DefaultEventWindow.
	Window uint64
}

// Log is the simplified log shape returned to callers
type Log struct {
	Address          string   `json:"address"`
	Topics           []string `json:"topics"`
	Data             string   `json:"data"`
	BlockNumber      uint64   `json:"blockNumber"`
	BlockHash        string   `json:"blockHash"`
	TransactionHash  string   `json:"transactionHash"`
	TransactionIndex uint     `json:"transactionIndex"`
	LogIndex         uint     `json:"logIndex"`
	Removed          bool     `json:"removed"`
}

// Result carries the fetched logs plus the partial-completion accounting.
// A failed chunk is skipped and surfaced here as a warning, never as an error.
type Result struct {
	Logs         []Log    `json:"logs"`
	FromBlock    uint64   `json:"fromBlock"`
	ToBlock      uint64   `json:"toBlock"`
	ChunksTotal  int      `json:"chunksTotal"`
	ChunksFailed int      `json:"chunksFailed"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Fetcher retrieves logs for an address across a block range, splitting into
// provider-safe sub-ranges
type Fetcher struct {
	reader  Reader
	logger  *zap.Logger
	maxSpan uint64
}

// NewFetcher creates a fetcher. maxSpan zero means constants.MaxBlockSpan.
func NewFetcher(reader Reader, logger *zap.Logger, maxSpan uint64) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSpan == 0 {
		maxSpan = constants.MaxBlockSpan
	}
	return &Fetcher{
		reader:  reader,
		logger:  logger,
		maxSpan: maxSpan,
	}
}

// SplitRange splits [from, to] into consecutive sub-ranges whose span never
// exceeds maxSpan. The sub-ranges are contiguous, non-overlapping, and cover
// the input exactly once; the last one may be shorter.
func SplitRange(from, to, maxSpan uint64) []Range {
	if from > to {
		return nil
	}
	if maxSpan == 0 {
		return []Range{{From: from, To: to}}
	}

	var ranges []Range
	for start := from; ; {
		end := to
		if to-start > maxSpan {
			end = start + maxSpan
		}
		ranges = append(ranges, Range{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}
	return ranges
}

// ResolveRange fills in missing bounds from the latest block number. The
// default range is [latest-window, latest], clamped at genesis.
func (f *Fetcher) ResolveRange(ctx context.Context, q *Query) (Range, error) {
	window := q.Window
	if window == 0 {
		window = constants.DefaultEventWindow
	}

	var latest uint64
	if q.FromBlock == nil || q.ToBlock == nil {
		var err error
		latest, err = f.reader.BlockNumber(ctx)
		if err != nil {
			return Range{}, fmt.Errorf("failed to resolve block range: %w", err)
		}
	}

	to := latest
	if q.ToBlock != nil {
		to = *q.ToBlock
	}

	var from uint64
	if q.FromBlock != nil {
		from = *q.FromBlock
	} else if to > window {
		from = to - window
	}

	if from > to {
		return Range{}, fmt.Errorf("%w: %d > %d", ErrInvalidRange, from, to)
	}

	return Range{From: from, To: to}, nil
}

// Fetch retrieves all logs matching the query. Ranges wider than the provider
// limit are split and queried sequentially; a sub-range failure is logged,
// counted, and skipped so a partial chunk failure never fails the whole fetch.
func (f *Fetcher) Fetch(ctx context.Context, q *Query) (*Result, error) {
	rng, err := f.ResolveRange(ctx, q)
	if err != nil {
		return nil, err
	}

	chunks := SplitRange(rng.From, rng.To, f.maxSpan)
	result := &Result{
		Logs:        []Log{},
		FromBlock:   rng.From,
		ToBlock:     rng.To,
		ChunksTotal: len(chunks),
	}

	for _, chunk := range chunks {
		filter := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(chunk.From),
			ToBlock:   new(big.Int).SetUint64(chunk.To),
			Topics:    q.Topics,
		}
		if q.Address != (common.Address{}) {
			filter.Addresses = []common.Address{q.Address}
		}

		raw, err := f.reader.FilterLogs(ctx, filter)
		if err != nil {
			result.ChunksFailed++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("skipped blocks %d-%d: %v", chunk.From, chunk.To, err))
			chunksSkipped.Inc()
			f.logger.Warn("log chunk query failed, skipping",
				zap.Uint64("from_block", chunk.From),
				zap.Uint64("to_block", chunk.To),
				zap.Error(err))
			continue
		}

		for i := range raw {
			result.Logs = append(result.Logs, simplify(&raw[i]))
		}
		logsFetched.Add(float64(len(raw)))
	}

	f.logger.Debug("log fetch complete",
		zap.Uint64("from_block", rng.From),
		zap.Uint64("to_block", rng.To),
		zap.Int("chunks", result.ChunksTotal),
		zap.Int("chunks_failed", result.ChunksFailed),
		zap.Int("logs", len(result.Logs)))

	return result, nil
}

// simplify converts a go-ethereum log into the flat response shape with
// numeric block/index fields as native integers
func simplify(l *types.Log) Log {
	topics := make([]string, len(l.Topics))
	for i, t := range l.Topics {
		topics[i] = t.Hex()
	}
	return Log{
		Address:          l.Address.Hex(),
		Topics:           topics,
		Data:             "0x" + common.Bytes2Hex(l.Data),
		BlockNumber:      l.BlockNumber,
		BlockHash:        l.BlockHash.Hex(),
		TransactionHash:  l.TxHash.Hex(),
		TransactionIndex: l.TxIndex,
		LogIndex:         l.Index,
		Removed:          l.Removed,
	}
}
