package logs

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeReader records the sub-ranges queried and serves canned or failing
// responses per range.
type fakeReader struct {
	latest  uint64
	queries []Range
	logsFor func(from, to uint64) ([]types.Log, error)
}

func (f *fakeReader) BlockNumber(ctx context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeReader) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	from := q.FromBlock.Uint64()
	to := q.ToBlock.Uint64()
	f.queries = append(f.queries, Range{From: from, To: to})
	if f.logsFor != nil {
		return f.logsFor(from, to)
	}
	return nil, nil
}

func uintPtr(v uint64) *uint64 { return &v }

func TestSplitRange(t *testing.T) {
	tests := []struct {
		name    string
		from    uint64
		to      uint64
		maxSpan uint64
		want    []Range
	}{
		{
			name: "single range within limit",
			from: 0, to: 500, maxSpan: 1000,
			want: []Range{{0, 500}},
		},
		{
			name: "exactly at limit",
			from: 0, to: 1000, maxSpan: 1000,
			want: []Range{{0, 1000}},
		},
		{
			name: "split with short tail",
			from: 100, to: 2500, maxSpan: 1000,
			want: []Range{{100, 1100}, {1101, 2101}, {2102, 2500}},
		},
		{
			name: "single block",
			from: 7, to: 7, maxSpan: 1000,
			want: []Range{{7, 7}},
		},
		{
			name: "inverted range",
			from: 10, to: 5, maxSpan: 1000,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitRange(tt.from, tt.to, tt.maxSpan)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Sub-ranges must cover [from, to] exactly once: contiguous, no gaps, no
// overlaps, spans never above the limit.
func TestSplitRangeCoversExactly(t *testing.T) {
	cases := []struct{ from, to, span uint64 }{
		{0, 99999, 1000},
		{12345, 99999, 777},
		{1, 2, 1},
		{500, 500, 1000},
	}

	for _, c := range cases {
		ranges := SplitRange(c.from, c.to, c.span)
		require.NotEmpty(t, ranges)
		assert.Equal(t, c.from, ranges[0].From)
		assert.Equal(t, c.to, ranges[len(ranges)-1].To)
		for i, r := range ranges {
			assert.LessOrEqual(t, r.Span(), c.span)
			if i > 0 {
				assert.Equal(t, ranges[i-1].To+1, r.From)
			}
		}
	}
}

func TestResolveRangeDefaults(t *testing.T) {
	reader := &fakeReader{latest: 50000}
	f := NewFetcher(reader, zap.NewNop(), 0)

	// No bounds: latest-window .. latest
	rng, err := f.ResolveRange(context.Background(), &Query{})
	require.NoError(t, err)
	assert.Equal(t, Range{From: 49000, To: 50000}, rng)

	// Holder analytics window
	rng, err = f.ResolveRange(context.Background(), &Query{Window: 10000})
	require.NoError(t, err)
	assert.Equal(t, Range{From: 40000, To: 50000}, rng)

	// Explicit bounds pass through untouched
	rng, err = f.ResolveRange(context.Background(), &Query{
		FromBlock: uintPtr(100),
		ToBlock:   uintPtr(200),
	})
	require.NoError(t, err)
	assert.Equal(t, Range{From: 100, To: 200}, rng)
}

func TestResolveRangeClampsAtGenesis(t *testing.T) {
	reader := &fakeReader{latest: 400}
	f := NewFetcher(reader, zap.NewNop(), 0)

	rng, err := f.ResolveRange(context.Background(), &Query{})
	require.NoError(t, err)
	assert.Equal(t, Range{From: 0, To: 400}, rng)
}

func TestResolveRangeInvalid(t *testing.T) {
	reader := &fakeReader{latest: 50000}
	f := NewFetcher(reader, zap.NewNop(), 0)

	_, err := f.ResolveRange(context.Background(), &Query{
		FromBlock: uintPtr(300),
		ToBlock:   uintPtr(200),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRange))
}

func TestFetchChunksSequentially(t *testing.T) {
	reader := &fakeReader{
		latest: 0,
		logsFor: func(from, to uint64) ([]types.Log, error) {
			return []types.Log{{
				Address:     common.HexToAddress("0x1"),
				BlockNumber: from,
				Topics:      []common.Hash{common.HexToHash("0xaa")},
				Data:        []byte{0x01},
			}}, nil
		},
	}
	f := NewFetcher(reader, zap.NewNop(), 1000)

	result, err := f.Fetch(context.Background(), &Query{
		FromBlock: uintPtr(100),
		ToBlock:   uintPtr(2500),
	})
	require.NoError(t, err)

	// The scenario from the provider-limit contract
	assert.Equal(t, []Range{{100, 1100}, {1101, 2101}, {2102, 2500}}, reader.queries)
	assert.Equal(t, 3, result.ChunksTotal)
	assert.Equal(t, 0, result.ChunksFailed)
	require.Len(t, result.Logs, 3)
	// Per-chunk order preserved
	assert.Equal(t, uint64(100), result.Logs[0].BlockNumber)
	assert.Equal(t, uint64(1101), result.Logs[1].BlockNumber)
	assert.Equal(t, uint64(2102), result.Logs[2].BlockNumber)
}

func TestFetchSkipsFailedChunk(t *testing.T) {
	reader := &fakeReader{
		logsFor: func(from, to uint64) ([]types.Log, error) {
			if from == 1101 {
				return nil, errors.New("query returned more than 10000 results")
			}
			return []types.Log{{BlockNumber: from}}, nil
		},
	}
	f := NewFetcher(reader, zap.NewNop(), 1000)

	result, err := f.Fetch(context.Background(), &Query{
		FromBlock: uintPtr(100),
		ToBlock:   uintPtr(2500),
	})
	// Partial chunk failure is never a total failure
	require.NoError(t, err)
	assert.Equal(t, 3, result.ChunksTotal)
	assert.Equal(t, 1, result.ChunksFailed)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "1101-2101")
	require.Len(t, result.Logs, 2)
	assert.Equal(t, uint64(100), result.Logs[0].BlockNumber)
	assert.Equal(t, uint64(2102), result.Logs[1].BlockNumber)
}

func TestFetchSimplifiesLogs(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	topic := common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	reader := &fakeReader{
		logsFor: func(from, to uint64) ([]types.Log, error) {
			return []types.Log{{
				Address:     addr,
				Topics:      []common.Hash{topic},
				Data:        []byte{0xde, 0xad},
				BlockNumber: 42,
				TxHash:      common.HexToHash("0xbeef"),
				TxIndex:     3,
				Index:       7,
				Removed:     false,
			}}, nil
		},
	}
	f := NewFetcher(reader, zap.NewNop(), 1000)

	result, err := f.Fetch(context.Background(), &Query{
		Address:   addr,
		FromBlock: uintPtr(40),
		ToBlock:   uintPtr(50),
	})
	require.NoError(t, err)
	require.Len(t, result.Logs, 1)

	log := result.Logs[0]
	assert.Equal(t, addr.Hex(), log.Address)
	assert.Equal(t, []string{topic.Hex()}, log.Topics)
	assert.Equal(t, "0xdead", log.Data)
	assert.Equal(t, uint64(42), log.BlockNumber)
	assert.Equal(t, uint(3), log.TransactionIndex)
	assert.Equal(t, uint(7), log.LogIndex)
}
