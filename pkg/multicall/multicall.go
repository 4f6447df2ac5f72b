// Package multicall aggregates many read-only contract calls into a single
// eth_call against the Multicall3 contract. Networks that expose the newer
// aggregate3 entrypoint get per-call failure isolation; older deployments
// fall back to aggregate, where any reverting call fails the whole batch.
package multicall

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Caller is the read surface aggregated calls execute through
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

// multicall3ABI is the subset of the Multicall3 interface this package uses
const multicall3ABI = `[
	{"inputs":[{"components":[{"name":"target","type":"address"},{"name":"callData","type":"bytes"}],"name":"calls","type":"tuple[]"}],"name":"aggregate","outputs":[{"name":"blockNumber","type":"uint256"},{"name":"returnData","type":"bytes[]"}],"stateMutability":"payable","type":"function"},
	{"inputs":[{"components":[{"name":"target","type":"address"},{"name":"allowFailure","type":"bool"},{"name":"callData","type":"bytes"}],"name":"calls","type":"tuple[]"}],"name":"aggregate3","outputs":[{"components":[{"name":"success","type":"bool"},{"name":"returnData","type":"bytes"}],"name":"returnData","type":"tuple[]"}],"stateMutability":"payable","type":"function"}
]`

// ErrEmptyBatch is returned when a multicall contains no calls
var ErrEmptyBatch = errors.New("multicall contains no calls")

// Request is one target/calldata pair. AllowFailure only takes effect on
// networks with aggregate3 support.
type Request struct {
	Target       common.Address
	CallData     []byte
	AllowFailure bool
}

// Response is the outcome of one aggregated call. ReturnData is opaque;
// decoding it is the caller's concern.
type Response struct {
	Success    bool   `json:"success"`
	ReturnData []byte `json:"returnData"`
}

// Result holds a whole multicall round trip. BlockNumber is only reported
// by the aggregate variant.
type Result struct {
	Method      string     `json:"method"`
	BlockNumber uint64     `json:"blockNumber,omitempty"`
	Responses   []Response `json:"responses"`
}

// Aggregator executes batched reads against one Multicall3 deployment
type Aggregator struct {
	parsed     abi.ABI
	address    common.Address
	aggregate3 bool
	logger     *zap.Logger
}

// New creates an aggregator for the given Multicall3 address. aggregate3
// selects the variant with per-call failure isolation.
func New(address common.Address, aggregate3 bool, logger *zap.Logger) (*Aggregator, error) {
	parsed, err := abi.JSON(strings.NewReader(multicall3ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse multicall ABI: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		parsed:     parsed,
		address:    address,
		aggregate3: aggregate3,
		logger:     logger,
	}, nil
}

// Call executes the batch in a single eth_call using the variant the
// aggregator was configured with
func (a *Aggregator) Call(ctx context.Context, caller Caller, reqs []Request) (*Result, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyBatch
	}
	if a.aggregate3 {
		return a.callAggregate3(ctx, caller, reqs)
	}
	return a.callAggregate(ctx, caller, reqs)
}

func (a *Aggregator) callAggregate(ctx context.Context, caller Caller, reqs []Request) (*Result, error) {
	type call struct {
		Target   common.Address
		CallData []byte
	}
	calls := make([]call, len(reqs))
	for i, r := range reqs {
		calls[i] = call{Target: r.Target, CallData: r.CallData}
	}

	input, err := a.parsed.Pack("aggregate", calls)
	if err != nil {
		return nil, fmt.Errorf("failed to pack aggregate: %w", err)
	}

	raw, err := a.execute(ctx, caller, input)
	if err != nil {
		return nil, err
	}

	out, err := a.parsed.Unpack("aggregate", raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack aggregate result: %w", err)
	}

	blockNumber := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	returnData := *abi.ConvertType(out[1], new([][]byte)).(*[][]byte)

	// aggregate is all-or-nothing: reaching this point means every call
	// succeeded
	responses := make([]Response, len(returnData))
	for i, data := range returnData {
		responses[i] = Response{Success: true, ReturnData: data}
	}

	return &Result{
		Method:      "aggregate",
		BlockNumber: blockNumber.Uint64(),
		Responses:   responses,
	}, nil
}

func (a *Aggregator) callAggregate3(ctx context.Context, caller Caller, reqs []Request) (*Result, error) {
	type call3 struct {
		Target       common.Address
		AllowFailure bool
		CallData     []byte
	}
	calls := make([]call3, len(reqs))
	for i, r := range reqs {
		calls[i] = call3{Target: r.Target, AllowFailure: r.AllowFailure, CallData: r.CallData}
	}

	input, err := a.parsed.Pack("aggregate3", calls)
	if err != nil {
		return nil, fmt.Errorf("failed to pack aggregate3: %w", err)
	}

	raw, err := a.execute(ctx, caller, input)
	if err != nil {
		return nil, err
	}

	out, err := a.parsed.Unpack("aggregate3", raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack aggregate3 result: %w", err)
	}

	decoded := *abi.ConvertType(out[0], new([]struct {
		Success    bool
		ReturnData []byte
	})).(*[]struct {
		Success    bool
		ReturnData []byte
	})

	responses := make([]Response, len(decoded))
	for i, entry := range decoded {
		responses[i] = Response{Success: entry.Success, ReturnData: entry.ReturnData}
		if !entry.Success {
			a.logger.Debug("aggregated call reverted",
				zap.Int("index", i),
				zap.String("target", reqs[i].Target.Hex()))
		}
	}

	return &Result{Method: "aggregate3", Responses: responses}, nil
}

func (a *Aggregator) execute(ctx context.Context, caller Caller, input []byte) ([]byte, error) {
	to := a.address
	raw, err := caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input})
	if err != nil {
		return nil, fmt.Errorf("multicall failed: %w", err)
	}
	return raw, nil
}
