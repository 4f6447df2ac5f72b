package jsonrpc

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vitalspace/somnia-mcp/pkg/batch"
	"github.com/vitalspace/somnia-mcp/pkg/chain"
	"github.com/vitalspace/somnia-mcp/pkg/contract"
	"github.com/vitalspace/somnia-mcp/pkg/monitor"
	"github.com/vitalspace/somnia-mcp/pkg/wallet"
)

// sender builds a request-scoped transaction sender from the privateKey
// parameter. The key never outlives the request.
func (h *Handler) sender(network *chain.Network, client ChainClient, privateKey string) (*wallet.Sender, *Error) {
	signer, err := wallet.NewSigner(privateKey, new(big.Int).SetUint64(network.ChainID))
	if err != nil {
		return nil, mapError(err)
	}
	return wallet.NewSender(signer, client, h.logger), nil
}

// transfer sends native currency
func (h *Handler) transfer(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network    string `json:"network"`
		PrivateKey string `json:"privateKey"`
		To         string `json:"to"`
		Amount     string `json:"amount"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := parseAddress("to", p.To)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount("amount", p.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}

	network, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}
	sender, rpcErr := h.sender(network, client, p.PrivateKey)
	if rpcErr != nil {
		return nil, rpcErr
	}

	hash, err := sender.SendNative(ctx, to, amount)
	if err != nil {
		return nil, mapError(err)
	}

	return map[string]interface{}{
		"transactionHash": hash.Hex(),
		"from":            sender.Address().Hex(),
		"to":              to.Hex(),
		"amount":          amount.String(),
	}, nil
}

// writeContract sends a state-changing contract call
func (h *Handler) writeContract(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network    string        `json:"network"`
		PrivateKey string        `json:"privateKey"`
		Address    string        `json:"address"`
		ABI        string        `json:"abi"`
		Function   string        `json:"function"`
		Args       []interface{} `json:"args"`
		Value      string        `json:"value"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddress("address", p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if p.Function == "" {
		return nil, NewError(InvalidParams, "missing required parameter: function", nil)
	}

	call := &contract.Call{
		Address:  addr,
		ABI:      p.ABI,
		Function: p.Function,
		Args:     p.Args,
	}
	if p.Value != "" {
		value, rpcErr := parseAmount("value", p.Value)
		if rpcErr != nil {
			return nil, rpcErr
		}
		call.Value = value
	}

	network, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}
	sender, rpcErr := h.sender(network, client, p.PrivateKey)
	if rpcErr != nil {
		return nil, rpcErr
	}

	hash, err := sender.WriteContract(ctx, call)
	if err != nil {
		return nil, mapError(err)
	}

	return map[string]interface{}{
		"transactionHash": hash.Hex(),
		"from":            sender.Address().Hex(),
		"contract":        addr.Hex(),
		"function":        p.Function,
	}, nil
}

// deployContract sends a contract creation transaction
func (h *Handler) deployContract(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network    string        `json:"network"`
		PrivateKey string        `json:"privateKey"`
		ABI        string        `json:"abi"`
		Bytecode   string        `json:"bytecode"`
		Args       []interface{} `json:"args"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Bytecode == "" {
		return nil, NewError(InvalidParams, "missing required parameter: bytecode", nil)
	}

	network, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}
	sender, rpcErr := h.sender(network, client, p.PrivateKey)
	if rpcErr != nil {
		return nil, rpcErr
	}

	hash, deployed, err := sender.DeployContract(ctx, p.ABI, p.Bytecode, p.Args)
	if err != nil {
		return nil, mapError(err)
	}

	return map[string]interface{}{
		"transactionHash": hash.Hex(),
		"from":            sender.Address().Hex(),
		"contractAddress": deployed.Hex(),
	}, nil
}

// sendRawTransaction broadcasts a pre-signed transaction
func (h *Handler) sendRawTransaction(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network  string `json:"network"`
		SignedTx string `json:"signedTx"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.SignedTx == "" {
		return nil, NewError(InvalidParams, "missing required parameter: signedTx", nil)
	}

	raw, err := hexutil.Decode(p.SignedTx)
	if err != nil {
		return nil, NewError(InvalidParams, "invalid signedTx", err.Error())
	}

	_, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	hash, err := client.SendRawTransaction(ctx, raw)
	if err != nil {
		return nil, mapError(err)
	}

	return map[string]interface{}{"transactionHash": hash.Hex()}, nil
}

// batchOptions is the shared batch control parameter shape. continueOnError
// defaults to true.
type batchOptions struct {
	ContinueOnError *bool `json:"continueOnError"`
}

func (o batchOptions) continueOnError() bool {
	if o.ContinueOnError == nil {
		return true
	}
	return *o.ContinueOnError
}

// batchTransfer executes an ordered list of native transfers
func (h *Handler) batchTransfer(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network    string `json:"network"`
		PrivateKey string `json:"privateKey"`
		Transfers  []*struct {
			To     string `json:"to"`
			Amount string `json:"amount"`
		} `json:"transfers"`
		batchOptions
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	network, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}
	sender, rpcErr := h.sender(network, client, p.PrivateKey)
	if rpcErr != nil {
		return nil, rpcErr
	}

	// Malformed entries become synthetic failures inside the executor
	// instead of rejecting the whole batch
	ops := make([]*batch.Operation, len(p.Transfers))
	for i, t := range p.Transfers {
		if t == nil || !common.IsHexAddress(t.To) {
			continue
		}
		amount, ok := new(big.Int).SetString(t.Amount, 10)
		if !ok {
			continue
		}
		ops[i] = &batch.Operation{Transfer: &batch.NativeTransfer{
			To:     common.HexToAddress(t.To),
			Amount: amount,
		}}
	}

	summary, err := batch.NewExecutor(sender, h.logger).Execute(ctx, ops, p.continueOnError())
	if err != nil {
		return nil, mapError(err)
	}
	return renderSummary(summary), nil
}

// batchWrite executes an ordered list of contract writes
func (h *Handler) batchWrite(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network    string `json:"network"`
		PrivateKey string `json:"privateKey"`
		Calls      []*struct {
			Address  string        `json:"address"`
			ABI      string        `json:"abi"`
			Function string        `json:"function"`
			Args     []interface{} `json:"args"`
			Value    string        `json:"value"`
		} `json:"calls"`
		batchOptions
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	network, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}
	sender, rpcErr := h.sender(network, client, p.PrivateKey)
	if rpcErr != nil {
		return nil, rpcErr
	}

	ops := make([]*batch.Operation, len(p.Calls))
	for i, c := range p.Calls {
		if c == nil || !common.IsHexAddress(c.Address) || c.Function == "" {
			continue
		}
		call := &contract.Call{
			Address:  common.HexToAddress(c.Address),
			ABI:      c.ABI,
			Function: c.Function,
			Args:     c.Args,
		}
		if c.Value != "" {
			if value, ok := new(big.Int).SetString(c.Value, 10); ok {
				call.Value = value
			}
		}
		ops[i] = &batch.Operation{Write: call}
	}

	summary, err := batch.NewExecutor(sender, h.logger).Execute(ctx, ops, p.continueOnError())
	if err != nil {
		return nil, mapError(err)
	}
	return renderSummary(summary), nil
}

// monitorTransaction polls for a transaction's receipt until confirmed,
// reverted, or timed out
func (h *Handler) monitorTransaction(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network        string `json:"network"`
		Hash           string `json:"hash"`
		Confirmations  uint64 `json:"confirmations"`
		TimeoutSeconds uint64 `json:"timeoutSeconds"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	hash, rpcErr := parseHash("hash", p.Hash)
	if rpcErr != nil {
		return nil, rpcErr
	}

	_, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	opts := monitor.Options{Confirmations: p.Confirmations}
	if p.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(p.TimeoutSeconds) * time.Second
	}

	result, err := monitor.New(client, h.logger).Wait(ctx, hash, opts)
	if err != nil {
		return nil, mapError(err)
	}

	out := map[string]interface{}{
		"status":          string(result.Status),
		"transactionHash": result.TxHash.Hex(),
		"confirmations":   result.Confirmations,
	}
	if result.BlockNumber != 0 {
		out["blockNumber"] = result.BlockNumber
		out["gasUsed"] = result.GasUsed
	}
	if result.Fee != nil {
		out["fee"] = result.Fee.String()
	}
	return out, nil
}

// renderSummary flattens a batch summary into the response shape
func renderSummary(summary *batch.Summary) map[string]interface{} {
	results := make([]map[string]interface{}, len(summary.Results))
	for i, r := range summary.Results {
		entry := map[string]interface{}{
			"index":   r.Index,
			"success": r.Success,
		}
		if r.Success {
			entry["transactionHash"] = r.TxHash.Hex()
		} else {
			entry["error"] = r.Error
		}
		results[i] = entry
	}

	return map[string]interface{}{
		"totalOperations": summary.TotalOperations,
		"successful":      summary.Successful,
		"failed":          summary.Failed,
		"stopped":         summary.Stopped,
		"results":         results,
	}
}
