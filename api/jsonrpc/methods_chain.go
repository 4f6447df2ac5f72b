package jsonrpc

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vitalspace/somnia-mcp/internal/constants"
	"github.com/vitalspace/somnia-mcp/pkg/analytics"
	"github.com/vitalspace/somnia-mcp/pkg/logs"
)

// listNetworks returns every registered network definition
func (h *Handler) listNetworks(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	return map[string]interface{}{
		"networks": h.networks.List(),
	}, nil
}

// getNetworkInfo returns one network's definition plus its current head
func (h *Handler) getNetworkInfo(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network string `json:"network"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	network, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	head, err := client.BlockNumber(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	return map[string]interface{}{
		"network":     network,
		"blockNumber": head,
	}, nil
}

// getBlockNumber returns the latest block number
func (h *Handler) getBlockNumber(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network string `json:"network"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	_, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	head, err := client.BlockNumber(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	return map[string]interface{}{"blockNumber": head}, nil
}

// getBlock returns a block by number or hash; with neither, the latest block
func (h *Handler) getBlock(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network string  `json:"network"`
		Number  *uint64 `json:"number"`
		Hash    string  `json:"hash"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	_, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var (
		block *types.Block
		err   error
	)
	switch {
	case p.Hash != "":
		hash, rpcErr := parseHash("hash", p.Hash)
		if rpcErr != nil {
			return nil, rpcErr
		}
		block, err = client.BlockByHash(ctx, hash)
	case p.Number != nil:
		block, err = client.BlockByNumber(ctx, *p.Number)
	default:
		var head uint64
		head, err = client.BlockNumber(ctx)
		if err == nil {
			block, err = client.BlockByNumber(ctx, head)
		}
	}
	if err != nil {
		return nil, mapError(err)
	}

	return renderBlock(block), nil
}

// getTransaction returns a transaction by hash
func (h *Handler) getTransaction(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network string `json:"network"`
		Hash    string `json:"hash"`
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

	tx, pending, err := client.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, mapError(err)
	}

	result := map[string]interface{}{
		"hash":     tx.Hash().Hex(),
		"nonce":    tx.Nonce(),
		"value":    tx.Value().String(),
		"gas":      tx.Gas(),
		"gasPrice": tx.GasPrice().String(),
		"data":     hexutil.Encode(tx.Data()),
		"pending":  pending,
	}
	if to := tx.To(); to != nil {
		result["to"] = to.Hex()
	}
	return result, nil
}

// getTransactionReceipt returns a mined transaction's receipt
func (h *Handler) getTransactionReceipt(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network string `json:"network"`
		Hash    string `json:"hash"`
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

	receipt, err := client.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, mapError(err)
	}

	result := map[string]interface{}{
		"transactionHash": receipt.TxHash.Hex(),
		"blockNumber":     receipt.BlockNumber.Uint64(),
		"status":          receipt.Status,
		"gasUsed":         receipt.GasUsed,
		"logCount":        len(receipt.Logs),
	}
	if receipt.EffectiveGasPrice != nil {
		result["effectiveGasPrice"] = receipt.EffectiveGasPrice.String()
	}
	if receipt.ContractAddress != (common.Address{}) {
		result["contractAddress"] = receipt.ContractAddress.Hex()
	}
	return result, nil
}

// getBalance returns the native balance of an address
func (h *Handler) getBalance(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network string `json:"network"`
		Address string `json:"address"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddress("address", p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	network, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	balance, err := client.BalanceAt(ctx, addr)
	if err != nil {
		return nil, mapError(err)
	}

	return map[string]interface{}{
		"address":   addr.Hex(),
		"balance":   balance.String(),
		"formatted": analytics.FormatUnits(balance, network.NativeDecimals),
		"symbol":    network.NativeSymbol,
	}, nil
}

// getLogs fetches event logs over a chunked block range
func (h *Handler) getLogs(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network   string   `json:"network"`
		Address   string   `json:"address"`
		Topics    []string `json:"topics"`
		FromBlock *uint64  `json:"fromBlock"`
		ToBlock   *uint64  `json:"toBlock"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddress("address", p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	_, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	topics := make([][]common.Hash, 0, len(p.Topics))
	for _, t := range p.Topics {
		if t == "" {
			topics = append(topics, nil)
			continue
		}
		topics = append(topics, []common.Hash{common.HexToHash(t)})
	}

	fetcher := logs.NewFetcher(client, h.logger, constants.MaxBlockSpan)
	result, err := fetcher.Fetch(ctx, &logs.Query{
		Address:   addr,
		Topics:    topics,
		FromBlock: p.FromBlock,
		ToBlock:   p.ToBlock,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return result, nil
}

// estimateGas estimates gas for a prospective transaction
func (h *Handler) estimateGas(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network string `json:"network"`
		From    string `json:"from"`
		To      string `json:"to"`
		Value   string `json:"value"`
		Data    string `json:"data"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	_, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	msg := ethereum.CallMsg{}
	if p.From != "" {
		from, rpcErr := parseAddress("from", p.From)
		if rpcErr != nil {
			return nil, rpcErr
		}
		msg.From = from
	}
	if p.To != "" {
		to, rpcErr := parseAddress("to", p.To)
		if rpcErr != nil {
			return nil, rpcErr
		}
		msg.To = &to
	}
	if p.Value != "" {
		value, rpcErr := parseAmount("value", p.Value)
		if rpcErr != nil {
			return nil, rpcErr
		}
		msg.Value = value
	}
	if p.Data != "" {
		data, err := hexutil.Decode(p.Data)
		if err != nil {
			return nil, NewError(InvalidParams, "invalid data", err.Error())
		}
		msg.Data = data
	}

	gas, err := client.EstimateGas(ctx, msg)
	if err != nil {
		return nil, mapError(err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	return map[string]interface{}{
		"gas":      gas,
		"gasPrice": gasPrice.String(),
	}, nil
}

// renderBlock flattens a block into the response shape
func renderBlock(block *types.Block) map[string]interface{} {
	return map[string]interface{}{
		"number":           block.NumberU64(),
		"hash":             block.Hash().Hex(),
		"parentHash":       block.ParentHash().Hex(),
		"timestamp":        block.Time(),
		"transactionCount": len(block.Transactions()),
		"gasUsed":          block.GasUsed(),
		"gasLimit":         block.GasLimit(),
		"miner":            block.Coinbase().Hex(),
	}
}
