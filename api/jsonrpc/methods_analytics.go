package jsonrpc

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitalspace/somnia-mcp/internal/constants"
	"github.com/vitalspace/somnia-mcp/pkg/analytics"
	"github.com/vitalspace/somnia-mcp/pkg/logs"
)

// transferTopics is the topic filter selecting ERC-20 Transfer events
var transferTopics = [][]common.Hash{{common.HexToHash(analytics.TransferTopic)}}

// rangeParams is the shared block-range parameter shape
type rangeParams struct {
	FromBlock *uint64 `json:"fromBlock"`
	ToBlock   *uint64 `json:"toBlock"`
}

// resolveRange fills missing bounds against the current head with the given
// lookback window
func resolveRange(ctx context.Context, client ChainClient, p rangeParams, window uint64) (uint64, uint64, error) {
	fetcher := logs.NewFetcher(client, nil, constants.MaxBlockSpan)
	r, err := fetcher.ResolveRange(ctx, &logs.Query{
		FromBlock: p.FromBlock,
		ToBlock:   p.ToBlock,
		Window:    window,
	})
	if err != nil {
		return 0, 0, err
	}
	return r.From, r.To, nil
}

// getTopTokenHolders reconstructs token balances from Transfer events over a
// block window and ranks the largest holders. The window bounds make this an
// approximation of the full holder set.
func (h *Handler) getTopTokenHolders(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network string `json:"network"`
		Token   string `json:"token"`
		Limit   int    `json:"limit"`
		rangeParams
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	tokenAddr, rpcErr := parseAddress("token", p.Token)
	if rpcErr != nil {
		return nil, rpcErr
	}

	limit := p.Limit
	if limit == 0 {
		limit = constants.DefaultHolderLimit
	}
	if err := analytics.ValidateLimit(limit, constants.MinHolderLimit, constants.MaxTokenHolderLimit); err != nil {
		return nil, mapError(err)
	}

	network, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	fetcher := logs.NewFetcher(client, h.logger, constants.MaxBlockSpan)
	fetched, err := fetcher.Fetch(ctx, &logs.Query{
		Address:   tokenAddr,
		Topics:    transferTopics,
		FromBlock: p.FromBlock,
		ToBlock:   p.ToBlock,
		Window:    constants.DefaultHolderWindow,
	})
	if err != nil {
		return nil, mapError(err)
	}

	agg := analytics.AggregateTransfers(fetched.Logs, h.logger)

	decimals := constants.DefaultTokenDecimals
	var supply *big.Int
	if meta, err := h.tokenService(network, client).Metadata(ctx, tokenAddr); err == nil {
		decimals = int(meta.Decimals)
		supply = meta.TotalSupply
	}

	ranking := analytics.RankHolders(agg.Ledger, limit, supply, decimals)

	warnings := append(fetched.Warnings, agg.Warnings...)
	return map[string]interface{}{
		"token":         tokenAddr.Hex(),
		"holders":       ranking.Holders,
		"totalHolders":  ranking.TotalHolders,
		"transferCount": agg.TransferCount,
		"fromBlock":     fetched.FromBlock,
		"toBlock":       fetched.ToBlock,
		"warnings":      warnings,
	}, nil
}

// getTopNativeHolders reconstructs native balances from transaction value
// flows over a block window and ranks the largest recipients
func (h *Handler) getTopNativeHolders(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network string `json:"network"`
		Limit   int    `json:"limit"`
		rangeParams
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	limit := p.Limit
	if limit == 0 {
		limit = constants.DefaultHolderLimit
	}
	if err := analytics.ValidateLimit(limit, constants.MinHolderLimit, constants.MaxNativeHolderLimit); err != nil {
		return nil, mapError(err)
	}

	network, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	from, to, err := resolveRange(ctx, client, p.rangeParams, constants.DefaultEventWindow)
	if err != nil {
		return nil, mapError(err)
	}

	calc := analytics.NewVolumeCalculator(client, h.logger)
	flows, err := calc.NativeFlows(ctx, new(big.Int).SetUint64(network.ChainID), from, to)
	if err != nil {
		return nil, mapError(err)
	}

	ranking := analytics.RankHolders(flows.Ledger, limit, nil, network.NativeDecimals)

	return map[string]interface{}{
		"holders":       ranking.Holders,
		"totalHolders":  ranking.TotalHolders,
		"transferCount": flows.TransferCount,
		"fromBlock":     from,
		"toBlock":       to,
		"symbol":        network.NativeSymbol,
		"warnings":      flows.Warnings,
	}, nil
}

// getTransactionVolume sums native value moved over a block range
func (h *Handler) getTransactionVolume(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network string `json:"network"`
		rangeParams
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	network, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	from, to, err := resolveRange(ctx, client, p.rangeParams, constants.DefaultEventWindow)
	if err != nil {
		return nil, mapError(err)
	}

	calc := analytics.NewVolumeCalculator(client, h.logger)
	result, err := calc.TransactionVolume(ctx, from, to)
	if err != nil {
		return nil, mapError(err)
	}

	return map[string]interface{}{
		"fromBlock":        from,
		"toBlock":          to,
		"totalValue":       result.TotalValue.String(),
		"formatted":        analytics.FormatUnits(result.TotalValue, network.NativeDecimals),
		"symbol":           network.NativeSymbol,
		"transactionCount": result.TransactionCount,
		"blocksProcessed":  result.BlocksProcessed,
		"blocksFailed":     result.BlocksFailed,
		"warnings":         result.Warnings,
	}, nil
}

// getERC20TransactionVolume sums token value moved via Transfer events over
// a block range
func (h *Handler) getERC20TransactionVolume(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network string `json:"network"`
		Token   string `json:"token"`
		rangeParams
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	tokenAddr, rpcErr := parseAddress("token", p.Token)
	if rpcErr != nil {
		return nil, rpcErr
	}

	network, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	fetcher := logs.NewFetcher(client, h.logger, constants.MaxBlockSpan)
	fetched, err := fetcher.Fetch(ctx, &logs.Query{
		Address:   tokenAddr,
		Topics:    transferTopics,
		FromBlock: p.FromBlock,
		ToBlock:   p.ToBlock,
		Window:    constants.DefaultEventWindow,
	})
	if err != nil {
		return nil, mapError(err)
	}

	agg := analytics.AggregateTransfers(fetched.Logs, h.logger)

	result := map[string]interface{}{
		"token":         tokenAddr.Hex(),
		"fromBlock":     fetched.FromBlock,
		"toBlock":       fetched.ToBlock,
		"totalValue":    agg.TotalValue.String(),
		"transferCount": agg.TransferCount,
		"skippedLogs":   agg.SkippedLogs,
		"warnings":      append(fetched.Warnings, agg.Warnings...),
	}
	if meta, err := h.tokenService(network, client).Metadata(ctx, tokenAddr); err == nil {
		result["formatted"] = analytics.FormatUnits(agg.TotalValue, int(meta.Decimals))
		result["symbol"] = meta.Symbol
	}
	return result, nil
}

// getTransactionFee reports the actual fee paid by a mined transaction
func (h *Handler) getTransactionFee(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
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

	network, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	fee, err := analytics.TransactionFee(ctx, client, hash)
	if err != nil {
		return nil, mapError(err)
	}

	return map[string]interface{}{
		"transactionHash":   hash.Hex(),
		"blockNumber":       fee.BlockNumber,
		"gasUsed":           fee.GasUsed,
		"effectiveGasPrice": fee.EffectiveGasPrice.String(),
		"fee":               fee.Fee.String(),
		"formatted":         analytics.FormatUnits(fee.Fee, network.NativeDecimals),
		"symbol":            network.NativeSymbol,
		"status":            fee.Status,
	}, nil
}
