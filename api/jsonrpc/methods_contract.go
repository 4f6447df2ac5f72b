package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vitalspace/somnia-mcp/pkg/analytics"
	"github.com/vitalspace/somnia-mcp/pkg/chain"
	"github.com/vitalspace/somnia-mcp/pkg/contract"
	"github.com/vitalspace/somnia-mcp/pkg/multicall"
)

// getTokenBalance returns an address's ERC-20 balance, formatted with the
// token's decimals
func (h *Handler) getTokenBalance(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network string `json:"network"`
		Token   string `json:"token"`
		Address string `json:"address"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	tokenAddr, rpcErr := parseAddress("token", p.Token)
	if rpcErr != nil {
		return nil, rpcErr
	}
	holder, rpcErr := parseAddress("address", p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	network, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}
	svc := h.tokenService(network, client)

	balance, err := svc.BalanceOf(ctx, tokenAddr, holder)
	if err != nil {
		return nil, mapError(err)
	}

	result := map[string]interface{}{
		"token":   tokenAddr.Hex(),
		"address": holder.Hex(),
		"balance": balance.String(),
	}

	// Metadata is a formatting convenience; its absence never fails the call
	if meta, err := svc.Metadata(ctx, tokenAddr); err == nil {
		result["formatted"] = analytics.FormatUnits(balance, int(meta.Decimals))
		result["symbol"] = meta.Symbol
	}
	return result, nil
}

// getTokenInfo returns ERC-20 metadata
func (h *Handler) getTokenInfo(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network string `json:"network"`
		Token   string `json:"token"`
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

	meta, err := h.tokenService(network, client).Metadata(ctx, tokenAddr)
	if err != nil {
		return nil, mapError(err)
	}

	result := map[string]interface{}{
		"address":  meta.Address.Hex(),
		"name":     meta.Name,
		"symbol":   meta.Symbol,
		"decimals": meta.Decimals,
	}
	if meta.TotalSupply != nil {
		result["totalSupply"] = meta.TotalSupply.String()
		result["totalSupplyFormatted"] = analytics.FormatUnits(meta.TotalSupply, int(meta.Decimals))
	}
	return result, nil
}

// readContract executes a read-only contract call and decodes the result
func (h *Handler) readContract(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network  string        `json:"network"`
		Address  string        `json:"address"`
		ABI      string        `json:"abi"`
		Function string        `json:"function"`
		Args     []interface{} `json:"args"`
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

	_, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	// Calling an address with no code would return empty data and fail in
	// Unpack with a confusing error, so reject it up front
	code, err := client.CodeAt(ctx, addr)
	if err != nil {
		return nil, mapError(err)
	}
	if len(code) == 0 {
		return nil, NewError(InvalidRequest,
			fmt.Sprintf("no contract code at %s", addr.Hex()), nil)
	}

	call := &contract.Call{
		Address:  addr,
		ABI:      p.ABI,
		Function: p.Function,
		Args:     p.Args,
	}

	data, err := call.Pack()
	if err != nil {
		return nil, NewError(InvalidParams, "invalid call", err.Error())
	}

	raw, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data})
	if err != nil {
		return nil, mapError(err)
	}

	values, err := call.Unpack(raw)
	if err != nil {
		return nil, mapError(err)
	}

	return map[string]interface{}{
		"function": p.Function,
		"values":   renderValues(values),
	}, nil
}

// multicall aggregates read calls through the network's multicall contract
func (h *Handler) multicall(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network string `json:"network"`
		Calls   []struct {
			Target       string        `json:"target"`
			CallData     string        `json:"callData"`
			ABI          string        `json:"abi"`
			Function     string        `json:"function"`
			Args         []interface{} `json:"args"`
			AllowFailure *bool         `json:"allowFailure"`
		} `json:"calls"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	network, client, rpcErr := h.resolve(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if !network.HasMulticall() {
		return nil, mapError(fmt.Errorf("network %s: %w", network.Identifier, chain.ErrNoMulticall))
	}

	reqs := make([]multicall.Request, 0, len(p.Calls))
	for i, c := range p.Calls {
		target, rpcErr := parseAddress(fmt.Sprintf("calls[%d].target", i), c.Target)
		if rpcErr != nil {
			return nil, rpcErr
		}

		var callData []byte
		switch {
		case c.CallData != "":
			data, err := hexutil.Decode(c.CallData)
			if err != nil {
				return nil, NewError(InvalidParams,
					fmt.Sprintf("calls[%d]: invalid callData", i), err.Error())
			}
			callData = data
		case c.Function != "":
			call := &contract.Call{ABI: c.ABI, Function: c.Function, Args: c.Args}
			data, err := call.Pack()
			if err != nil {
				return nil, NewError(InvalidParams,
					fmt.Sprintf("calls[%d]: %v", i, err), nil)
			}
			callData = data
		default:
			return nil, NewError(InvalidParams,
				fmt.Sprintf("calls[%d]: callData or function is required", i), nil)
		}

		allowFailure := true
		if c.AllowFailure != nil {
			allowFailure = *c.AllowFailure
		}
		reqs = append(reqs, multicall.Request{
			Target:       target,
			CallData:     callData,
			AllowFailure: allowFailure,
		})
	}

	agg, err := multicall.New(network.MulticallAddress, network.SupportsAggregate3, h.logger)
	if err != nil {
		return nil, mapError(err)
	}

	result, err := agg.Call(ctx, client, reqs)
	if err != nil {
		return nil, mapError(err)
	}

	responses := make([]map[string]interface{}, len(result.Responses))
	for i, r := range result.Responses {
		responses[i] = map[string]interface{}{
			"success":    r.Success,
			"returnData": hexutil.Encode(r.ReturnData),
		}
	}

	out := map[string]interface{}{
		"method":    result.Method,
		"responses": responses,
	}
	if result.BlockNumber != 0 {
		out["blockNumber"] = result.BlockNumber
	}
	return out, nil
}

// renderValues maps decoded ABI values to JSON-friendly shapes. Big integers
// and addresses become strings, bytes become hex.
func renderValues(values []interface{}) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case *big.Int:
			out[i] = t.String()
		case common.Address:
			out[i] = t.Hex()
		case []byte:
			out[i] = hexutil.Encode(t)
		case [32]byte:
			out[i] = hexutil.Encode(t[:])
		default:
			out[i] = v
		}
	}
	return out
}
