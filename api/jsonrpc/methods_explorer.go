package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vitalspace/somnia-mcp/internal/constants"
	"github.com/vitalspace/somnia-mcp/pkg/chain"
	"github.com/vitalspace/somnia-mcp/pkg/explorer"
)

// explorerFor returns an explorer client for the request's network
func (h *Handler) explorerFor(identifier string) (*explorer.Client, *Error) {
	if identifier == "" {
		identifier = "somnia"
	}
	network, err := h.networks.Get(identifier)
	if err != nil {
		return nil, NewError(InvalidParams, err.Error(), nil)
	}
	if !network.HasExplorer() {
		return nil, mapError(fmt.Errorf("network %s: %w", network.Identifier, chain.ErrNoExplorer))
	}

	client, err := explorer.New(network.ExplorerURL, h.logger)
	if err != nil {
		return nil, mapError(err)
	}
	return client, nil
}

// getAddressHistory returns an address's recent transactions from the
// explorer, newest first
func (h *Handler) getAddressHistory(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network string `json:"network"`
		Address string `json:"address"`
		Limit   int    `json:"limit"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddress("address", p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	limit := p.Limit
	if limit <= 0 {
		limit = constants.DefaultHistoryPageSize
	}

	client, rpcErr := h.explorerFor(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	entries, err := client.AddressHistory(ctx, addr.Hex(), limit)
	if err != nil {
		return nil, mapError(err)
	}

	return map[string]interface{}{
		"address":      addr.Hex(),
		"transactions": entries,
		"count":        len(entries),
	}, nil
}

// verifyContract submits contract source to the explorer for verification
func (h *Handler) verifyContract(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network          string `json:"network"`
		Address          string `json:"address"`
		SourceCode       string `json:"sourceCode"`
		ContractName     string `json:"contractName"`
		CompilerVersion  string `json:"compilerVersion"`
		Optimization     bool   `json:"optimization"`
		OptimizationRuns int    `json:"optimizationRuns"`
		ConstructorArgs  string `json:"constructorArgs"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddress("address", p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if p.SourceCode == "" {
		return nil, NewError(InvalidParams, "missing required parameter: sourceCode", nil)
	}
	if p.ContractName == "" {
		return nil, NewError(InvalidParams, "missing required parameter: contractName", nil)
	}

	client, rpcErr := h.explorerFor(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	guid, err := client.SubmitVerification(ctx, explorer.VerifyRequest{
		Address:          addr.Hex(),
		SourceCode:       p.SourceCode,
		ContractName:     p.ContractName,
		CompilerVersion:  p.CompilerVersion,
		OptimizationUsed: p.Optimization,
		OptimizationRuns: p.OptimizationRuns,
		ConstructorArgs:  p.ConstructorArgs,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return map[string]interface{}{
		"guid":    guid,
		"address": addr.Hex(),
	}, nil
}

// getVerificationStatus reports the state of a verification submission
func (h *Handler) getVerificationStatus(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p struct {
		Network string `json:"network"`
		GUID    string `json:"guid"`
	}
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.GUID == "" {
		return nil, NewError(InvalidParams, "missing required parameter: guid", nil)
	}

	client, rpcErr := h.explorerFor(p.Network)
	if rpcErr != nil {
		return nil, rpcErr
	}

	status, err := client.CheckVerification(ctx, p.GUID)
	if err != nil {
		return nil, mapError(err)
	}

	return status, nil
}
