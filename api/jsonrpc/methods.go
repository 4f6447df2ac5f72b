package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/vitalspace/somnia-mcp/pkg/analytics"
	"github.com/vitalspace/somnia-mcp/pkg/batch"
	"github.com/vitalspace/somnia-mcp/pkg/chain"
	"github.com/vitalspace/somnia-mcp/pkg/logs"
	"github.com/vitalspace/somnia-mcp/pkg/multicall"
	"github.com/vitalspace/somnia-mcp/pkg/token"
	"github.com/vitalspace/somnia-mcp/pkg/wallet"
)

// ChainClient is the per-network chain surface the handler depends on
type ChainClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockByNumber(ctx context.Context, number uint64) (*types.Block, error)
	BlockByHash(ctx context.Context, hash common.Hash) (*types.Block, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	SendRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error)
	Close()
}

// Dialer opens a chain client for one network definition
type Dialer func(n *chain.Network) (ChainClient, error)

// Handler dispatches tool methods. Chain clients are dialed lazily per
// network and reused; everything else is request-scoped.
type Handler struct {
	networks *chain.Registry
	dial     Dialer
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[string]ChainClient
	tokens  map[string]*token.Service
}

// NewHandler creates a JSON-RPC method handler
func NewHandler(networks *chain.Registry, dial Dialer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		networks: networks,
		dial:     dial,
		logger:   logger,
		clients:  make(map[string]ChainClient),
		tokens:   make(map[string]*token.Service),
	}
}

// Close releases all dialed chain clients
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

// HandleMethod handles a JSON-RPC method call
func (h *Handler) HandleMethod(ctx context.Context, method string, params json.RawMessage) (interface{}, *Error) {
	switch method {
	// Network and chain reads
	case "listNetworks":
		return h.listNetworks(ctx, params)
	case "getNetworkInfo":
		return h.getNetworkInfo(ctx, params)
	case "getBlockNumber":
		return h.getBlockNumber(ctx, params)
	case "getBlock":
		return h.getBlock(ctx, params)
	case "getTransaction":
		return h.getTransaction(ctx, params)
	case "getTransactionReceipt":
		return h.getTransactionReceipt(ctx, params)
	case "getBalance":
		return h.getBalance(ctx, params)
	case "getLogs":
		return h.getLogs(ctx, params)
	case "estimateGas":
		return h.estimateGas(ctx, params)
	// Token and contract reads
	case "getTokenBalance":
		return h.getTokenBalance(ctx, params)
	case "getTokenInfo":
		return h.getTokenInfo(ctx, params)
	case "readContract":
		return h.readContract(ctx, params)
	case "multicall":
		return h.multicall(ctx, params)
	// Analytics
	case "getTopTokenHolders":
		return h.getTopTokenHolders(ctx, params)
	case "getTopNativeHolders":
		return h.getTopNativeHolders(ctx, params)
	case "getTransactionVolume":
		return h.getTransactionVolume(ctx, params)
	case "getERC20TransactionVolume":
		return h.getERC20TransactionVolume(ctx, params)
	case "getTransactionFee":
		return h.getTransactionFee(ctx, params)
	// Writes
	case "transfer":
		return h.transfer(ctx, params)
	case "writeContract":
		return h.writeContract(ctx, params)
	case "deployContract":
		return h.deployContract(ctx, params)
	case "sendRawTransaction":
		return h.sendRawTransaction(ctx, params)
	case "batchTransfer":
		return h.batchTransfer(ctx, params)
	case "batchWrite":
		return h.batchWrite(ctx, params)
	case "monitorTransaction":
		return h.monitorTransaction(ctx, params)
	// Explorer
	case "getAddressHistory":
		return h.getAddressHistory(ctx, params)
	case "verifyContract":
		return h.verifyContract(ctx, params)
	case "getVerificationStatus":
		return h.getVerificationStatus(ctx, params)
	default:
		return nil, NewError(MethodNotFound, fmt.Sprintf("method '%s' not found", method), nil)
	}
}

// resolve returns the network definition and a (cached) chain client for a
// request's network identifier. An empty identifier selects Somnia mainnet.
func (h *Handler) resolve(identifier string) (*chain.Network, ChainClient, *Error) {
	if identifier == "" {
		identifier = "somnia"
	}

	network, err := h.networks.Get(identifier)
	if err != nil {
		return nil, nil, NewError(InvalidParams, err.Error(), nil)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[network.Identifier]
	if !ok {
		client, err = h.dial(network)
		if err != nil {
			return nil, nil, NewError(InternalError,
				fmt.Sprintf("failed to connect to %s", network.Identifier), err.Error())
		}
		h.clients[network.Identifier] = client
	}

	return network, client, nil
}

// tokenService returns the token metadata service for a network
func (h *Handler) tokenService(network *chain.Network, client ChainClient) *token.Service {
	h.mu.Lock()
	defer h.mu.Unlock()

	svc, ok := h.tokens[network.Identifier]
	if !ok {
		svc = token.NewService(client, h.logger)
		h.tokens[network.Identifier] = svc
	}
	return svc
}

// decodeParams unmarshals request params into a method's parameter struct
func decodeParams(params json.RawMessage, v interface{}) *Error {
	if len(params) == 0 {
		params = []byte("{}")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return NewError(InvalidParams, "invalid params", err.Error())
	}
	return nil
}

// parseAddress validates and parses a hex address parameter
func parseAddress(name, value string) (common.Address, *Error) {
	if value == "" {
		return common.Address{}, NewError(InvalidParams,
			fmt.Sprintf("missing required parameter: %s", name), nil)
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, NewError(InvalidParams,
			fmt.Sprintf("invalid address for %s: %s", name, value), nil)
	}
	return common.HexToAddress(value), nil
}

// parseHash validates and parses a transaction hash parameter
func parseHash(name, value string) (common.Hash, *Error) {
	if value == "" {
		return common.Hash{}, NewError(InvalidParams,
			fmt.Sprintf("missing required parameter: %s", name), nil)
	}
	if len(value) != 66 {
		return common.Hash{}, NewError(InvalidParams,
			fmt.Sprintf("invalid hash for %s: %s", name, value), nil)
	}
	return common.HexToHash(value), nil
}

// parseAmount parses a base-unit decimal string amount
func parseAmount(name, value string) (*big.Int, *Error) {
	if value == "" {
		return nil, NewError(InvalidParams,
			fmt.Sprintf("missing required parameter: %s", name), nil)
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, NewError(InvalidParams,
			fmt.Sprintf("invalid amount for %s: %s", name, value), nil)
	}
	return amount, nil
}

// mapError converts an engine error into a JSON-RPC error, classifying
// validation and configuration sentinels as client errors
func mapError(err error) *Error {
	switch {
	case errors.Is(err, logs.ErrInvalidRange),
		errors.Is(err, analytics.ErrInvalidLimit),
		errors.Is(err, analytics.ErrRangeTooLarge),
		errors.Is(err, batch.ErrEmptyBatch),
		errors.Is(err, multicall.ErrEmptyBatch):
		return NewError(InvalidParams, err.Error(), nil)
	case errors.Is(err, wallet.ErrNoPrivateKey),
		errors.Is(err, chain.ErrUnknownNetwork),
		errors.Is(err, chain.ErrNoExplorer),
		errors.Is(err, chain.ErrNoMulticall):
		return NewError(InvalidRequest, err.Error(), nil)
	case errors.Is(err, ethereum.NotFound),
		errors.Is(err, analytics.ErrReceiptNotFound):
		return NewError(InternalError, "not found", err.Error())
	default:
		return NewError(InternalError, "internal error", err.Error())
	}
}
