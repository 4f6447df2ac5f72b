package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client wraps an Ethereum JSON-RPC client with rate limiting and logging.
// All operations wait on the per-endpoint rate limiter before touching the
// network so chunked fetches and batch writes respect provider budgets.
type Client struct {
	ethClient *ethclient.Client
	rpcClient *rpc.Client
	endpoint  string
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// Config holds client configuration
type Config struct {
	Endpoint      string
	Timeout       time.Duration
	RatePerSecond float64
	RateBurst     int
	Logger        *zap.Logger
}

// NewClient creates a new Ethereum client
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	rpcClient, err := rpc.DialContext(ctx, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = int(cfg.RatePerSecond)
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	client := &Client{
		ethClient: ethclient.NewClient(rpcClient),
		rpcClient: rpcClient,
		endpoint:  cfg.Endpoint,
		limiter:   limiter,
		logger:    logger,
	}

	logger.Info("connected to RPC endpoint",
		zap.String("endpoint", cfg.Endpoint))

	return client, nil
}

// Ping verifies the connection to the RPC endpoint
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ethClient.ChainID(ctx)
	return err
}

// Close closes the client connection
func (c *Client) Close() {
	if c.ethClient != nil {
		c.ethClient.Close()
	}
}

// Endpoint returns the RPC endpoint URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// BlockNumber returns the latest block number
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	blockNumber, err := c.ethClient.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block number: %w", err)
	}
	return blockNumber, nil
}

// BlockByNumber fetches a block by its number, including full transaction bodies
func (c *Client) BlockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	block, err := c.ethClient.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return nil, fmt.Errorf("failed to get block %d: %w", number, err)
	}
	return block, nil
}

// BlockByHash fetches a block by its hash
func (c *Client) BlockByHash(ctx context.Context, hash common.Hash) (*types.Block, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	block, err := c.ethClient.BlockByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get block %s: %w", hash.Hex(), err)
	}
	return block, nil
}

// TransactionByHash fetches a transaction by its hash
func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	if err := c.wait(ctx); err != nil {
		return nil, false, err
	}
	tx, isPending, err := c.ethClient.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get transaction %s: %w", hash.Hex(), err)
	}
	return tx, isPending, nil
}

// TransactionReceipt fetches a transaction receipt
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	receipt, err := c.ethClient.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt for %s: %w", hash.Hex(), err)
	}
	return receipt, nil
}

// BalanceAt fetches the native balance of an address at the latest block
func (c *Client) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	balance, err := c.ethClient.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", addr.Hex(), err)
	}
	return balance, nil
}

// FilterLogs queries event logs matching the given filter
func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	logs, err := c.ethClient.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to filter logs: %w", err)
	}
	return logs, nil
}

// CallContract executes a read-only contract call at the latest block
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	data, err := c.ethClient.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("contract call failed: %w", err)
	}
	return data, nil
}

// EstimateGas estimates gas for the given call
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	gas, err := c.ethClient.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return gas, nil
}

// SuggestGasPrice returns the suggested gas price
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	price, err := c.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return price, nil
}

// PendingNonceAt returns the next nonce for an account, including pending transactions
func (c *Client) PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	nonce, err := c.ethClient.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce for %s: %w", addr.Hex(), err)
	}
	return nonce, nil
}

// SendTransaction broadcasts a signed transaction
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if err := c.ethClient.SendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("failed to send transaction: %w", err)
	}
	c.logger.Debug("transaction sent", zap.String("hash", tx.Hash().Hex()))
	return nil
}

// CodeAt returns the contract code at the given address
func (c *Client) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	code, err := c.ethClient.CodeAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get code at %s: %w", addr.Hex(), err)
	}
	return code, nil
}

// ChainID returns the chain ID
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	chainID, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	return chainID, nil
}

// SendRawTransaction broadcasts a pre-signed raw transaction and returns its hash
func (c *Client) SendRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error) {
	if err := c.wait(ctx); err != nil {
		return common.Hash{}, err
	}

	var hash common.Hash
	if err := c.rpcClient.CallContext(ctx, &hash, "eth_sendRawTransaction", fmt.Sprintf("0x%x", rawTx)); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send raw transaction: %w", err)
	}
	return hash, nil
}

// BatchGetBlocks fetches multiple blocks with full transaction bodies in a
// single batch request. A nil entry in the result marks a block the node
// could not return.
func (c *Client) BatchGetBlocks(ctx context.Context, numbers []uint64) ([]*types.Block, error) {
	if len(numbers) == 0 {
		return nil, nil
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	raws := make([]json.RawMessage, len(numbers))
	batch := make([]rpc.BatchElem, len(numbers))

	for i, num := range numbers {
		batch[i] = rpc.BatchElem{
			Method: "eth_getBlockByNumber",
			Args:   []interface{}{fmt.Sprintf("0x%x", num), true}, // true to include transactions
			Result: &raws[i],
		}
	}

	if err := c.rpcClient.BatchCallContext(ctx, batch); err != nil {
		return nil, fmt.Errorf("batch call failed: %w", err)
	}

	blocks := make([]*types.Block, len(numbers))
	for i, elem := range batch {
		if elem.Error != nil {
			c.logger.Warn("failed to fetch block in batch",
				zap.Uint64("block_number", numbers[i]),
				zap.Error(elem.Error))
			continue
		}
		block, err := decodeBlock(raws[i])
		if err != nil {
			c.logger.Warn("failed to decode block in batch",
				zap.Uint64("block_number", numbers[i]),
				zap.Error(err))
			continue
		}
		blocks[i] = block
	}

	return blocks, nil
}

// decodeBlock rebuilds a types.Block from a raw eth_getBlockByNumber payload.
// The header fields sit at the top level next to the transaction list, so the
// payload is decoded twice.
func decodeBlock(raw json.RawMessage) (*types.Block, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("block not found")
	}

	var header types.Header
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("failed to decode block header: %w", err)
	}

	var body struct {
		Transactions []*types.Transaction `json:"transactions"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to decode block transactions: %w", err)
	}

	return types.NewBlockWithHeader(&header).WithBody(types.Body{Transactions: body.Transactions}), nil
}
