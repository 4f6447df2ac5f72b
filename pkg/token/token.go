// Package token reads ERC-20 metadata and balances through raw eth_call
// selectors. Metadata is immutable in practice, so lookups go through a
// short-lived in-process cache keyed by contract address.
package token

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/vitalspace/somnia-mcp/internal/constants"
)

// ERC-20 function selectors
const (
	SelectorName        = "0x06fdde03"
	SelectorSymbol      = "0x95d89b41"
	SelectorDecimals    = "0x313ce567"
	SelectorTotalSupply = "0x18160ddd"
	SelectorBalanceOf   = "0x70a08231"
)

// Caller is the read surface token lookups execute through
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

// Metadata holds the on-chain descriptors of an ERC-20 contract. Fields a
// non-conforming contract does not expose stay at their zero value.
type Metadata struct {
	Address     common.Address `json:"address"`
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	Decimals    uint8          `json:"decimals"`
	TotalSupply *big.Int       `json:"totalSupply,omitempty"`
}

// Service fetches and caches ERC-20 token data
type Service struct {
	client Caller
	cache  *gocache.Cache
	logger *zap.Logger
}

// NewService creates a token service with a TTL metadata cache
func NewService(client Caller, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client: client,
		cache:  gocache.New(constants.MetadataCacheTTL, constants.MetadataCacheCleanup),
		logger: logger,
	}
}

// Metadata returns the token's metadata, served from cache when fresh.
// Individual missing fields degrade to defaults instead of failing the
// whole lookup; decimals defaults to 18.
func (s *Service) Metadata(ctx context.Context, address common.Address) (*Metadata, error) {
	key := strings.ToLower(address.Hex())
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*Metadata), nil
	}

	meta := &Metadata{Address: address, Decimals: constants.DefaultTokenDecimals}

	name, err := s.callString(ctx, address, SelectorName)
	if err != nil {
		s.logger.Debug("token name lookup failed",
			zap.String("address", address.Hex()), zap.Error(err))
	} else {
		meta.Name = name
	}

	symbol, err := s.callString(ctx, address, SelectorSymbol)
	if err != nil {
		s.logger.Debug("token symbol lookup failed",
			zap.String("address", address.Hex()), zap.Error(err))
	} else {
		meta.Symbol = symbol
	}

	decimals, err := s.callUint8(ctx, address, SelectorDecimals)
	if err != nil {
		s.logger.Debug("token decimals lookup failed, defaulting to 18",
			zap.String("address", address.Hex()), zap.Error(err))
	} else {
		meta.Decimals = decimals
	}

	supply, err := s.callUint256(ctx, address, SelectorTotalSupply, nil)
	if err != nil {
		s.logger.Debug("token totalSupply lookup failed",
			zap.String("address", address.Hex()), zap.Error(err))
	} else {
		meta.TotalSupply = supply
	}

	// A contract answering none of the calls is not a token
	if meta.Name == "" && meta.Symbol == "" && meta.TotalSupply == nil {
		return nil, fmt.Errorf("contract %s does not respond to ERC-20 calls", address.Hex())
	}

	s.cache.Set(key, meta, gocache.DefaultExpiration)
	return meta, nil
}

// BalanceOf returns the token balance of holder. Balances are never cached.
func (s *Service) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	arg := make([]byte, 32)
	copy(arg[12:], holder.Bytes())
	return s.callUint256(ctx, token, SelectorBalanceOf, arg)
}

func (s *Service) call(ctx context.Context, address common.Address, selector string, arg []byte) ([]byte, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(selector, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid selector: %w", err)
	}
	data = append(data, arg...)

	result, err := s.client.CallContract(ctx, ethereum.CallMsg{
		To:   &address,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("contract call failed: %w", err)
	}
	return result, nil
}

func (s *Service) callString(ctx context.Context, address common.Address, selector string) (string, error) {
	result, err := s.call(ctx, address, selector, nil)
	if err != nil {
		return "", err
	}
	return decodeString(result)
}

func (s *Service) callUint8(ctx context.Context, address common.Address, selector string) (uint8, error) {
	result, err := s.call(ctx, address, selector, nil)
	if err != nil {
		return 0, err
	}
	if len(result) < 32 {
		return 0, fmt.Errorf("invalid result length: %d", len(result))
	}
	return result[31], nil
}

func (s *Service) callUint256(ctx context.Context, address common.Address, selector string, arg []byte) (*big.Int, error) {
	result, err := s.call(ctx, address, selector, arg)
	if err != nil {
		return nil, err
	}
	if len(result) < 32 {
		return nil, fmt.Errorf("invalid result length: %d", len(result))
	}
	return new(big.Int).SetBytes(result[:32]), nil
}

// decodeString decodes an ABI-encoded string return value. Some legacy
// contracts return a raw padded string instead, which is handled as a
// fallback.
func decodeString(data []byte) (string, error) {
	if len(data) < 64 {
		return strings.TrimRight(string(data), "\x00"), nil
	}

	offset := new(big.Int).SetBytes(data[0:32]).Uint64()
	if offset+32 > uint64(len(data)) {
		return "", fmt.Errorf("invalid string offset")
	}
	length := new(big.Int).SetBytes(data[offset : offset+32]).Uint64()

	start := offset + 32
	end := start + length
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	return string(data[start:end]), nil
}
