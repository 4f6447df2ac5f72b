// Package wallet derives a signer from a caller-supplied private key and
// builds, signs, and broadcasts transactions with it. A missing key is a
// hard precondition failure for every write path.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/vitalspace/somnia-mcp/pkg/contract"
)

// ErrNoPrivateKey is returned when a write operation is attempted without a key
var ErrNoPrivateKey = errors.New("private key required for write operations")

// Broadcaster is the chain surface needed to build and send transactions
type Broadcaster interface {
	PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Signer holds a private key bound to a chain ID
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// NewSigner derives a signer from a hex-encoded private key
func NewSigner(privateKeyHex string, chainID *big.Int) (*Signer, error) {
	if privateKeyHex == "" {
		return nil, ErrNoPrivateKey
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

// Address returns the signer's address
func (s *Signer) Address() common.Address {
	return s.address
}

// SignTx signs a transaction for the signer's chain
func (s *Signer) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// Sender executes write operations against a single signer and transport
type Sender struct {
	signer *Signer
	client Broadcaster
	logger *zap.Logger
}

// NewSender creates a sender bound to one signer and one chain client
func NewSender(signer *Signer, client Broadcaster, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		signer: signer,
		client: client,
		logger: logger,
	}
}

// Address returns the sending address
func (s *Sender) Address() common.Address {
	return s.signer.Address()
}

// prepare fetches the nonce and gas price for the next transaction
func (s *Sender) prepare(ctx context.Context) (uint64, *big.Int, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.signer.Address())
	if err != nil {
		return 0, nil, err
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return 0, nil, err
	}
	return nonce, gasPrice, nil
}

// SendNative transfers native currency to an address and returns the tx hash
func (s *Sender) SendNative(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	nonce, gasPrice, err := s.prepare(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	gas, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.signer.Address(),
		To:    &to,
		Value: amount,
	})
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    amount,
		Gas:      gas,
		GasPrice: gasPrice,
	})

	return s.signAndSend(ctx, tx)
}

// WriteContract packs and sends a state-changing contract call
func (s *Sender) WriteContract(ctx context.Context, call *contract.Call) (common.Hash, error) {
	data, err := call.Pack()
	if err != nil {
		return common.Hash{}, err
	}

	nonce, gasPrice, err := s.prepare(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	value := call.Value
	if value == nil {
		value = new(big.Int)
	}

	to := call.Address
	gas, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.signer.Address(),
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})

	return s.signAndSend(ctx, tx)
}

// DeployContract sends a contract creation transaction. The constructor
// arguments are ABI-encoded and appended to the bytecode.
func (s *Sender) DeployContract(ctx context.Context, abiJSON, bytecodeHex string, args []interface{}) (common.Hash, common.Address, error) {
	bytecode, err := hexutil.Decode(bytecodeHex)
	if err != nil {
		return common.Hash{}, common.Address{}, fmt.Errorf("invalid bytecode: %w", err)
	}

	data := bytecode
	if len(args) > 0 {
		ctorCall := &contract.Call{ABI: abiJSON, Function: "", Args: args}
		encoded, err := ctorCall.Pack()
		if err != nil {
			return common.Hash{}, common.Address{}, fmt.Errorf("constructor args: %w", err)
		}
		data = append(data, encoded...)
	}

	nonce, gasPrice, err := s.prepare(ctx)
	if err != nil {
		return common.Hash{}, common.Address{}, err
	}

	gas, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From: s.signer.Address(),
		Data: data,
	})
	if err != nil {
		return common.Hash{}, common.Address{}, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})

	hash, err := s.signAndSend(ctx, tx)
	if err != nil {
		return common.Hash{}, common.Address{}, err
	}

	deployed := crypto.CreateAddress(s.signer.Address(), nonce)
	return hash, deployed, nil
}

func (s *Sender) signAndSend(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	signed, err := s.signer.SignTx(tx)
	if err != nil {
		return common.Hash{}, err
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}

	s.logger.Info("transaction broadcast",
		zap.String("hash", signed.Hash().Hex()),
		zap.String("from", s.signer.Address().Hex()))

	return signed.Hash(), nil
}
