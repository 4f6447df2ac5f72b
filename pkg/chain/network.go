package chain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrUnknownNetwork is returned when a network identifier is not registered
	ErrUnknownNetwork = errors.New("unknown network")

	// ErrNoExplorer is returned when an operation needs an explorer API but
	// the network has none configured
	ErrNoExplorer = errors.New("network has no explorer URL configured")

	// ErrNoMulticall is returned when an operation needs a multicall contract
	// but the network has none configured
	ErrNoMulticall = errors.New("network has no multicall address configured")
)

// Network describes one reachable blockchain network. Tool requests carry a
// network identifier which resolves to one of these.
type Network struct {
	// Identifier is the unique key used in tool requests
	Identifier string `json:"identifier"`

	// Name is a human-readable network name
	Name string `json:"name"`

	// ChainID is the numeric chain ID
	ChainID uint64 `json:"chainId"`

	// RPCEndpoint is the HTTP(S) JSON-RPC endpoint URL
	RPCEndpoint string `json:"rpcEndpoint"`

	// NativeSymbol is the native currency symbol
	NativeSymbol string `json:"nativeSymbol"`

	// NativeDecimals is the native currency decimal count
	NativeDecimals int `json:"nativeDecimals"`

	// ExplorerURL is the explorer API base URL, empty when unavailable
	ExplorerURL string `json:"explorerUrl,omitempty"`

	// MulticallAddress is the deployed multicall contract, zero when absent
	MulticallAddress common.Address `json:"multicallAddress,omitempty"`

	// SupportsAggregate3 declares whether the multicall contract exposes
	// aggregate3 (per-call success flags, value-capable). When false, batched
	// reads fall back to the all-or-nothing aggregate call.
	SupportsAggregate3 bool `json:"supportsAggregate3"`
}

// HasMulticall reports whether a multicall contract is configured
func (n *Network) HasMulticall() bool {
	return n.MulticallAddress != (common.Address{})
}

// HasExplorer reports whether an explorer API is configured
func (n *Network) HasExplorer() bool {
	return n.ExplorerURL != ""
}

// Validate checks the network definition for completeness
func (n *Network) Validate() error {
	if n.Identifier == "" {
		return fmt.Errorf("network identifier is required")
	}
	if n.RPCEndpoint == "" {
		return fmt.Errorf("network %q: rpc endpoint is required", n.Identifier)
	}
	if n.ChainID == 0 {
		return fmt.Errorf("network %q: chain id is required", n.Identifier)
	}
	return nil
}
