package chain

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// multicall3Address is the canonical Multicall3 deployment address shared by
// most EVM networks, including Somnia.
var multicall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

// builtinNetworks are the networks known without any configuration.
func builtinNetworks() []*Network {
	return []*Network{
		{
			Identifier:         "somnia",
			Name:               "Somnia Mainnet",
			ChainID:            5031,
			RPCEndpoint:        "https://api.infra.mainnet.somnia.network",
			NativeSymbol:       "SOMI",
			NativeDecimals:     18,
			ExplorerURL:        "https://explorer.somnia.network/api",
			MulticallAddress:   multicall3Address,
			SupportsAggregate3: true,
		},
		{
			Identifier:         "somnia-testnet",
			Name:               "Somnia Shannon Testnet",
			ChainID:            50312,
			RPCEndpoint:        "https://dream-rpc.somnia.network",
			NativeSymbol:       "STT",
			NativeDecimals:     18,
			ExplorerURL:        "https://shannon-explorer.somnia.network/api",
			MulticallAddress:   multicall3Address,
			SupportsAggregate3: true,
		},
	}
}

// Registry resolves network identifiers to network definitions.
// Registered networks override built-ins with the same identifier.
type Registry struct {
	mu       sync.RWMutex
	networks map[string]*Network
}

// NewRegistry creates a registry seeded with the built-in networks
func NewRegistry() *Registry {
	r := &Registry{
		networks: make(map[string]*Network),
	}
	for _, n := range builtinNetworks() {
		r.networks[n.Identifier] = n
	}
	return r
}

// Register adds or replaces a network definition
func (r *Registry) Register(n *Network) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("invalid network: %w", err)
	}
	if n.NativeDecimals == 0 {
		n.NativeDecimals = 18
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.networks[n.Identifier] = n
	return nil
}

// Get resolves a network identifier
func (r *Registry) Get(identifier string) (*Network, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.networks[identifier]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, identifier)
	}
	return n, nil
}

// List returns all registered networks sorted by identifier
func (r *Registry) List() []*Network {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Network, 0, len(r.networks))
	for _, n := range r.networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identifier < out[j].Identifier
	})
	return out
}
