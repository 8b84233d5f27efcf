// Package chains provides the registry of known EVM networks.
package chains

import "fmt"

// Network describes a known EVM network.
type Network struct {
	ChainID     int64
	Name        string // "sepolia", "mainnet"
	DisplayName string // "Sepolia Testnet", "Ethereum Mainnet"
	ExplorerURL string // block explorer web UI, for links in CLI output
	Testnet     bool
}

// Registry holds known networks keyed by chain id.
type Registry struct {
	networks map[int64]Network
}

// NewRegistry creates an empty network registry.
func NewRegistry() *Registry {
	return &Registry{
		networks: make(map[int64]Network),
	}
}

// Register adds a network to the registry.
func (r *Registry) Register(n Network) {
	r.networks[n.ChainID] = n
}

// Get retrieves a network by chain id.
func (r *Registry) Get(chainID int64) (Network, bool) {
	n, ok := r.networks[chainID]
	return n, ok
}

// List returns all registered networks.
func (r *Registry) List() []Network {
	networks := make([]Network, 0, len(r.networks))
	for _, n := range r.networks {
		networks = append(networks, n)
	}
	return networks
}

// Name returns a display name for a chain id, falling back to the numeric id
// for networks the registry doesn't know.
func (r *Registry) Name(chainID int64) string {
	if n, ok := r.networks[chainID]; ok {
		return n.DisplayName
	}
	return fmt.Sprintf("chain %d", chainID)
}

// DefaultRegistry returns a registry preloaded with well-known networks.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, n := range []Network{
		{ChainID: 1, Name: "mainnet", DisplayName: "Ethereum Mainnet", ExplorerURL: "https://etherscan.io"},
		{ChainID: 11155111, Name: "sepolia", DisplayName: "Sepolia Testnet", ExplorerURL: "https://sepolia.etherscan.io", Testnet: true},
		{ChainID: 17000, Name: "holesky", DisplayName: "Holesky Testnet", ExplorerURL: "https://holesky.etherscan.io", Testnet: true},
		{ChainID: 8453, Name: "base", DisplayName: "Base", ExplorerURL: "https://basescan.org"},
		{ChainID: 84532, Name: "base-sepolia", DisplayName: "Base Sepolia", ExplorerURL: "https://sepolia.basescan.org", Testnet: true},
		{ChainID: 10, Name: "optimism", DisplayName: "OP Mainnet", ExplorerURL: "https://optimistic.etherscan.io"},
		{ChainID: 42161, Name: "arbitrum", DisplayName: "Arbitrum One", ExplorerURL: "https://arbiscan.io"},
		{ChainID: 137, Name: "polygon", DisplayName: "Polygon PoS", ExplorerURL: "https://polygonscan.com"},
		{ChainID: 31337, Name: "anvil", DisplayName: "Anvil (local)", ExplorerURL: "", Testnet: true},
	} {
		r.Register(n)
	}
	return r
}
