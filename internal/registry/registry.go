package registry

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeTokenAddress is the conventional sentinel routing sources use for a
// chain's native asset.
var NativeTokenAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Chain describes a supported network.
type Chain struct {
	Name          string
	ID            uint64
	RPCURL        string
	NativeSymbol  string
	ExplorerTxURL string
	Confirmations uint64
	LegacyFees    bool
	Aliases       []string
}

// Asset is a token reference on a specific chain. Read-only after load.
type Asset struct {
	Chain    string
	Symbol   string
	Address  common.Address
	Decimals int32
}

// Native reports whether the asset is the chain's native token.
func (a Asset) Native() bool {
	return a.Address == NativeTokenAddress
}

type assetKey struct {
	chain  string
	symbol string
}

// Registry holds the process-wide chain and asset reference data. It is
// immutable once built and safe for concurrent reads without locking.
type Registry struct {
	chains       map[string]Chain
	assets       map[assetKey]Asset
	defaultChain string
}

// Options tweaks the built-in reference data at construction time.
type Options struct {
	// RPCOverrides replaces the RPC URL of the named chains.
	RPCOverrides map[string]string
	// DefaultChain is used when an intent omits the source chain.
	DefaultChain string
}

// New builds a registry from explicit chain and asset lists.
func New(chains []Chain, assets []Asset, defaultChain string) *Registry {
	r := &Registry{
		chains:       make(map[string]Chain, len(chains)),
		assets:       make(map[assetKey]Asset, len(assets)),
		defaultChain: strings.ToLower(defaultChain),
	}
	for _, c := range chains {
		name := strings.ToLower(c.Name)
		c.Name = name
		r.chains[name] = c
		for _, alias := range c.Aliases {
			r.chains[strings.ToLower(alias)] = c
		}
	}
	for _, a := range assets {
		a.Chain = strings.ToLower(a.Chain)
		a.Symbol = strings.ToUpper(a.Symbol)
		r.assets[assetKey{chain: a.Chain, symbol: a.Symbol}] = a
	}
	return r
}

// Default returns a registry with the built-in chain and token tables.
func Default(opts Options) *Registry {
	chains := defaultChains()
	if len(opts.RPCOverrides) > 0 {
		for i := range chains {
			if url, ok := opts.RPCOverrides[chains[i].Name]; ok && url != "" {
				chains[i].RPCURL = url
			}
		}
	}
	defaultChain := opts.DefaultChain
	if defaultChain == "" {
		defaultChain = "ethereum"
	}
	return New(chains, defaultAssets(), defaultChain)
}

// Chain resolves a chain by name or alias, case-insensitively.
func (r *Registry) Chain(name string) (Chain, bool) {
	c, ok := r.chains[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Asset resolves a token symbol on a chain, case-insensitively.
func (r *Registry) Asset(chain, symbol string) (Asset, bool) {
	c, ok := r.Chain(chain)
	if !ok {
		return Asset{}, false
	}
	a, ok := r.assets[assetKey{
		chain:  c.Name,
		symbol: strings.ToUpper(strings.TrimSpace(symbol)),
	}]
	return a, ok
}

// DefaultChain returns the chain assumed when an intent names none.
func (r *Registry) DefaultChain() string {
	return r.defaultChain
}

// Chains lists the canonical (non-alias) chains in stable order.
func (r *Registry) Chains() []Chain {
	seen := make(map[uint64]bool, len(r.chains))
	out := make([]Chain, 0, len(r.chains))
	for _, name := range chainOrder {
		c, ok := r.chains[name]
		if !ok || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

// ExplorerTxURL returns the explorer link for a transaction hash, empty when
// the chain is unknown.
func (r *Registry) ExplorerTxURL(chain, txHash string) string {
	c, ok := r.Chain(chain)
	if !ok || c.ExplorerTxURL == "" {
		return ""
	}
	return c.ExplorerTxURL + txHash
}

var chainOrder = []string{"ethereum", "arbitrum", "polygon", "optimism", "base"}

func defaultChains() []Chain {
	return []Chain{
		{
			Name:          "ethereum",
			ID:            1,
			NativeSymbol:  "ETH",
			ExplorerTxURL: "https://etherscan.io/tx/",
			Confirmations: 3,
			Aliases:       []string{"eth", "mainnet"},
		},
		{
			Name:          "arbitrum",
			ID:            42161,
			NativeSymbol:  "ETH",
			ExplorerTxURL: "https://arbiscan.io/tx/",
			Confirmations: 1,
			Aliases:       []string{"arb", "arbitrum one"},
		},
		{
			Name:          "polygon",
			ID:            137,
			NativeSymbol:  "MATIC",
			ExplorerTxURL: "https://polygonscan.com/tx/",
			Confirmations: 5,
			LegacyFees:    true,
			Aliases:       []string{"matic"},
		},
		{
			Name:          "optimism",
			ID:            10,
			NativeSymbol:  "ETH",
			ExplorerTxURL: "https://optimistic.etherscan.io/tx/",
			Confirmations: 1,
			Aliases:       []string{"op"},
		},
		{
			Name:          "base",
			ID:            8453,
			NativeSymbol:  "ETH",
			ExplorerTxURL: "https://basescan.org/tx/",
			Confirmations: 1,
		},
	}
}

func defaultAssets() []Asset {
	return []Asset{
		// Ethereum
		{Chain: "ethereum", Symbol: "ETH", Address: NativeTokenAddress, Decimals: 18},
		{Chain: "ethereum", Symbol: "WETH", Address: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), Decimals: 18},
		{Chain: "ethereum", Symbol: "USDC", Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Decimals: 6},
		{Chain: "ethereum", Symbol: "USDT", Address: common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"), Decimals: 6},
		{Chain: "ethereum", Symbol: "DAI", Address: common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), Decimals: 18},
		// Arbitrum
		{Chain: "arbitrum", Symbol: "ETH", Address: NativeTokenAddress, Decimals: 18},
		{Chain: "arbitrum", Symbol: "USDC", Address: common.HexToAddress("0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8"), Decimals: 6},
		{Chain: "arbitrum", Symbol: "USDT", Address: common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9"), Decimals: 6},
		{Chain: "arbitrum", Symbol: "DAI", Address: common.HexToAddress("0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1"), Decimals: 18},
		{Chain: "arbitrum", Symbol: "ARB", Address: common.HexToAddress("0x912CE59144191C1204E64559FE8253a0e49E6548"), Decimals: 18},
		// Polygon
		{Chain: "polygon", Symbol: "MATIC", Address: NativeTokenAddress, Decimals: 18},
		{Chain: "polygon", Symbol: "USDC", Address: common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"), Decimals: 6},
		{Chain: "polygon", Symbol: "USDT", Address: common.HexToAddress("0xc2132D05D31c914a87C6611C10748AEb04B58e8F"), Decimals: 6},
		{Chain: "polygon", Symbol: "DAI", Address: common.HexToAddress("0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063"), Decimals: 18},
		{Chain: "polygon", Symbol: "WETH", Address: common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"), Decimals: 18},
		// Optimism
		{Chain: "optimism", Symbol: "ETH", Address: NativeTokenAddress, Decimals: 18},
		{Chain: "optimism", Symbol: "USDC", Address: common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"), Decimals: 6},
		// Base
		{Chain: "base", Symbol: "ETH", Address: NativeTokenAddress, Decimals: 18},
		{Chain: "base", Symbol: "USDC", Address: common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"), Decimals: 6},
	}
}
