// Package registry holds the immutable per-chain metadata table. It is
// built once at startup from the configured endpoints and never mutated,
// so it is safe to share across concurrent bridge invocations.
package registry

import (
	"math/big"

	"github.com/MMN3003/stablebridge/src/bridge/domain"
	"github.com/MMN3003/stablebridge/src/config"
	"github.com/shopspring/decimal"
)

// chainFacts are the static per-chain constants: chain id, burn-protocol
// domain and contracts, stablecoin address and precision, gas floor.
// The RPC endpoint is the only field supplied by configuration.
var chainFacts = map[domain.Chain]domain.ChainConfig{
	domain.ChainEthereum: {
		Chain:              domain.ChainEthereum,
		ChainID:            big.NewInt(1),
		EVM:                true,
		NativeSymbol:       "ETH",
		StablecoinAddress:  "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		StablecoinDecimals: 6,
		BurnDomain:         0,
		TokenMessenger:     "0xBd3fa81B58Ba92a82136038B25aDec7066af3155",
		MessageTransmitter: "0x0a992d191DEeC32aFe36203Ad87D7d289a738F81",
		// Mainnet gas is by far the most expensive, hence the larger floor.
		MinNativeGas: decimal.NewFromFloat(0.01),
	},
	domain.ChainArbitrum: {
		Chain:              domain.ChainArbitrum,
		ChainID:            big.NewInt(42161),
		EVM:                true,
		NativeSymbol:       "ETH",
		StablecoinAddress:  "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
		StablecoinDecimals: 6,
		BurnDomain:         3,
		TokenMessenger:     "0x19330d10D9Cc8751218eaf51E8885D058642E08A",
		MessageTransmitter: "0xC30362313FBBA5cf9163F0bb16a0e01f01A896ca",
		MinNativeGas:       decimal.NewFromFloat(0.002),
	},
	domain.ChainOptimism: {
		Chain:              domain.ChainOptimism,
		ChainID:            big.NewInt(10),
		EVM:                true,
		NativeSymbol:       "ETH",
		StablecoinAddress:  "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85",
		StablecoinDecimals: 6,
		BurnDomain:         2,
		TokenMessenger:     "0x2B4069517957735bE00ceE0fadAE88a26365528f",
		MessageTransmitter: "0x4D41f22c5a0e5c74090899E5a8Fb597a8842b3e8",
		MinNativeGas:       decimal.NewFromFloat(0.002),
	},
	domain.ChainBase: {
		Chain:              domain.ChainBase,
		ChainID:            big.NewInt(8453),
		EVM:                true,
		NativeSymbol:       "ETH",
		StablecoinAddress:  "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		StablecoinDecimals: 6,
		BurnDomain:         6,
		TokenMessenger:     "0x1682Ae6375C4E4A97e4B583BC394c861A46D8962",
		MessageTransmitter: "0xAD09780d193884d503182aD4588450C416D6F9D4",
		MinNativeGas:       decimal.NewFromFloat(0.002),
	},
	domain.ChainPolygon: {
		Chain:              domain.ChainPolygon,
		ChainID:            big.NewInt(137),
		EVM:                true,
		NativeSymbol:       "POL",
		StablecoinAddress:  "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
		StablecoinDecimals: 6,
		BurnDomain:         7,
		TokenMessenger:     "0x9daF8c91AEFAE50b9c0E69629D3F6Ca40cA3B3FE",
		MessageTransmitter: "0xF3be9355363857F3e001be68856A2f96b4C39Ba9",
		MinNativeGas:       decimal.NewFromFloat(0.1),
	},
	domain.ChainAvalanche: {
		Chain:              domain.ChainAvalanche,
		ChainID:            big.NewInt(43114),
		EVM:                true,
		NativeSymbol:       "AVAX",
		StablecoinAddress:  "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
		StablecoinDecimals: 6,
		BurnDomain:         1,
		TokenMessenger:     "0x6B25532e1060CE10cc3B0A99e5683b91BFDe6982",
		MessageTransmitter: "0x8186359aF5F57FbB40c6b14A588d2A59C0C29880",
		MinNativeGas:       decimal.NewFromFloat(0.05),
	},
	// Bridged USDC on BSC is an 18-decimal token, unlike every other chain
	// here. No burn-protocol contracts: aggregator only.
	domain.ChainBSC: {
		Chain:              domain.ChainBSC,
		ChainID:            big.NewInt(56),
		EVM:                true,
		NativeSymbol:       "BNB",
		StablecoinAddress:  "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d",
		StablecoinDecimals: 18,
		MinNativeGas:       decimal.NewFromFloat(0.005),
	},
	// Solana is not an EVM chain and carries no RPC endpoint here. It is
	// reachable only through the aggregator backend as a destination.
	domain.ChainSolana: {
		Chain:              domain.ChainSolana,
		EVM:                false,
		NativeSymbol:       "SOL",
		StablecoinAddress:  "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		StablecoinDecimals: 6,
	},
}

// chainOrder fixes the iteration order of SupportedChains.
var chainOrder = []domain.Chain{
	domain.ChainEthereum,
	domain.ChainArbitrum,
	domain.ChainOptimism,
	domain.ChainBase,
	domain.ChainPolygon,
	domain.ChainAvalanche,
	domain.ChainBSC,
	domain.ChainSolana,
}

type Registry struct {
	configs map[domain.Chain]domain.ChainConfig
}

// New builds the registry from configured RPC endpoints. An EVM chain with
// no endpoint is left out entirely and is reported as unsupported by every
// later component.
func New(cfg *config.Config) *Registry {
	endpoints := map[domain.Chain]string{
		domain.ChainEthereum:  cfg.RPC.Ethereum,
		domain.ChainArbitrum:  cfg.RPC.Arbitrum,
		domain.ChainOptimism:  cfg.RPC.Optimism,
		domain.ChainBase:      cfg.RPC.Base,
		domain.ChainPolygon:   cfg.RPC.Polygon,
		domain.ChainAvalanche: cfg.RPC.Avalanche,
		domain.ChainBSC:       cfg.RPC.BSC,
	}

	configs := make(map[domain.Chain]domain.ChainConfig, len(chainFacts))
	for chain, facts := range chainFacts {
		if facts.EVM {
			url, ok := endpoints[chain]
			if !ok || url == "" {
				continue
			}
			facts.RPCURL = url
		}
		configs[chain] = facts
	}
	return &Registry{configs: configs}
}

// ConfigFor returns the chain's configuration, reporting absence for
// chains that were not configured.
func (r *Registry) ConfigFor(chain domain.Chain) (domain.ChainConfig, bool) {
	cfg, ok := r.configs[chain]
	return cfg, ok
}

// SupportedChains lists every configured chain in a stable order.
func (r *Registry) SupportedChains() []domain.Chain {
	out := make([]domain.Chain, 0, len(r.configs))
	for _, chain := range chainOrder {
		if _, ok := r.configs[chain]; ok {
			out = append(out, chain)
		}
	}
	return out
}

// EVMChains lists configured chains that carry an RPC endpoint.
func (r *Registry) EVMChains() []domain.Chain {
	out := make([]domain.Chain, 0, len(r.configs))
	for _, chain := range r.SupportedChains() {
		if r.configs[chain].EVM {
			out = append(out, chain)
		}
	}
	return out
}
