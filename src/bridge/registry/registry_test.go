package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MMN3003/stablebridge/src/bridge/domain"
	"github.com/MMN3003/stablebridge/src/config"
)

func fullConfig() *config.Config {
	return &config.Config{
		RPC: config.RPCConfig{
			Ethereum:  "http://localhost:8545",
			Arbitrum:  "http://localhost:8546",
			Optimism:  "http://localhost:8547",
			Base:      "http://localhost:8548",
			Polygon:   "http://localhost:8549",
			Avalanche: "http://localhost:8550",
			BSC:       "http://localhost:8551",
		},
	}
}

func TestNewExcludesChainsWithoutEndpoint(t *testing.T) {
	cfg := fullConfig()
	cfg.RPC.Avalanche = ""
	reg := New(cfg)

	_, ok := reg.ConfigFor(domain.ChainAvalanche)
	assert.False(t, ok, "avalanche has no endpoint and must be unsupported")

	_, ok = reg.ConfigFor(domain.ChainEthereum)
	assert.True(t, ok)
}

func TestSolanaAlwaysPresent(t *testing.T) {
	reg := New(&config.Config{}) // no endpoints at all

	cfg, ok := reg.ConfigFor(domain.ChainSolana)
	require.True(t, ok, "solana needs no RPC endpoint")
	assert.False(t, cfg.EVM)
	assert.False(t, cfg.SupportsBurnProtocol())
	assert.Empty(t, reg.EVMChains())
}

func TestSupportedChainsOrderStable(t *testing.T) {
	reg := New(fullConfig())
	chains := reg.SupportedChains()
	assert.Equal(t, []domain.Chain{
		domain.ChainEthereum,
		domain.ChainArbitrum,
		domain.ChainOptimism,
		domain.ChainBase,
		domain.ChainPolygon,
		domain.ChainAvalanche,
		domain.ChainBSC,
		domain.ChainSolana,
	}, chains)

	evm := reg.EVMChains()
	assert.NotContains(t, evm, domain.ChainSolana)
	assert.Len(t, evm, 7)
}

func TestChainFacts(t *testing.T) {
	reg := New(fullConfig())

	eth, _ := reg.ConfigFor(domain.ChainEthereum)
	assert.EqualValues(t, 1, eth.ChainID.Int64())
	assert.EqualValues(t, 6, eth.StablecoinDecimals)
	assert.True(t, eth.SupportsBurnProtocol())
	assert.EqualValues(t, 0, eth.BurnDomain)

	arb, _ := reg.ConfigFor(domain.ChainArbitrum)
	assert.EqualValues(t, 3, arb.BurnDomain)

	// The one 18-decimal stablecoin deployment, and no burn contracts.
	bsc, _ := reg.ConfigFor(domain.ChainBSC)
	assert.EqualValues(t, 18, bsc.StablecoinDecimals)
	assert.False(t, bsc.SupportsBurnProtocol())
}
