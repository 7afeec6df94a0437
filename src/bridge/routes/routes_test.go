package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MMN3003/stablebridge/src/bridge/domain"
	"github.com/MMN3003/stablebridge/src/bridge/registry"
	"github.com/MMN3003/stablebridge/src/config"
)

func testSelector() *Selector {
	cfg := &config.Config{
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
	return NewSelector(registry.New(cfg))
}

func TestIsValidRouteStablecoin(t *testing.T) {
	s := testSelector()

	t.Run("burn mesh is bidirectional", func(t *testing.T) {
		assert.True(t, s.IsValidRoute(domain.ChainEthereum, domain.ChainArbitrum, domain.RouteStablecoin))
		assert.True(t, s.IsValidRoute(domain.ChainArbitrum, domain.ChainEthereum, domain.RouteStablecoin))
		assert.True(t, s.IsValidRoute(domain.ChainAvalanche, domain.ChainPolygon, domain.RouteStablecoin))
	})

	t.Run("same chain is never a route", func(t *testing.T) {
		for _, c := range []domain.Chain{domain.ChainEthereum, domain.ChainBSC, domain.ChainSolana} {
			assert.False(t, s.IsValidRoute(c, c, domain.RouteStablecoin), "%s -> %s", c, c)
		}
	})

	t.Run("asymmetric edges", func(t *testing.T) {
		// BSC can be exited toward Base, but Base cannot enter BSC.
		assert.True(t, s.IsValidRoute(domain.ChainBSC, domain.ChainBase, domain.RouteStablecoin))
		assert.False(t, s.IsValidRoute(domain.ChainBase, domain.ChainBSC, domain.RouteStablecoin))

		// Solana is destination-only.
		assert.True(t, s.IsValidRoute(domain.ChainEthereum, domain.ChainSolana, domain.RouteStablecoin))
		assert.False(t, s.IsValidRoute(domain.ChainSolana, domain.ChainEthereum, domain.RouteStablecoin))
	})

	t.Run("unknown chain", func(t *testing.T) {
		assert.False(t, s.IsValidRoute("dogechain", domain.ChainEthereum, domain.RouteStablecoin))
		assert.False(t, s.IsValidRoute(domain.ChainEthereum, "dogechain", domain.RouteStablecoin))
	})
}

func TestIsValidRouteNative(t *testing.T) {
	s := testSelector()

	assert.True(t, s.IsValidRoute(domain.ChainEthereum, domain.ChainBase, domain.RouteNative))
	assert.True(t, s.IsValidRoute(domain.ChainBase, domain.ChainEthereum, domain.RouteNative))

	// Gas top-ups out of ethereum are one-way.
	assert.True(t, s.IsValidRoute(domain.ChainEthereum, domain.ChainPolygon, domain.RouteNative))
	assert.False(t, s.IsValidRoute(domain.ChainPolygon, domain.ChainEthereum, domain.RouteNative))

	assert.False(t, s.IsValidRoute(domain.ChainEthereum, domain.ChainSolana, domain.RouteNative))
}

func TestUnconfiguredChainInvalidatesStaticRoute(t *testing.T) {
	// Polygon is in the static tables but carries no endpoint here, so
	// routes touching it must be rejected.
	cfg := &config.Config{
		RPC: config.RPCConfig{
			Ethereum: "http://localhost:8545",
			Arbitrum: "http://localhost:8546",
		},
	}
	s := NewSelector(registry.New(cfg))

	assert.True(t, s.IsValidRoute(domain.ChainEthereum, domain.ChainArbitrum, domain.RouteStablecoin))
	assert.False(t, s.IsValidRoute(domain.ChainEthereum, domain.ChainPolygon, domain.RouteStablecoin))
	assert.False(t, s.SupportsSameChainSwap(domain.ChainPolygon))
}

func TestValidSourcesAndDestinations(t *testing.T) {
	s := testSelector()

	sources := s.ValidSourcesFor(domain.ChainSolana, domain.RouteStablecoin)
	assert.Len(t, sources, 6)
	assert.NotContains(t, sources, domain.ChainBSC)

	dests := s.ValidDestinationsFor(domain.ChainSolana, domain.RouteStablecoin)
	assert.Empty(t, dests, "solana is destination-only")

	dests = s.ValidDestinationsFor(domain.ChainBSC, domain.RouteStablecoin)
	assert.ElementsMatch(t, []domain.Chain{
		domain.ChainEthereum, domain.ChainArbitrum, domain.ChainBase, domain.ChainPolygon,
	}, dests)
}

func TestBestBackend(t *testing.T) {
	s := testSelector()

	t.Run("aggregator-only endpoints force the aggregator", func(t *testing.T) {
		assert.Equal(t, domain.BackendAggregator, s.BestBackend(domain.ChainBSC, domain.ChainEthereum))
		assert.Equal(t, domain.BackendAggregator, s.BestBackend(domain.ChainEthereum, domain.ChainSolana))
	})

	t.Run("relay-registered burn routes prefer the fast relay", func(t *testing.T) {
		assert.Equal(t, domain.BackendFastRelay, s.BestBackend(domain.ChainEthereum, domain.ChainArbitrum))
		assert.Equal(t, domain.BackendFastRelay, s.BestBackend(domain.ChainOptimism, domain.ChainPolygon))
	})

	t.Run("burn protocol when relay does not cover the route", func(t *testing.T) {
		// Avalanche is not in the default relay set.
		assert.Equal(t, domain.BackendNativeProtocol, s.BestBackend(domain.ChainEthereum, domain.ChainAvalanche))
		assert.Equal(t, domain.BackendNativeProtocol, s.BestBackend(domain.ChainAvalanche, domain.ChainBase))
	})

	t.Run("deterministic", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			assert.Equal(t, domain.BackendFastRelay, s.BestBackend(domain.ChainEthereum, domain.ChainArbitrum))
		}
	})
}

func TestWithRelayChains(t *testing.T) {
	s := testSelector()

	t.Run("probe result replaces the default set", func(t *testing.T) {
		probed := s.WithRelayChains([]domain.Chain{domain.ChainEthereum, domain.ChainAvalanche})
		assert.Equal(t, domain.BackendFastRelay, probed.BestBackend(domain.ChainEthereum, domain.ChainAvalanche))
		// Arbitrum fell out of the probed set.
		assert.Equal(t, domain.BackendNativeProtocol, probed.BestBackend(domain.ChainEthereum, domain.ChainArbitrum))
		// The original selector is untouched.
		assert.Equal(t, domain.BackendFastRelay, s.BestBackend(domain.ChainEthereum, domain.ChainArbitrum))
	})

	t.Run("empty probe keeps the default", func(t *testing.T) {
		same := s.WithRelayChains(nil)
		assert.Equal(t, domain.BackendFastRelay, same.BestBackend(domain.ChainEthereum, domain.ChainArbitrum))
	})
}

func TestSupportsSameChainSwap(t *testing.T) {
	s := testSelector()
	assert.True(t, s.SupportsSameChainSwap(domain.ChainEthereum))
	assert.True(t, s.SupportsSameChainSwap(domain.ChainBSC))
	assert.False(t, s.SupportsSameChainSwap(domain.ChainSolana))
	assert.False(t, s.SupportsSameChainSwap("dogechain"))
}
