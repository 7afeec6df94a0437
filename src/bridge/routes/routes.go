// Package routes owns the static route tables and the backend selection
// policy. Route validity is directional on purpose: (A,B) being listed
// says nothing about (B,A), which mirrors actual liquidity availability.
package routes

import (
	"github.com/MMN3003/stablebridge/src/bridge/domain"
	"github.com/MMN3003/stablebridge/src/bridge/registry"
)

type route struct {
	src domain.Chain
	dst domain.Chain
}

// burnMesh are the chains with burn-protocol contracts. Stablecoin routes
// between any two of them are valid in both directions.
var burnMesh = []domain.Chain{
	domain.ChainEthereum,
	domain.ChainArbitrum,
	domain.ChainOptimism,
	domain.ChainBase,
	domain.ChainPolygon,
	domain.ChainAvalanche,
}

// stableExtra are the hand-maintained aggregator-only stablecoin routes.
// Note the asymmetry: BSC can be exited toward most chains while only the
// deep-liquidity chains can enter it, and Solana is destination-only.
var stableExtra = []route{
	{domain.ChainBSC, domain.ChainEthereum},
	{domain.ChainBSC, domain.ChainArbitrum},
	{domain.ChainBSC, domain.ChainBase},
	{domain.ChainBSC, domain.ChainPolygon},
	{domain.ChainEthereum, domain.ChainBSC},
	{domain.ChainArbitrum, domain.ChainBSC},
	{domain.ChainEthereum, domain.ChainSolana},
	{domain.ChainArbitrum, domain.ChainSolana},
	{domain.ChainOptimism, domain.ChainSolana},
	{domain.ChainBase, domain.ChainSolana},
	{domain.ChainPolygon, domain.ChainSolana},
	{domain.ChainAvalanche, domain.ChainSolana},
}

// nativeMesh are the chains whose gas token can be bridged between each
// other directly (all ETH-gas chains).
var nativeMesh = []domain.Chain{
	domain.ChainEthereum,
	domain.ChainArbitrum,
	domain.ChainOptimism,
	domain.ChainBase,
}

// nativeExtra are one-way gas top-up routes out of the two deepest chains.
var nativeExtra = []route{
	{domain.ChainEthereum, domain.ChainPolygon},
	{domain.ChainEthereum, domain.ChainAvalanche},
	{domain.ChainEthereum, domain.ChainBSC},
	{domain.ChainArbitrum, domain.ChainPolygon},
	{domain.ChainArbitrum, domain.ChainAvalanche},
}

// swapCapable are the chains where a same-chain native→stablecoin swap is
// available through the aggregator.
var swapCapable = map[domain.Chain]struct{}{
	domain.ChainEthereum:  {},
	domain.ChainArbitrum:  {},
	domain.ChainOptimism:  {},
	domain.ChainBase:      {},
	domain.ChainPolygon:   {},
	domain.ChainAvalanche: {},
	domain.ChainBSC:       {},
}

// defaultRelayChains is the static fallback for chains registered with the
// fast-relay backend, used when the startup probe is unavailable.
var defaultRelayChains = []domain.Chain{
	domain.ChainEthereum,
	domain.ChainArbitrum,
	domain.ChainOptimism,
	domain.ChainBase,
	domain.ChainPolygon,
}

var (
	stableRoutes = map[route]struct{}{}
	nativeRoutes = map[route]struct{}{}
)

func init() {
	for _, a := range burnMesh {
		for _, b := range burnMesh {
			if a != b {
				stableRoutes[route{a, b}] = struct{}{}
			}
		}
	}
	for _, r := range stableExtra {
		stableRoutes[r] = struct{}{}
	}
	for _, a := range nativeMesh {
		for _, b := range nativeMesh {
			if a != b {
				nativeRoutes[route{a, b}] = struct{}{}
			}
		}
	}
	for _, r := range nativeExtra {
		nativeRoutes[r] = struct{}{}
	}
}

// Selector answers route validity and backend selection questions against
// the static tables and the chain registry. Immutable after construction.
type Selector struct {
	reg   *registry.Registry
	relay map[domain.Chain]struct{}
}

func NewSelector(reg *registry.Registry) *Selector {
	relay := make(map[domain.Chain]struct{}, len(defaultRelayChains))
	for _, c := range defaultRelayChains {
		relay[c] = struct{}{}
	}
	return &Selector{reg: reg, relay: relay}
}

// WithRelayChains returns a selector using the given relay registration
// set instead of the static default. Called once at startup after probing
// the relay backend; an empty probe result keeps the default.
func (s *Selector) WithRelayChains(chains []domain.Chain) *Selector {
	if len(chains) == 0 {
		return s
	}
	relay := make(map[domain.Chain]struct{}, len(chains))
	for _, c := range chains {
		relay[c] = struct{}{}
	}
	return &Selector{reg: s.reg, relay: relay}
}

func (s *Selector) table(kind domain.RouteKind) map[route]struct{} {
	if kind == domain.RouteNative {
		return nativeRoutes
	}
	return stableRoutes
}

// IsValidRoute reports whether (src, dst) is bridgeable for the given
// asset kind. Same-chain pairs are never valid routes; they are handled
// by the swap path instead.
func (s *Selector) IsValidRoute(src, dst domain.Chain, kind domain.RouteKind) bool {
	if src == dst {
		return false
	}
	if _, ok := s.reg.ConfigFor(src); !ok {
		return false
	}
	if _, ok := s.reg.ConfigFor(dst); !ok {
		return false
	}
	_, ok := s.table(kind)[route{src, dst}]
	return ok
}

// ValidSourcesFor lists chains that can bridge into dst.
func (s *Selector) ValidSourcesFor(dst domain.Chain, kind domain.RouteKind) []domain.Chain {
	var out []domain.Chain
	for _, src := range s.reg.SupportedChains() {
		if s.IsValidRoute(src, dst, kind) {
			out = append(out, src)
		}
	}
	return out
}

// ValidDestinationsFor lists chains reachable from src.
func (s *Selector) ValidDestinationsFor(src domain.Chain, kind domain.RouteKind) []domain.Chain {
	var out []domain.Chain
	for _, dst := range s.reg.SupportedChains() {
		if s.IsValidRoute(src, dst, kind) {
			out = append(out, dst)
		}
	}
	return out
}

// SupportsSameChainSwap reports whether a native→stablecoin swap is
// available on the chain.
func (s *Selector) SupportsSameChainSwap(chain domain.Chain) bool {
	if _, ok := s.reg.ConfigFor(chain); !ok {
		return false
	}
	_, ok := swapCapable[chain]
	return ok
}

// RequiresAggregator reports whether either end of the route lacks
// burn-protocol contracts, forcing the aggregator backend.
func (s *Selector) RequiresAggregator(src, dst domain.Chain) bool {
	return s.aggregatorOnly(src) || s.aggregatorOnly(dst)
}

func (s *Selector) aggregatorOnly(chain domain.Chain) bool {
	cfg, ok := s.reg.ConfigFor(chain)
	if !ok {
		return true
	}
	return !cfg.EVM || !cfg.SupportsBurnProtocol()
}

// BestBackend picks the settlement mechanism for a route. Aggregator-only
// chains force the aggregator; otherwise a route fully registered with the
// fast relay prefers it (near-instant, small fee) over the slower but
// cheaper burn protocol.
func (s *Selector) BestBackend(src, dst domain.Chain) domain.Backend {
	if s.RequiresAggregator(src, dst) {
		return domain.BackendAggregator
	}
	if _, ok := s.relay[src]; ok {
		if _, ok := s.relay[dst]; ok {
			return domain.BackendFastRelay
		}
	}
	return domain.BackendNativeProtocol
}
