// Package usecase orchestrates bridging: it validates routes, selects a
// backend and drives the chosen executor. Each invocation is independent;
// the only shared state is the immutable registry and the stateless
// clients, so callers may run invocations concurrently.
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MMN3003/stablebridge/src/bridge/domain"
	"github.com/MMN3003/stablebridge/src/bridge/oracle"
	"github.com/MMN3003/stablebridge/src/bridge/registry"
	"github.com/MMN3003/stablebridge/src/bridge/routes"
	"github.com/MMN3003/stablebridge/src/config"
	"github.com/MMN3003/stablebridge/src/logger"
)

type Service struct {
	logger     *logger.Logger
	reg        *registry.Registry
	selector   *routes.Selector
	oracle     *oracle.Oracle
	chain      domain.ChainClient
	attester   domain.Attester
	aggregator domain.Quoter
	relay      domain.Quoter

	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewService wires the orchestrator. All dependencies are injected and
// immutable; the service holds no per-invocation state.
func NewService(
	logg *logger.Logger,
	cfg *config.Config,
	reg *registry.Registry,
	selector *routes.Selector,
	ora *oracle.Oracle,
	chain domain.ChainClient,
	attester domain.Attester,
	aggregator domain.Quoter,
	relay domain.Quoter,
) *Service {
	return &Service{
		logger:       logg,
		reg:          reg,
		selector:     selector,
		oracle:       ora,
		chain:        chain,
		attester:     attester,
		aggregator:   aggregator,
		relay:        relay,
		pollInterval: cfg.Attestation.PollInterval,
		pollTimeout:  cfg.Attestation.Timeout,
	}
}

// Bridge moves value from one chain to another. All outcomes, including
// precondition failures, are reported through the result; the caller owns
// retry policy after a hard failure.
func (s *Service) Bridge(ctx context.Context, signer *domain.Signer, req domain.BridgeRequest) (res *domain.BridgeResult) {
	res = &domain.BridgeResult{
		ID:         uuid.New().String(),
		Source:     req.Source,
		Dest:       req.Dest,
		AmountSent: req.Amount,
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("bridge %s panicked: %v", res.ID, r)
			res.Success = false
			res.Error = fmt.Sprintf("unknown failure: %v", r)
		}
	}()

	if _, ok := s.reg.ConfigFor(req.Source); !ok {
		return s.fail(res, fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, req.Source))
	}
	if _, ok := s.reg.ConfigFor(req.Dest); !ok {
		return s.fail(res, fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, req.Dest))
	}
	if !req.Amount.IsPositive() {
		return s.fail(res, fmt.Errorf("amount must be positive, got %s", req.Amount))
	}
	if req.DestAddress == "" {
		req.DestAddress = signer.Address()
	}

	// Same-chain requests are only meaningful as a native→stablecoin swap.
	if req.Source == req.Dest {
		if req.Asset != domain.AssetNative || !s.selector.SupportsSameChainSwap(req.Source) {
			return s.fail(res, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidRoute, req.Source, req.Dest))
		}
		res.Backend = domain.BackendAggregator
		return s.bridgeViaPlan(ctx, signer, req, s.aggregator, res)
	}

	kind := domain.RouteStablecoin
	if req.Asset == domain.AssetNative {
		kind = domain.RouteNative
	}
	if !s.selector.IsValidRoute(req.Source, req.Dest, kind) {
		return s.fail(res, fmt.Errorf("%w: %s -> %s (%s)", domain.ErrInvalidRoute, req.Source, req.Dest, kind))
	}

	// Native-gas moves always settle through an aggregator plan.
	if req.Asset == domain.AssetNative {
		res.Backend = domain.BackendAggregator
		return s.bridgeViaPlan(ctx, signer, req, s.aggregator, res)
	}

	res.Backend = s.selector.BestBackend(req.Source, req.Dest)
	s.logger.Infof("bridge %s: %s %s -> %s via %s", res.ID, req.Amount, req.Source, req.Dest, res.Backend)

	switch res.Backend {
	case domain.BackendNativeProtocol:
		return s.bridgeViaBurn(ctx, signer, req, res)
	case domain.BackendFastRelay:
		return s.bridgeViaPlan(ctx, signer, req, s.relay, res)
	default:
		return s.bridgeViaPlan(ctx, signer, req, s.aggregator, res)
	}
}

// Quote prices a stablecoin move without executing it. Burn-protocol
// routes are priced through the general aggregator as well, since the
// protocol itself has no quote surface (it settles 1:1 minus gas).
func (s *Service) Quote(ctx context.Context, source, dest domain.Chain, amount decimal.Decimal, address string) (*domain.Quote, error) {
	if source == dest {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidRoute, source, dest)
	}
	if !s.selector.IsValidRoute(source, dest, domain.RouteStablecoin) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidRoute, source, dest)
	}

	quoter := s.aggregator
	if s.selector.BestBackend(source, dest) == domain.BackendFastRelay {
		quoter = s.relay
	}

	qreq, err := s.quoteRequest(domain.BridgeRequest{
		Source:      source,
		Dest:        dest,
		Amount:      amount,
		Asset:       domain.AssetStablecoin,
		DestAddress: address,
	}, address)
	if err != nil {
		return nil, err
	}
	return quoter.Quote(ctx, qreq)
}

// Balance surface, delegated to the oracle.

func (s *Service) StablecoinBalance(ctx context.Context, chain domain.Chain, address string) (decimal.Decimal, error) {
	return s.oracle.StablecoinBalance(ctx, chain, address)
}

func (s *Service) NativeBalance(ctx context.Context, chain domain.Chain, address string) (decimal.Decimal, error) {
	return s.oracle.NativeBalance(ctx, chain, address)
}

func (s *Service) AllStablecoinBalances(ctx context.Context, address string) map[domain.Chain]decimal.Decimal {
	return s.oracle.AllStablecoinBalances(ctx, address)
}

// Route surface, delegated to the selector.

func (s *Service) IsValidRoute(src, dst domain.Chain, kind domain.RouteKind) bool {
	return s.selector.IsValidRoute(src, dst, kind)
}

func (s *Service) BestBackend(src, dst domain.Chain) domain.Backend {
	return s.selector.BestBackend(src, dst)
}

func (s *Service) ValidSourcesFor(dst domain.Chain, kind domain.RouteKind) []domain.Chain {
	return s.selector.ValidSourcesFor(dst, kind)
}

func (s *Service) ValidDestinationsFor(src domain.Chain, kind domain.RouteKind) []domain.Chain {
	return s.selector.ValidDestinationsFor(src, kind)
}

// quoteRequest translates a bridge request into aggregator quote inputs,
// resolving tokens and decimals per chain and asset.
func (s *Service) quoteRequest(req domain.BridgeRequest, fromAddress string) (domain.QuoteRequest, error) {
	srcCfg, ok := s.reg.ConfigFor(req.Source)
	if !ok {
		return domain.QuoteRequest{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, req.Source)
	}
	dstCfg, ok := s.reg.ConfigFor(req.Dest)
	if !ok {
		return domain.QuoteRequest{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, req.Dest)
	}

	out := domain.QuoteRequest{
		Source:      req.Source,
		Dest:        req.Dest,
		Amount:      req.Amount,
		FromAddress: fromAddress,
		ToAddress:   req.DestAddress,
	}
	switch {
	case req.Source == req.Dest:
		// Same-chain swap: native in, stablecoin out.
		out.FromToken = domain.NativeTokenAddress
		out.FromDecimals = 18
		out.ToToken = dstCfg.StablecoinAddress
		out.ToDecimals = dstCfg.StablecoinDecimals
	case req.Asset == domain.AssetNative:
		out.FromToken = domain.NativeTokenAddress
		out.FromDecimals = 18
		out.ToToken = domain.NativeTokenAddress
		out.ToDecimals = 18
	default:
		out.FromToken = srcCfg.StablecoinAddress
		out.FromDecimals = srcCfg.StablecoinDecimals
		out.ToToken = dstCfg.StablecoinAddress
		out.ToDecimals = dstCfg.StablecoinDecimals
	}
	return out, nil
}

func (s *Service) fail(res *domain.BridgeResult, err error) *domain.BridgeResult {
	s.logger.Errorf("bridge %s failed: %v", res.ID, err)
	res.Success = false
	res.Error = err.Error()
	return res
}
