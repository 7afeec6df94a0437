// Package oracle reads wallet balances across the configured chains.
package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/MMN3003/stablebridge/src/bridge/domain"
	"github.com/MMN3003/stablebridge/src/bridge/registry"
	"github.com/MMN3003/stablebridge/src/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const nativeDecimals = 18

type Oracle struct {
	reg    *registry.Registry
	chain  domain.ChainClient
	logger *logger.Logger
}

func New(reg *registry.Registry, chain domain.ChainClient, logg *logger.Logger) *Oracle {
	return &Oracle{reg: reg, chain: chain, logger: logg}
}

// StablecoinBalance reads the stablecoin contract balance of address and
// scales it with that chain's configured precision. Using any other
// precision would silently report a balance off by a power of ten.
func (o *Oracle) StablecoinBalance(ctx context.Context, chain domain.Chain, address string) (decimal.Decimal, error) {
	cfg, ok := o.reg.ConfigFor(chain)
	if !ok || !cfg.EVM {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, chain)
	}
	raw, err := o.chain.TokenBalance(ctx, chain, cfg.StablecoinAddress, address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read stablecoin balance on %s: %w", chain, err)
	}
	return domain.AmountFromUnits(raw, cfg.StablecoinDecimals), nil
}

// NativeBalance reads the native gas balance of address. Native balances
// are always wei-scaled regardless of chain.
func (o *Oracle) NativeBalance(ctx context.Context, chain domain.Chain, address string) (decimal.Decimal, error) {
	cfg, ok := o.reg.ConfigFor(chain)
	if !ok || !cfg.EVM {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, chain)
	}
	raw, err := o.chain.NativeBalance(ctx, chain, address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read native balance on %s: %w", chain, err)
	}
	return domain.AmountFromUnits(raw, nativeDecimals), nil
}

// AllStablecoinBalances fans one read per configured EVM chain out in
// parallel and aggregates. A failing chain is logged and reported as zero
// rather than failing the whole query. Chains without an RPC surface
// (solana) are not part of the aggregate.
func (o *Oracle) AllStablecoinBalances(ctx context.Context, address string) map[domain.Chain]decimal.Decimal {
	chains := o.reg.EVMChains()
	out := make(map[domain.Chain]decimal.Decimal, len(chains))

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, chain := range chains {
		chain := chain
		g.Go(func() error {
			bal, err := o.StablecoinBalance(ctx, chain, address)
			if err != nil {
				o.logger.Errorf("[%s] balance read failed: %v", chain, err)
				bal = decimal.Zero
			}
			mu.Lock()
			out[chain] = bal
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // per-chain failures degrade to zero, never abort

	return out
}
