package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MMN3003/stablebridge/src/Infrastructure/attestation"
	"github.com/MMN3003/stablebridge/src/Infrastructure/evmclient"
	"github.com/MMN3003/stablebridge/src/Infrastructure/lifi"
	"github.com/MMN3003/stablebridge/src/Infrastructure/relay"
	"github.com/MMN3003/stablebridge/src/bridge/domain"
	"github.com/MMN3003/stablebridge/src/bridge/oracle"
	"github.com/MMN3003/stablebridge/src/bridge/registry"
	"github.com/MMN3003/stablebridge/src/bridge/routes"
	"github.com/MMN3003/stablebridge/src/bridge/usecase"
	"github.com/MMN3003/stablebridge/src/config"
	"github.com/MMN3003/stablebridge/src/logger"
)

func main() {
	cfg := config.LoadFromEnv()
	logg := logger.New(cfg.Env)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()

	// --- Dependencies ---
	reg := registry.New(cfg)
	if len(reg.EVMChains()) == 0 {
		logg.Fatalf("no chain RPC endpoints configured")
	}

	chainClient, err := evmclient.NewRegistry(ctx, reg, logg)
	if err != nil {
		logg.Fatalf("chain clients: %v", err)
	}
	defer chainClient.Close()

	attester, err := attestation.NewClient(cfg.Attestation.BaseURL, attestation.WithLogger(logg.Zero()))
	if err != nil {
		logg.Fatalf("attestation client: %v", err)
	}
	aggregator, err := lifi.NewClient(cfg.Aggregator.BaseURL, reg,
		lifi.WithAPIKey(cfg.Aggregator.APIKey),
		lifi.WithLogger(logg.Zero()),
	)
	if err != nil {
		logg.Fatalf("aggregator client: %v", err)
	}
	relayClient, err := relay.NewClient(cfg.Relay.BaseURL, reg, relay.WithLogger(logg.Zero()))
	if err != nil {
		logg.Fatalf("relay client: %v", err)
	}

	selector := routes.NewSelector(reg)
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if chains, err := relayClient.RegisteredChains(probeCtx); err != nil {
		logg.Warnf("relay chain probe failed, using static set: %v", err)
	} else {
		selector = selector.WithRelayChains(chains)
	}
	cancel()

	ora := oracle.New(reg, chainClient, logg)
	svc := usecase.NewService(logg, cfg, reg, selector, ora, chainClient, attester, aggregator, relayClient)

	switch os.Args[1] {
	case "balances":
		requireArgs(3, "balances <address>")
		balances := svc.AllStablecoinBalances(ctx, os.Args[2])
		for _, chain := range reg.SupportedChains() {
			if bal, ok := balances[chain]; ok {
				fmt.Printf("%-10s %s\n", chain, bal)
			}
		}

	case "quote":
		requireArgs(6, "quote <source> <dest> <amount> <address>")
		amount, err := decimal.NewFromString(os.Args[4])
		if err != nil {
			logg.Fatalf("invalid amount: %v", err)
		}
		quote, err := svc.Quote(ctx, domain.Chain(os.Args[2]), domain.Chain(os.Args[3]), amount, os.Args[5])
		if err != nil {
			logg.Fatalf("quote: %v", err)
		}
		fmt.Printf("in=%s out=%s fee=%s (%s%%) eta=%ds tool=%s\n",
			quote.AmountIn, quote.AmountOut, quote.Fee, quote.FeePercent, quote.EstimatedSeconds, quote.Tool)

	case "routes":
		requireArgs(3, "routes <source>")
		src := domain.Chain(os.Args[2])
		for _, dst := range svc.ValidDestinationsFor(src, domain.RouteStablecoin) {
			fmt.Printf("%s -> %-10s via %s\n", src, dst, svc.BestBackend(src, dst))
		}

	case "bridge":
		requireArgs(5, "bridge <source> <dest> <amount>")
		key := os.Getenv("PRIVATE_KEY")
		if key == "" {
			logg.Fatalf("PRIVATE_KEY is required")
		}
		signer, err := domain.NewSignerFromHex(key)
		if err != nil {
			logg.Fatalf("signer: %v", err)
		}
		amount, err := decimal.NewFromString(os.Args[4])
		if err != nil {
			logg.Fatalf("invalid amount: %v", err)
		}
		result := svc.Bridge(ctx, signer, domain.BridgeRequest{
			Source: domain.Chain(os.Args[2]),
			Dest:   domain.Chain(os.Args[3]),
			Amount: amount,
			Asset:  domain.AssetStablecoin,
			OnProgress: func(p domain.Progress) {
				logg.Infof("[%s] %s %s", p.BridgeID, p.Stage, p.Message)
			},
		})
		if !result.Success {
			logg.Fatalf("bridge failed: %s (burn tx: %s)", result.Error, result.SourceTxHash)
		}
		fmt.Printf("sent=%s received=%s burn=%s mint=%s pending=%v\n",
			result.AmountSent, result.AmountReceived, result.SourceTxHash, result.DestTxHash, result.PendingMint)

	default:
		usage()
		os.Exit(2)
	}
}

func requireArgs(n int, form string) {
	if len(os.Args) < n {
		fmt.Fprintf(os.Stderr, "usage: stablebridge %s\n", form)
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: stablebridge <command>

commands:
  balances <address>                       stablecoin balance on every configured chain
  quote    <source> <dest> <amount> <addr> price a move without executing it
  routes   <source>                        list destinations and selected backends
  bridge   <source> <dest> <amount>        execute a move (PRIVATE_KEY env required)`)
}
