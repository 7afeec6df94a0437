package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Chain identifies a supported network.
type Chain string

const (
	ChainEthereum  Chain = "ethereum"
	ChainArbitrum  Chain = "arbitrum"
	ChainOptimism  Chain = "optimism"
	ChainBase      Chain = "base"
	ChainPolygon   Chain = "polygon"
	ChainAvalanche Chain = "avalanche"
	ChainBSC       Chain = "bsc"
	ChainSolana    Chain = "solana"
)

func (c Chain) String() string { return string(c) }

// NativeTokenAddress is the sentinel the aggregator backends use for a
// chain's gas token in place of a contract address.
const NativeTokenAddress = "0x0000000000000000000000000000000000000000"

// Backend selects which settlement mechanism performs a bridge.
type Backend string

const (
	BackendNativeProtocol Backend = "native_protocol"
	BackendFastRelay      Backend = "fast_relay"
	BackendAggregator     Backend = "general_aggregator"
)

// RouteKind distinguishes stablecoin routes from native-gas routes.
type RouteKind string

const (
	RouteStablecoin RouteKind = "stablecoin"
	RouteNative     RouteKind = "native"
)

// Asset is what the caller wants moved.
type Asset string

const (
	AssetStablecoin Asset = "stablecoin"
	AssetNative     Asset = "native"
)

// ChainConfig carries every per-chain fact in one place. Immutable after
// the registry is built.
type ChainConfig struct {
	Chain              Chain
	ChainID            *big.Int // nil for non-EVM chains
	EVM                bool
	RPCURL             string
	NativeSymbol       string
	StablecoinAddress  string
	StablecoinDecimals int32
	// Burn protocol contracts. Both empty means the protocol is not
	// deployed on this chain and routing must fall back to an aggregator.
	BurnDomain         uint32
	TokenMessenger     string
	MessageTransmitter string
	// Minimum native balance required before an executor will broadcast,
	// expressed in whole native units.
	MinNativeGas decimal.Decimal
}

// SupportsBurnProtocol reports whether the burn/attest/mint contracts are
// deployed on this chain.
func (c ChainConfig) SupportsBurnProtocol() bool {
	return c.TokenMessenger != "" && c.MessageTransmitter != ""
}

// AmountFromUnits converts a raw on-chain integer into a decimal amount
// using the asset's configured precision.
func AmountFromUnits(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// AmountToUnits converts a decimal amount into the raw on-chain integer.
// Fractional dust below the asset's precision is truncated.
func AmountToUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// TxStep is one raw transaction in an aggregator execution plan.
type TxStep struct {
	To       string
	Data     []byte
	Value    *big.Int
	GasLimit uint64 // 0 means estimate on-chain
}

// TxPlan is the ordered transaction plan returned inside a quote. When
// ApprovalSpender is set the plan spends an ERC20 and the executor must
// ensure an allowance before running the steps.
type TxPlan struct {
	ApprovalSpender string
	ApprovalToken   string
	Steps           []TxStep
}

// Quote is a priced, executable route from one of the aggregator backends.
// It is only valid within the backend's own expiry window and is never
// reused across calls.
type Quote struct {
	ID               string
	Source           Chain
	Dest             Chain
	AmountIn         decimal.Decimal
	AmountOut        decimal.Decimal
	Fee              decimal.Decimal
	FeePercent       decimal.Decimal
	EstimatedSeconds int
	Tool             string
	Plan             TxPlan
	CreatedAt        time.Time
}

// BridgeRequest describes one move of value between chains.
type BridgeRequest struct {
	Source Chain
	Dest   Chain
	Amount decimal.Decimal
	Asset  Asset
	// DestAddress defaults to the signer's own address when empty.
	DestAddress string
	OnProgress  ProgressFunc
}

// BridgeResult is the outcome of one bridging attempt. PendingMint marks
// the burn-confirmed-but-mint-unobserved terminal state, which is a
// success: settlement completes off-process via the attestation service.
type BridgeResult struct {
	ID             string
	Success        bool
	Backend        Backend
	Source         Chain
	Dest           Chain
	AmountSent     decimal.Decimal
	AmountReceived decimal.Decimal
	SourceTxHash   string
	DestTxHash     string
	PendingMint    bool
	Error          string
}
