package domain

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
)

// Call is a generic contract invocation handed to a chain client.
type Call struct {
	Chain    Chain
	To       string
	Value    *big.Int
	Data     []byte
	GasLimit uint64 // 0 means estimate on-chain
}

// TxLog is a receipt log entry, topics hex-encoded.
type TxLog struct {
	Address string
	Topics  []string
	Data    []byte
}

// TxReceipt is the confirmed outcome of a broadcast transaction.
type TxReceipt struct {
	TxHash string
	Status uint64
	Logs   []TxLog
}

// ChainClient port for on-chain reads and writes. Implementations are
// stateless after construction and safe for concurrent use.
type ChainClient interface {
	// TokenBalance returns the raw ERC20 balance of account.
	TokenBalance(ctx context.Context, chain Chain, token, account string) (*big.Int, error)

	// NativeBalance returns the raw native balance of account in wei.
	NativeBalance(ctx context.Context, chain Chain, account string) (*big.Int, error)

	// Allowance returns the raw ERC20 allowance from owner to spender.
	Allowance(ctx context.Context, chain Chain, token, owner, spender string) (*big.Int, error)

	// Approve grants spender an allowance of amount and waits for the
	// approval to confirm.
	Approve(ctx context.Context, signer *Signer, chain Chain, token, spender string, amount *big.Int) (*TxReceipt, error)

	// Execute builds, signs, broadcasts and confirms one transaction.
	Execute(ctx context.Context, signer *Signer, call Call) (*TxReceipt, error)
}

// Attestation statuses
const (
	AttestationPending  = "pending_confirmations"
	AttestationComplete = "complete"
)

// Attestation is the off-chain proof that a burn happened, plus the
// original message bytes needed by the destination-side mint.
type Attestation struct {
	Status      string
	Attestation []byte
	Message     []byte
}

// Attester port for the burn-protocol attestation service.
type Attester interface {
	Attestation(ctx context.Context, messageHash string) (*Attestation, error)
}

// QuoteRequest is the input to an aggregator quote call. FromToken/ToToken
// are contract addresses, or the native sentinel understood by the backend.
type QuoteRequest struct {
	Source       Chain
	Dest         Chain
	FromToken    string
	ToToken      string
	Amount       decimal.Decimal
	FromDecimals int32
	ToDecimals   int32
	FromAddress  string
	ToAddress    string
}

// Quoter port shared by the fast-relay and general aggregator backends.
type Quoter interface {
	Name() string
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
}
