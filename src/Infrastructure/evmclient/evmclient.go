// Package evmclient provides the per-chain JSON-RPC client registry used
// by every executor. The registry is constructed once from the chain
// registry and never mutated, so sharing it across concurrent bridge
// invocations needs no locking.
package evmclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/MMN3003/stablebridge/src/bridge/domain"
	"github.com/MMN3003/stablebridge/src/bridge/registry"
	"github.com/MMN3003/stablebridge/src/logger"
	"github.com/MMN3003/stablebridge/src/retry"
)

const erc20ABI = `[
	{
		"constant": true,
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "spender", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

// Errors
var (
	ErrConnectNetwork  = errors.New("failed to connect to network")
	ErrParseABI        = errors.New("failed to parse ABI")
	ErrContractCall    = errors.New("failed to call contract function")
	ErrSendTransaction = errors.New("failed to send transaction")
	ErrMineTransaction = errors.New("failed to mine transaction")
)

// Gas policy. The price boost avoids underpriced-transaction rejections,
// the margin covers estimation drift, and the fallback limit is used when
// estimation itself fails (which usually means the call would revert, so
// the fallback is best-effort rather than a guarantee).
const (
	gasBoostNumerator   = 15
	gasBoostDenominator = 10
	gasMarginPercent    = 20
	fallbackGasLimit    = 600_000

	broadcastAttempts = 3
	broadcastBackoff  = 2 * time.Second
)

// Registry holds one client per configured EVM chain, all dialed at
// construction.
type Registry struct {
	clients map[domain.Chain]*ethclient.Client
	reg     *registry.Registry
	erc20   abi.ABI
	logger  *logger.Logger
}

var _ domain.ChainClient = (*Registry)(nil)

// NewRegistry dials every configured EVM endpoint and returns an immutable
// client registry.
func NewRegistry(ctx context.Context, reg *registry.Registry, logg *logger.Logger) (*Registry, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("%w: ERC20 ABI: %v", ErrParseABI, err)
	}

	clients := make(map[domain.Chain]*ethclient.Client)
	for _, chain := range reg.EVMChains() {
		cfg, _ := reg.ConfigFor(chain)
		client, err := ethclient.DialContext(ctx, cfg.RPCURL)
		if err != nil {
			for _, c := range clients {
				c.Close()
			}
			return nil, fmt.Errorf("%w: %s: %v", ErrConnectNetwork, chain, err)
		}
		clients[chain] = client
	}

	return &Registry{
		clients: clients,
		reg:     reg,
		erc20:   parsed,
		logger:  logg,
	}, nil
}

func (r *Registry) Close() {
	for _, c := range r.clients {
		c.Close()
	}
}

func (r *Registry) client(chain domain.Chain) (*ethclient.Client, domain.ChainConfig, error) {
	cfg, ok := r.reg.ConfigFor(chain)
	if !ok || !cfg.EVM {
		return nil, domain.ChainConfig{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, chain)
	}
	client, ok := r.clients[chain]
	if !ok {
		return nil, domain.ChainConfig{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, chain)
	}
	return client, cfg, nil
}

// TokenBalance returns the raw ERC20 balance of account.
func (r *Registry) TokenBalance(ctx context.Context, chain domain.Chain, token, account string) (*big.Int, error) {
	client, _, err := r.client(chain)
	if err != nil {
		return nil, err
	}
	data, err := r.erc20.Pack("balanceOf", common.HexToAddress(account))
	if err != nil {
		return nil, fmt.Errorf("%w: balanceOf: %v", ErrContractCall, err)
	}
	return r.callUint256(ctx, client, token, data)
}

// NativeBalance returns the raw native balance of account in wei.
func (r *Registry) NativeBalance(ctx context.Context, chain domain.Chain, account string) (*big.Int, error) {
	client, _, err := r.client(chain)
	if err != nil {
		return nil, err
	}
	balance, err := client.BalanceAt(ctx, common.HexToAddress(account), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContractCall, err)
	}
	return balance, nil
}

// Allowance returns the raw ERC20 allowance from owner to spender.
func (r *Registry) Allowance(ctx context.Context, chain domain.Chain, token, owner, spender string) (*big.Int, error) {
	client, _, err := r.client(chain)
	if err != nil {
		return nil, err
	}
	data, err := r.erc20.Pack("allowance", common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, fmt.Errorf("%w: allowance: %v", ErrContractCall, err)
	}
	return r.callUint256(ctx, client, token, data)
}

func (r *Registry) callUint256(ctx context.Context, client *ethclient.Client, to string, data []byte) (*big.Int, error) {
	addr := common.HexToAddress(to)
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContractCall, err)
	}
	return new(big.Int).SetBytes(out), nil
}

// Approve grants spender an allowance of amount and waits for it to mine.
func (r *Registry) Approve(ctx context.Context, signer *domain.Signer, chain domain.Chain, token, spender string, amount *big.Int) (*domain.TxReceipt, error) {
	data, err := r.erc20.Pack("approve", common.HexToAddress(spender), amount)
	if err != nil {
		return nil, fmt.Errorf("%w: approve: %v", ErrContractCall, err)
	}
	return r.Execute(ctx, signer, domain.Call{Chain: chain, To: token, Data: data})
}

// Execute builds, signs, broadcasts and confirms one transaction. A mined
// transaction is always returned with its hash, even when it reverted:
// the caller inspects Status.
func (r *Registry) Execute(ctx context.Context, signer *domain.Signer, call domain.Call) (*domain.TxReceipt, error) {
	client, cfg, err := r.client(call.Chain)
	if err != nil {
		return nil, err
	}

	from := common.HexToAddress(signer.Address())
	to := common.HexToAddress(call.To)
	value := call.Value
	if value == nil {
		value = big.NewInt(0)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: gas price: %v", ErrSendTransaction, err)
	}
	gasPrice = new(big.Int).Div(new(big.Int).Mul(gasPrice, big.NewInt(gasBoostNumerator)), big.NewInt(gasBoostDenominator))

	gasLimit := call.GasLimit
	if gasLimit == 0 {
		estimated, err := client.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    &to,
			Value: value,
			Data:  call.Data,
		})
		if err != nil {
			// Estimation failing often means the call would revert;
			// proceed with the conservative limit and let the chain decide.
			r.logger.Warnf("[%s] gas estimation failed, using fallback limit %d: %v", call.Chain, fallbackGasLimit, err)
			gasLimit = fallbackGasLimit
		} else {
			gasLimit = estimated + estimated*gasMarginPercent/100
		}
	}

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrSendTransaction, err)
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, call.Data)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(cfg.ChainID), signer.Key())
	if err != nil {
		return nil, fmt.Errorf("%w: sign: %v", ErrSendTransaction, err)
	}

	err = retry.Do(ctx, broadcastAttempts, broadcastBackoff, isTransientBroadcastErr, func() error {
		return client.SendTransaction(ctx, signedTx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBroadcastFailed, err)
	}

	receipt, err := bind.WaitMined(ctx, client, signedTx)
	if err != nil {
		// The broadcast succeeded; surface the hash alongside the error.
		return &domain.TxReceipt{TxHash: signedTx.Hash().Hex()},
			fmt.Errorf("%w: %s: %v", ErrMineTransaction, signedTx.Hash().Hex(), err)
	}
	return convertReceipt(receipt), nil
}

// isTransientBroadcastErr separates RPC hiccups worth a retry from nonce
// conflicts that a retry would only make worse.
func isTransientBroadcastErr(err error) bool {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "nonce too low"),
		strings.Contains(msg, "already known"),
		strings.Contains(msg, "replacement transaction underpriced"):
		return false
	}
	return true
}

func convertReceipt(receipt *types.Receipt) *domain.TxReceipt {
	out := &domain.TxReceipt{
		TxHash: receipt.TxHash.Hex(),
		Status: receipt.Status,
	}
	for _, lg := range receipt.Logs {
		topics := make([]string, len(lg.Topics))
		for i, t := range lg.Topics {
			topics[i] = t.Hex()
		}
		out.Logs = append(out.Logs, domain.TxLog{
			Address: lg.Address.Hex(),
			Topics:  topics,
			Data:    lg.Data,
		})
	}
	return out
}
