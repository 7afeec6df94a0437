package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/MMN3003/stablebridge/src/bridge/domain"
	"github.com/MMN3003/stablebridge/src/retry"
)

// Burn-protocol contract surface: the source-side TokenMessenger burn
// entry point and the destination-side MessageTransmitter receiver.
const tokenMessengerABI = `[
	{
		"inputs": [
			{"name": "amount", "type": "uint256"},
			{"name": "destinationDomain", "type": "uint32"},
			{"name": "mintRecipient", "type": "bytes32"},
			{"name": "burnToken", "type": "address"}
		],
		"name": "depositForBurn",
		"outputs": [{"name": "nonce", "type": "uint64"}],
		"type": "function"
	}
]`

const messageTransmitterABI = `[
	{
		"inputs": [
			{"name": "message", "type": "bytes"},
			{"name": "attestation", "type": "bytes"}
		],
		"name": "receiveMessage",
		"outputs": [{"name": "success", "type": "bool"}],
		"type": "function"
	}
]`

var (
	tokenMessenger     = mustParseABI(tokenMessengerABI)
	messageTransmitter = mustParseABI(messageTransmitterABI)

	// Event emitted by the burn transaction; its payload is the message
	// whose keccak hash keys the attestation lookup.
	messageSentTopic = crypto.Keccak256Hash([]byte("MessageSent(bytes)")).Hex()

	// Approve once with an unlimited allowance so later bridges from the
	// same wallet skip the approval transaction entirely.
	unlimitedAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// bridgeViaBurn drives the burn → attestation-poll → mint state machine.
// The sequence is strictly sequential; the only waiting happens in the
// bounded attestation poll, and hitting that bound is a success with the
// mint left pending (the attestation service's own relaying completes it).
func (s *Service) bridgeViaBurn(ctx context.Context, signer *domain.Signer, req domain.BridgeRequest, res *domain.BridgeResult) *domain.BridgeResult {
	srcCfg, _ := s.reg.ConfigFor(req.Source)
	dstCfg, _ := s.reg.ConfigFor(req.Dest)
	emit := req.OnProgress

	// CHECK_GAS
	emit.Emit(domain.Progress{BridgeID: res.ID, Stage: domain.StageCheckGas})
	nativeBal, err := s.oracle.NativeBalance(ctx, req.Source, signer.Address())
	if err != nil {
		return s.fail(res, err)
	}
	if nativeBal.LessThan(srcCfg.MinNativeGas) {
		return s.fail(res, fmt.Errorf("%w: have %s %s on %s, need at least %s",
			domain.ErrInsufficientGas, nativeBal, srcCfg.NativeSymbol, req.Source, srcCfg.MinNativeGas))
	}

	// CHECK_BALANCE
	emit.Emit(domain.Progress{BridgeID: res.ID, Stage: domain.StageCheckBalance})
	balance, err := s.oracle.StablecoinBalance(ctx, req.Source, signer.Address())
	if err != nil {
		return s.fail(res, err)
	}
	if balance.LessThan(req.Amount) {
		return s.fail(res, fmt.Errorf("%w: have %s on %s, need %s",
			domain.ErrInsufficientBalance, balance, req.Source, req.Amount))
	}

	amountUnits := domain.AmountToUnits(req.Amount, srcCfg.StablecoinDecimals)

	// APPROVE, only when the standing allowance is short.
	allowance, err := s.chain.Allowance(ctx, req.Source, srcCfg.StablecoinAddress, signer.Address(), srcCfg.TokenMessenger)
	if err != nil {
		return s.fail(res, err)
	}
	if allowance.Cmp(amountUnits) < 0 {
		emit.Emit(domain.Progress{BridgeID: res.ID, Stage: domain.StageApprove})
		receipt, err := s.chain.Approve(ctx, signer, req.Source, srcCfg.StablecoinAddress, srcCfg.TokenMessenger, unlimitedAllowance)
		if err != nil {
			return s.fail(res, fmt.Errorf("%w: %v", domain.ErrApprovalFailed, err))
		}
		if receipt.Status != 1 {
			return s.fail(res, fmt.Errorf("%w: approval reverted (%s)", domain.ErrApprovalFailed, receipt.TxHash))
		}
	}

	// BURN
	emit.Emit(domain.Progress{BridgeID: res.ID, Stage: domain.StageBurn})
	recipient := addressToBytes32(req.DestAddress)
	burnData, err := tokenMessenger.Pack("depositForBurn", amountUnits, dstCfg.BurnDomain, recipient, common.HexToAddress(srcCfg.StablecoinAddress))
	if err != nil {
		return s.fail(res, fmt.Errorf("pack depositForBurn: %w", err))
	}
	burnReceipt, err := s.chain.Execute(ctx, signer, domain.Call{
		Chain: req.Source,
		To:    srcCfg.TokenMessenger,
		Data:  burnData,
	})
	if burnReceipt != nil {
		res.SourceTxHash = burnReceipt.TxHash
	}
	if err != nil {
		return s.fail(res, err)
	}
	if burnReceipt.Status != 1 {
		return s.fail(res, fmt.Errorf("%w: burn reverted (%s)", domain.ErrTransactionReverted, burnReceipt.TxHash))
	}

	messageBytes, err := extractMessageSent(burnReceipt)
	if err != nil {
		return s.fail(res, fmt.Errorf("burn %s confirmed but message not found: %w", burnReceipt.TxHash, err))
	}
	messageHash := crypto.Keccak256Hash(messageBytes).Hex()
	s.logger.Infof("bridge %s: burn %s confirmed, message hash %s", res.ID, burnReceipt.TxHash, messageHash)

	// POLL_ATTESTATION
	var att *domain.Attestation
	err = retry.Poll(ctx, s.pollInterval, s.pollTimeout,
		func(elapsed, remaining time.Duration) {
			emit.Emit(domain.Progress{
				BridgeID:  res.ID,
				Stage:     domain.StageAttestation,
				Message:   fmt.Sprintf("waiting for attestation %s", messageHash),
				Elapsed:   elapsed,
				Remaining: remaining,
			})
		},
		func(ctx context.Context) (bool, error) {
			got, err := s.attester.Attestation(ctx, messageHash)
			if err != nil {
				// Transient service errors just mean "poll again".
				s.logger.Warnf("bridge %s: attestation poll failed: %v", res.ID, err)
				return false, nil
			}
			if got.Status == domain.AttestationComplete {
				att = got
				return true, nil
			}
			return false, nil
		})
	if errors.Is(err, retry.ErrTimeout) {
		// Valid terminal state: the burn is final and the destination mint
		// completes independently via the attestation service's relaying.
		res.Success = true
		res.PendingMint = true
		res.AmountReceived = req.Amount
		emit.Emit(domain.Progress{
			BridgeID: res.ID,
			Stage:    domain.StageDone,
			Message:  "attestation still pending, mint will settle off-process",
		})
		return res
	}
	if err != nil {
		return s.fail(res, err)
	}

	// MINT
	message := att.Message
	if len(message) == 0 {
		message = messageBytes
	}
	emit.Emit(domain.Progress{BridgeID: res.ID, Stage: domain.StageMint})
	mintData, err := messageTransmitter.Pack("receiveMessage", message, att.Attestation)
	if err != nil {
		return s.fail(res, fmt.Errorf("pack receiveMessage: %w", err))
	}
	mintReceipt, err := s.chain.Execute(ctx, signer, domain.Call{
		Chain: req.Dest,
		To:    dstCfg.MessageTransmitter,
		Data:  mintData,
	})
	if mintReceipt != nil {
		res.DestTxHash = mintReceipt.TxHash
	}
	if err != nil {
		return s.fail(res, err)
	}
	if mintReceipt.Status != 1 {
		// The burn stands and funds stay claimable with the attestation;
		// only this claim attempt failed.
		return s.fail(res, fmt.Errorf("%w: mint reverted (%s), funds recoverable via attestation %s",
			domain.ErrTransactionReverted, mintReceipt.TxHash, messageHash))
	}

	res.Success = true
	res.AmountReceived = req.Amount
	emit.Emit(domain.Progress{BridgeID: res.ID, Stage: domain.StageDone})
	return res
}

// extractMessageSent scans receipt logs for the MessageSent event and
// returns its message payload.
func extractMessageSent(receipt *domain.TxReceipt) ([]byte, error) {
	bytesType, err := abi.NewType("bytes", "", nil)
	if err != nil {
		return nil, err
	}
	args := abi.Arguments{{Type: bytesType}}

	for _, lg := range receipt.Logs {
		if len(lg.Topics) == 0 || lg.Topics[0] != messageSentTopic {
			continue
		}
		values, err := args.Unpack(lg.Data)
		if err != nil {
			return nil, fmt.Errorf("unpack MessageSent: %w", err)
		}
		message, ok := values[0].([]byte)
		if !ok || len(message) == 0 {
			return nil, errors.New("empty MessageSent payload")
		}
		return message, nil
	}
	return nil, errors.New("no MessageSent event in receipt")
}

// addressToBytes32 left-pads an EVM address into the fixed-width recipient
// encoding the burn entry point expects.
func addressToBytes32(address string) [32]byte {
	var out [32]byte
	copy(out[:], common.LeftPadBytes(common.HexToAddress(address).Bytes(), 32))
	return out
}
