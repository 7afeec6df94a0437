package domain

import "errors"

// Errors
var (
	ErrUnsupportedChain    = errors.New("unsupported chain")
	ErrInvalidRoute        = errors.New("invalid route")
	ErrInsufficientGas     = errors.New("insufficient native gas balance")
	ErrInsufficientBalance = errors.New("insufficient stablecoin balance")
	ErrQuoteFailed         = errors.New("quote failed")
	ErrEmptyPlan           = errors.New("quote returned empty transaction plan")
	ErrApprovalFailed      = errors.New("token approval failed")
	ErrTransactionReverted = errors.New("transaction reverted")
	ErrBroadcastFailed     = errors.New("transaction broadcast failed")
	ErrSignerRequired      = errors.New("chain cannot sign for this backend")
)
