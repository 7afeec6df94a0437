package domain

import "time"

// Stage labels a step of a bridge in flight.
type Stage string

const (
	StageCheckGas     Stage = "CHECK_GAS"
	StageCheckBalance Stage = "CHECK_BALANCE"
	StageApprove      Stage = "APPROVE"
	StageQuote        Stage = "QUOTE"
	StageBurn         Stage = "BURN"
	StageAttestation  Stage = "POLL_ATTESTATION"
	StageMint         Stage = "MINT"
	StageExecute      Stage = "EXECUTE"
	StageDone         Stage = "DONE"
)

// Progress is one best-effort status event emitted while a bridge runs.
// Elapsed/Remaining are only meaningful during attestation polling.
type Progress struct {
	BridgeID  string
	Stage     Stage
	Message   string
	Elapsed   time.Duration
	Remaining time.Duration
}

// ProgressFunc receives progress events on the executor's own goroutine.
type ProgressFunc func(Progress)

// Emit invokes the callback if set. A panicking callback must never abort
// the bridge, so panics are swallowed here.
func (f ProgressFunc) Emit(p Progress) {
	if f == nil {
		return
	}
	defer func() { _ = recover() }()
	f(p)
}
