// Package task owns the lifecycle record of every trade task: the
// signal-to-report journey of one instrument. The Manager is the sole
// writer of task state; everything else sees snapshots.
package task

import (
	"time"

	"github.com/rustyeddy/tradeflow/message"
)

// State is a trade task's position in the pipeline.
type State string

const (
	StateProposed         State = "proposed"
	StateRiskPending      State = "risk_pending"
	StateRiskApproved     State = "risk_approved"
	StateRiskRejected     State = "risk_rejected"
	StateExecutionPending State = "execution_pending"
	StateFilled           State = "filled"
	StateExecutionFailed  State = "execution_failed"
	StateReported         State = "reported"
	StateTimedOut         State = "timed_out"
	StateCanceled         State = "canceled"
)

// Terminal reports whether no further transitions are valid.
func (s State) Terminal() bool {
	switch s {
	case StateRiskRejected, StateExecutionFailed, StateReported, StateTimedOut, StateCanceled:
		return true
	}
	return false
}

func (s State) String() string { return string(s) }

// Task is the unit of work flowing through the pipeline. Values
// returned by the Manager are copies; mutating them has no effect on
// the managed record.
type Task struct {
	CorrelationID string
	Instrument    string
	Origin        message.Signal
	State         State

	// Reason explains terminal-with-error states (risk rejection,
	// execution failure, timeout, cancellation).
	Reason string

	RiskDecision    *message.RiskDecision
	ExecutionResult *message.ExecutionReport

	CreatedAt time.Time
	UpdatedAt time.Time
}
