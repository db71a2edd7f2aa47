package domain

import (
	"time"

	"github.com/google/uuid"
)

// FlowStatus is the explicit state of a multi-step operation flow.
type FlowStatus int

const (
	FlowIdle FlowStatus = iota
	FlowCheckingBalance
	FlowShielding
	FlowAwaitingConfirmation
	FlowTransferring
	FlowConfirmed
	FlowFailed
)

func (s FlowStatus) String() string {
	switch s {
	case FlowIdle:
		return "idle"
	case FlowCheckingBalance:
		return "checking_balance"
	case FlowShielding:
		return "shielding"
	case FlowAwaitingConfirmation:
		return "awaiting_confirmation"
	case FlowTransferring:
		return "transferring"
	case FlowConfirmed:
		return "confirmed"
	case FlowFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// legal transitions per status. FlowFailed is reachable from any non-terminal
// status and is absorbing together with FlowConfirmed.
var flowTransitions = map[FlowStatus][]FlowStatus{
	FlowIdle:                 {FlowCheckingBalance},
	FlowCheckingBalance:      {FlowShielding, FlowTransferring},
	FlowShielding:            {FlowAwaitingConfirmation},
	FlowAwaitingConfirmation: {FlowTransferring, FlowShielding},
	FlowTransferring:         {FlowConfirmed},
	FlowConfirmed:            {},
	FlowFailed:               {},
}

// Flow tracks the progress of a shield-then-transfer style operation. It is
// kept in memory while the flow runs and persisted as an Operation once it
// reaches a terminal status.
type Flow struct {
	ID        string
	Status    FlowStatus
	Reason    string
	StartedAt time.Time
	UpdatedAt time.Time
}

// NewFlow returns a flow in the idle status with a fresh id.
func NewFlow() *Flow {
	now := time.Now()
	return &Flow{
		ID:        uuid.New().String(),
		Status:    FlowIdle,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo moves the flow to the given status, enforcing the transition
// table.
func (f *Flow) TransitionTo(status FlowStatus) error {
	if status == FlowFailed {
		return f.fail("")
	}
	for _, allowed := range flowTransitions[f.Status] {
		if allowed == status {
			f.Status = status
			f.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrInvalidTransition
}

// Fail moves the flow to the failed status recording the reason. Failing a
// terminal flow is rejected.
func (f *Flow) Fail(reason string) error {
	return f.fail(reason)
}

func (f *Flow) fail(reason string) error {
	if f.IsTerminal() {
		return ErrInvalidTransition
	}
	f.Status = FlowFailed
	f.Reason = reason
	f.UpdatedAt = time.Now()
	return nil
}

// IsTerminal returns whether the flow reached a final status.
func (f *Flow) IsTerminal() bool {
	return f.Status == FlowConfirmed || f.Status == FlowFailed
}
