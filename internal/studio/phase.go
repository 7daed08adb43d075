package studio

import "scenestudio/internal/domain"

// Phase is the explicit state of one asynchronous operation. Allowed
// transitions are Idle → InFlight → {Succeeded, Failed}; the next trigger
// moves a settled operation back through InFlight. A trigger while InFlight
// is rejected.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseInFlight  Phase = "in_flight"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

type operation struct {
	phase  Phase
	reason string
}

func newOperation() operation { return operation{phase: PhaseIdle} }

func (o *operation) begin() error {
	if o.phase == PhaseInFlight {
		return domain.ErrOperationInFlight
	}
	o.phase = PhaseInFlight
	o.reason = ""
	return nil
}

func (o *operation) succeed() {
	o.phase = PhaseSucceeded
	o.reason = ""
}

func (o *operation) fail(reason string) {
	o.phase = PhaseFailed
	o.reason = reason
}

// OpSnapshot is the externally visible face of an operation.
type OpSnapshot struct {
	Phase  Phase  `json:"phase"`
	Reason string `json:"reason,omitempty"`
}

func (o operation) snapshot() OpSnapshot {
	return OpSnapshot{Phase: o.phase, Reason: o.reason}
}
