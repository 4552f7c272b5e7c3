package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/club-approvals/internal/domain/entity"
)

// seatBuilder is configured once; Build copies the configuration per machine
var seatBuilder = newSeatBuilder()

// newSeatBuilder wires the six permitted seat transitions:
//
//	pending  -approve-> approved    pending  -reject-> rejected
//	approved -approve-> approved    approved -reject-> rejected
//	rejected -approve-> approved    rejected -reject-> rejected
func newSeatBuilder() StateMachineBuilder {
	b := NewBuilder()
	for _, from := range []State{StatePending, StateApproved, StateRejected} {
		b.Configure(from).
			Permit(TriggerApprove, StateApproved).
			Permit(TriggerReject, StateRejected)
	}
	return b
}

// NewSeatMachine returns a state machine for one reviewer seat
func NewSeatMachine(initial State) StateMachine {
	return seatBuilder.Build(initial)
}

// NextSeatStatus validates a reviewer action against the seat's current status
// and returns the resulting status
func NextSeatStatus(ctx context.Context, current entity.DecisionStatus, action entity.DecisionAction) (entity.DecisionStatus, error) {
	from := State(current)
	if current == "" {
		from = StatePending
	}
	if !from.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidState, current)
	}

	m := NewSeatMachine(from)
	if err := m.Fire(ctx, Trigger(action)); err != nil {
		return "", err
	}
	return entity.DecisionStatus(m.State()), nil
}
