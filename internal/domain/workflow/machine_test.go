package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/club-approvals/internal/domain/entity"
)

type guardKey struct{}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"pending", StatePending, true},
		{"approved", StateApproved, true},
		{"rejected", StateRejected, true},
		{"unknown", State("withdrawn"), false},
		{"empty", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_NeverTerminal(t *testing.T) {
	for _, s := range []State{StatePending, StateApproved, StateRejected} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	builder.Configure(State("INVALID"))
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	builder.Build(State("INVALID"))
}

func TestStateConfiguration_PermitIf(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePending).
		PermitIf(TriggerApprove, StateApproved, func(ctx context.Context) bool {
			allowed, _ := ctx.Value(guardKey{}).(bool)
			return allowed
		})

	machine := builder.Build(StatePending)
	err := machine.Fire(context.Background(), TriggerApprove)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}
	if machine.State() != StatePending {
		t.Errorf("state should remain pending, got %v", machine.State())
	}

	ctx := context.WithValue(context.Background(), guardKey{}, true)
	if err := machine.Fire(ctx, TriggerApprove); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if machine.State() != StateApproved {
		t.Errorf("state = %v, want %v", machine.State(), StateApproved)
	}
}

func TestStateMachine_UnconfiguredTrigger(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePending).Permit(TriggerApprove, StateApproved)

	machine := builder.Build(StatePending)
	if machine.CanFire(TriggerReject) {
		t.Error("CanFire(reject) should be false")
	}

	err := machine.Fire(context.Background(), TriggerReject)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestStateMachine_Independence(t *testing.T) {
	m1 := NewSeatMachine(StatePending)
	m2 := NewSeatMachine(StatePending)

	if err := m1.Fire(context.Background(), TriggerReject); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}

	if m2.State() != StatePending {
		t.Errorf("machines should be independent, m2 = %v", m2.State())
	}
}

func TestSeatMachine_AllSixTransitions(t *testing.T) {
	tests := []struct {
		from    State
		trigger Trigger
		to      State
	}{
		{StatePending, TriggerApprove, StateApproved},
		{StatePending, TriggerReject, StateRejected},
		{StateApproved, TriggerApprove, StateApproved},
		{StateApproved, TriggerReject, StateRejected},
		{StateRejected, TriggerApprove, StateApproved},
		{StateRejected, TriggerReject, StateRejected},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"-"+string(tt.trigger), func(t *testing.T) {
			m := NewSeatMachine(tt.from)
			if err := m.Fire(context.Background(), tt.trigger); err != nil {
				t.Fatalf("Fire() failed: %v", err)
			}
			if m.State() != tt.to {
				t.Errorf("state = %v, want %v", m.State(), tt.to)
			}
		})
	}
}

func TestSeatMachine_PermittedTriggers(t *testing.T) {
	triggers := NewSeatMachine(StateApproved).PermittedTriggers()
	if len(triggers) != 2 {
		t.Fatalf("PermittedTriggers() returned %d triggers, want 2", len(triggers))
	}
}

func TestSeatBuilder_ConfiguredAtPackageInit(t *testing.T) {
	if seatBuilder == nil {
		t.Fatal("seatBuilder was not initialized")
	}
	for _, s := range []State{StatePending, StateApproved, StateRejected} {
		m := seatBuilder.Build(s)
		if !m.CanFire(TriggerApprove) || !m.CanFire(TriggerReject) {
			t.Errorf("seat state %s is missing its transitions", s)
		}
	}
}

func TestNextSeatStatus(t *testing.T) {
	ctx := context.Background()

	got, err := NextSeatStatus(ctx, "", entity.ActionApprove)
	if err != nil || got != entity.StatusApproved {
		t.Errorf("NextSeatStatus(empty, approve) = %v, %v", got, err)
	}

	got, err = NextSeatStatus(ctx, entity.StatusApproved, entity.ActionReject)
	if err != nil || got != entity.StatusRejected {
		t.Errorf("NextSeatStatus(approved, reject) = %v, %v", got, err)
	}

	if _, err := NextSeatStatus(ctx, entity.DecisionStatus("bogus"), entity.ActionApprove); !errors.Is(err, ErrInvalidState) {
		t.Errorf("NextSeatStatus(bogus) error = %v, want %v", err, ErrInvalidState)
	}

	if _, err := NextSeatStatus(ctx, entity.StatusPending, entity.DecisionAction("withdraw")); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("NextSeatStatus(withdraw) error = %v, want %v", err, ErrInvalidTransition)
	}
}
