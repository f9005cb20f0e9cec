package workflow

import (
	"context"
	"errors"
	"testing"
)

type guardKey struct{}

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StatePending, false},
		{StateApproved, false},
		{StateEscalated, false},
		{StateChangesRequested, false},
		{StateRejected, true},
		{StateCompleted, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"pending", StatePending, true},
		{"completed", StateCompleted, true},
		{"invalid state", State("IN_REVIEW"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuilder_ConfigurePanicsOnTerminalState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on a terminal state")
		}
	}()

	NewBuilder().Configure(StateCompleted)
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	NewBuilder().Build(State("INVALID"))
}

func TestStateMachine_PeekDoesNotMove(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePending).
		Permit(TriggerReject, StateRejected)

	machine := builder.Build(StatePending)

	next, err := machine.Peek(context.Background(), TriggerReject)
	if err != nil {
		t.Fatalf("Peek() failed: %v", err)
	}
	if next != StateRejected {
		t.Errorf("Peek() = %v, want %v", next, StateRejected)
	}
	if machine.State() != StatePending {
		t.Errorf("State after Peek() = %v, want %v", machine.State(), StatePending)
	}
}

func TestStateMachine_GuardOrder(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePending).
		PermitIf(TriggerApprove, StatePending, func(ctx context.Context) bool {
			return ctx.Value(guardKey{}).(bool)
		}).
		Permit(TriggerApprove, StateCompleted)

	more := builder.Build(StatePending)
	if err := more.Fire(context.WithValue(context.Background(), guardKey{}, true), TriggerApprove); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if more.State() != StatePending {
		t.Errorf("State = %v, want %v", more.State(), StatePending)
	}

	last := builder.Build(StatePending)
	if err := last.Fire(context.WithValue(context.Background(), guardKey{}, false), TriggerApprove); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if last.State() != StateCompleted {
		t.Errorf("State = %v, want %v", last.State(), StateCompleted)
	}
}

func TestStateMachine_GuardFails(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePending).
		PermitIf(TriggerEscalate, StateEscalated, func(ctx context.Context) bool { return false })

	machine := builder.Build(StatePending)

	err := machine.Fire(context.Background(), TriggerEscalate)
	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}
	if machine.State() != StatePending {
		t.Errorf("State should remain %v after failed Fire(), got %v", StatePending, machine.State())
	}
}

func TestStateMachine_Fire_InvalidTransition(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateChangesRequested).
		Permit(TriggerResubmit, StatePending)

	machine := builder.Build(StateChangesRequested)

	err := machine.Fire(context.Background(), TriggerApprove)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
	if machine.State() != StateChangesRequested {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateChangesRequested, machine.State())
	}
}

func TestStateMachine_Fire_NoConfiguration(t *testing.T) {
	machine := NewBuilder().Build(StateCompleted)

	err := machine.Fire(context.Background(), TriggerApprove)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
	if len(machine.PermittedTriggers()) != 0 {
		t.Errorf("terminal state should have no permitted triggers")
	}
}

func TestStateMachine_PermittedTriggersSorted(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePending).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerApprove, StatePending).
		Permit(TriggerEscalate, StateEscalated)

	triggers := builder.Build(StatePending).PermittedTriggers()
	want := []Trigger{TriggerApprove, TriggerEscalate, TriggerReject}

	if len(triggers) != len(want) {
		t.Fatalf("PermittedTriggers() = %v, want %v", triggers, want)
	}
	for i := range want {
		if triggers[i] != want[i] {
			t.Errorf("PermittedTriggers()[%d] = %v, want %v", i, triggers[i], want[i])
		}
	}
}

func TestStateMachine_Immutability(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePending).
		Permit(TriggerReject, StateRejected)

	machine1 := builder.Build(StatePending)
	machine2 := builder.Build(StatePending)

	if err := machine1.Fire(context.Background(), TriggerReject); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}

	if machine2.State() != StatePending {
		t.Errorf("machine2 state = %v, want %v (machines should be independent)", machine2.State(), StatePending)
	}

	// Configuring after Build must not affect already built machines
	builder.Configure(StatePending).Permit(TriggerEscalate, StateEscalated)
	if machine2.CanFire(TriggerEscalate) {
		t.Error("machine2 should not see transitions configured after Build()")
	}
}
