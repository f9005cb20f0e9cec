package workflow

import "context"

// StateMachine tracks a workflow status and validates transitions out of it
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Peek resolves the state the trigger would lead to without firing it
	Peek(ctx context.Context, trigger Trigger) (State, error)

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers that can be fired in the current state
	PermittedTriggers() []Trigger
}
