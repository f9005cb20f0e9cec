package workflow

import "github.com/garyjia/travel-approval/internal/domain/entity"

// Trigger represents an action that can cause a state transition
type Trigger string

const (
	TriggerApprove        Trigger = Trigger(entity.ActionApprove)
	TriggerReject         Trigger = Trigger(entity.ActionReject)
	TriggerRequestChanges Trigger = Trigger(entity.ActionRequestChanges)
	TriggerEscalate       Trigger = Trigger(entity.ActionEscalate)
	TriggerResubmit       Trigger = Trigger(entity.ActionResubmit)
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// TriggerFor maps an approver action onto its state machine trigger
func TriggerFor(action entity.Action) Trigger {
	return Trigger(action)
}
