package event

import "github.com/garyjia/travel-approval/internal/domain/entity"

// Type identifies the type of domain event
type Type string

const (
	TypeWorkflowSubmitted        Type = "workflow.submitted"
	TypeWorkflowAdvanced         Type = "workflow.advanced"
	TypeWorkflowCompleted        Type = "workflow.completed"
	TypeWorkflowRejected         Type = "workflow.rejected"
	TypeWorkflowChangesRequested Type = "workflow.changes_requested"
	TypeWorkflowEscalated        Type = "workflow.escalated"
	TypeWorkflowResubmitted      Type = "workflow.resubmitted"
	TypeSLABreached              Type = "sla.breached"
)

// AllTypes lists every event type, in lifecycle order
var AllTypes = []Type{
	TypeWorkflowSubmitted,
	TypeWorkflowAdvanced,
	TypeWorkflowCompleted,
	TypeWorkflowRejected,
	TypeWorkflowChangesRequested,
	TypeWorkflowEscalated,
	TypeWorkflowResubmitted,
	TypeSLABreached,
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// TypeForAction returns the event emitted after an accepted action moved a
// workflow into status
func TypeForAction(action entity.Action, status entity.Status) Type {
	switch action {
	case entity.ActionApprove:
		if status == entity.StatusCompleted {
			return TypeWorkflowCompleted
		}
		return TypeWorkflowAdvanced
	case entity.ActionReject:
		return TypeWorkflowRejected
	case entity.ActionRequestChanges:
		return TypeWorkflowChangesRequested
	case entity.ActionEscalate:
		return TypeWorkflowEscalated
	case entity.ActionResubmit:
		return TypeWorkflowResubmitted
	}
	return ""
}
