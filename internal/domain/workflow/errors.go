package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrNotFound is returned when the workflow id is unknown
	ErrNotFound = errors.New("workflow not found")

	// ErrTerminal is returned for any action on a REJECTED or COMPLETED workflow
	ErrTerminal = errors.New("workflow is in a terminal status")

	// ErrVersionConflict is returned when the caller's expected version is stale.
	// The caller must refetch and decide whether to act again.
	ErrVersionConflict = errors.New("workflow was updated by someone else")

	// ErrUnauthorized is returned when the actor's role does not own the current stage
	ErrUnauthorized = errors.New("actor is not the current approver")

	// ErrMissingRemark is returned when an approver action carries no remark
	ErrMissingRemark = errors.New("remark is required")

	// ErrOutOfOrder is an audit invariant violation, never caused by valid input
	ErrOutOfOrder = errors.New("audit entry out of order")

	// ErrUnknownWorkflowType is returned for a workflow type with no stage graph
	ErrUnknownWorkflowType = errors.New("unknown workflow type")

	// ErrUnknownStep is returned for a step that is not part of the graph
	ErrUnknownStep = errors.New("unknown workflow step")

	// ErrNoEscalationPath is returned when the current approver has no superior
	ErrNoEscalationPath = errors.New("no higher role to escalate to")

	// ErrRequestNotFound is returned when the travel request id is unknown
	ErrRequestNotFound = errors.New("travel request not found")

	// ErrNotSubmittable is returned for requests that are still drafts
	ErrNotSubmittable = errors.New("travel request is not submittable")

	// ErrAlreadySubmitted is returned when a request is already bound to a workflow
	ErrAlreadySubmitted = errors.New("travel request already has a workflow")

	// ErrNotOwner is returned when someone other than the requester edits or resubmits
	ErrNotOwner = errors.New("actor does not own the travel request")

	// ErrInvalidRequest is returned when a request fails validation
	ErrInvalidRequest = errors.New("invalid request")
)

// IsConflict reports errors the caller resolves by refreshing state
func IsConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrTerminal) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrAlreadySubmitted) ||
		errors.Is(err, ErrNoEscalationPath)
}
