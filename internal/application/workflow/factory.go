package workflow

import (
	"context"

	domainwf "github.com/garyjia/travel-approval/internal/domain/workflow"
)

type hasNextStageKey struct{}

// withNextStage records whether approving the current stage leads to another stage
func withNextStage(ctx context.Context, hasNext bool) context.Context {
	return context.WithValue(ctx, hasNextStageKey{}, hasNext)
}

func hasNextStage(ctx context.Context) bool {
	v, _ := ctx.Value(hasNextStageKey{}).(bool)
	return v
}

// BuildTravelStateMachine creates a state machine configured for travel approvals
func BuildTravelStateMachine(initialState domainwf.State) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	// PENDING: approve stays PENDING while stages remain
	builder.Configure(domainwf.StatePending).
		PermitIf(domainwf.TriggerApprove, domainwf.StatePending, hasNextStage).
		Permit(domainwf.TriggerApprove, domainwf.StateCompleted).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Permit(domainwf.TriggerRequestChanges, domainwf.StateChangesRequested).
		Permit(domainwf.TriggerEscalate, domainwf.StateEscalated)

	// ESCALATED: the higher role decides, or escalates further up
	builder.Configure(domainwf.StateEscalated).
		PermitIf(domainwf.TriggerApprove, domainwf.StatePending, hasNextStage).
		Permit(domainwf.TriggerApprove, domainwf.StateCompleted).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Permit(domainwf.TriggerRequestChanges, domainwf.StateChangesRequested).
		Permit(domainwf.TriggerEscalate, domainwf.StateEscalated)

	builder.Configure(domainwf.StateChangesRequested).
		Permit(domainwf.TriggerResubmit, domainwf.StatePending)

	// APPROVED is reserved and has no outgoing transitions.
	// REJECTED and COMPLETED are terminal states.

	return builder.Build(initialState)
}
