package workflow

import (
	"context"

	"github.com/garyjia/travel-approval/internal/domain/entity"
)

// WorkflowEngine is the single authority over workflow instance state
type WorkflowEngine interface {
	// Submit binds a travel request to a new workflow instance
	Submit(ctx context.Context, cmd SubmitCommand) (*entity.WorkflowInstance, error)

	// Act applies an approver action named by cmd.Action
	Act(ctx context.Context, cmd ActionCommand) (*entity.WorkflowInstance, error)

	Approve(ctx context.Context, cmd ActionCommand) (*entity.WorkflowInstance, error)
	Reject(ctx context.Context, cmd ActionCommand) (*entity.WorkflowInstance, error)
	RequestChanges(ctx context.Context, cmd ActionCommand) (*entity.WorkflowInstance, error)
	Escalate(ctx context.Context, cmd ActionCommand) (*entity.WorkflowInstance, error)

	// Resubmit restarts a workflow whose request was sent back for changes
	Resubmit(ctx context.Context, cmd ResubmitCommand) (*entity.WorkflowInstance, error)

	// Get returns the instance and its ordered audit trail without taking write locks
	Get(ctx context.Context, workflowID string) (*entity.WorkflowInstance, []*entity.AuditEntry, error)

	// List returns instances matching filter
	List(ctx context.Context, filter entity.InstanceFilter) ([]*entity.WorkflowInstance, error)

	// AllowedActions returns the actions the instance's status still permits
	AllowedActions(inst *entity.WorkflowInstance) []entity.Action
}

// AuditLog is the trail the engine appends to inside its transaction
type AuditLog interface {
	NextSequence(ctx context.Context, workflowID string) (int64, error)
	Append(ctx context.Context, entry *entity.AuditEntry) error
	EntriesFor(ctx context.Context, workflowID string) ([]*entity.AuditEntry, error)
}

// SubmitCommand submits either an inline request or a stored draft
type SubmitCommand struct {
	// Request is submitted as a new travel request when set
	Request *entity.TravelRequest
	// TravelRequestID names a stored draft when Request is nil
	TravelRequestID string
	// RequesterID must own the stored draft when set
	RequesterID  string
	WorkflowType entity.WorkflowType
}

// ActionCommand is an approver decision on one workflow version
type ActionCommand struct {
	WorkflowID      string
	ExpectedVersion int64
	ActorID         string
	ActorName       string
	ActorRole       entity.Role
	Action          entity.Action
	Remark          string

	// AmountApproved is recorded on the instance when set
	AmountApproved *float64
	// MarkOverpriced routes an approval through the cost exception review
	MarkOverpriced   bool
	OverpricedReason string
}

// ResubmitCommand is the requester sending an edited request back into review
type ResubmitCommand struct {
	WorkflowID      string
	ExpectedVersion int64
	ActorID         string
	ActorName       string
	Remark          string
}
