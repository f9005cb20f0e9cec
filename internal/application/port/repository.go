package port

import (
	"context"

	"github.com/garyjia/travel-approval/internal/domain/entity"
)

// TravelRequestRepository defines persistence operations for TravelRequest.
// GetByID returns (nil, nil) when the request does not exist.
type TravelRequestRepository interface {
	Create(ctx context.Context, req *entity.TravelRequest) error
	GetByID(ctx context.Context, id string) (*entity.TravelRequest, error)
	Update(ctx context.Context, req *entity.TravelRequest) error
	// UpdateDraft stores req only while the stored request is still a DRAFT,
	// otherwise it fails with workflow.ErrAlreadySubmitted.
	UpdateDraft(ctx context.Context, req *entity.TravelRequest) error
}

// InstanceRepository defines persistence operations for WorkflowInstance.
// GetByID returns (nil, nil) when the workflow does not exist.
type InstanceRepository interface {
	Create(ctx context.Context, inst *entity.WorkflowInstance) error
	GetByID(ctx context.Context, workflowID string) (*entity.WorkflowInstance, error)
	GetByTravelRequestID(ctx context.Context, travelRequestID string) (*entity.WorkflowInstance, error)
	// Update stores inst only if the stored version still equals expectedVersion,
	// otherwise it fails with workflow.ErrVersionConflict.
	Update(ctx context.Context, inst *entity.WorkflowInstance, expectedVersion int64) error
	List(ctx context.Context, filter entity.InstanceFilter) ([]*entity.WorkflowInstance, error)
}

// AuditRepository defines persistence operations for AuditEntry
type AuditRepository interface {
	// Append fails with workflow.ErrOutOfOrder unless entry.Sequence is LastSequence+1
	Append(ctx context.Context, entry *entity.AuditEntry) error
	ListByWorkflowID(ctx context.Context, workflowID string) ([]*entity.AuditEntry, error)
	LastSequence(ctx context.Context, workflowID string) (int64, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// WithSnapshot runs fn against one consistent view of committed data.
	// fn must only read.
	WithSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
}
