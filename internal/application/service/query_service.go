package service

import (
	"context"
	"time"

	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/sla"
)

// WorkflowReader is the read side of the workflow engine
type WorkflowReader interface {
	Get(ctx context.Context, workflowID string) (*entity.WorkflowInstance, []*entity.AuditEntry, error)
	List(ctx context.Context, filter entity.InstanceFilter) ([]*entity.WorkflowInstance, error)
	AllowedActions(inst *entity.WorkflowInstance) []entity.Action
}

// WorkflowSummary is an instance together with its current SLA picture
type WorkflowSummary struct {
	*entity.WorkflowInstance
	SLA *sla.View `json:"sla,omitempty"`
}

// WorkflowDetail is a summary plus the full audit trail and the actions
// the current status permits
type WorkflowDetail struct {
	WorkflowSummary
	Entries        []*entity.AuditEntry `json:"audit_entries"`
	AllowedActions []entity.Action      `json:"allowed_actions"`
}

// QueryService serves the approver queues and detail views
type QueryService interface {
	Get(ctx context.Context, workflowID string) (*WorkflowDetail, error)
	List(ctx context.Context, filter entity.InstanceFilter) ([]*WorkflowSummary, error)
	// Attention returns open workflows that are due soon or breached at now
	Attention(ctx context.Context, now time.Time) ([]*WorkflowSummary, error)
}

type queryServiceImpl struct {
	reader WorkflowReader
	clock  *sla.Clock
	now    func() time.Time
}

// NewQueryService creates a new QueryService
func NewQueryService(reader WorkflowReader, clock *sla.Clock) QueryService {
	return &queryServiceImpl{
		reader: reader,
		clock:  clock,
		now:    time.Now,
	}
}

func (s *queryServiceImpl) summarize(inst *entity.WorkflowInstance, now time.Time) *WorkflowSummary {
	summary := &WorkflowSummary{WorkflowInstance: inst}
	if !inst.Status.IsTerminal() && inst.DueDate != nil {
		view := s.clock.Evaluate(now, inst.StageEnteredAt, inst.SLAWindowHours)
		summary.SLA = &view
	}
	return summary
}

// Get returns a workflow with its SLA view and audit trail
func (s *queryServiceImpl) Get(ctx context.Context, workflowID string) (*WorkflowDetail, error) {
	inst, entries, err := s.reader.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return &WorkflowDetail{
		WorkflowSummary: *s.summarize(inst, s.now()),
		Entries:         entries,
		AllowedActions:  s.reader.AllowedActions(inst),
	}, nil
}

// List returns matching workflows with their SLA view
func (s *queryServiceImpl) List(ctx context.Context, filter entity.InstanceFilter) ([]*WorkflowSummary, error) {
	instances, err := s.reader.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]*WorkflowSummary, 0, len(instances))
	for _, inst := range instances {
		out = append(out, s.summarize(inst, now))
	}
	return out, nil
}

// Attention returns the open workflows whose stage is not on track
func (s *queryServiceImpl) Attention(ctx context.Context, now time.Time) ([]*WorkflowSummary, error) {
	instances, err := s.reader.List(ctx, entity.InstanceFilter{OpenOnly: true})
	if err != nil {
		return nil, err
	}

	var out []*WorkflowSummary
	for _, inst := range instances {
		summary := s.summarize(inst, now)
		if summary.SLA != nil && summary.SLA.Status != sla.StatusOnTrack {
			out = append(out, summary)
		}
	}
	return out, nil
}
