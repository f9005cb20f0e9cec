package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/workflow"
)

type requestRepo Store

func (r *requestRepo) Create(ctx context.Context, req *entity.TravelRequest) error {
	s := (*Store)(r)
	return s.write(ctx, func(ctx context.Context, tx *txState) error {
		unlock := s.read(ctx)
		_, exists := s.request(tx, req.ID)
		unlock()

		if exists {
			return errDuplicate("travel request", req.ID)
		}
		tx.requests[req.ID] = cloneRequest(req)
		return nil
	})
}

func (r *requestRepo) GetByID(ctx context.Context, id string) (*entity.TravelRequest, error) {
	s := (*Store)(r)
	unlock := s.read(ctx)
	defer unlock()

	req, ok := s.request(txFrom(ctx), id)
	if !ok {
		return nil, nil
	}
	return cloneRequest(req), nil
}

func (r *requestRepo) Update(ctx context.Context, req *entity.TravelRequest) error {
	return r.update(ctx, req, false)
}

func (r *requestRepo) UpdateDraft(ctx context.Context, req *entity.TravelRequest) error {
	return r.update(ctx, req, true)
}

func (r *requestRepo) update(ctx context.Context, req *entity.TravelRequest, draftOnly bool) error {
	s := (*Store)(r)
	return s.write(ctx, func(ctx context.Context, tx *txState) error {
		unlock := s.read(ctx)
		prev, ok := s.request(tx, req.ID)
		unlock()

		if !ok {
			return fmt.Errorf("%w: travel request %s", workflow.ErrRequestNotFound, req.ID)
		}
		if draftOnly && prev.Status != entity.RequestStatusDraft {
			return fmt.Errorf("%w: travel request %s is %s", workflow.ErrAlreadySubmitted, req.ID, prev.Status)
		}
		tx.requests[req.ID] = cloneRequest(req)
		return nil
	})
}

type instanceRepo Store

func (r *instanceRepo) Create(ctx context.Context, inst *entity.WorkflowInstance) error {
	s := (*Store)(r)
	return s.write(ctx, func(ctx context.Context, tx *txState) error {
		unlock := s.read(ctx)
		_, exists := s.instance(tx, inst.WorkflowID)
		_, bound := s.workflowFor(tx, inst.TravelRequestID)
		unlock()

		if exists {
			return errDuplicate("workflow", inst.WorkflowID)
		}
		if bound {
			return errDuplicate("workflow for travel request", inst.TravelRequestID)
		}
		tx.instances[inst.WorkflowID] = inst.Clone()
		tx.byRequest[inst.TravelRequestID] = inst.WorkflowID
		return nil
	})
}

func (r *instanceRepo) GetByID(ctx context.Context, workflowID string) (*entity.WorkflowInstance, error) {
	s := (*Store)(r)
	unlock := s.read(ctx)
	defer unlock()

	inst, _ := s.instance(txFrom(ctx), workflowID)
	return inst.Clone(), nil
}

func (r *instanceRepo) GetByTravelRequestID(ctx context.Context, travelRequestID string) (*entity.WorkflowInstance, error) {
	s := (*Store)(r)
	unlock := s.read(ctx)
	defer unlock()

	tx := txFrom(ctx)
	id, ok := s.workflowFor(tx, travelRequestID)
	if !ok {
		return nil, nil
	}
	inst, _ := s.instance(tx, id)
	return inst.Clone(), nil
}

func (r *instanceRepo) Update(ctx context.Context, inst *entity.WorkflowInstance, expectedVersion int64) error {
	s := (*Store)(r)
	return s.write(ctx, func(ctx context.Context, tx *txState) error {
		unlock := s.read(ctx)
		prev, ok := s.instance(tx, inst.WorkflowID)
		unlock()

		if !ok || prev.Version != expectedVersion {
			return fmt.Errorf("%w: %s expected version %d", workflow.ErrVersionConflict, inst.WorkflowID, expectedVersion)
		}
		tx.instances[inst.WorkflowID] = inst.Clone()
		return nil
	})
}

func (r *instanceRepo) List(ctx context.Context, filter entity.InstanceFilter) ([]*entity.WorkflowInstance, error) {
	s := (*Store)(r)
	tx := txFrom(ctx)

	matches := func(inst *entity.WorkflowInstance) bool {
		switch {
		case filter.Role != "" && inst.CurrentApproverRole != filter.Role:
			return false
		case filter.Status != "" && inst.Status != filter.Status:
			return false
		case filter.RequesterID != "" && inst.RequesterID != filter.RequesterID:
			return false
		case filter.OpenOnly && inst.Status.IsTerminal():
			return false
		}
		return true
	}

	matched := make([]*entity.WorkflowInstance, 0)
	unlock := s.read(ctx)
	for id := range s.instances {
		if inst, _ := s.instance(tx, id); matches(inst) {
			matched = append(matched, inst.Clone())
		}
	}
	if tx != nil {
		for id, inst := range tx.instances {
			if _, committed := s.instances[id]; !committed && matches(inst) {
				matched = append(matched, inst.Clone())
			}
		}
	}
	unlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch {
		case a.DueDate == nil && b.DueDate != nil:
			return false
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.WorkflowID < b.WorkflowID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*entity.WorkflowInstance{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

type auditRepo Store

func (r *auditRepo) Append(ctx context.Context, entry *entity.AuditEntry) error {
	s := (*Store)(r)
	return s.write(ctx, func(ctx context.Context, tx *txState) error {
		unlock := s.read(ctx)
		trail := s.trail(tx, entry.WorkflowID)
		unlock()

		last := int64(0)
		if n := len(trail); n > 0 {
			last = trail[n-1].Sequence
		}
		if entry.Sequence != last+1 {
			return fmt.Errorf("%w: workflow %s got sequence %d after %d",
				workflow.ErrOutOfOrder, entry.WorkflowID, entry.Sequence, last)
		}

		// never append into a backing array readers may share
		next := make([]*entity.AuditEntry, len(trail), len(trail)+1)
		copy(next, trail)
		stored := *entry
		tx.audit[entry.WorkflowID] = append(next, &stored)
		return nil
	})
}

func (r *auditRepo) ListByWorkflowID(ctx context.Context, workflowID string) ([]*entity.AuditEntry, error) {
	s := (*Store)(r)
	unlock := s.read(ctx)
	defer unlock()

	trail := s.trail(txFrom(ctx), workflowID)
	out := make([]*entity.AuditEntry, len(trail))
	for i, e := range trail {
		c := *e
		out[i] = &c
	}
	return out, nil
}

func (r *auditRepo) LastSequence(ctx context.Context, workflowID string) (int64, error) {
	s := (*Store)(r)
	unlock := s.read(ctx)
	defer unlock()

	trail := s.trail(txFrom(ctx), workflowID)
	if len(trail) == 0 {
		return 0, nil
	}
	return trail[len(trail)-1].Sequence, nil
}
