package service

import (
	"context"
	"io"

	"github.com/garyjia/travel-approval/internal/domain/entity"
)

// Mock repositories

type mockRequestRepo struct {
	createFunc      func(ctx context.Context, req *entity.TravelRequest) error
	getByIDFunc     func(ctx context.Context, id string) (*entity.TravelRequest, error)
	updateFunc      func(ctx context.Context, req *entity.TravelRequest) error
	updateDraftFunc func(ctx context.Context, req *entity.TravelRequest) error
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.TravelRequest) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id string) (*entity.TravelRequest, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockRequestRepo) Update(ctx context.Context, req *entity.TravelRequest) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, req)
	}
	return nil
}

func (m *mockRequestRepo) UpdateDraft(ctx context.Context, req *entity.TravelRequest) error {
	if m.updateDraftFunc != nil {
		return m.updateDraftFunc(ctx, req)
	}
	return nil
}

// mockTxManager runs fn directly and counts the transactions opened
type mockTxManager struct {
	transactions int
	snapshots    int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.transactions++
	return fn(ctx)
}

func (m *mockTxManager) WithSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	m.snapshots++
	return fn(ctx)
}

type mockInstanceRepo struct {
	getByIDFunc func(ctx context.Context, workflowID string) (*entity.WorkflowInstance, error)
	listFunc    func(ctx context.Context, filter entity.InstanceFilter) ([]*entity.WorkflowInstance, error)
}

func (m *mockInstanceRepo) Create(ctx context.Context, inst *entity.WorkflowInstance) error {
	return nil
}

func (m *mockInstanceRepo) GetByID(ctx context.Context, workflowID string) (*entity.WorkflowInstance, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, workflowID)
	}
	return nil, nil
}

func (m *mockInstanceRepo) GetByTravelRequestID(ctx context.Context, travelRequestID string) (*entity.WorkflowInstance, error) {
	return nil, nil
}

func (m *mockInstanceRepo) Update(ctx context.Context, inst *entity.WorkflowInstance, expectedVersion int64) error {
	return nil
}

func (m *mockInstanceRepo) List(ctx context.Context, filter entity.InstanceFilter) ([]*entity.WorkflowInstance, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return nil, nil
}

type mockAuditRepo struct {
	entries map[string][]*entity.AuditEntry
}

func newMockAuditRepo() *mockAuditRepo {
	return &mockAuditRepo{entries: make(map[string][]*entity.AuditEntry)}
}

func (m *mockAuditRepo) Append(ctx context.Context, entry *entity.AuditEntry) error {
	m.entries[entry.WorkflowID] = append(m.entries[entry.WorkflowID], entry)
	return nil
}

func (m *mockAuditRepo) ListByWorkflowID(ctx context.Context, workflowID string) ([]*entity.AuditEntry, error) {
	return m.entries[workflowID], nil
}

func (m *mockAuditRepo) LastSequence(ctx context.Context, workflowID string) (int64, error) {
	trail := m.entries[workflowID]
	if len(trail) == 0 {
		return 0, nil
	}
	return trail[len(trail)-1].Sequence, nil
}

type mockExporter struct {
	exportFunc func(ctx context.Context, inst *entity.WorkflowInstance, entries []*entity.AuditEntry, w io.Writer) error
}

func (m *mockExporter) ContentType() string {
	return "text/csv"
}

func (m *mockExporter) Export(ctx context.Context, inst *entity.WorkflowInstance, entries []*entity.AuditEntry, w io.Writer) error {
	if m.exportFunc != nil {
		return m.exportFunc(ctx, inst, entries, w)
	}
	return nil
}

type mockReader struct {
	getFunc     func(ctx context.Context, workflowID string) (*entity.WorkflowInstance, []*entity.AuditEntry, error)
	listFunc    func(ctx context.Context, filter entity.InstanceFilter) ([]*entity.WorkflowInstance, error)
	allowedFunc func(inst *entity.WorkflowInstance) []entity.Action
}

func (m *mockReader) Get(ctx context.Context, workflowID string) (*entity.WorkflowInstance, []*entity.AuditEntry, error) {
	return m.getFunc(ctx, workflowID)
}

func (m *mockReader) List(ctx context.Context, filter entity.InstanceFilter) ([]*entity.WorkflowInstance, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockReader) AllowedActions(inst *entity.WorkflowInstance) []entity.Action {
	if m.allowedFunc != nil {
		return m.allowedFunc(inst)
	}
	return nil
}
