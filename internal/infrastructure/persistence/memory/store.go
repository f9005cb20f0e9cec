package memory

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
)

type contextKey string

const (
	txKey       contextKey = "memtx"
	snapshotKey contextKey = "memsnapshot"
)

// txState stages the writes of an open transaction until commit
type txState struct {
	requests  map[string]*entity.TravelRequest
	instances map[string]*entity.WorkflowInstance
	byRequest map[string]string
	audit     map[string][]*entity.AuditEntry
}

func newTxState() *txState {
	return &txState{
		requests:  make(map[string]*entity.TravelRequest),
		instances: make(map[string]*entity.WorkflowInstance),
		byRequest: make(map[string]string),
		audit:     make(map[string][]*entity.AuditEntry),
	}
}

// Store is an in-process backend for all repositories. Transactions are
// serialized and stage their writes; commit publishes them under one lock,
// so readers outside a transaction only ever see committed data.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	requests  map[string]*entity.TravelRequest
	instances map[string]*entity.WorkflowInstance
	byRequest map[string]string
	audit     map[string][]*entity.AuditEntry

	logger *zap.Logger
}

// NewStore creates an empty store
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		requests:  make(map[string]*entity.TravelRequest),
		instances: make(map[string]*entity.WorkflowInstance),
		byRequest: make(map[string]string),
		audit:     make(map[string][]*entity.AuditEntry),
		logger:    logger,
	}
}

// WithTransaction implements port.TransactionManager.
// Nested calls join the outer transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := newTxState()
	txCtx := context.WithValue(ctx, txKey, tx)

	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("Transaction panicked, staged writes discarded", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err = fn(txCtx); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

// WithSnapshot implements port.TransactionManager. fn sees one consistent
// view of committed data and must not write.
func (s *Store) WithSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil || ctx.Value(snapshotKey) != nil {
		return fn(ctx)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(context.WithValue(ctx, snapshotKey, true))
}

func (s *Store) commit(tx *txState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, req := range tx.requests {
		s.requests[id] = req
	}
	for id, inst := range tx.instances {
		s.instances[id] = inst
	}
	for requestID, workflowID := range tx.byRequest {
		s.byRequest[requestID] = workflowID
	}
	for workflowID, trail := range tx.audit {
		s.audit[workflowID] = trail
	}
}

func txFrom(ctx context.Context) *txState {
	tx, _ := ctx.Value(txKey).(*txState)
	return tx
}

// read takes the read lock on committed data unless ctx already holds a snapshot
func (s *Store) read(ctx context.Context) func() {
	if ctx.Value(snapshotKey) != nil {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// write runs fn in the caller's transaction, or in one of its own
func (s *Store) write(ctx context.Context, fn func(ctx context.Context, tx *txState) error) error {
	if tx := txFrom(ctx); tx != nil {
		return fn(ctx, tx)
	}
	return s.WithTransaction(ctx, func(txCtx context.Context) error {
		return fn(txCtx, txFrom(txCtx))
	})
}

// The lookups below see staged writes first; callers hold the read lock.

func (s *Store) request(tx *txState, id string) (*entity.TravelRequest, bool) {
	if tx != nil {
		if req, ok := tx.requests[id]; ok {
			return req, true
		}
	}
	req, ok := s.requests[id]
	return req, ok
}

func (s *Store) instance(tx *txState, workflowID string) (*entity.WorkflowInstance, bool) {
	if tx != nil {
		if inst, ok := tx.instances[workflowID]; ok {
			return inst, true
		}
	}
	inst, ok := s.instances[workflowID]
	return inst, ok
}

func (s *Store) workflowFor(tx *txState, travelRequestID string) (string, bool) {
	if tx != nil {
		if id, ok := tx.byRequest[travelRequestID]; ok {
			return id, true
		}
	}
	id, ok := s.byRequest[travelRequestID]
	return id, ok
}

func (s *Store) trail(tx *txState, workflowID string) []*entity.AuditEntry {
	if tx != nil {
		if trail, ok := tx.audit[workflowID]; ok {
			return trail
		}
	}
	return s.audit[workflowID]
}

// Requests returns the travel request repository view
func (s *Store) Requests() port.TravelRequestRepository { return (*requestRepo)(s) }

// Instances returns the workflow instance repository view
func (s *Store) Instances() port.InstanceRepository { return (*instanceRepo)(s) }

// Audit returns the audit repository view
func (s *Store) Audit() port.AuditRepository { return (*auditRepo)(s) }

func cloneRequest(r *entity.TravelRequest) *entity.TravelRequest {
	c := *r
	if r.ActualCost != nil {
		v := *r.ActualCost
		c.ActualCost = &v
	}
	return &c
}

func errDuplicate(kind, id string) error {
	return fmt.Errorf("%s %s already exists", kind, id)
}

// Verify interface compliance
var _ port.TransactionManager = (*Store)(nil)
