package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	domainwf "github.com/garyjia/travel-approval/internal/domain/workflow"
)

// AuditService is the append-only, per-workflow ordered audit trail
type AuditService interface {
	// NextSequence returns the sequence the next entry of a workflow must carry
	NextSequence(ctx context.Context, workflowID string) (int64, error)

	// Append stores entry; it fails with ErrOutOfOrder unless entry follows the last one
	Append(ctx context.Context, entry *entity.AuditEntry) error

	// EntriesFor returns a fresh, ascending copy of a workflow's trail
	EntriesFor(ctx context.Context, workflowID string) ([]*entity.AuditEntry, error)

	// LastSequence returns the last written sequence, 0 when the trail is empty
	LastSequence(ctx context.Context, workflowID string) (int64, error)

	// Export renders the trail of a workflow and returns the content type written
	Export(ctx context.Context, workflowID string, w io.Writer) (string, error)
}

type auditServiceImpl struct {
	auditRepo    port.AuditRepository
	instanceRepo port.InstanceRepository
	exporter     port.AuditExporter
	snapshots    port.TransactionManager
	logger       *zap.Logger
}

// AuditServiceOption configures the audit service
type AuditServiceOption func(*auditServiceImpl)

// WithSnapshots makes Export read the instance and its trail from one snapshot
func WithSnapshots(tx port.TransactionManager) AuditServiceOption {
	return func(s *auditServiceImpl) {
		s.snapshots = tx
	}
}

// NewAuditService creates a new AuditService. exporter may be nil when
// exports are not served.
func NewAuditService(
	auditRepo port.AuditRepository,
	instanceRepo port.InstanceRepository,
	exporter port.AuditExporter,
	logger *zap.Logger,
	opts ...AuditServiceOption,
) AuditService {
	s := &auditServiceImpl{
		auditRepo:    auditRepo,
		instanceRepo: instanceRepo,
		exporter:     exporter,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextSequence returns last+1 for the workflow
func (s *auditServiceImpl) NextSequence(ctx context.Context, workflowID string) (int64, error) {
	last, err := s.LastSequence(ctx, workflowID)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// Append validates ordering and stores the entry
func (s *auditServiceImpl) Append(ctx context.Context, entry *entity.AuditEntry) error {
	if entry == nil || entry.WorkflowID == "" {
		return fmt.Errorf("%w: audit entry without workflow", domainwf.ErrInvalidRequest)
	}

	last, err := s.auditRepo.LastSequence(ctx, entry.WorkflowID)
	if err != nil {
		return fmt.Errorf("read last sequence: %w", err)
	}
	if entry.Sequence != last+1 {
		err := fmt.Errorf("%w: workflow %s got sequence %d after %d",
			domainwf.ErrOutOfOrder, entry.WorkflowID, entry.Sequence, last)
		s.logger.Error("Audit trail out of order",
			zap.String("workflow_id", entry.WorkflowID),
			zap.Int64("sequence", entry.Sequence),
			zap.Int64("last_sequence", last))
		return err
	}

	if err := s.auditRepo.Append(ctx, entry); err != nil {
		if errors.Is(err, domainwf.ErrOutOfOrder) {
			s.logger.Error("Audit trail out of order",
				zap.String("workflow_id", entry.WorkflowID),
				zap.Int64("sequence", entry.Sequence),
				zap.Error(err))
		}
		return err
	}

	return nil
}

// EntriesFor returns the ordered trail
func (s *auditServiceImpl) EntriesFor(ctx context.Context, workflowID string) ([]*entity.AuditEntry, error) {
	entries, err := s.auditRepo.ListByWorkflowID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	if entries == nil {
		entries = []*entity.AuditEntry{}
	}
	return entries, nil
}

// LastSequence returns the last written sequence
func (s *auditServiceImpl) LastSequence(ctx context.Context, workflowID string) (int64, error) {
	last, err := s.auditRepo.LastSequence(ctx, workflowID)
	if err != nil {
		return 0, fmt.Errorf("read last sequence: %w", err)
	}
	return last, nil
}

// Export writes the trail of a workflow through the configured exporter
func (s *auditServiceImpl) Export(ctx context.Context, workflowID string, w io.Writer) (string, error) {
	if s.exporter == nil {
		return "", fmt.Errorf("audit export is not configured")
	}

	var (
		inst    *entity.WorkflowInstance
		entries []*entity.AuditEntry
	)
	read := func(readCtx context.Context) error {
		var err error
		inst, err = s.instanceRepo.GetByID(readCtx, workflowID)
		if err != nil {
			return fmt.Errorf("get workflow: %w", err)
		}
		if inst == nil {
			return fmt.Errorf("%w: %s", domainwf.ErrNotFound, workflowID)
		}
		entries, err = s.EntriesFor(readCtx, workflowID)
		return err
	}

	var err error
	if s.snapshots != nil {
		err = s.snapshots.WithSnapshot(ctx, read)
	} else {
		err = read(ctx)
	}
	if err != nil {
		return "", err
	}

	if err := s.exporter.Export(ctx, inst, entries, w); err != nil {
		s.logger.Error("Failed to export audit trail",
			zap.String("workflow_id", workflowID), zap.Error(err))
		return "", fmt.Errorf("export audit trail: %w", err)
	}

	s.logger.Info("Audit trail exported",
		zap.String("workflow_id", workflowID),
		zap.Int("entries", len(entries)))

	return s.exporter.ContentType(), nil
}
