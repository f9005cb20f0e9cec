package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/workflow"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
)

// AuditRepository implements port.AuditRepository
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores entry if it directly follows the last stored sequence
func (r *AuditRepository) Append(ctx context.Context, entry *entity.AuditEntry) error {
	last, err := r.LastSequence(ctx, entry.WorkflowID)
	if err != nil {
		return err
	}
	if entry.Sequence != last+1 {
		return fmt.Errorf("%w: workflow %s got sequence %d after %d",
			workflow.ErrOutOfOrder, entry.WorkflowID, entry.Sequence, last)
	}

	query := `
		INSERT INTO audit_entries (
			workflow_id, sequence, actor_id, actor_name, actor_role, action, remark,
			from_status, from_step, status, step, version, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		entry.WorkflowID,
		entry.Sequence,
		entry.ActorID,
		entry.ActorName,
		entry.ActorRole,
		entry.Action,
		entry.Remark,
		entry.FromStatus,
		entry.FromStep,
		entry.Status,
		entry.Step,
		entry.Version,
		entry.Timestamp,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: workflow %s sequence %d already written",
				workflow.ErrOutOfOrder, entry.WorkflowID, entry.Sequence)
		}
		r.logger.Error("Failed to append audit entry",
			zap.String("workflow_id", entry.WorkflowID), zap.Error(err))
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// ListByWorkflowID returns the trail of a workflow in sequence order
func (r *AuditRepository) ListByWorkflowID(ctx context.Context, workflowID string) ([]*entity.AuditEntry, error) {
	query := `
		SELECT workflow_id, sequence, actor_id, actor_name, actor_role, action, remark,
			from_status, from_step, status, step, version, created_at
		FROM audit_entries
		WHERE workflow_id = ?
		ORDER BY sequence ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, workflowID)
	if err != nil {
		r.logger.Error("Failed to list audit entries",
			zap.String("workflow_id", workflowID), zap.Error(err))
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*entity.AuditEntry, 0)
	for rows.Next() {
		var e entity.AuditEntry
		err := rows.Scan(
			&e.WorkflowID,
			&e.Sequence,
			&e.ActorID,
			&e.ActorName,
			&e.ActorRole,
			&e.Action,
			&e.Remark,
			&e.FromStatus,
			&e.FromStep,
			&e.Status,
			&e.Step,
			&e.Version,
			&e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// LastSequence returns the highest sequence written for a workflow, 0 if none
func (r *AuditRepository) LastSequence(ctx context.Context, workflowID string) (int64, error) {
	var last int64
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM audit_entries WHERE workflow_id = ?`,
		workflowID,
	).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("failed to read last audit sequence: %w", err)
	}
	return last, nil
}

// getExecutor returns appropriate executor based on context
func (r *AuditRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.AuditRepository = (*AuditRepository)(nil)
