package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/workflow"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
)

const instanceColumns = `
	workflow_id, travel_request_id, requester_id, workflow_type, status,
	current_step, previous_step, next_step, current_approver_role, priority,
	stage_entered_at, due_date, sla_window_hours, is_overpriced, overpriced_reason,
	resume_step, approved_amount, cycle, version, created_at, updated_at, closed_at`

// InstanceRepository implements port.InstanceRepository
type InstanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInstanceRepository creates a new instance repository
func NewInstanceRepository(db *sql.DB, logger *zap.Logger) port.InstanceRepository {
	return &InstanceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new workflow instance
func (r *InstanceRepository) Create(ctx context.Context, inst *entity.WorkflowInstance) error {
	query := `INSERT INTO workflow_instances (` + instanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		inst.WorkflowID,
		inst.TravelRequestID,
		inst.RequesterID,
		inst.WorkflowType,
		inst.Status,
		inst.CurrentStep,
		inst.PreviousStep,
		inst.NextStep,
		inst.CurrentApproverRole,
		inst.Priority,
		inst.StageEnteredAt,
		nullTime(inst.DueDate),
		inst.SLAWindowHours,
		inst.IsOverpriced,
		inst.OverpricedReason,
		inst.ResumeStep,
		nullFloat(inst.ApprovedAmount),
		inst.Cycle,
		inst.Version,
		inst.CreatedAt,
		inst.UpdatedAt,
		nullTime(inst.ClosedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create workflow instance",
			zap.String("workflow_id", inst.WorkflowID), zap.Error(err))
		return fmt.Errorf("failed to create workflow instance: %w", err)
	}

	return nil
}

// GetByID retrieves a workflow instance by ID
func (r *InstanceRepository) GetByID(ctx context.Context, workflowID string) (*entity.WorkflowInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM workflow_instances WHERE workflow_id = ?`

	inst, err := scanInstance(r.getExecutor(ctx).QueryRowContext(ctx, query, workflowID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow instance",
			zap.String("workflow_id", workflowID), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow instance: %w", err)
	}

	return inst, nil
}

// GetByTravelRequestID retrieves the workflow bound to a travel request
func (r *InstanceRepository) GetByTravelRequestID(ctx context.Context, travelRequestID string) (*entity.WorkflowInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM workflow_instances WHERE travel_request_id = ?`

	inst, err := scanInstance(r.getExecutor(ctx).QueryRowContext(ctx, query, travelRequestID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow instance by travel request",
			zap.String("travel_request_id", travelRequestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow instance: %w", err)
	}

	return inst, nil
}

// Update performs a compare-and-swap on the version column
func (r *InstanceRepository) Update(ctx context.Context, inst *entity.WorkflowInstance, expectedVersion int64) error {
	query := `
		UPDATE workflow_instances SET
			status = ?, current_step = ?, previous_step = ?, next_step = ?,
			current_approver_role = ?, priority = ?, stage_entered_at = ?, due_date = ?,
			sla_window_hours = ?, is_overpriced = ?, overpriced_reason = ?, resume_step = ?,
			approved_amount = ?, cycle = ?, version = ?, updated_at = ?, closed_at = ?
		WHERE workflow_id = ? AND version = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		inst.Status,
		inst.CurrentStep,
		inst.PreviousStep,
		inst.NextStep,
		inst.CurrentApproverRole,
		inst.Priority,
		inst.StageEnteredAt,
		nullTime(inst.DueDate),
		inst.SLAWindowHours,
		inst.IsOverpriced,
		inst.OverpricedReason,
		inst.ResumeStep,
		nullFloat(inst.ApprovedAmount),
		inst.Cycle,
		inst.Version,
		inst.UpdatedAt,
		nullTime(inst.ClosedAt),
		inst.WorkflowID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update workflow instance",
			zap.String("workflow_id", inst.WorkflowID), zap.Error(err))
		return fmt.Errorf("failed to update workflow instance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s expected version %d", workflow.ErrVersionConflict, inst.WorkflowID, expectedVersion)
	}

	return nil
}

// List returns instances matching filter, oldest due first
func (r *InstanceRepository) List(ctx context.Context, filter entity.InstanceFilter) ([]*entity.WorkflowInstance, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Role != "" {
		where = append(where, "current_approver_role = ?")
		args = append(args, filter.Role)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.RequesterID != "" {
		where = append(where, "requester_id = ?")
		args = append(args, filter.RequesterID)
	}
	if filter.OpenOnly {
		where = append(where, "status NOT IN (?, ?)")
		args = append(args, entity.StatusRejected, entity.StatusCompleted)
	}

	query := `SELECT ` + instanceColumns + ` FROM workflow_instances`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY due_date IS NULL, due_date ASC, created_at ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list workflow instances", zap.Error(err))
		return nil, fmt.Errorf("failed to list workflow instances: %w", err)
	}
	defer rows.Close()

	var instances []*entity.WorkflowInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow instance: %w", err)
		}
		instances = append(instances, inst)
	}

	return instances, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInstance(row rowScanner) (*entity.WorkflowInstance, error) {
	var (
		inst     entity.WorkflowInstance
		dueDate  sql.NullTime
		closedAt sql.NullTime
		approved sql.NullFloat64
	)

	err := row.Scan(
		&inst.WorkflowID,
		&inst.TravelRequestID,
		&inst.RequesterID,
		&inst.WorkflowType,
		&inst.Status,
		&inst.CurrentStep,
		&inst.PreviousStep,
		&inst.NextStep,
		&inst.CurrentApproverRole,
		&inst.Priority,
		&inst.StageEnteredAt,
		&dueDate,
		&inst.SLAWindowHours,
		&inst.IsOverpriced,
		&inst.OverpricedReason,
		&inst.ResumeStep,
		&approved,
		&inst.Cycle,
		&inst.Version,
		&inst.CreatedAt,
		&inst.UpdatedAt,
		&closedAt,
	)
	if err != nil {
		return nil, err
	}

	inst.DueDate = timePtr(dueDate)
	inst.ClosedAt = timePtr(closedAt)
	if approved.Valid {
		v := approved.Float64
		inst.ApprovedAmount = &v
	}

	return &inst, nil
}

// getExecutor returns appropriate executor based on context
func (r *InstanceRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.InstanceRepository = (*InstanceRepository)(nil)
