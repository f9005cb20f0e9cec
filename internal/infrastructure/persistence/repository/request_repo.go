package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/workflow"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
)

const requestColumns = `
	id, requester_id, requester_name, grade, department, origin, destination,
	departure_date, return_date, purpose, estimated_budget, actual_cost, currency,
	manager_present, flight_class, flight_cost, hotel_nightly_rate, daily_allowance,
	status, workflow_id, created_at, updated_at`

// TravelRequestRepository implements port.TravelRequestRepository
type TravelRequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTravelRequestRepository creates a new travel request repository
func NewTravelRequestRepository(db *sql.DB, logger *zap.Logger) port.TravelRequestRepository {
	return &TravelRequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new travel request
func (r *TravelRequestRepository) Create(ctx context.Context, req *entity.TravelRequest) error {
	query := `INSERT INTO travel_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		req.ID,
		req.RequesterID,
		req.RequesterName,
		req.Grade,
		req.Department,
		req.Origin,
		req.Destination,
		req.DepartureDate,
		req.ReturnDate,
		req.Purpose,
		req.EstimatedBudget,
		nullFloat(req.ActualCost),
		req.Currency,
		req.ManagerPresent,
		req.Estimate.FlightClass,
		req.Estimate.FlightCost,
		req.Estimate.HotelNightlyRate,
		req.Estimate.DailyAllowance,
		req.Status,
		nullString(req.WorkflowID),
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create travel request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to create travel request: %w", err)
	}

	return nil
}

// GetByID retrieves a travel request by ID
func (r *TravelRequestRepository) GetByID(ctx context.Context, id string) (*entity.TravelRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM travel_requests WHERE id = ?`

	var (
		req        entity.TravelRequest
		actualCost sql.NullFloat64
		workflowID sql.NullString
	)

	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(
		&req.ID,
		&req.RequesterID,
		&req.RequesterName,
		&req.Grade,
		&req.Department,
		&req.Origin,
		&req.Destination,
		&req.DepartureDate,
		&req.ReturnDate,
		&req.Purpose,
		&req.EstimatedBudget,
		&actualCost,
		&req.Currency,
		&req.ManagerPresent,
		&req.Estimate.FlightClass,
		&req.Estimate.FlightCost,
		&req.Estimate.HotelNightlyRate,
		&req.Estimate.DailyAllowance,
		&req.Status,
		&workflowID,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get travel request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get travel request: %w", err)
	}

	if actualCost.Valid {
		v := actualCost.Float64
		req.ActualCost = &v
	}
	req.WorkflowID = workflowID.String

	return &req, nil
}

// Update overwrites every mutable column of a travel request
func (r *TravelRequestRepository) Update(ctx context.Context, req *entity.TravelRequest) error {
	rows, err := r.update(ctx, req, false)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: travel request %s", workflow.ErrRequestNotFound, req.ID)
	}
	return nil
}

// UpdateDraft overwrites a travel request only while its stored status is DRAFT
func (r *TravelRequestRepository) UpdateDraft(ctx context.Context, req *entity.TravelRequest) error {
	rows, err := r.update(ctx, req, true)
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	current, err := r.GetByID(ctx, req.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("%w: travel request %s", workflow.ErrRequestNotFound, req.ID)
	}
	return fmt.Errorf("%w: travel request %s is %s", workflow.ErrAlreadySubmitted, req.ID, current.Status)
}

func (r *TravelRequestRepository) update(ctx context.Context, req *entity.TravelRequest, draftOnly bool) (int64, error) {
	query := `
		UPDATE travel_requests SET
			requester_name = ?, grade = ?, department = ?, origin = ?, destination = ?,
			departure_date = ?, return_date = ?, purpose = ?, estimated_budget = ?,
			actual_cost = ?, currency = ?, manager_present = ?, flight_class = ?,
			flight_cost = ?, hotel_nightly_rate = ?, daily_allowance = ?, status = ?,
			workflow_id = ?, updated_at = ?
		WHERE id = ?`

	args := []interface{}{
		req.RequesterName,
		req.Grade,
		req.Department,
		req.Origin,
		req.Destination,
		req.DepartureDate,
		req.ReturnDate,
		req.Purpose,
		req.EstimatedBudget,
		nullFloat(req.ActualCost),
		req.Currency,
		req.ManagerPresent,
		req.Estimate.FlightClass,
		req.Estimate.FlightCost,
		req.Estimate.HotelNightlyRate,
		req.Estimate.DailyAllowance,
		req.Status,
		nullString(req.WorkflowID),
		req.UpdatedAt,
		req.ID,
	}
	if draftOnly {
		query += ` AND status = ?`
		args = append(args, entity.RequestStatusDraft)
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update travel request", zap.String("id", req.ID), zap.Error(err))
		return 0, fmt.Errorf("failed to update travel request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// getExecutor returns appropriate executor based on context
func (r *TravelRequestRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.TravelRequestRepository = (*TravelRequestRepository)(nil)
