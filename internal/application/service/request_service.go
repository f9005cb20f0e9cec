package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/policy"
	domainwf "github.com/garyjia/travel-approval/internal/domain/workflow"
)

// RequestService manages travel request drafts before and between submissions
type RequestService interface {
	CreateDraft(ctx context.Context, req *entity.TravelRequest) (*entity.TravelRequest, error)
	UpdateDraft(ctx context.Context, actorID string, req *entity.TravelRequest) (*entity.TravelRequest, error)
	Get(ctx context.Context, id string) (*entity.TravelRequest, error)
}

type requestServiceImpl struct {
	requestRepo port.TravelRequestRepository
	txManager   port.TransactionManager
	catalog     *policy.Catalog
	logger      *zap.Logger
	now         func() time.Time
}

// NewRequestService creates a new RequestService
func NewRequestService(requestRepo port.TravelRequestRepository, txManager port.TransactionManager, catalog *policy.Catalog, logger *zap.Logger) RequestService {
	return &requestServiceImpl{
		requestRepo: requestRepo,
		txManager:   txManager,
		catalog:     catalog,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateDraft stores a new request in DRAFT status
func (s *requestServiceImpl) CreateDraft(ctx context.Context, req *entity.TravelRequest) (*entity.TravelRequest, error) {
	draft := *req
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	if draft.Currency == "" {
		draft.Currency = s.catalog.Currency()
	}
	draft.Status = entity.RequestStatusDraft
	draft.WorkflowID = ""
	now := s.now()
	draft.CreatedAt = now
	draft.UpdatedAt = now

	if err := s.catalog.ValidateRequest(&draft); err != nil {
		return nil, err
	}

	if err := s.requestRepo.Create(ctx, &draft); err != nil {
		s.logger.Error("Failed to create travel request draft",
			zap.String("requester_id", draft.RequesterID), zap.Error(err))
		return nil, fmt.Errorf("create draft: %w", err)
	}

	s.logger.Info("Travel request draft created",
		zap.String("id", draft.ID),
		zap.String("requester_id", draft.RequesterID),
		zap.Bool("manager_present", draft.ManagerPresent))

	return &draft, nil
}

// UpdateDraft replaces the editable fields of a draft owned by actorID.
// The write only lands if the request is still a DRAFT when it is stored.
func (s *requestServiceImpl) UpdateDraft(ctx context.Context, actorID string, req *entity.TravelRequest) (*entity.TravelRequest, error) {
	var updated entity.TravelRequest
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.requestRepo.GetByID(txCtx, req.ID)
		if err != nil {
			return fmt.Errorf("get travel request: %w", err)
		}
		if existing == nil {
			return fmt.Errorf("%w: %s", domainwf.ErrRequestNotFound, req.ID)
		}
		if existing.RequesterID != actorID {
			return fmt.Errorf("%w: %s", domainwf.ErrNotOwner, req.ID)
		}
		if !existing.IsEditableBy(actorID) {
			return fmt.Errorf("%w: %s is %s", domainwf.ErrAlreadySubmitted, req.ID, existing.Status)
		}

		updated = *req
		updated.ID = existing.ID
		updated.RequesterID = existing.RequesterID
		updated.Status = existing.Status
		updated.WorkflowID = existing.WorkflowID
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = s.now()
		if updated.Currency == "" {
			updated.Currency = existing.Currency
		}

		if err := s.catalog.ValidateRequest(&updated); err != nil {
			return err
		}

		if err := s.requestRepo.UpdateDraft(txCtx, &updated); err != nil {
			return fmt.Errorf("update draft: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Info("Travel request draft not updated",
			zap.String("id", req.ID), zap.String("actor_id", actorID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Travel request draft updated", zap.String("id", updated.ID))
	return &updated, nil
}

// Get returns a travel request by ID
func (s *requestServiceImpl) Get(ctx context.Context, id string) (*entity.TravelRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get travel request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: %s", domainwf.ErrRequestNotFound, id)
	}
	return req, nil
}
