package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/dispatcher"
	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/event"
	"github.com/garyjia/travel-approval/internal/domain/policy"
	"github.com/garyjia/travel-approval/internal/domain/sla"
	domainwf "github.com/garyjia/travel-approval/internal/domain/workflow"
	"github.com/garyjia/travel-approval/pkg/utils"
)

// engineImpl is the concrete implementation of WorkflowEngine
type engineImpl struct {
	requestRepo  port.TravelRequestRepository
	instanceRepo port.InstanceRepository
	auditLog     AuditLog
	txManager    port.TransactionManager
	catalog      *policy.Catalog
	definition   *domainwf.Definition
	slaClock     *sla.Clock
	dispatcher   dispatcher.Dispatcher
	logger       *zap.Logger

	now   func() time.Time
	newID func() string
	locks *keyedLocker
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher notified after each commit
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// WithDefinition overrides the stage graphs
func WithDefinition(def *domainwf.Definition) EngineOption {
	return func(e *engineImpl) {
		e.definition = def
	}
}

// WithSLAClock overrides the SLA clock
func WithSLAClock(c *sla.Clock) EngineOption {
	return func(e *engineImpl) {
		e.slaClock = c
	}
}

// WithIDGenerator overrides how workflow and request IDs are minted
func WithIDGenerator(newID func() string) EngineOption {
	return func(e *engineImpl) {
		e.newID = newID
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	requestRepo port.TravelRequestRepository,
	instanceRepo port.InstanceRepository,
	auditLog AuditLog,
	txManager port.TransactionManager,
	catalog *policy.Catalog,
	logger *zap.Logger,
	opts ...EngineOption,
) WorkflowEngine {
	e := &engineImpl{
		requestRepo:  requestRepo,
		instanceRepo: instanceRepo,
		auditLog:     auditLog,
		txManager:    txManager,
		catalog:      catalog,
		definition:   domainwf.NewDefinition(),
		slaClock:     sla.NewClock(sla.DefaultDueSoonRatio),
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
		locks:        newKeyedLocker(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Submit binds a travel request to a new workflow instance
func (e *engineImpl) Submit(ctx context.Context, cmd SubmitCommand) (*entity.WorkflowInstance, error) {
	if !cmd.WorkflowType.IsValid() {
		return nil, fmt.Errorf("%w: %q", domainwf.ErrUnknownWorkflowType, cmd.WorkflowType)
	}

	var inst *entity.WorkflowInstance
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, isNew, err := e.loadForSubmit(txCtx, cmd)
		if err != nil {
			return err
		}

		if req.WorkflowID != "" || req.Status == entity.RequestStatusSubmitted {
			return fmt.Errorf("%w: %s", domainwf.ErrAlreadySubmitted, req.ID)
		}
		bound, err := e.instanceRepo.GetByTravelRequestID(txCtx, req.ID)
		if err != nil {
			return fmt.Errorf("check existing workflow: %w", err)
		}
		if bound != nil {
			return fmt.Errorf("%w: %s is bound to %s", domainwf.ErrAlreadySubmitted, req.ID, bound.WorkflowID)
		}

		if err := e.catalog.ValidateRequest(req); err != nil {
			return err
		}
		if !req.ManagerPresent {
			return fmt.Errorf("%w: %s is still a draft", domainwf.ErrNotSubmittable, req.ID)
		}

		now := e.now()
		inst = &entity.WorkflowInstance{
			WorkflowID:      e.newID(),
			TravelRequestID: req.ID,
			RequesterID:     req.RequesterID,
			WorkflowType:    cmd.WorkflowType,
			Cycle:           1,
			Version:         1,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := e.route(inst, req, now); err != nil {
			return err
		}

		req.Status = entity.RequestStatusSubmitted
		req.WorkflowID = inst.WorkflowID
		req.UpdatedAt = now
		if isNew {
			err = e.requestRepo.Create(txCtx, req)
		} else {
			err = e.requestRepo.Update(txCtx, req)
		}
		if err != nil {
			return fmt.Errorf("save travel request: %w", err)
		}

		if err := e.instanceRepo.Create(txCtx, inst); err != nil {
			return fmt.Errorf("create workflow: %w", err)
		}
		return nil
	})
	if err != nil {
		e.logRefusal("submit", "", err)
		return nil, err
	}

	e.logger.Info("Workflow submitted",
		zap.String("workflow_id", inst.WorkflowID),
		zap.String("travel_request_id", inst.TravelRequestID),
		zap.String("workflow_type", string(inst.WorkflowType)),
		zap.String("step", string(inst.CurrentStep)),
		zap.Bool("overpriced", inst.IsOverpriced))

	e.publish(ctx, event.TypeWorkflowSubmitted, inst, "")
	return inst.Clone(), nil
}

func (e *engineImpl) loadForSubmit(ctx context.Context, cmd SubmitCommand) (*entity.TravelRequest, bool, error) {
	if cmd.Request != nil {
		req := *cmd.Request
		if req.ID == "" {
			req.ID = e.newID()
		} else {
			existing, err := e.requestRepo.GetByID(ctx, req.ID)
			if err != nil {
				return nil, false, fmt.Errorf("get travel request: %w", err)
			}
			if existing != nil {
				return nil, false, fmt.Errorf("%w: travel request %s already exists, submit it by id",
					domainwf.ErrInvalidRequest, req.ID)
			}
		}
		if req.Currency == "" {
			req.Currency = e.catalog.Currency()
		}
		req.Status = entity.RequestStatusDraft
		req.WorkflowID = ""
		req.CreatedAt = e.now()
		return &req, true, nil
	}

	if cmd.TravelRequestID == "" {
		return nil, false, fmt.Errorf("%w: travel request is required", domainwf.ErrInvalidRequest)
	}
	req, err := e.requestRepo.GetByID(ctx, cmd.TravelRequestID)
	if err != nil {
		return nil, false, fmt.Errorf("get travel request: %w", err)
	}
	if req == nil {
		return nil, false, fmt.Errorf("%w: %s", domainwf.ErrRequestNotFound, cmd.TravelRequestID)
	}
	if cmd.RequesterID != "" && cmd.RequesterID != req.RequesterID {
		return nil, false, fmt.Errorf("%w: %s", domainwf.ErrNotOwner, req.ID)
	}
	return req, false, nil
}

// Act applies an approver action named by cmd.Action
func (e *engineImpl) Act(ctx context.Context, cmd ActionCommand) (*entity.WorkflowInstance, error) {
	switch cmd.Action {
	case entity.ActionApprove, entity.ActionReject, entity.ActionRequestChanges, entity.ActionEscalate:
		return e.apply(ctx, cmd)
	case entity.ActionResubmit:
		return nil, fmt.Errorf("%w: resubmission is done by the requester", domainwf.ErrInvalidRequest)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", domainwf.ErrInvalidRequest, cmd.Action)
	}
}

// Approve advances the workflow to its next stage or completes it
func (e *engineImpl) Approve(ctx context.Context, cmd ActionCommand) (*entity.WorkflowInstance, error) {
	cmd.Action = entity.ActionApprove
	return e.apply(ctx, cmd)
}

// Reject terminates the workflow
func (e *engineImpl) Reject(ctx context.Context, cmd ActionCommand) (*entity.WorkflowInstance, error) {
	cmd.Action = entity.ActionReject
	return e.apply(ctx, cmd)
}

// RequestChanges sends the request back to its owner
func (e *engineImpl) RequestChanges(ctx context.Context, cmd ActionCommand) (*entity.WorkflowInstance, error) {
	cmd.Action = entity.ActionRequestChanges
	return e.apply(ctx, cmd)
}

// Escalate hands the current stage to the next role up
func (e *engineImpl) Escalate(ctx context.Context, cmd ActionCommand) (*entity.WorkflowInstance, error) {
	cmd.Action = entity.ActionEscalate
	return e.apply(ctx, cmd)
}

func (e *engineImpl) apply(ctx context.Context, cmd ActionCommand) (*entity.WorkflowInstance, error) {
	unlock := e.locks.Lock(cmd.WorkflowID)
	defer unlock()

	var (
		after *entity.WorkflowInstance
		entry *entity.AuditEntry
	)
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		before, err := e.load(txCtx, cmd.WorkflowID, cmd.ExpectedVersion)
		if err != nil {
			return err
		}
		if err := e.definition.Authorize(before.CurrentApproverRole, cmd.ActorRole); err != nil {
			return err
		}
		remark := utils.SanitizeString(strings.TrimSpace(cmd.Remark))
		if remark == "" {
			return fmt.Errorf("%w: %s needs a remark", domainwf.ErrMissingRemark, cmd.Action)
		}
		if cmd.AmountApproved != nil {
			if err := utils.ValidateAmount(*cmd.AmountApproved); err != nil {
				return fmt.Errorf("%w: %v", domainwf.ErrInvalidRequest, err)
			}
		}

		machine := BuildTravelStateMachine(domainwf.State(before.Status))
		trigger := domainwf.TriggerFor(cmd.Action)
		if !machine.CanFire(trigger) {
			return fmt.Errorf("%w: %s from %s", domainwf.ErrInvalidTransition, cmd.Action, before.Status)
		}

		now := e.now()
		after = before.Clone()
		switch cmd.Action {
		case entity.ActionApprove:
			err = e.approve(txCtx, machine, after, cmd, now)
		case entity.ActionReject:
			err = e.reject(txCtx, machine, after, now)
		case entity.ActionRequestChanges:
			err = e.requestChanges(txCtx, machine, after, now)
		case entity.ActionEscalate:
			err = e.escalate(txCtx, machine, after, now)
		}
		if err != nil {
			return err
		}

		after.Version = before.Version + 1
		after.UpdatedAt = now

		entry, err = e.record(txCtx, before, after, actor{cmd.ActorID, cmd.ActorName, cmd.ActorRole}, cmd.Action, remark, now)
		if err != nil {
			return err
		}

		return e.instanceRepo.Update(txCtx, after, before.Version)
	})
	if err != nil {
		e.logRefusal(string(cmd.Action), cmd.WorkflowID, err)
		return nil, err
	}

	e.logger.Info("Workflow action applied",
		zap.String("workflow_id", after.WorkflowID),
		zap.String("action", string(cmd.Action)),
		zap.String("actor_id", cmd.ActorID),
		zap.String("status", string(after.Status)),
		zap.String("step", string(after.CurrentStep)),
		zap.Int64("version", after.Version))

	e.publish(ctx, event.TypeForAction(cmd.Action, after.Status), after, entry.ActorID)
	return after.Clone(), nil
}

func (e *engineImpl) approve(ctx context.Context, machine domainwf.StateMachine, inst *entity.WorkflowInstance, cmd ActionCommand, now time.Time) error {
	stage, err := e.definition.Stage(inst.WorkflowType, inst.CurrentStep)
	if err != nil {
		return err
	}

	var target *domainwf.ApprovalStage
	switch {
	case stage.Step == entity.StepExceptionFinanceReview:
		if inst.ResumeStep != "" {
			resume, err := e.definition.Stage(inst.WorkflowType, inst.ResumeStep)
			if err != nil {
				return err
			}
			target = &resume
		}
		inst.ResumeStep = ""

	case stage.Exception:
		if target, err = e.definition.NextStage(inst.WorkflowType, stage.Step); err != nil {
			return err
		}

	default:
		next, err := e.definition.NextStage(inst.WorkflowType, stage.Step)
		if err != nil {
			return err
		}
		target = next

		if cmd.MarkOverpriced && !inst.IsOverpriced {
			exception, err := e.definition.ExceptionStage(inst.WorkflowType)
			if err != nil {
				return err
			}
			inst.IsOverpriced = true
			inst.OverpricedReason = strings.TrimSpace(cmd.OverpricedReason)
			if inst.OverpricedReason == "" {
				inst.OverpricedReason = fmt.Sprintf("flagged by %s at %s", cmd.ActorRole, stage.Step)
			}
			inst.ResumeStep = ""
			if next != nil {
				inst.ResumeStep = next.Step
			}
			inst.Priority = inst.Priority.AtLeast(entity.PriorityHigh)
			target = &exception
		}
	}

	to, err := machine.Peek(withNextStage(ctx, target != nil), domainwf.TriggerApprove)
	if err != nil {
		return err
	}

	if cmd.AmountApproved != nil {
		amount := *cmd.AmountApproved
		inst.ApprovedAmount = &amount
	}

	if to == domainwf.StateCompleted {
		e.closeOut(inst, entity.StatusCompleted, now)
		return nil
	}
	e.enter(inst, *target, now)
	return nil
}

func (e *engineImpl) reject(ctx context.Context, machine domainwf.StateMachine, inst *entity.WorkflowInstance, now time.Time) error {
	if err := machine.Fire(ctx, domainwf.TriggerReject); err != nil {
		return err
	}
	e.closeOut(inst, machine.State().Status(), now)
	return nil
}

func (e *engineImpl) requestChanges(ctx context.Context, machine domainwf.StateMachine, inst *entity.WorkflowInstance, now time.Time) error {
	to, err := machine.Peek(ctx, domainwf.TriggerRequestChanges)
	if err != nil {
		return err
	}

	req, err := e.requestRepo.GetByID(ctx, inst.TravelRequestID)
	if err != nil {
		return fmt.Errorf("get travel request: %w", err)
	}
	if req == nil {
		return fmt.Errorf("%w: %s", domainwf.ErrRequestNotFound, inst.TravelRequestID)
	}
	req.Status = entity.RequestStatusDraft
	req.UpdatedAt = now
	if err := e.requestRepo.Update(ctx, req); err != nil {
		return fmt.Errorf("reopen travel request: %w", err)
	}

	inst.Status = to.Status()
	inst.PreviousStep = inst.CurrentStep
	inst.CurrentStep = entity.StepDraft
	inst.NextStep = ""
	inst.CurrentApproverRole = entity.RoleEmployee
	inst.StageEnteredAt = now
	inst.SLAWindowHours = 0
	inst.DueDate = nil
	inst.ResumeStep = ""
	return nil
}

func (e *engineImpl) escalate(ctx context.Context, machine domainwf.StateMachine, inst *entity.WorkflowInstance, now time.Time) error {
	stage, err := e.definition.Stage(inst.WorkflowType, inst.CurrentStep)
	if err != nil {
		return err
	}
	role, err := e.definition.EscalationRole(stage, inst.CurrentApproverRole)
	if err != nil {
		return err
	}
	to, err := machine.Peek(ctx, domainwf.TriggerEscalate)
	if err != nil {
		return err
	}

	inst.Status = to.Status()
	inst.CurrentApproverRole = role
	inst.StageEnteredAt = now
	inst.SLAWindowHours = stage.SLAWindowHours
	due := e.slaClock.DueDate(now, stage.SLAWindowHours)
	inst.DueDate = &due
	inst.Priority = inst.Priority.AtLeast(entity.PriorityHigh)
	return nil
}

// Resubmit restarts a workflow whose request was sent back for changes
func (e *engineImpl) Resubmit(ctx context.Context, cmd ResubmitCommand) (*entity.WorkflowInstance, error) {
	unlock := e.locks.Lock(cmd.WorkflowID)
	defer unlock()

	var (
		after *entity.WorkflowInstance
		entry *entity.AuditEntry
	)
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		before, err := e.load(txCtx, cmd.WorkflowID, cmd.ExpectedVersion)
		if err != nil {
			return err
		}
		if before.RequesterID != cmd.ActorID {
			return fmt.Errorf("%w: %s", domainwf.ErrNotOwner, cmd.WorkflowID)
		}

		machine := BuildTravelStateMachine(domainwf.State(before.Status))
		if err := machine.Fire(txCtx, domainwf.TriggerResubmit); err != nil {
			return err
		}

		req, err := e.requestRepo.GetByID(txCtx, before.TravelRequestID)
		if err != nil {
			return fmt.Errorf("get travel request: %w", err)
		}
		if req == nil {
			return fmt.Errorf("%w: %s", domainwf.ErrRequestNotFound, before.TravelRequestID)
		}
		if err := e.catalog.ValidateRequest(req); err != nil {
			return err
		}
		if !req.ManagerPresent {
			return fmt.Errorf("%w: %s is still a draft", domainwf.ErrNotSubmittable, req.ID)
		}

		now := e.now()
		after = before.Clone()
		after.ApprovedAmount = nil
		if err := e.route(after, req, now); err != nil {
			return err
		}
		after.Status = machine.State().Status()
		after.Cycle = before.Cycle + 1
		after.Version = before.Version + 1
		after.UpdatedAt = now

		req.Status = entity.RequestStatusSubmitted
		req.UpdatedAt = now
		if err := e.requestRepo.Update(txCtx, req); err != nil {
			return fmt.Errorf("resubmit travel request: %w", err)
		}

		remark := utils.SanitizeString(strings.TrimSpace(cmd.Remark))
		entry, err = e.record(txCtx, before, after, actor{cmd.ActorID, cmd.ActorName, entity.RoleEmployee}, entity.ActionResubmit, remark, now)
		if err != nil {
			return err
		}

		return e.instanceRepo.Update(txCtx, after, before.Version)
	})
	if err != nil {
		e.logRefusal(string(entity.ActionResubmit), cmd.WorkflowID, err)
		return nil, err
	}

	e.logger.Info("Workflow resubmitted",
		zap.String("workflow_id", after.WorkflowID),
		zap.Int("cycle", after.Cycle),
		zap.String("step", string(after.CurrentStep)),
		zap.Bool("overpriced", after.IsOverpriced))

	e.publish(ctx, event.TypeWorkflowResubmitted, after, entry.ActorID)
	return after.Clone(), nil
}

// Get returns the instance and its ordered audit trail, read from one
// committed snapshot so the trail always matches the instance version
func (e *engineImpl) Get(ctx context.Context, workflowID string) (*entity.WorkflowInstance, []*entity.AuditEntry, error) {
	var (
		inst    *entity.WorkflowInstance
		entries []*entity.AuditEntry
	)
	err := e.txManager.WithSnapshot(ctx, func(readCtx context.Context) error {
		var err error
		inst, err = e.instanceRepo.GetByID(readCtx, workflowID)
		if err != nil {
			return fmt.Errorf("get workflow: %w", err)
		}
		if inst == nil {
			return fmt.Errorf("%w: %s", domainwf.ErrNotFound, workflowID)
		}

		entries, err = e.auditLog.EntriesFor(readCtx, workflowID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return inst, entries, nil
}

// AllowedActions lists the triggers the state machine permits from the
// instance's status. Role checks and stage guards are left to the action.
func (e *engineImpl) AllowedActions(inst *entity.WorkflowInstance) []entity.Action {
	triggers := BuildTravelStateMachine(domainwf.State(inst.Status)).PermittedTriggers()
	actions := make([]entity.Action, 0, len(triggers))
	for _, t := range triggers {
		actions = append(actions, entity.Action(t))
	}
	return actions
}

// List returns instances matching filter
func (e *engineImpl) List(ctx context.Context, filter entity.InstanceFilter) ([]*entity.WorkflowInstance, error) {
	if filter.Role != "" && !filter.Role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", domainwf.ErrInvalidRequest, filter.Role)
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domainwf.ErrInvalidRequest, filter.Status)
	}

	instances, err := e.instanceRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	if instances == nil {
		instances = []*entity.WorkflowInstance{}
	}
	return instances, nil
}

// load fetches an instance and applies the checks every mutation shares
func (e *engineImpl) load(ctx context.Context, workflowID string, expectedVersion int64) (*entity.WorkflowInstance, error) {
	inst, err := e.instanceRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: %s", domainwf.ErrNotFound, workflowID)
	}
	if inst.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", domainwf.ErrTerminal, workflowID, inst.Status)
	}
	if inst.Version != expectedVersion {
		return nil, fmt.Errorf("%w: %s is at version %d, not %d",
			domainwf.ErrVersionConflict, workflowID, inst.Version, expectedVersion)
	}
	return inst, nil
}

// route evaluates policy for req and enters the first stage of a new cycle
func (e *engineImpl) route(inst *entity.WorkflowInstance, req *entity.TravelRequest, now time.Time) error {
	first, err := e.definition.FirstStage(inst.WorkflowType)
	if err != nil {
		return err
	}

	over, reason, err := e.catalog.IsOverBudget(req.Grade, policy.TripFor(req, inst.WorkflowType))
	if err != nil {
		return err
	}

	inst.IsOverpriced = over
	inst.OverpricedReason = reason
	inst.ResumeStep = ""
	target := first
	if over {
		exception, err := e.definition.ExceptionStage(inst.WorkflowType)
		if err != nil {
			return err
		}
		inst.ResumeStep = first.Step
		target = exception
	}

	switch {
	case inst.WorkflowType == entity.WorkflowEmergency:
		inst.Priority = entity.PriorityUrgent
	case over:
		inst.Priority = entity.PriorityHigh
	default:
		inst.Priority = entity.PriorityNormal
	}

	e.enter(inst, target, now)
	return nil
}

// enter makes stage the single active step
func (e *engineImpl) enter(inst *entity.WorkflowInstance, stage domainwf.ApprovalStage, now time.Time) {
	if inst.CurrentStep != "" {
		inst.PreviousStep = inst.CurrentStep
	}
	inst.Status = entity.StatusPending
	inst.CurrentStep = stage.Step
	inst.CurrentApproverRole = stage.Role
	inst.StageEnteredAt = now
	inst.SLAWindowHours = stage.SLAWindowHours
	due := e.slaClock.DueDate(now, stage.SLAWindowHours)
	inst.DueDate = &due

	switch stage.Step {
	case entity.StepExceptionFinanceReview:
		inst.NextStep = inst.ResumeStep
	default:
		inst.NextStep = stage.Next
	}
}

// closeOut moves the instance into a terminal status
func (e *engineImpl) closeOut(inst *entity.WorkflowInstance, status entity.Status, now time.Time) {
	inst.Status = status
	inst.PreviousStep = inst.CurrentStep
	inst.CurrentStep = entity.StepClosed
	inst.NextStep = ""
	inst.CurrentApproverRole = ""
	inst.DueDate = nil
	inst.ResumeStep = ""
	closed := now
	inst.ClosedAt = &closed
}

type actor struct {
	id   string
	name string
	role entity.Role
}

func (e *engineImpl) record(ctx context.Context, before, after *entity.WorkflowInstance, who actor, action entity.Action, remark string, now time.Time) (*entity.AuditEntry, error) {
	seq, err := e.auditLog.NextSequence(ctx, before.WorkflowID)
	if err != nil {
		return nil, err
	}

	entry := &entity.AuditEntry{
		WorkflowID: before.WorkflowID,
		Sequence:   seq,
		ActorID:    who.id,
		ActorName:  who.name,
		ActorRole:  who.role,
		Action:     action,
		Remark:     remark,
		FromStatus: before.Status,
		FromStep:   before.CurrentStep,
		Status:     after.Status,
		Step:       after.CurrentStep,
		Version:    after.Version,
		Timestamp:  now,
	}
	if err := e.auditLog.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (e *engineImpl) publish(ctx context.Context, eventType event.Type, inst *entity.WorkflowInstance, actorID string) {
	if e.dispatcher == nil || eventType == "" {
		return
	}

	evt := event.NewEvent(eventType, inst.WorkflowID, map[string]interface{}{
		event.KeyActorID:  actorID,
		event.KeyStatus:   string(inst.Status),
		event.KeyStep:     string(inst.CurrentStep),
		event.KeyRole:     string(inst.CurrentApproverRole),
		event.KeyType:     string(inst.WorkflowType),
		event.KeyPriority: string(inst.Priority),
		event.KeyVersion:  inst.Version,
	})

	// the transition is committed; observers cannot undo it
	if err := e.dispatcher.Dispatch(ctx, evt); err != nil {
		e.logger.Warn("Workflow event handler failed",
			zap.String("workflow_id", inst.WorkflowID),
			zap.String("event_type", eventType.String()),
			zap.Error(err))
	}
}

func (e *engineImpl) logRefusal(action, workflowID string, err error) {
	fields := []zap.Field{
		zap.String("action", action),
		zap.String("workflow_id", workflowID),
		zap.Error(err),
	}

	switch {
	case errors.Is(err, domainwf.ErrOutOfOrder):
		e.logger.Error("Audit invariant violated", fields...)
	case isDomainError(err):
		e.logger.Info("Workflow action refused", fields...)
	default:
		e.logger.Error("Workflow action failed", fields...)
	}
}

func isDomainError(err error) bool {
	for _, target := range []error{
		domainwf.ErrNotFound,
		domainwf.ErrRequestNotFound,
		domainwf.ErrTerminal,
		domainwf.ErrVersionConflict,
		domainwf.ErrUnauthorized,
		domainwf.ErrMissingRemark,
		domainwf.ErrInvalidTransition,
		domainwf.ErrGuardFailed,
		domainwf.ErrNoEscalationPath,
		domainwf.ErrNotSubmittable,
		domainwf.ErrAlreadySubmitted,
		domainwf.ErrNotOwner,
		domainwf.ErrInvalidRequest,
		domainwf.ErrUnknownWorkflowType,
		policy.ErrUnknownGrade,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
