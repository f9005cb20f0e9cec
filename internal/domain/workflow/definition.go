package workflow

import (
	"fmt"
	"time"

	"github.com/garyjia/travel-approval/internal/domain/entity"
)

// ApprovalStage is one role-gated node of a workflow graph
type ApprovalStage struct {
	Step           entity.Step `json:"step"`
	Role           entity.Role `json:"role"`
	SLAWindowHours int         `json:"sla_window_hours"`
	// Next is the successor in the normal sequence; empty means terminal.
	// Exception stages leave it empty for the second leg because the resume
	// point depends on where the sub-flow was inserted.
	Next        entity.Step `json:"next,omitempty"`
	Exception   bool        `json:"exception"`
	EscalatesTo entity.Role `json:"escalates_to"`
}

// Window returns the SLA window as a duration
func (s ApprovalStage) Window() time.Duration {
	return time.Duration(s.SLAWindowHours) * time.Hour
}

type graph struct {
	order      []entity.Step
	stages     map[entity.Step]ApprovalStage
	exceptions [2]ApprovalStage
}

// Definition holds the static stage graphs for every workflow type
type Definition struct {
	graphs map[entity.WorkflowType]*graph
}

// superiors is the role hierarchy used once a stage's own escalation hop is spent
var superiors = map[entity.Role]entity.Role{
	entity.RoleManager:           entity.RoleDepartmentHead,
	entity.RoleHR:                entity.RoleHRHead,
	entity.RoleTravelDesk:        entity.RoleTravelDeskLead,
	entity.RoleFinance:           entity.RoleFinanceController,
	entity.RoleDepartmentHead:    entity.RoleSuperAdmin,
	entity.RoleHRHead:            entity.RoleSuperAdmin,
	entity.RoleTravelDeskLead:    entity.RoleSuperAdmin,
	entity.RoleFinanceController: entity.RoleSuperAdmin,
}

type stageSpec struct {
	step  entity.Step
	role  entity.Role
	hours int
}

// NewDefinition returns the standard travel approval graphs
func NewDefinition() *Definition {
	d := &Definition{graphs: make(map[entity.WorkflowType]*graph)}

	d.add(entity.WorkflowPreTravel, 24, []stageSpec{
		{entity.StepManagerApproval, entity.RoleManager, 24},
		{entity.StepHRCompliance, entity.RoleHR, 48},
		{entity.StepTravelDeskCheck, entity.RoleTravelDesk, 24},
		{entity.StepTravelDeskBooking, entity.RoleTravelDesk, 48},
	})
	d.add(entity.WorkflowPostTravel, 24, []stageSpec{
		{entity.StepManagerApproval, entity.RoleManager, 48},
		{entity.StepHRCompliance, entity.RoleHR, 48},
		{entity.StepFinanceSettlement, entity.RoleFinance, 72},
	})
	d.add(entity.WorkflowEmergency, 8, []stageSpec{
		{entity.StepManagerApproval, entity.RoleManager, 4},
		{entity.StepTravelDeskBooking, entity.RoleTravelDesk, 8},
		{entity.StepHRCompliance, entity.RoleHR, 24},
	})

	return d
}

func (d *Definition) add(wfType entity.WorkflowType, exceptionHours int, specs []stageSpec) {
	g := &graph{stages: make(map[entity.Step]ApprovalStage, len(specs)+2)}

	for i, s := range specs {
		stage := ApprovalStage{
			Step:           s.step,
			Role:           s.role,
			SLAWindowHours: s.hours,
			EscalatesTo:    superiors[s.role],
		}
		if i+1 < len(specs) {
			stage.Next = specs[i+1].step
		}
		g.order = append(g.order, s.step)
		g.stages[s.step] = stage
	}

	g.exceptions[0] = ApprovalStage{
		Step:           entity.StepExceptionHRReview,
		Role:           entity.RoleHR,
		SLAWindowHours: exceptionHours,
		Next:           entity.StepExceptionFinanceReview,
		Exception:      true,
		EscalatesTo:    entity.RoleHRHead,
	}
	g.exceptions[1] = ApprovalStage{
		Step:           entity.StepExceptionFinanceReview,
		Role:           entity.RoleFinance,
		SLAWindowHours: exceptionHours,
		Exception:      true,
		EscalatesTo:    entity.RoleFinanceController,
	}
	for _, s := range g.exceptions {
		g.stages[s.Step] = s
	}

	d.graphs[wfType] = g
}

func (d *Definition) graph(wfType entity.WorkflowType) (*graph, error) {
	g, ok := d.graphs[wfType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorkflowType, wfType)
	}
	return g, nil
}

// FirstStage returns the entry stage of the normal sequence
func (d *Definition) FirstStage(wfType entity.WorkflowType) (ApprovalStage, error) {
	g, err := d.graph(wfType)
	if err != nil {
		return ApprovalStage{}, err
	}
	return g.stages[g.order[0]], nil
}

// NextStage returns the successor of step, or nil when step is the last one
func (d *Definition) NextStage(wfType entity.WorkflowType, step entity.Step) (*ApprovalStage, error) {
	current, err := d.Stage(wfType, step)
	if err != nil {
		return nil, err
	}
	if current.Next == "" {
		return nil, nil
	}
	next, err := d.Stage(wfType, current.Next)
	if err != nil {
		return nil, err
	}
	return &next, nil
}

// ExceptionStage returns the first leg (HR) of the cost exception sub-flow
func (d *Definition) ExceptionStage(wfType entity.WorkflowType) (ApprovalStage, error) {
	g, err := d.graph(wfType)
	if err != nil {
		return ApprovalStage{}, err
	}
	return g.exceptions[0], nil
}

// Stage looks up a single stage by step
func (d *Definition) Stage(wfType entity.WorkflowType, step entity.Step) (ApprovalStage, error) {
	g, err := d.graph(wfType)
	if err != nil {
		return ApprovalStage{}, err
	}
	stage, ok := g.stages[step]
	if !ok {
		return ApprovalStage{}, fmt.Errorf("%w: %s in %s", ErrUnknownStep, step, wfType)
	}
	return stage, nil
}

// Stages returns the normal sequence in order, without exception stages
func (d *Definition) Stages(wfType entity.WorkflowType) ([]ApprovalStage, error) {
	g, err := d.graph(wfType)
	if err != nil {
		return nil, err
	}
	out := make([]ApprovalStage, 0, len(g.order))
	for _, step := range g.order {
		out = append(out, g.stages[step])
	}
	return out, nil
}

// Authorize checks that actor may act on a stage currently owned by current
func (d *Definition) Authorize(current, actor entity.Role) error {
	if !actor.IsValid() {
		return fmt.Errorf("%w: unknown role %q", ErrUnauthorized, actor)
	}
	if current == "" || actor != current {
		return fmt.Errorf("%w: stage is owned by %s, not %s", ErrUnauthorized, current, actor)
	}
	return nil
}

// EscalationRole returns who takes over when current escalates stage.
// The first hop follows the stage definition, later hops the role hierarchy.
func (d *Definition) EscalationRole(stage ApprovalStage, current entity.Role) (entity.Role, error) {
	next := superiors[current]
	if current == stage.Role && stage.EscalatesTo != "" {
		next = stage.EscalatesTo
	}
	if next == "" {
		return "", fmt.Errorf("%w: %s", ErrNoEscalationPath, current)
	}
	return next, nil
}
