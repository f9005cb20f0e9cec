package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/service"
	"github.com/garyjia/travel-approval/internal/application/workflow"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/policy"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine   workflow.WorkflowEngine
	queries  service.QueryService
	requests service.RequestService
	audit    service.AuditService
	catalog  *policy.Catalog
	version  string
	logger   *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	engine workflow.WorkflowEngine,
	queries service.QueryService,
	requests service.RequestService,
	audit service.AuditService,
	catalog *policy.Catalog,
	version string,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		engine:   engine,
		queries:  queries,
		requests: requests,
		audit:    audit,
		catalog:  catalog,
		version:  version,
		logger:   logger,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   h.version,
		},
	})
}

// SubmitWorkflow handles POST /api/v1/workflows
func (h *Handlers) SubmitWorkflow(c *gin.Context) {
	var req SubmitWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.TravelRequest == nil && req.TravelRequestID == "" {
		badRequest(c, "either travelRequest or travelRequestId is required")
		return
	}

	cmd := workflow.SubmitCommand{
		TravelRequestID: req.TravelRequestID,
		RequesterID:     req.RequesterID,
		WorkflowType:    entity.WorkflowType(strings.ToUpper(req.WorkflowType)),
	}
	if req.TravelRequest != nil {
		cmd.Request = req.TravelRequest.toEntity()
	}

	inst, err := h.engine.Submit(c.Request.Context(), cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.writeWorkflow(c, http.StatusCreated, inst)
}

// ActOnWorkflow handles POST /api/v1/workflows/:id/actions
func (h *Handlers) ActOnWorkflow(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	version, err := expectedVersion(c, req.Version)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	role, err := parseRole(req.ApproverRole)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	inst, err := h.engine.Act(c.Request.Context(), workflow.ActionCommand{
		WorkflowID:       c.Param("id"),
		ExpectedVersion:  version,
		ActorID:          req.ApproverID,
		ActorName:        req.ApproverName,
		ActorRole:        role,
		Action:           parseAction(req.Action),
		Remark:           req.Comments,
		AmountApproved:   req.AmountApproved,
		MarkOverpriced:   req.MarkOverpriced,
		OverpricedReason: req.OverpricedReason,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.writeWorkflow(c, http.StatusOK, inst)
}

// ResubmitWorkflow handles POST /api/v1/workflows/:id/resubmit
func (h *Handlers) ResubmitWorkflow(c *gin.Context) {
	var req ResubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	version, err := expectedVersion(c, req.Version)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	inst, err := h.engine.Resubmit(c.Request.Context(), workflow.ResubmitCommand{
		WorkflowID:      c.Param("id"),
		ExpectedVersion: version,
		ActorID:         req.RequesterID,
		ActorName:       req.RequesterName,
		Remark:          req.Comments,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.writeWorkflow(c, http.StatusOK, inst)
}

// GetWorkflow handles GET /api/v1/workflows/:id
func (h *Handlers) GetWorkflow(c *gin.Context) {
	detail, err := h.queries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("ETag", etag(detail.Version))
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: WorkflowDetailResponse{
			WorkflowResponse: toSummaryResponse(&detail.WorkflowSummary),
			AuditEntries:     toAuditEntryResponses(detail.Entries),
			AllowedActions:   toActionNames(detail.AllowedActions),
		},
	})
}

// ListWorkflows handles GET /api/v1/workflows
func (h *Handlers) ListWorkflows(c *gin.Context) {
	var req ListWorkflowsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	if req.Limit <= 0 || req.Limit > maxListLimit {
		req.Limit = defaultListLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	summaries, err := h.queries.List(c.Request.Context(), entity.InstanceFilter{
		Role:        entity.Role(strings.ToUpper(req.Role)),
		Status:      entity.Status(strings.ToUpper(req.Status)),
		RequesterID: req.RequesterID,
		OpenOnly:    req.OpenOnly,
		Limit:       req.Limit,
		Offset:      req.Offset,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make([]WorkflowResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toSummaryResponse(s))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: out})
}

// ExportAudit handles GET /api/v1/workflows/:id/audit.xlsx
func (h *Handlers) ExportAudit(c *gin.Context) {
	id := c.Param("id")

	var buf bytes.Buffer
	contentType, err := h.audit.Export(c.Request.Context(), id, &buf)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="workflow-%s-audit.xlsx"`, id))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// CreateTravelRequest handles POST /api/v1/travel-requests
func (h *Handlers) CreateTravelRequest(c *gin.Context) {
	var req TravelRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	draft, err := h.requests.CreateDraft(c.Request.Context(), req.toEntity())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: toTravelRequestPayload(draft)})
}

// UpdateTravelRequest handles PUT /api/v1/travel-requests/:id. The requester
// in the body is the actor and must own the draft.
func (h *Handlers) UpdateTravelRequest(c *gin.Context) {
	var req TravelRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	r := req.toEntity()
	r.ID = c.Param("id")
	draft, err := h.requests.UpdateDraft(c.Request.Context(), req.RequesterID, r)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toTravelRequestPayload(draft)})
}

// GetTravelRequest handles GET /api/v1/travel-requests/:id
func (h *Handlers) GetTravelRequest(c *gin.Context) {
	req, err := h.requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toTravelRequestPayload(req)})
}

// ListPolicies handles GET /api/v1/policies
func (h *Handlers) ListPolicies(c *gin.Context) {
	grades := h.catalog.Grades()
	out := make([]PolicyResponse, 0, len(grades))
	for _, g := range grades {
		limit, err := h.catalog.LimitsFor(g)
		if err != nil {
			h.handleError(c, err)
			return
		}
		out = append(out, toPolicyResponse(limit, h.catalog.Currency()))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: out})
}

// GetPolicy handles GET /api/v1/policies/:grade
func (h *Handlers) GetPolicy(c *gin.Context) {
	limit, err := h.catalog.LimitsFor(c.Param("grade"))
	if err != nil {
		if errors.Is(err, policy.ErrUnknownGrade) {
			writeProblem(c, http.StatusNotFound, "unknown_grade", err.Error())
			return
		}
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toPolicyResponse(limit, h.catalog.Currency())})
}

func (h *Handlers) writeWorkflow(c *gin.Context, status int, inst *entity.WorkflowInstance) {
	c.Header("ETag", etag(inst.Version))
	c.JSON(status, Response{Success: true, Data: toWorkflowResponse(inst, nil)})
}

func etag(version int64) string {
	return strconv.Quote(strconv.FormatInt(version, 10))
}

// expectedVersion takes the version from the body, falling back to If-Match
func expectedVersion(c *gin.Context, fromBody *int64) (int64, error) {
	if fromBody != nil {
		return *fromBody, nil
	}

	header := strings.TrimSpace(c.GetHeader("If-Match"))
	if header == "" {
		return 0, fmt.Errorf("version is required, in the body or as If-Match")
	}
	header = strings.Trim(strings.TrimPrefix(header, "W/"), `"`)
	v, err := strconv.ParseInt(header, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid If-Match version %q", header)
	}
	return v, nil
}
