package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moogar0880/problems"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/domain/policy"
	domainwf "github.com/garyjia/travel-approval/internal/domain/workflow"
)

const problemContentType = "application/problem+json"

type errorMapping struct {
	target  error
	status  int
	problem string
}

// errorMappings is checked in order; the first match decides the response
var errorMappings = []errorMapping{
	{domainwf.ErrNotFound, http.StatusNotFound, "workflow_not_found"},
	{domainwf.ErrRequestNotFound, http.StatusNotFound, "travel_request_not_found"},

	{domainwf.ErrVersionConflict, http.StatusConflict, "version_conflict"},
	{domainwf.ErrTerminal, http.StatusConflict, "workflow_terminal"},
	{domainwf.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domainwf.ErrGuardFailed, http.StatusConflict, "invalid_transition"},
	{domainwf.ErrAlreadySubmitted, http.StatusConflict, "already_submitted"},
	{domainwf.ErrNoEscalationPath, http.StatusConflict, "no_escalation_path"},

	{domainwf.ErrUnauthorized, http.StatusForbidden, "unauthorized_approver"},
	{domainwf.ErrNotOwner, http.StatusForbidden, "not_owner"},

	{domainwf.ErrMissingRemark, http.StatusBadRequest, "missing_remark"},
	{policy.ErrUnknownGrade, http.StatusBadRequest, "unknown_grade"},
	{domainwf.ErrNotSubmittable, http.StatusBadRequest, "not_submittable"},
	{domainwf.ErrUnknownWorkflowType, http.StatusBadRequest, "unknown_workflow_type"},
	{domainwf.ErrInvalidRequest, http.StatusBadRequest, "validation_error"},
}

func writeProblem(c *gin.Context, status int, problemType, detail string) {
	problem := problems.NewStatusProblem(status).
		WithInstance(c.Request.URL.Path).
		WithType(problemType).
		WithDetail(detail)

	c.Header("Content-Type", problemContentType)
	c.AbortWithStatusJSON(status, problem)
}

func badRequest(c *gin.Context, detail string) {
	writeProblem(c, http.StatusBadRequest, "validation_error", detail)
}

// handleError maps engine and service errors onto problem responses.
// Unexpected errors are logged and their detail is not exposed.
func (h *Handlers) handleError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			writeProblem(c, m.status, m.problem, err.Error())
			return
		}
	}

	h.logger.Error("Request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	writeProblem(c, http.StatusInternalServerError, "internal_error", "internal server error")
}
