package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/usecase"
)

// EvaluationHandler serves the risk scoring endpoint.
type EvaluationHandler struct {
	service *usecase.EvaluationService
}

// NewEvaluationHandler builds an evaluation handler backed by the scoring service.
func NewEvaluationHandler(service *usecase.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{service: service}
}

// RegisterRoutes attaches evaluation endpoints to the router group.
func (h *EvaluationHandler) RegisterRoutes(r *gin.RouterGroup, middlewares ...gin.HandlerFunc) {
	evaluateHandlers := append([]gin.HandlerFunc{}, middlewares...)
	evaluateHandlers = append(evaluateHandlers, h.Evaluate)
	r.POST("", evaluateHandlers...)
}

// Evaluate godoc
// @Summary Score a login attempt
// @Description Evaluates one authentication attempt against the enrolled profile and returns the access decision.
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param request body EvaluationRequest true "Login attempt payload"
// @Success 200 {object} DecisionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/evaluations [post]
func (h *EvaluationHandler) Evaluate(c *gin.Context) {
	var req EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	result, err := h.service.Evaluate(c.Request.Context(), req.ToDomain())
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrProfileNotFound, Status: http.StatusNotFound, Message: "no enrolled profile for user"},
			{Err: usecase.ErrProfileMismatch, Status: http.StatusBadRequest, Message: "attempt does not belong to the enrolled profile"},
			{Err: domain.ErrInvalidInput, Status: http.StatusBadRequest, Message: err.Error()},
		}, http.StatusInternalServerError, "failed to evaluate attempt")
		return
	}

	// When the audit row could not be written, a fail-closed deployment
	// withholds the decision rather than approving an unrecorded attempt.
	if result.RecordingError != nil && h.service.FailClosed() {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "decision withheld: audit trail unavailable"))
		return
	}

	c.JSON(http.StatusOK, NewDecisionResponse(result))
}
