package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/usecase"
)

const defaultAttemptListLimit = 50

// AttemptHandler serves the audit trail endpoints for security teams.
type AttemptHandler struct {
	service *usecase.EvaluationService
}

// NewAttemptHandler builds an attempt handler backed by the scoring service.
func NewAttemptHandler(service *usecase.EvaluationService) *AttemptHandler {
	return &AttemptHandler{service: service}
}

// RegisterRoutes attaches attempt endpoints to the router group.
func (h *AttemptHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.List)
	r.GET("/summary", h.Summary)
	r.GET("/notifications", h.Notifications)
}

// List godoc
// @Summary List scored attempts for a user
// @Tags Attempts
// @Produce json
// @Param user_id query string true "User identifier"
// @Param limit query int false "Maximum rows to return"
// @Success 200 {object} AttemptsResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/attempts [get]
func (h *AttemptHandler) List(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "user_id query parameter is required"))
		return
	}

	limit := defaultAttemptListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	records, err := h.service.ListAttempts(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list attempts"))
		return
	}

	resp := AttemptsResponse{
		Attempts: make([]AttemptResponse, 0, len(records)),
		Count:    len(records),
	}
	for _, rec := range records {
		resp.Attempts = append(resp.Attempts, NewAttemptResponse(rec))
	}

	c.JSON(http.StatusOK, resp)
}

// Summary godoc
// @Summary Decision counts across all recorded attempts
// @Tags Attempts
// @Produce json
// @Success 200 {object} SummaryResponse
// @Router /api/v1/attempts/summary [get]
func (h *AttemptHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to build summary"))
		return
	}

	c.JSON(http.StatusOK, SummaryResponse{
		Total:      summary.Total,
		Approved:   summary.Approved,
		Challenged: summary.Challenged,
		Blocked:    summary.Blocked,
	})
}

// Notifications godoc
// @Summary List dispatched fraud notifications for a user
// @Tags Attempts
// @Produce json
// @Param user_id query string true "User identifier"
// @Param limit query int false "Maximum rows to return"
// @Success 200 {object} NotificationsResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/attempts/notifications [get]
func (h *AttemptHandler) Notifications(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "user_id query parameter is required"))
		return
	}

	limit := defaultAttemptListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	notifications, err := h.service.ListNotifications(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list notifications"))
		return
	}

	resp := NotificationsResponse{
		Notifications: make([]NotificationResponse, 0, len(notifications)),
		Count:         len(notifications),
	}
	for _, n := range notifications {
		resp.Notifications = append(resp.Notifications, NewNotificationResponse(n))
	}

	c.JSON(http.StatusOK, resp)
}
