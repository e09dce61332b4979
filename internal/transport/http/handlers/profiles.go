package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/usecase"
)

// ProfileHandler serves profile enrollment and administration endpoints.
type ProfileHandler struct {
	service *usecase.EnrollmentService
}

// NewProfileHandler builds a profile handler backed by the enrollment service.
func NewProfileHandler(service *usecase.EnrollmentService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// RegisterRoutes attaches profile endpoints to the router group.
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup, adminMiddleware ...gin.HandlerFunc) {
	r.POST("", h.Enroll)

	getHandlers := append([]gin.HandlerFunc{}, adminMiddleware...)
	getHandlers = append(getHandlers, h.GetProfile)
	r.GET("/:userID", getHandlers...)

	tierHandlers := append([]gin.HandlerFunc{}, adminMiddleware...)
	tierHandlers = append(tierHandlers, h.UpdateRiskTier)
	r.PATCH("/:userID/risk-tier", tierHandlers...)
}

// Enroll godoc
// @Summary Enroll a user profile
// @Description Registers a user's device, SIM, location, and behavioral baseline.
// @Tags Profiles
// @Accept json
// @Produce json
// @Param request body EnrollProfileRequest true "Profile enrollment payload"
// @Success 201 {object} ProfileResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/profiles [post]
func (h *ProfileHandler) Enroll(c *gin.Context) {
	var req EnrollProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	profile, err := h.service.Enroll(c.Request.Context(), req.ToDomain())
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrProfileExists, Status: http.StatusConflict, Message: "profile already enrolled"},
			{Err: domain.ErrInvalidInput, Status: http.StatusBadRequest, Message: err.Error()},
		}, http.StatusInternalServerError, "failed to enroll profile")
		return
	}

	c.JSON(http.StatusCreated, NewProfileResponse(profile))
}

// GetProfile godoc
// @Summary Fetch an enrolled profile
// @Tags Profiles
// @Produce json
// @Param userID path string true "User identifier"
// @Success 200 {object} ProfileResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/profiles/{userID} [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID := c.Param("userID")

	profile, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrProfileNotFound, Status: http.StatusNotFound, Message: "profile not found"},
		}, http.StatusInternalServerError, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, NewProfileResponse(profile))
}

// UpdateRiskTier godoc
// @Summary Change a profile's risk tier
// @Description Audited administrative operation recording who made the change and why.
// @Tags Profiles
// @Accept json
// @Produce json
// @Param userID path string true "User identifier"
// @Param request body UpdateRiskTierRequest true "Tier change payload"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/profiles/{userID}/risk-tier [patch]
func (h *ProfileHandler) UpdateRiskTier(c *gin.Context) {
	userID := c.Param("userID")

	var req UpdateRiskTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	err := h.service.UpdateRiskTier(c.Request.Context(), userID, domain.RiskTier(req.RiskTier), req.ChangedBy, req.Reason)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrProfileNotFound, Status: http.StatusNotFound, Message: "profile not found"},
			{Err: domain.ErrInvalidInput, Status: http.StatusBadRequest, Message: err.Error()},
		}, http.StatusInternalServerError, "failed to update risk tier")
		return
	}

	c.Status(http.StatusNoContent)
}
