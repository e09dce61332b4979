package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/usecase"
)

// ErrorResponse is the error payload returned by every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request's trace ID.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	resp := ErrorResponse{Error: errorMsg}

	if traceID, exists := c.Get("trace_id"); exists {
		if id, ok := traceID.(string); ok {
			resp.TraceID = id
		}
	}

	return resp
}

// HealthResponse describes the liveness payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadyResponse describes the readiness payload including dependency checks.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// EnrollProfileRequest is the payload for enrolling a user profile.
type EnrollProfileRequest struct {
	UserID         string  `json:"user_id" binding:"required"`
	DeviceID       string  `json:"device_id" binding:"required"`
	SimID          string  `json:"sim_id" binding:"required"`
	Phone          string  `json:"phone,omitempty"`
	Email          string  `json:"email,omitempty"`
	HomeLat        float64 `json:"home_lat"`
	HomeLon        float64 `json:"home_lon"`
	KeystrokeSpeed float64 `json:"keystroke_speed"`
	MouseSpeed     float64 `json:"mouse_speed"`
	RiskTier       string  `json:"risk_tier,omitempty"`
}

// ToDomain converts the request into an enrollment candidate.
func (r EnrollProfileRequest) ToDomain() domain.EnrolledProfile {
	profile := domain.EnrolledProfile{
		UserID:         r.UserID,
		DeviceID:       r.DeviceID,
		SimID:          r.SimID,
		HomeLat:        r.HomeLat,
		HomeLon:        r.HomeLon,
		KeystrokeSpeed: r.KeystrokeSpeed,
		MouseSpeed:     r.MouseSpeed,
		RiskTier:       domain.RiskTier(r.RiskTier),
	}
	if r.Phone != "" {
		phone := r.Phone
		profile.Phone = &phone
	}
	if r.Email != "" {
		email := r.Email
		profile.Email = &email
	}
	return profile
}

// ProfileResponse mirrors an enrolled profile.
type ProfileResponse struct {
	UserID         string     `json:"user_id"`
	DeviceID       string     `json:"device_id"`
	SimID          string     `json:"sim_id"`
	Phone          string     `json:"phone,omitempty"`
	Email          string     `json:"email,omitempty"`
	HomeLat        float64    `json:"home_lat"`
	HomeLon        float64    `json:"home_lon"`
	KeystrokeSpeed float64    `json:"keystroke_speed"`
	MouseSpeed     float64    `json:"mouse_speed"`
	RiskTier       string     `json:"risk_tier"`
	RegisteredAt   time.Time  `json:"registered_at"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	LoginCount     int        `json:"login_count"`
}

// NewProfileResponse converts a domain profile into its API representation.
func NewProfileResponse(p *domain.EnrolledProfile) ProfileResponse {
	resp := ProfileResponse{
		UserID:         p.UserID,
		DeviceID:       p.DeviceID,
		SimID:          p.SimID,
		HomeLat:        p.HomeLat,
		HomeLon:        p.HomeLon,
		KeystrokeSpeed: p.KeystrokeSpeed,
		MouseSpeed:     p.MouseSpeed,
		RiskTier:       string(p.RiskTier),
		RegisteredAt:   p.RegisteredAt,
		LastLogin:      p.LastLogin,
		LoginCount:     p.LoginCount,
	}
	if p.Phone != nil {
		resp.Phone = *p.Phone
	}
	if p.Email != nil {
		resp.Email = *p.Email
	}
	return resp
}

// UpdateRiskTierRequest changes a profile's risk tier.
type UpdateRiskTierRequest struct {
	RiskTier  string `json:"risk_tier" binding:"required"`
	ChangedBy string `json:"changed_by" binding:"required"`
	Reason    string `json:"reason,omitempty"`
}

// EvaluationRequest is the payload for scoring a login attempt.
type EvaluationRequest struct {
	UserID         string     `json:"user_id" binding:"required"`
	DeviceID       string     `json:"device_id" binding:"required"`
	SimID          string     `json:"sim_id" binding:"required"`
	Lat            float64    `json:"lat"`
	Lon            float64    `json:"lon"`
	KeystrokeSpeed float64    `json:"keystroke_speed"`
	MouseSpeed     float64    `json:"mouse_speed"`
	IP             string     `json:"ip,omitempty"`
	UserAgent      string     `json:"user_agent,omitempty"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
}

// ToDomain converts the request into an attempt input.
func (r EvaluationRequest) ToDomain() domain.AttemptInput {
	input := domain.AttemptInput{
		UserID:         r.UserID,
		DeviceID:       r.DeviceID,
		SimID:          r.SimID,
		Lat:            r.Lat,
		Lon:            r.Lon,
		KeystrokeSpeed: r.KeystrokeSpeed,
		MouseSpeed:     r.MouseSpeed,
	}
	if r.IP != "" {
		ip := r.IP
		input.IP = &ip
	}
	if r.UserAgent != "" {
		ua := r.UserAgent
		input.UserAgent = &ua
	}
	if r.Timestamp != nil {
		input.Timestamp = *r.Timestamp
	}
	return input
}

// AlertResponse is a single triggered risk signal.
type AlertResponse struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Rule     string `json:"rule"`
}

// DecisionResponse is the outcome of scoring a login attempt.
type DecisionResponse struct {
	AttemptID        string          `json:"attempt_id"`
	Status           string          `json:"status"`
	RiskScore        int             `json:"risk_score"`
	Confidence       float64         `json:"confidence"`
	Capped           bool            `json:"capped"`
	Alerts           []AlertResponse `json:"alerts"`
	Breakdown        map[string]int  `json:"breakdown"`
	DistanceFromHome float64         `json:"distance_from_home_km"`
	ResponseTimeMS   int64           `json:"response_time_ms"`
	RecordingError   string          `json:"recording_error,omitempty"`
}

// NewDecisionResponse converts an evaluation result into its API representation.
func NewDecisionResponse(result *usecase.EvaluationResult) DecisionResponse {
	resp := DecisionResponse{
		AttemptID:        result.AttemptID,
		Status:           string(result.Decision.Status),
		RiskScore:        result.Decision.TotalScore,
		Confidence:       result.Decision.Confidence,
		Capped:           result.Decision.Capped,
		Alerts:           newAlertResponses(result.Decision.Alerts),
		Breakdown:        result.Decision.Breakdown,
		DistanceFromHome: result.DistanceFromHome,
		ResponseTimeMS:   result.ResponseTime.Milliseconds(),
	}
	if result.RecordingError != nil {
		resp.RecordingError = result.RecordingError.Error()
	}
	return resp
}

// AttemptResponse is a persisted login attempt row.
type AttemptResponse struct {
	AttemptID        string          `json:"attempt_id"`
	UserID           string          `json:"user_id"`
	DeviceID         string          `json:"device_id"`
	SimID            string          `json:"sim_id"`
	Status           string          `json:"status"`
	RiskScore        int             `json:"risk_score"`
	Confidence       float64         `json:"confidence"`
	Alerts           []AlertResponse `json:"alerts"`
	DistanceFromHome float64         `json:"distance_from_home_km"`
	Timestamp        time.Time       `json:"timestamp"`
}

// NewAttemptResponse converts an audit record into its API representation.
func NewAttemptResponse(rec domain.AttemptRecord) AttemptResponse {
	return AttemptResponse{
		AttemptID:        rec.ID,
		UserID:           rec.UserID,
		DeviceID:         rec.DeviceID,
		SimID:            rec.SimID,
		Status:           string(rec.Status),
		RiskScore:        rec.RiskScore,
		Confidence:       rec.Confidence,
		Alerts:           newAlertResponses(rec.Alerts),
		DistanceFromHome: rec.DistanceFromHome,
		Timestamp:        rec.Timestamp,
	}
}

// AttemptsResponse wraps an attempt listing.
type AttemptsResponse struct {
	Attempts []AttemptResponse `json:"attempts"`
	Count    int               `json:"count"`
}

// NotificationResponse is a persisted fraud notification row.
type NotificationResponse struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Method   string    `json:"method"`
	Content  string    `json:"content"`
	Type     string    `json:"type"`
	Priority string    `json:"priority"`
	SentAt   time.Time `json:"sent_at"`
}

// NewNotificationResponse converts a notification into its API representation.
func NewNotificationResponse(n domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:       n.ID,
		UserID:   n.UserID,
		Method:   n.Method,
		Content:  n.Content,
		Type:     n.Type,
		Priority: string(n.Priority),
		SentAt:   n.SentAt,
	}
}

// NotificationsResponse wraps a notification listing.
type NotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Count         int                    `json:"count"`
}

// SummaryResponse aggregates decision counts across all recorded attempts.
type SummaryResponse struct {
	Total      int `json:"total"`
	Approved   int `json:"approved"`
	Challenged int `json:"challenged"`
	Blocked    int `json:"blocked"`
}

func newAlertResponses(alerts []domain.Alert) []AlertResponse {
	out := make([]AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, AlertResponse{
			Severity: string(a.Severity),
			Code:     a.Code,
			Message:  a.Message,
			Rule:     a.Rule,
		})
	}
	return out
}
