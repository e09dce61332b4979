package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/config"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/intel"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/repository"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/risk"
	httproutes "github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/transport/http/routes"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/usecase"
)

type memoryProfiles struct {
	mu       sync.Mutex
	profiles map[string]domain.EnrolledProfile
}

func newMemoryProfiles() *memoryProfiles {
	return &memoryProfiles{profiles: make(map[string]domain.EnrolledProfile)}
}

func (m *memoryProfiles) Create(_ context.Context, profile domain.EnrolledProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.UserID] = profile
	return nil
}

func (m *memoryProfiles) GetByUserID(_ context.Context, userID string) (*domain.EnrolledProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &profile, nil
}

func (m *memoryProfiles) UpdateRiskTier(_ context.Context, userID string, tier domain.RiskTier, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	profile.RiskTier = tier
	m.profiles[userID] = profile
	return nil
}

func (m *memoryProfiles) RecordLogin(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	profile.LastLogin = &at
	profile.LoginCount++
	m.profiles[userID] = profile
	return nil
}

type memoryAttempts struct {
	mu      sync.Mutex
	records []domain.AttemptRecord
}

func (m *memoryAttempts) Record(_ context.Context, record domain.AttemptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *memoryAttempts) ListByUser(_ context.Context, userID string, limit int) ([]domain.AttemptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AttemptRecord, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].UserID == userID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func (m *memoryAttempts) CountByStatus(_ context.Context) (map[domain.Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.Status]int)
	for _, rec := range m.records {
		counts[rec.Status]++
	}
	return counts, nil
}

func (m *memoryAttempts) PurgeApprovedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	profiles := newMemoryProfiles()
	attempts := &memoryAttempts{}

	evaluation := usecase.NewEvaluationService(usecase.EvaluationDeps{
		Profiles: profiles,
		Attempts: attempts,
		Provider: intel.NewStaticProvider(intel.Seed{}),
		Policy:   risk.DefaultPolicy(),
		Logger:   zap.NewNop(),
	})
	enrollment := usecase.NewEnrollmentService(profiles, nil, zap.NewNop())

	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	return httproutes.Register(httproutes.Dependencies{
		Config: cfg,
		Logger: zap.NewNop(),
		Services: httproutes.ServiceSet{
			Enrollment: enrollment,
			Evaluation: evaluation,
		},
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestEnrollThenEvaluateFlow(t *testing.T) {
	r := newTestRouter(t)

	enrollBody, _ := json.Marshal(map[string]any{
		"user_id":         "user-77",
		"device_id":       "device-77",
		"sim_id":          "sim-77",
		"home_lat":        12.9716,
		"home_lon":        77.5946,
		"keystroke_speed": 180,
		"mouse_speed":     220,
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/profiles", bytes.NewReader(enrollBody))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	now := time.Now()
	daytime := time.Date(now.Year(), now.Month(), now.Day(), 14, 30, 0, 0, time.Local)

	evalBody, _ := json.Marshal(map[string]any{
		"user_id":         "user-77",
		"device_id":       "device-77",
		"sim_id":          "sim-77",
		"lat":             12.9716,
		"lon":             77.5946,
		"keystroke_speed": 180,
		"mouse_speed":     220,
		"timestamp":       daytime.Format(time.RFC3339),
	})

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/api/v1/evaluations", bytes.NewReader(evalBody))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var decision struct {
		Status    string `json:"status"`
		RiskScore int    `json:"risk_score"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &decision); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if decision.Status != string(domain.StatusApproved) {
		t.Fatalf("expected APPROVED, got %s", decision.Status)
	}
	if decision.RiskScore != 0 {
		t.Fatalf("expected risk score 0, got %d", decision.RiskScore)
	}
}

func TestEvaluateUnknownUserReturns404(t *testing.T) {
	r := newTestRouter(t)

	body, _ := json.Marshal(map[string]any{
		"user_id":   "ghost",
		"device_id": "device-1",
		"sim_id":    "sim-1",
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/evaluations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAdminRoutesRequireTokenWhenSecretConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)

	profiles := newMemoryProfiles()
	attempts := &memoryAttempts{}

	evaluation := usecase.NewEvaluationService(usecase.EvaluationDeps{
		Profiles: profiles,
		Attempts: attempts,
		Provider: intel.NewStaticProvider(intel.Seed{}),
		Policy:   risk.DefaultPolicy(),
		Logger:   zap.NewNop(),
	})
	enrollment := usecase.NewEnrollmentService(profiles, nil, zap.NewNop())

	cfg := &config.AppConfig{
		App:  config.AppSettings{Env: "test"},
		Auth: config.AuthSettings{JWTSecret: "secret", Issuer: "risk-engine"},
	}

	r := httproutes.Register(httproutes.Dependencies{
		Config: cfg,
		Logger: zap.NewNop(),
		Services: httproutes.ServiceSet{
			Enrollment: enrollment,
			Evaluation: evaluation,
		},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/attempts/summary", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}
