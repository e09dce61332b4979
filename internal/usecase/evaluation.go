package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/port"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/logger"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/telemetry"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/repository"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/risk"
)

var (
	// ErrProfileNotFound indicates the attempt references a user with no enrolled profile.
	ErrProfileNotFound = errors.New("enrolled profile not found")
	// ErrProfileMismatch indicates the attempt's user id does not match the supplied profile.
	ErrProfileMismatch = errors.New("attempt user does not match profile")
	// ErrRecordingFailed flags that the decision was computed but the audit
	// record could not be persisted. The decision is still valid.
	ErrRecordingFailed = errors.New("attempt recording failed")
)

// EvaluationResult carries the decision plus audit metadata for one attempt.
// RecordingError is a side channel: when set, the decision was computed but
// durable recording failed.
type EvaluationResult struct {
	AttemptID        string
	Decision         domain.Decision
	DistanceFromHome float64
	ResponseTime     time.Duration
	RecordingError   error
}

// EvaluationService scores login attempts against enrolled profiles.
type EvaluationService struct {
	profiles      port.ProfileRepository
	attempts      port.AttemptRepository
	notifications port.NotificationRepository
	provider      port.SignalProvider
	intel         port.IntelStore
	stepUps       port.StepUpWindowStore
	publisher     port.EventPublisher
	rules         *risk.RuleSet
	policy        risk.Policy
	metrics       *telemetry.EngineMetrics
	logger        *zap.Logger

	stepUpWindow time.Duration
	failClosed   bool

	now   func() time.Time
	newID func() string
}

// EvaluationDeps bundles the collaborators for NewEvaluationService.
type EvaluationDeps struct {
	Profiles      port.ProfileRepository
	Attempts      port.AttemptRepository
	Notifications port.NotificationRepository
	Provider      port.SignalProvider
	Intel         port.IntelStore
	StepUps       port.StepUpWindowStore
	Publisher     port.EventPublisher
	Rules         *risk.RuleSet
	Policy        risk.Policy
	Metrics       *telemetry.EngineMetrics
	Logger        *zap.Logger
	StepUpWindow  time.Duration
	FailClosed    bool
}

// NewEvaluationService constructs the evaluation service.
func NewEvaluationService(deps EvaluationDeps) *EvaluationService {
	if deps.Rules == nil {
		deps.Rules = risk.NewRuleSet(risk.DefaultConfig())
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.StepUpWindow <= 0 {
		deps.StepUpWindow = 10 * time.Minute
	}

	return &EvaluationService{
		profiles:      deps.Profiles,
		attempts:      deps.Attempts,
		notifications: deps.Notifications,
		provider:      deps.Provider,
		intel:         deps.Intel,
		stepUps:       deps.StepUps,
		publisher:     deps.Publisher,
		rules:         deps.Rules,
		policy:        deps.Policy,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		stepUpWindow:  deps.StepUpWindow,
		failClosed:    deps.FailClosed,
		now:           time.Now,
		newID:         func() string { return uuid.NewString() },
	}
}

// FailClosed reports whether a recording failure must withhold approval.
func (s *EvaluationService) FailClosed() bool {
	return s.failClosed
}

// Evaluate loads the enrolled profile for the attempt's user and scores the
// attempt. The returned result is valid even when its RecordingError is set.
func (s *EvaluationService) Evaluate(ctx context.Context, input domain.AttemptInput) (*EvaluationResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByUserID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	return s.EvaluateWithProfile(ctx, *profile, input)
}

// EvaluateWithProfile scores an attempt against an explicit profile. It fails
// only for invalid input or a user mismatch; fraud is expressed through the
// decision status, never through an error.
func (s *EvaluationService) EvaluateWithProfile(ctx context.Context, profile domain.EnrolledProfile, input domain.AttemptInput) (*EvaluationResult, error) {
	start := s.now()

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if input.UserID != profile.UserID {
		return nil, ErrProfileMismatch
	}

	if input.Timestamp.IsZero() {
		input.Timestamp = start.UTC()
	}

	signals := s.gatherSignals(ctx, profile, input)

	agg := s.rules.Evaluate(profile, input, signals)

	criticals := 0
	for _, a := range agg.Alerts {
		if a.Severity == domain.SeverityCritical {
			criticals++
		}
	}

	decision := domain.Decision{
		Status:     s.policy.Decide(agg.TotalScore, criticals),
		TotalScore: agg.TotalScore,
		Confidence: agg.Confidence,
		Alerts:     agg.Alerts,
		Breakdown:  agg.Breakdown,
		Capped:     agg.Capped,
	}

	result := &EvaluationResult{
		AttemptID:        s.newID(),
		Decision:         decision,
		DistanceFromHome: risk.DistanceKm(profile.HomeLat, profile.HomeLon, input.Lat, input.Lon),
		ResponseTime:     s.now().Sub(start),
	}

	s.applyObservations(ctx, profile, input)
	s.persistOutcome(ctx, profile, input, result)
	s.notifyAndPublish(ctx, profile, input, result)
	s.observeMetrics(result)

	return result, nil
}

// gatherSignals queries the providers once per evaluation. Device and SIM
// intelligence is only fetched when the identifier changed; the rules ignore
// those signals otherwise.
func (s *EvaluationService) gatherSignals(ctx context.Context, profile domain.EnrolledProfile, input domain.AttemptInput) risk.Signals {
	var signals risk.Signals
	if s.provider == nil {
		return signals
	}

	log := logger.WithContext(ctx)

	if input.DeviceID != profile.DeviceID {
		device, err := s.provider.LookupDevice(ctx, input.DeviceID)
		if err != nil {
			log.Warn("device lookup failed", zap.Error(err))
		}
		signals.Device = device
	}

	if input.SimID != profile.SimID {
		sim, err := s.provider.LookupSim(ctx, input.UserID, input.SimID)
		if err != nil {
			log.Warn("sim lookup failed", zap.Error(err))
		}
		signals.Sim = sim
	}

	pattern, err := s.provider.MatchFraudPattern(ctx, input.DeviceID, input.SimID)
	if err != nil {
		log.Warn("pattern lookup failed", zap.Error(err))
	}
	signals.Pattern = pattern

	location, err := s.provider.AssessLocationRisk(ctx, input.Lat, input.Lon)
	if err != nil {
		log.Warn("location assessment failed", zap.Error(err))
	}
	signals.Location = location

	if input.IP != nil && *input.IP != "" {
		network, err := s.provider.AssessNetwork(ctx, *input.IP)
		if err != nil {
			log.Warn("network assessment failed", zap.Error(err))
		}
		signals.Network = network
	}

	if s.stepUps != nil {
		count, err := s.stepUps.CountRecent(ctx, input.UserID, s.stepUpWindow, input.Timestamp)
		if err != nil {
			log.Warn("step-up window count failed", zap.Error(err))
		} else {
			signals.RecentStepUps = &count
		}
	}

	return signals
}

// applyObservations performs the write-through intelligence mutations,
// exactly once per evaluation and only for changed identifiers. The current
// evaluation already scored against the pre-observation state.
func (s *EvaluationService) applyObservations(ctx context.Context, profile domain.EnrolledProfile, input domain.AttemptInput) {
	if s.intel == nil {
		return
	}

	log := logger.WithContext(ctx)

	if input.DeviceID != profile.DeviceID {
		if err := s.intel.ObserveDevice(ctx, input.DeviceID); err != nil {
			log.Warn("device observation failed",
				zap.String("device_id", logger.MaskID(input.DeviceID)),
				zap.Error(err))
		}
	}

	if input.SimID != profile.SimID {
		if _, err := s.intel.ObserveSimSwap(ctx, input.SimID); err != nil {
			log.Warn("sim swap observation failed",
				zap.String("sim_id", logger.MaskID(input.SimID)),
				zap.Error(err))
		}
	}
}

func (s *EvaluationService) persistOutcome(ctx context.Context, profile domain.EnrolledProfile, input domain.AttemptInput, result *EvaluationResult) {
	log := logger.WithContext(ctx)
	decision := result.Decision

	record := domain.AttemptRecord{
		ID:               result.AttemptID,
		UserID:           input.UserID,
		DeviceID:         input.DeviceID,
		SimID:            input.SimID,
		Lat:              input.Lat,
		Lon:              input.Lon,
		KeystrokeSpeed:   input.KeystrokeSpeed,
		MouseSpeed:       input.MouseSpeed,
		IP:               input.IP,
		UserAgent:        input.UserAgent,
		Status:           decision.Status,
		RiskScore:        decision.TotalScore,
		Confidence:       decision.Confidence,
		Alerts:           decision.Alerts,
		Breakdown:        decision.Breakdown,
		DistanceFromHome: result.DistanceFromHome,
		ResponseTimeMS:   int(result.ResponseTime.Milliseconds()),
		NotificationSent: decision.Status == domain.StatusBlocked,
		Timestamp:        input.Timestamp,
	}

	if s.attempts != nil {
		if err := s.attempts.Record(ctx, record); err != nil {
			log.Error("attempt recording failed", zap.Error(err))
			result.RecordingError = fmt.Errorf("%w: %v", ErrRecordingFailed, err)
		}
	}

	switch decision.Status {
	case domain.StatusApproved:
		if err := s.profiles.RecordLogin(ctx, profile.UserID, input.Timestamp); err != nil {
			log.Warn("login bookkeeping failed", zap.Error(err))
		}
	case domain.StatusChallenge, domain.StatusBlocked:
		if s.stepUps != nil {
			if err := s.stepUps.RecordOutcome(ctx, input.UserID, decision.Status, input.Timestamp); err != nil {
				log.Warn("step-up window update failed", zap.Error(err))
			}
		}
	}
}

func (s *EvaluationService) notifyAndPublish(ctx context.Context, profile domain.EnrolledProfile, input domain.AttemptInput, result *EvaluationResult) {
	log := logger.WithContext(ctx)
	decision := result.Decision

	if s.publisher != nil {
		evaluated := domain.AttemptEvaluatedEvent{
			EventID:     s.newID(),
			AttemptID:   result.AttemptID,
			UserID:      input.UserID,
			Status:      decision.Status,
			RiskScore:   decision.TotalScore,
			Confidence:  decision.Confidence,
			AlertCount:  len(decision.Alerts),
			EvaluatedAt: input.Timestamp,
		}
		if err := s.publisher.PublishAttemptEvaluated(ctx, evaluated); err != nil {
			log.Warn("attempt event publish failed", zap.Error(err))
		}
	}

	if decision.Status != domain.StatusBlocked {
		return
	}

	priority := domain.PriorityForScore(decision.TotalScore)

	if s.notifications != nil {
		notification := domain.Notification{
			ID:       s.newID(),
			UserID:   input.UserID,
			Method:   notificationMethod(profile),
			Content:  fmt.Sprintf("Login attempt blocked: risk score %d with %d alerts", decision.TotalScore, len(decision.Alerts)),
			Type:     "FRAUD_ALERT",
			Priority: priority,
			SentAt:   input.Timestamp,
		}
		if err := s.notifications.Create(ctx, notification); err != nil {
			log.Warn("notification recording failed", zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.NotificationsTotal.WithLabelValues(string(priority)).Inc()
		}
	}

	if s.publisher != nil {
		alertEvent := domain.FraudAlertEvent{
			EventID:    s.newID(),
			AttemptID:  result.AttemptID,
			UserID:     input.UserID,
			RiskScore:  decision.TotalScore,
			Confidence: decision.Confidence,
			Alerts:     decision.Alerts,
			Priority:   priority,
			DetectedAt: input.Timestamp,
		}
		if err := s.publisher.PublishFraudAlert(ctx, alertEvent); err != nil {
			log.Warn("fraud alert publish failed", zap.Error(err))
		}
	}
}

func (s *EvaluationService) observeMetrics(result *EvaluationResult) {
	if s.metrics == nil {
		return
	}
	s.metrics.EvaluationsTotal.WithLabelValues(string(result.Decision.Status)).Inc()
	s.metrics.RiskScore.Observe(float64(result.Decision.TotalScore))
	s.metrics.EvaluationDuration.Observe(result.ResponseTime.Seconds())
}

// ListAttempts returns the user's recent attempts for the dashboard consumer.
func (s *EvaluationService) ListAttempts(ctx context.Context, userID string, limit int) ([]domain.AttemptRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	return s.attempts.ListByUser(ctx, userID, limit)
}

// ListNotifications returns the user's dispatched fraud notifications.
func (s *EvaluationService) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if s.notifications == nil {
		return nil, nil
	}
	return s.notifications.ListByUser(ctx, userID, limit)
}

// SecuritySummary aggregates attempt counts by decision status.
type SecuritySummary struct {
	Total      int `json:"total"`
	Approved   int `json:"approved"`
	Challenged int `json:"challenged"`
	Blocked    int `json:"blocked"`
}

// Summary returns attempt totals grouped by decision status.
func (s *EvaluationService) Summary(ctx context.Context) (SecuritySummary, error) {
	counts, err := s.attempts.CountByStatus(ctx)
	if err != nil {
		return SecuritySummary{}, fmt.Errorf("count attempts: %w", err)
	}

	summary := SecuritySummary{
		Approved:   counts[domain.StatusApproved],
		Challenged: counts[domain.StatusChallenge],
		Blocked:    counts[domain.StatusBlocked],
	}
	summary.Total = summary.Approved + summary.Challenged + summary.Blocked

	return summary, nil
}

func notificationMethod(profile domain.EnrolledProfile) string {
	switch {
	case profile.Phone != nil && *profile.Phone != "":
		return "sms"
	case profile.Email != nil && *profile.Email != "":
		return "email"
	default:
		return "push"
	}
}
