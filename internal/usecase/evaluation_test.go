package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/repository"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/risk"
)

type stubProfiles struct {
	profiles map[string]domain.EnrolledProfile
	logins   []string
}

func (s *stubProfiles) Create(_ context.Context, profile domain.EnrolledProfile) error {
	s.profiles[profile.UserID] = profile
	return nil
}

func (s *stubProfiles) GetByUserID(_ context.Context, userID string) (*domain.EnrolledProfile, error) {
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &profile, nil
}

func (s *stubProfiles) UpdateRiskTier(_ context.Context, userID string, tier domain.RiskTier, _ string) error {
	profile, ok := s.profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	profile.RiskTier = tier
	s.profiles[userID] = profile
	return nil
}

func (s *stubProfiles) RecordLogin(_ context.Context, userID string, at time.Time) error {
	profile, ok := s.profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	profile.LastLogin = &at
	profile.LoginCount++
	s.profiles[userID] = profile
	s.logins = append(s.logins, userID)
	return nil
}

type stubAttempts struct {
	records    []domain.AttemptRecord
	failRecord bool
}

func (s *stubAttempts) Record(_ context.Context, record domain.AttemptRecord) error {
	if s.failRecord {
		return errors.New("storage down")
	}
	s.records = append(s.records, record)
	return nil
}

func (s *stubAttempts) ListByUser(_ context.Context, userID string, _ int) ([]domain.AttemptRecord, error) {
	var out []domain.AttemptRecord
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubAttempts) CountByStatus(_ context.Context) (map[domain.Status]int, error) {
	counts := make(map[domain.Status]int)
	for _, r := range s.records {
		counts[r.Status]++
	}
	return counts, nil
}

func (s *stubAttempts) PurgeApprovedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	kept := s.records[:0]
	var removed int64
	for _, r := range s.records {
		if r.Status == domain.StatusApproved && r.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return removed, nil
}

type stubNotifications struct {
	created []domain.Notification
}

func (s *stubNotifications) Create(_ context.Context, n domain.Notification) error {
	s.created = append(s.created, n)
	return nil
}

func (s *stubNotifications) ListByUser(_ context.Context, userID string, _ int) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range s.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

type stubPublisher struct {
	fraudAlerts []domain.FraudAlertEvent
	evaluated   []domain.AttemptEvaluatedEvent
	enrolled    []domain.ProfileEnrolledEvent
	tierChanges []domain.RiskTierChangedEvent
}

func (s *stubPublisher) PublishFraudAlert(_ context.Context, e domain.FraudAlertEvent) error {
	s.fraudAlerts = append(s.fraudAlerts, e)
	return nil
}

func (s *stubPublisher) PublishAttemptEvaluated(_ context.Context, e domain.AttemptEvaluatedEvent) error {
	s.evaluated = append(s.evaluated, e)
	return nil
}

func (s *stubPublisher) PublishProfileEnrolled(_ context.Context, e domain.ProfileEnrolledEvent) error {
	s.enrolled = append(s.enrolled, e)
	return nil
}

func (s *stubPublisher) PublishRiskTierChanged(_ context.Context, e domain.RiskTierChangedEvent) error {
	s.tierChanges = append(s.tierChanges, e)
	return nil
}

type stubProvider struct {
	device   *domain.DeviceIntel
	sim      *domain.SimIntel
	pattern  *domain.PatternMatch
	location *domain.LocationRisk
	network  *domain.NetworkIntel
}

func (s *stubProvider) LookupDevice(context.Context, string) (*domain.DeviceIntel, error) {
	return s.device, nil
}

func (s *stubProvider) LookupSim(context.Context, string, string) (*domain.SimIntel, error) {
	return s.sim, nil
}

func (s *stubProvider) MatchFraudPattern(context.Context, string, string) (*domain.PatternMatch, error) {
	return s.pattern, nil
}

func (s *stubProvider) AssessLocationRisk(context.Context, float64, float64) (*domain.LocationRisk, error) {
	return s.location, nil
}

func (s *stubProvider) AssessNetwork(context.Context, string) (*domain.NetworkIntel, error) {
	return s.network, nil
}

type stubIntelStore struct {
	deviceObservations []string
	simSwaps           map[string]int
}

func (s *stubIntelStore) GetDevice(context.Context, string) (*domain.DeviceIntel, error) {
	return nil, nil
}

func (s *stubIntelStore) PutDevice(context.Context, domain.DeviceIntel) error { return nil }

func (s *stubIntelStore) ObserveDevice(_ context.Context, deviceID string) error {
	s.deviceObservations = append(s.deviceObservations, deviceID)
	return nil
}

func (s *stubIntelStore) GetSim(context.Context, string) (*domain.SimIntel, error) {
	return nil, nil
}

func (s *stubIntelStore) PutSim(context.Context, domain.SimIntel) error { return nil }

func (s *stubIntelStore) ObserveSimSwap(_ context.Context, simID string) (int, error) {
	if s.simSwaps == nil {
		s.simSwaps = make(map[string]int)
	}
	s.simSwaps[simID]++
	return s.simSwaps[simID], nil
}

type stubStepUps struct {
	outcomes []domain.Status
	count    int
}

func (s *stubStepUps) RecordOutcome(_ context.Context, _ string, status domain.Status, _ time.Time) error {
	s.outcomes = append(s.outcomes, status)
	return nil
}

func (s *stubStepUps) CountRecent(context.Context, string, time.Duration, time.Time) (int, error) {
	return s.count, nil
}

type evaluationFixture struct {
	service       *EvaluationService
	profiles      *stubProfiles
	attempts      *stubAttempts
	notifications *stubNotifications
	publisher     *stubPublisher
	provider      *stubProvider
	intel         *stubIntelStore
	stepUps       *stubStepUps
}

func newEvaluationFixture(t *testing.T) *evaluationFixture {
	t.Helper()

	f := &evaluationFixture{
		profiles:      &stubProfiles{profiles: make(map[string]domain.EnrolledProfile)},
		attempts:      &stubAttempts{},
		notifications: &stubNotifications{},
		publisher:     &stubPublisher{},
		provider:      &stubProvider{},
		intel:         &stubIntelStore{},
		stepUps:       &stubStepUps{},
	}

	f.service = NewEvaluationService(EvaluationDeps{
		Profiles:      f.profiles,
		Attempts:      f.attempts,
		Notifications: f.notifications,
		Provider:      f.provider,
		Intel:         f.intel,
		StepUps:       f.stepUps,
		Publisher:     f.publisher,
		Rules:         risk.NewRuleSet(risk.DefaultConfig()),
		Policy:        risk.DefaultPolicy(),
		Logger:        zap.NewNop(),
	})

	f.profiles.profiles["user-1"] = domain.EnrolledProfile{
		UserID:         "user-1",
		DeviceID:       "device-1abc",
		SimID:          "sim-1",
		HomeLat:        12.9716,
		HomeLon:        77.5946,
		KeystrokeSpeed: 170,
		MouseSpeed:     200,
		RiskTier:       domain.RiskTierLow,
		RegisteredAt:   time.Now().UTC().Add(-time.Hour),
	}

	return f
}

// daytime returns a timestamp at a normal local hour so the temporal rule
// stays quiet.
func daytime() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 14, 30, 0, 0, time.Local)
}

func matchingAttempt() domain.AttemptInput {
	return domain.AttemptInput{
		UserID:         "user-1",
		DeviceID:       "device-1abc",
		SimID:          "sim-1",
		Lat:            12.9716,
		Lon:            77.5946,
		KeystrokeSpeed: 170,
		MouseSpeed:     200,
		Timestamp:      daytime(),
	}
}

func TestEvaluateApprovesMatchingAttempt(t *testing.T) {
	f := newEvaluationFixture(t)

	result, err := f.service.Evaluate(context.Background(), matchingAttempt())
	require.NoError(t, err)
	require.NoError(t, result.RecordingError)

	require.Equal(t, domain.StatusApproved, result.Decision.Status)
	require.Equal(t, 0, result.Decision.TotalScore)
	require.InDelta(t, 0.92, result.Decision.Confidence, 1e-9)
	require.Empty(t, result.Decision.Alerts)

	// Audit row recorded; login bookkeeping applied; no adverse artifacts.
	require.Len(t, f.attempts.records, 1)
	require.Equal(t, []string{"user-1"}, f.profiles.logins)
	require.Empty(t, f.notifications.created)
	require.Empty(t, f.publisher.fraudAlerts)
	require.Len(t, f.publisher.evaluated, 1)
	require.Empty(t, f.stepUps.outcomes)
	require.Empty(t, f.intel.deviceObservations)
}

func TestEvaluateBlocksImpossibleTravel(t *testing.T) {
	f := newEvaluationFixture(t)

	attempt := matchingAttempt()
	attempt.Lat = 40.7128
	attempt.Lon = -74.0060

	result, err := f.service.Evaluate(context.Background(), attempt)
	require.NoError(t, err)

	require.Equal(t, domain.StatusBlocked, result.Decision.Status)
	require.GreaterOrEqual(t, result.Decision.TotalScore, 85)
	require.Greater(t, result.DistanceFromHome, 12000.0)

	// Blocked attempts trigger the notification side channel.
	require.Len(t, f.notifications.created, 1)
	require.Equal(t, domain.NotificationPriorityCritical, f.notifications.created[0].Priority)
	require.Len(t, f.publisher.fraudAlerts, 1)
	require.Equal(t, []domain.Status{domain.StatusBlocked}, f.stepUps.outcomes)
	require.Empty(t, f.profiles.logins)

	require.Len(t, f.attempts.records, 1)
	require.True(t, f.attempts.records[0].NotificationSent)
}

func TestEvaluateApprovesMinorBehaviorDrift(t *testing.T) {
	f := newEvaluationFixture(t)

	attempt := matchingAttempt()
	attempt.KeystrokeSpeed = 200 // +30
	attempt.MouseSpeed = 230     // +30, combined drift 60

	result, err := f.service.Evaluate(context.Background(), attempt)
	require.NoError(t, err)

	require.Equal(t, domain.StatusApproved, result.Decision.Status)
	require.Equal(t, 20, result.Decision.TotalScore)
	require.Len(t, result.Decision.Alerts, 1)
	require.Equal(t, domain.SeverityInfo, result.Decision.Alerts[0].Severity)
}

func TestEvaluateChallengesUnknownDevice(t *testing.T) {
	f := newEvaluationFixture(t)

	attempt := matchingAttempt()
	attempt.DeviceID = "device-2xyz"

	result, err := f.service.Evaluate(context.Background(), attempt)
	require.NoError(t, err)

	// A lone 80-point critical challenges; blocking needs more.
	require.Equal(t, domain.StatusChallenge, result.Decision.Status)
	require.Equal(t, 80, result.Decision.TotalScore)
	require.Equal(t, 1, result.Decision.CriticalCount())

	// The unseen device is observed exactly once.
	require.Equal(t, []string{"device-2xyz"}, f.intel.deviceObservations)
	require.Equal(t, []domain.Status{domain.StatusChallenge}, f.stepUps.outcomes)
	require.Empty(t, f.notifications.created)
}

func TestEvaluateBlocksTwoCriticals(t *testing.T) {
	f := newEvaluationFixture(t)

	// Unknown device (80 CRITICAL) plus impossible travel (85 CRITICAL).
	attempt := matchingAttempt()
	attempt.DeviceID = "device-2xyz"
	attempt.Lat = 40.7128
	attempt.Lon = -74.0060

	result, err := f.service.Evaluate(context.Background(), attempt)
	require.NoError(t, err)

	require.Equal(t, domain.StatusBlocked, result.Decision.Status)
	require.Equal(t, 100, result.Decision.TotalScore)
	require.True(t, result.Decision.Capped)
	require.Equal(t, 2, result.Decision.CriticalCount())
}

func TestEvaluateObservesSimSwapOnce(t *testing.T) {
	f := newEvaluationFixture(t)

	attempt := matchingAttempt()
	attempt.SimID = "sim-2"

	result, err := f.service.Evaluate(context.Background(), attempt)
	require.NoError(t, err)

	// First swap with unknown intel: 65 WARNING, challenge via score >= 50.
	require.Equal(t, domain.StatusChallenge, result.Decision.Status)
	require.Equal(t, 65, result.Decision.TotalScore)
	require.Equal(t, map[string]int{"sim-2": 1}, f.intel.simSwaps)
}

func TestEvaluateRecordingFailureKeepsDecision(t *testing.T) {
	f := newEvaluationFixture(t)
	f.attempts.failRecord = true

	result, err := f.service.Evaluate(context.Background(), matchingAttempt())
	require.NoError(t, err)

	require.Equal(t, domain.StatusApproved, result.Decision.Status)
	require.ErrorIs(t, result.RecordingError, ErrRecordingFailed)
}

func TestEvaluateRejectsUnknownUser(t *testing.T) {
	f := newEvaluationFixture(t)

	attempt := matchingAttempt()
	attempt.UserID = "user-unknown"

	_, err := f.service.Evaluate(context.Background(), attempt)
	require.ErrorIs(t, err, ErrProfileNotFound)
	require.Empty(t, f.attempts.records)
}

func TestEvaluateWithProfileRejectsMismatch(t *testing.T) {
	f := newEvaluationFixture(t)

	profile := f.profiles.profiles["user-1"]
	attempt := matchingAttempt()
	attempt.UserID = "user-2"

	_, err := f.service.EvaluateWithProfile(context.Background(), profile, attempt)
	require.ErrorIs(t, err, ErrProfileMismatch)
}

func TestEvaluateRejectsInvalidInput(t *testing.T) {
	f := newEvaluationFixture(t)

	attempt := matchingAttempt()
	attempt.Lat = 123.0

	_, err := f.service.Evaluate(context.Background(), attempt)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	require.Empty(t, f.attempts.records)
}

func TestEvaluateBotSignatureBlocks(t *testing.T) {
	f := newEvaluationFixture(t)

	attempt := matchingAttempt()
	attempt.KeystrokeSpeed = 100
	attempt.MouseSpeed = 150

	result, err := f.service.Evaluate(context.Background(), attempt)
	require.NoError(t, err)

	// Bot signature is 90 CRITICAL on its own: past the block threshold.
	require.Equal(t, domain.StatusBlocked, result.Decision.Status)
	require.Equal(t, 90, result.Decision.TotalScore)
}

func TestEvaluateProviderSignalsRaiseScore(t *testing.T) {
	f := newEvaluationFixture(t)
	f.provider.network = &domain.NetworkIntel{AnonymizingNetwork: true}
	f.provider.location = &domain.LocationRisk{Score: 0.9}

	ip := "203.0.113.9"
	attempt := matchingAttempt()
	attempt.IP = &ip

	result, err := f.service.Evaluate(context.Background(), attempt)
	require.NoError(t, err)

	// VPN (40 WARNING) + high-risk area (60 WARNING) = 100: past the block
	// threshold on score alone, with the two-warning confidence level.
	require.Equal(t, domain.StatusBlocked, result.Decision.Status)
	require.Equal(t, 100, result.Decision.TotalScore)
	require.Equal(t, 0, result.Decision.CriticalCount())
	require.InDelta(t, 0.82, result.Decision.Confidence, 1e-9)
}

func TestSummaryCountsByStatus(t *testing.T) {
	f := newEvaluationFixture(t)

	_, err := f.service.Evaluate(context.Background(), matchingAttempt())
	require.NoError(t, err)

	blocked := matchingAttempt()
	blocked.Lat = 40.7128
	blocked.Lon = -74.0060
	_, err = f.service.Evaluate(context.Background(), blocked)
	require.NoError(t, err)

	summary, err := f.service.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, SecuritySummary{Total: 2, Approved: 1, Blocked: 1}, summary)
}

func TestListNotificationsAfterBlock(t *testing.T) {
	f := newEvaluationFixture(t)

	blocked := matchingAttempt()
	blocked.Lat = 40.7128
	blocked.Lon = -74.0060
	_, err := f.service.Evaluate(context.Background(), blocked)
	require.NoError(t, err)

	notifications, err := f.service.ListNotifications(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, domain.NotificationPriorityCritical, notifications[0].Priority)

	_, err = f.service.ListNotifications(context.Background(), "", 10)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
