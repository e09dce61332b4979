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
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/repository"
)

// ErrProfileExists indicates the user already has an enrolled profile.
var ErrProfileExists = errors.New("profile already enrolled")

// EnrollmentService manages enrolled profiles and their audited mutations.
type EnrollmentService struct {
	profiles  port.ProfileRepository
	publisher port.EventPublisher
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewEnrollmentService constructs an enrollment service.
func NewEnrollmentService(profiles port.ProfileRepository, publisher port.EventPublisher, log *zap.Logger) *EnrollmentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &EnrollmentService{
		profiles:  profiles,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Enroll registers a new profile. The baseline is captured once; login
// attempts never overwrite it.
func (s *EnrollmentService) Enroll(ctx context.Context, profile domain.EnrolledProfile) (*domain.EnrolledProfile, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	if !profile.RiskTier.Valid() {
		if profile.RiskTier != "" {
			return nil, fmt.Errorf("%w: unknown risk tier %q", domain.ErrInvalidInput, profile.RiskTier)
		}
		profile.RiskTier = domain.RiskTierLow
	}

	if profile.RegisteredAt.IsZero() {
		profile.RegisteredAt = s.now().UTC()
	}

	existing, err := s.profiles.GetByUserID(ctx, profile.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check existing profile: %w", err)
	}
	if existing != nil {
		return nil, ErrProfileExists
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	if s.publisher != nil {
		event := domain.ProfileEnrolledEvent{
			EventID:    s.newID(),
			UserID:     profile.UserID,
			DeviceID:   profile.DeviceID,
			SimID:      profile.SimID,
			RiskTier:   profile.RiskTier,
			EnrolledAt: profile.RegisteredAt,
		}
		if err := s.publisher.PublishProfileEnrolled(ctx, event); err != nil {
			logger.WithContext(ctx).Warn("profile event publish failed", zap.Error(err))
		}
	}

	return &profile, nil
}

// GetProfile fetches an enrolled profile.
func (s *EnrollmentService) GetProfile(ctx context.Context, userID string) (*domain.EnrolledProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	return profile, nil
}

// UpdateRiskTier changes the account's risk tier through the audited path.
func (s *EnrollmentService) UpdateRiskTier(ctx context.Context, userID string, tier domain.RiskTier, changedBy, reason string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if !tier.Valid() {
		return fmt.Errorf("%w: unknown risk tier %q", domain.ErrInvalidInput, tier)
	}
	if changedBy == "" {
		return fmt.Errorf("%w: changed_by is required", domain.ErrInvalidInput)
	}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("load profile: %w", err)
	}

	if err := s.profiles.UpdateRiskTier(ctx, userID, tier, changedBy); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("update risk tier: %w", err)
	}

	if s.publisher != nil {
		event := domain.RiskTierChangedEvent{
			EventID:      s.newID(),
			UserID:       userID,
			PreviousTier: profile.RiskTier,
			NewTier:      tier,
			ChangedBy:    changedBy,
			Reason:       reason,
			ChangedAt:    s.now().UTC(),
		}
		if err := s.publisher.PublishRiskTierChanged(ctx, event); err != nil {
			logger.WithContext(ctx).Warn("tier event publish failed", zap.Error(err))
		}
	}

	return nil
}
