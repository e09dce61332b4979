package port

import (
	"context"
	"time"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
)

// ProfileRepository exposes persistence behavior for enrolled profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile domain.EnrolledProfile) error
	GetByUserID(ctx context.Context, userID string) (*domain.EnrolledProfile, error)
	UpdateRiskTier(ctx context.Context, userID string, tier domain.RiskTier, changedBy string) error
	RecordLogin(ctx context.Context, userID string, at time.Time) error
}
