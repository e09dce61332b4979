package port

import (
	"context"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus. Publishing is
// fire-and-forget from the engine's perspective; the scoring path never
// blocks on delivery.
type EventPublisher interface {
	PublishFraudAlert(ctx context.Context, event domain.FraudAlertEvent) error
	PublishAttemptEvaluated(ctx context.Context, event domain.AttemptEvaluatedEvent) error
	PublishProfileEnrolled(ctx context.Context, event domain.ProfileEnrolledEvent) error
	PublishRiskTierChanged(ctx context.Context, event domain.RiskTierChangedEvent) error
}
