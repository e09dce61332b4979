package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishFraudAlert logs risk.attempt.blocked events.
func (p *StubPublisher) PublishFraudAlert(_ context.Context, event domain.FraudAlertEvent) error {
	payload := map[string]any{
		"attempt_id": event.AttemptID,
		"risk_score": event.RiskScore,
		"confidence": event.Confidence,
		"alerts":     event.Alerts,
		"priority":   event.Priority,
	}
	p.logEvent("risk.attempt.blocked", event.UserID, event.DetectedAt, payload)
	return nil
}

// PublishAttemptEvaluated logs risk.attempt.evaluated events.
func (p *StubPublisher) PublishAttemptEvaluated(_ context.Context, event domain.AttemptEvaluatedEvent) error {
	payload := map[string]any{
		"attempt_id":  event.AttemptID,
		"status":      event.Status,
		"risk_score":  event.RiskScore,
		"confidence":  event.Confidence,
		"alert_count": event.AlertCount,
	}
	p.logEvent("risk.attempt.evaluated", event.UserID, event.EvaluatedAt, payload)
	return nil
}

// PublishProfileEnrolled logs risk.profile.enrolled events.
func (p *StubPublisher) PublishProfileEnrolled(_ context.Context, event domain.ProfileEnrolledEvent) error {
	payload := map[string]any{
		"device_id": event.DeviceID,
		"sim_id":    event.SimID,
		"risk_tier": event.RiskTier,
	}
	p.logEvent("risk.profile.enrolled", event.UserID, event.EnrolledAt, payload)
	return nil
}

// PublishRiskTierChanged logs risk.profile.tier.changed events.
func (p *StubPublisher) PublishRiskTierChanged(_ context.Context, event domain.RiskTierChangedEvent) error {
	payload := map[string]any{
		"previous_tier": event.PreviousTier,
		"new_tier":      event.NewTier,
		"changed_by":    event.ChangedBy,
		"reason":        event.Reason,
	}
	p.logEvent("risk.profile.tier.changed", event.UserID, event.ChangedAt, payload)
	return nil
}
