package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishFraudAlert publishes risk.attempt.blocked events.
func (p *EventPublisher) PublishFraudAlert(ctx context.Context, event domain.FraudAlertEvent) error {
	payload := struct {
		AttemptID  string                      `json:"attempt_id"`
		UserID     string                      `json:"user_id"`
		RiskScore  int                         `json:"risk_score"`
		Confidence float64                     `json:"confidence"`
		Alerts     []domain.Alert              `json:"alerts"`
		Priority   domain.NotificationPriority `json:"priority"`
		DetectedAt time.Time                   `json:"detected_at"`
		Metadata   map[string]any              `json:"metadata,omitempty"`
	}{
		AttemptID:  event.AttemptID,
		UserID:     event.UserID,
		RiskScore:  event.RiskScore,
		Confidence: event.Confidence,
		Alerts:     event.Alerts,
		Priority:   event.Priority,
		DetectedAt: event.DetectedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "risk.attempt.blocked", event.UserID, event.DetectedAt, payload)
}

// PublishAttemptEvaluated publishes risk.attempt.evaluated events.
func (p *EventPublisher) PublishAttemptEvaluated(ctx context.Context, event domain.AttemptEvaluatedEvent) error {
	payload := struct {
		AttemptID   string         `json:"attempt_id"`
		UserID      string         `json:"user_id"`
		Status      domain.Status  `json:"status"`
		RiskScore   int            `json:"risk_score"`
		Confidence  float64        `json:"confidence"`
		AlertCount  int            `json:"alert_count"`
		EvaluatedAt time.Time      `json:"evaluated_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		AttemptID:   event.AttemptID,
		UserID:      event.UserID,
		Status:      event.Status,
		RiskScore:   event.RiskScore,
		Confidence:  event.Confidence,
		AlertCount:  event.AlertCount,
		EvaluatedAt: event.EvaluatedAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "risk.attempt.evaluated", event.UserID, event.EvaluatedAt, payload)
}

// PublishProfileEnrolled publishes risk.profile.enrolled events.
func (p *EventPublisher) PublishProfileEnrolled(ctx context.Context, event domain.ProfileEnrolledEvent) error {
	payload := struct {
		UserID     string          `json:"user_id"`
		DeviceID   string          `json:"device_id"`
		SimID      string          `json:"sim_id"`
		RiskTier   domain.RiskTier `json:"risk_tier"`
		EnrolledAt time.Time       `json:"enrolled_at"`
		Metadata   map[string]any  `json:"metadata,omitempty"`
	}{
		UserID:     event.UserID,
		DeviceID:   event.DeviceID,
		SimID:      event.SimID,
		RiskTier:   event.RiskTier,
		EnrolledAt: event.EnrolledAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "risk.profile.enrolled", event.UserID, event.EnrolledAt, payload)
}

// PublishRiskTierChanged publishes risk.profile.tier.changed events.
func (p *EventPublisher) PublishRiskTierChanged(ctx context.Context, event domain.RiskTierChangedEvent) error {
	payload := struct {
		UserID       string          `json:"user_id"`
		PreviousTier domain.RiskTier `json:"previous_tier"`
		NewTier      domain.RiskTier `json:"new_tier"`
		ChangedBy    string          `json:"changed_by"`
		Reason       string          `json:"reason,omitempty"`
		ChangedAt    time.Time       `json:"changed_at"`
		Metadata     map[string]any  `json:"metadata,omitempty"`
	}{
		UserID:       event.UserID,
		PreviousTier: event.PreviousTier,
		NewTier:      event.NewTier,
		ChangedBy:    event.ChangedBy,
		Reason:       event.Reason,
		ChangedAt:    event.ChangedAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, "risk.profile.tier.changed", event.UserID, event.ChangedAt, payload)
}
