package domain

import "time"

// FraudAlertEvent represents the payload for risk.attempt.blocked messages.
type FraudAlertEvent struct {
	EventID    string
	AttemptID  string
	UserID     string
	RiskScore  int
	Confidence float64
	Alerts     []Alert
	Priority   NotificationPriority
	DetectedAt time.Time
	Metadata   map[string]any
}

// AttemptEvaluatedEvent represents the payload for risk.attempt.evaluated messages.
type AttemptEvaluatedEvent struct {
	EventID     string
	AttemptID   string
	UserID      string
	Status      Status
	RiskScore   int
	Confidence  float64
	AlertCount  int
	EvaluatedAt time.Time
	Metadata    map[string]any
}

// ProfileEnrolledEvent represents the payload for risk.profile.enrolled messages.
type ProfileEnrolledEvent struct {
	EventID    string
	UserID     string
	DeviceID   string
	SimID      string
	RiskTier   RiskTier
	EnrolledAt time.Time
	Metadata   map[string]any
}

// RiskTierChangedEvent represents the payload for risk.profile.tier.changed messages.
type RiskTierChangedEvent struct {
	EventID      string
	UserID       string
	PreviousTier RiskTier
	NewTier      RiskTier
	ChangedBy    string
	Reason       string
	ChangedAt    time.Time
	Metadata     map[string]any
}
