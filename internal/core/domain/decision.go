package domain

import "time"

// Status is the access decision for one attempt.
type Status string

const (
	StatusApproved  Status = "APPROVED"
	StatusChallenge Status = "CHALLENGE"
	StatusBlocked   Status = "BLOCKED"
)

// Severity classifies an alert.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// Alert is one explanatory signal emitted by a risk rule. Alerts are
// append-only within a scoring pass and never mutated.
type Alert struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Rule     string   `json:"rule"`
}

// Breakdown maps a rule category to the score it contributed, pre-cap.
// It exists for explainability only and is never re-summed into a total
// different from the aggregator's own.
type Breakdown map[string]int

// Decision is the immutable outcome of scoring one attempt.
type Decision struct {
	Status     Status    `json:"status"`
	TotalScore int       `json:"total_score"`
	Confidence float64   `json:"confidence"`
	Alerts     []Alert   `json:"alerts"`
	Breakdown  Breakdown `json:"breakdown"`
	Capped     bool      `json:"capped"`
}

// CriticalCount returns the number of CRITICAL alerts.
func (d Decision) CriticalCount() int {
	n := 0
	for _, a := range d.Alerts {
		if a.Severity == SeverityCritical {
			n++
		}
	}
	return n
}

// AttemptRecord is the persisted audit trail of a scored attempt: the raw
// input, the full decision, and delivery metadata.
type AttemptRecord struct {
	ID               string
	UserID           string
	DeviceID         string
	SimID            string
	Lat              float64
	Lon              float64
	KeystrokeSpeed   float64
	MouseSpeed       float64
	IP               *string
	UserAgent        *string
	Status           Status
	RiskScore        int
	Confidence       float64
	Alerts           []Alert
	Breakdown        Breakdown
	DistanceFromHome float64
	ResponseTimeMS   int
	NotificationSent bool
	Timestamp        time.Time
}

// NotificationPriority labels a persisted fraud notification.
type NotificationPriority string

const (
	NotificationPriorityCritical NotificationPriority = "CRITICAL"
	NotificationPriorityHigh     NotificationPriority = "HIGH"
	NotificationPriorityMedium   NotificationPriority = "MEDIUM"
)

// PriorityForScore maps a risk score to the notification priority ladder.
func PriorityForScore(score int) NotificationPriority {
	switch {
	case score >= 70:
		return NotificationPriorityCritical
	case score >= 50:
		return NotificationPriorityHigh
	default:
		return NotificationPriorityMedium
	}
}

// Notification is a persisted record of a dispatched fraud alert.
type Notification struct {
	ID       string
	UserID   string
	Method   string
	Content  string
	Type     string
	Priority NotificationPriority
	SentAt   time.Time
}
