package risk

import "github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"

// maxScore caps the total risk score.
const maxScore = 100

// Aggregate is the combined output of one scoring pass before the decision
// policy is applied.
type Aggregate struct {
	// TotalScore is the capped sum of all rule deltas, in [0,100].
	TotalScore int
	// RawScore is the uncapped sum; equals the breakdown sum.
	RawScore int
	// Capped reports whether the cap was applied.
	Capped bool
	// Confidence is the detection-confidence estimate derived from alert
	// severities, not from the raw score.
	Confidence float64
	Alerts     []domain.Alert
	Breakdown  domain.Breakdown
}

// Evaluate runs every rule against the inputs and aggregates the results.
// Rules are independent, so the total is the order-insensitive sum of their
// deltas; alert ordering follows rule registration order.
func (rs *RuleSet) Evaluate(profile domain.EnrolledProfile, attempt domain.AttemptInput, signals Signals) Aggregate {
	total := 0
	alerts := make([]domain.Alert, 0, 4)
	breakdown := make(domain.Breakdown, len(rs.rules))

	for _, rule := range rs.rules {
		delta, ruleAlerts := rule.Evaluate(profile, attempt, signals)
		total += delta
		alerts = append(alerts, ruleAlerts...)
		breakdown[rule.Category] = delta
	}

	agg := Aggregate{
		TotalScore: total,
		RawScore:   total,
		Alerts:     alerts,
		Breakdown:  breakdown,
		Confidence: confidence(alerts),
	}

	if agg.TotalScore > maxScore {
		agg.TotalScore = maxScore
		agg.Capped = true
	}

	return agg
}

// confidence derives the detection-confidence estimate from alert
// severities. The no-strong-signals baseline still reports 0.92: confidence
// in the absence of fraud, a deliberate compatibility choice with the
// reference calibration.
func confidence(alerts []domain.Alert) float64 {
	critical, warning := 0, 0
	for _, a := range alerts {
		switch a.Severity {
		case domain.SeverityCritical:
			critical++
		case domain.SeverityWarning:
			warning++
		}
	}

	switch {
	case critical >= 2:
		return 0.95
	case critical >= 1:
		return 0.88
	case warning >= 2:
		return 0.82
	default:
		return 0.92
	}
}
