package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EngineMetrics collects evaluation pipeline metrics.
type EngineMetrics struct {
	EvaluationsTotal      *prometheus.CounterVec
	RiskScore             prometheus.Histogram
	ProviderDegradedTotal *prometheus.CounterVec
	NotificationsTotal    *prometheus.CounterVec
	AttemptsPurgedTotal   prometheus.Counter
	EvaluationDuration    prometheus.Histogram
}

// NewEngineMetrics registers evaluation metrics on the default registry.
func NewEngineMetrics() *EngineMetrics {
	return &EngineMetrics{
		EvaluationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "risk",
			Name:      "evaluations_total",
			Help:      "Total number of login attempt evaluations by decision status",
		}, []string{"status"}),
		RiskScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "risk",
			Name:      "score",
			Help:      "Distribution of total risk scores",
			Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		ProviderDegradedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "risk",
			Name:      "provider_degraded_total",
			Help:      "Total number of signal provider lookups degraded to unknown",
		}, []string{"provider"}),
		NotificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "risk",
			Name:      "notifications_total",
			Help:      "Total number of fraud notifications created by priority",
		}, []string{"priority"}),
		AttemptsPurgedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "risk",
			Name:      "attempts_purged_total",
			Help:      "Total number of approved attempt records removed by retention",
		}),
		EvaluationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "risk",
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent evaluating a login attempt",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
