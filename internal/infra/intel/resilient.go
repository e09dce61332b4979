package intel

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/port"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/telemetry"
)

// ResilientProvider bounds every lookup on the wrapped provider with a
// per-call timeout and a fixed number of retries. When the call still fails
// the lookup degrades to unknown (nil, nil) instead of failing the
// evaluation, so a slow upstream can never block a decision.
type ResilientProvider struct {
	inner   port.SignalProvider
	timeout time.Duration
	retries int
	metrics *telemetry.EngineMetrics
	logger  *zap.Logger
}

// NewResilientProvider wraps inner with timeout and retry handling. A
// non-positive timeout defaults to 200ms; negative retries are treated as
// zero.
func NewResilientProvider(inner port.SignalProvider, timeout time.Duration, retries int, metrics *telemetry.EngineMetrics, log *zap.Logger) *ResilientProvider {
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}
	if retries < 0 {
		retries = 0
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &ResilientProvider{
		inner:   inner,
		timeout: timeout,
		retries: retries,
		metrics: metrics,
		logger:  log,
	}
}

// lookup runs fn with the configured timeout, retrying on error. The result
// type parameter keeps the degradation logic in one place for all five
// provider methods.
func lookup[T any](ctx context.Context, p *ResilientProvider, name string, fn func(context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt <= p.retries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		result, err := fn(callCtx)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	p.logger.Warn("signal provider degraded to unknown",
		zap.String("provider", name),
		zap.Int("attempts", p.retries+1),
		zap.Duration("timeout", p.timeout),
		zap.Error(lastErr),
	)
	if p.metrics != nil {
		p.metrics.ProviderDegradedTotal.WithLabelValues(name).Inc()
	}

	return nil, nil
}

func (p *ResilientProvider) LookupDevice(ctx context.Context, deviceID string) (*domain.DeviceIntel, error) {
	return lookup(ctx, p, "device", func(ctx context.Context) (*domain.DeviceIntel, error) {
		return p.inner.LookupDevice(ctx, deviceID)
	})
}

func (p *ResilientProvider) LookupSim(ctx context.Context, userID, simID string) (*domain.SimIntel, error) {
	return lookup(ctx, p, "sim", func(ctx context.Context) (*domain.SimIntel, error) {
		return p.inner.LookupSim(ctx, userID, simID)
	})
}

func (p *ResilientProvider) MatchFraudPattern(ctx context.Context, deviceID, simID string) (*domain.PatternMatch, error) {
	return lookup(ctx, p, "pattern", func(ctx context.Context) (*domain.PatternMatch, error) {
		return p.inner.MatchFraudPattern(ctx, deviceID, simID)
	})
}

func (p *ResilientProvider) AssessLocationRisk(ctx context.Context, lat, lon float64) (*domain.LocationRisk, error) {
	return lookup(ctx, p, "location", func(ctx context.Context) (*domain.LocationRisk, error) {
		return p.inner.AssessLocationRisk(ctx, lat, lon)
	})
}

func (p *ResilientProvider) AssessNetwork(ctx context.Context, ip string) (*domain.NetworkIntel, error) {
	return lookup(ctx, p, "network", func(ctx context.Context) (*domain.NetworkIntel, error) {
		return p.inner.AssessNetwork(ctx, ip)
	})
}
