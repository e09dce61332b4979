package intel

import (
	"context"

	"go.uber.org/zap"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/port"
)

// StoreBackedProvider layers the shared intelligence store over an upstream
// provider. Device and SIM lookups hit the store first so that observed
// mutations (swap counters, sighting counts) are visible to every instance;
// misses fall through to the upstream provider and the result is written back.
// Pattern, location, and network lookups pass straight through.
type StoreBackedProvider struct {
	upstream port.SignalProvider
	store    port.IntelStore
	logger   *zap.Logger
}

// NewStoreBackedProvider wires the store in front of upstream.
func NewStoreBackedProvider(upstream port.SignalProvider, store port.IntelStore, log *zap.Logger) *StoreBackedProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &StoreBackedProvider{
		upstream: upstream,
		store:    store,
		logger:   log,
	}
}

func (p *StoreBackedProvider) LookupDevice(ctx context.Context, deviceID string) (*domain.DeviceIntel, error) {
	cached, err := p.store.GetDevice(ctx, deviceID)
	if err != nil {
		p.logger.Warn("intel store device read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	intel, err := p.upstream.LookupDevice(ctx, deviceID)
	if err != nil || intel == nil {
		return intel, err
	}

	if err := p.store.PutDevice(ctx, *intel); err != nil {
		p.logger.Warn("intel store device write failed", zap.Error(err))
	}
	return intel, nil
}

func (p *StoreBackedProvider) LookupSim(ctx context.Context, userID, simID string) (*domain.SimIntel, error) {
	cached, err := p.store.GetSim(ctx, simID)
	if err != nil {
		p.logger.Warn("intel store sim read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	intel, err := p.upstream.LookupSim(ctx, userID, simID)
	if err != nil || intel == nil {
		return intel, err
	}

	if err := p.store.PutSim(ctx, *intel); err != nil {
		p.logger.Warn("intel store sim write failed", zap.Error(err))
	}
	return intel, nil
}

func (p *StoreBackedProvider) MatchFraudPattern(ctx context.Context, deviceID, simID string) (*domain.PatternMatch, error) {
	return p.upstream.MatchFraudPattern(ctx, deviceID, simID)
}

func (p *StoreBackedProvider) AssessLocationRisk(ctx context.Context, lat, lon float64) (*domain.LocationRisk, error) {
	return p.upstream.AssessLocationRisk(ctx, lat, lon)
}

func (p *StoreBackedProvider) AssessNetwork(ctx context.Context, ip string) (*domain.NetworkIntel, error) {
	return p.upstream.AssessNetwork(ctx, ip)
}
