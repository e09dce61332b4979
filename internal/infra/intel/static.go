// Package intel provides the signal provider implementations consumed by the
// evaluation engine: a deterministic static provider backed by seeded
// intelligence tables, a store-backed layer for shared mutable records, and a
// resilience wrapper that degrades slow or failing lookups to unknown.
package intel

import (
	"context"
	"net/netip"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
)

// RiskZone is a rectangular geographic area with an associated risk score.
type RiskZone struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
	Score  float64
}

func (z RiskZone) contains(lat, lon float64) bool {
	return lat >= z.MinLat && lat <= z.MaxLat && lon >= z.MinLon && lon <= z.MaxLon
}

// Seed holds the intelligence tables a StaticProvider answers from.
type Seed struct {
	Devices  map[string]domain.DeviceIntel
	Sims     map[string]domain.SimIntel
	Patterns map[string]domain.PatternMatch
	Zones    []RiskZone
	// Networks lists CIDR prefixes of known anonymizing networks.
	Networks []string
}

// StaticProvider answers lookups from in-memory tables. Identifiers absent
// from the tables yield (nil, nil). The tables are read-only after
// construction, so the provider is safe for concurrent use.
type StaticProvider struct {
	devices  map[string]domain.DeviceIntel
	sims     map[string]domain.SimIntel
	patterns map[string]domain.PatternMatch
	zones    []RiskZone
	networks []netip.Prefix
}

// NewStaticProvider builds a provider from the given seed. Malformed network
// prefixes in the seed are skipped.
func NewStaticProvider(seed Seed) *StaticProvider {
	p := &StaticProvider{
		devices:  make(map[string]domain.DeviceIntel, len(seed.Devices)),
		sims:     make(map[string]domain.SimIntel, len(seed.Sims)),
		patterns: make(map[string]domain.PatternMatch, len(seed.Patterns)),
		zones:    append([]RiskZone(nil), seed.Zones...),
	}

	for id, intel := range seed.Devices {
		intel.DeviceID = id
		p.devices[id] = intel
	}
	for id, intel := range seed.Sims {
		intel.SimID = id
		p.sims[id] = intel
	}
	for id, match := range seed.Patterns {
		p.patterns[id] = match
	}
	for _, cidr := range seed.Networks {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			continue
		}
		p.networks = append(p.networks, prefix)
	}

	return p
}

// LookupDevice returns intelligence for the device, or (nil, nil) when the
// device is not in the tables.
func (p *StaticProvider) LookupDevice(_ context.Context, deviceID string) (*domain.DeviceIntel, error) {
	intel, ok := p.devices[deviceID]
	if !ok {
		return nil, nil
	}
	return &intel, nil
}

// LookupSim returns intelligence for the SIM, or (nil, nil) when unknown.
func (p *StaticProvider) LookupSim(_ context.Context, _ string, simID string) (*domain.SimIntel, error) {
	intel, ok := p.sims[simID]
	if !ok {
		return nil, nil
	}
	return &intel, nil
}

// MatchFraudPattern returns the strongest pattern match recorded against
// either identifier, or (nil, nil) when neither matches.
func (p *StaticProvider) MatchFraudPattern(_ context.Context, deviceID, simID string) (*domain.PatternMatch, error) {
	var best *domain.PatternMatch
	for _, id := range []string{deviceID, simID} {
		match, ok := p.patterns[id]
		if !ok {
			continue
		}
		if best == nil || match.Confidence > best.Confidence {
			m := match
			best = &m
		}
	}
	return best, nil
}

// AssessLocationRisk returns the highest zone score covering the coordinates,
// or (nil, nil) when no zone covers them.
func (p *StaticProvider) AssessLocationRisk(_ context.Context, lat, lon float64) (*domain.LocationRisk, error) {
	var best *domain.LocationRisk
	for _, zone := range p.zones {
		if !zone.contains(lat, lon) {
			continue
		}
		if best == nil || zone.Score > best.Score {
			best = &domain.LocationRisk{Score: zone.Score}
		}
	}
	return best, nil
}

// AssessNetwork reports whether the IP falls inside a known anonymizing
// network. An unparsable or empty IP yields (nil, nil).
func (p *StaticProvider) AssessNetwork(_ context.Context, ip string) (*domain.NetworkIntel, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return nil, nil
	}
	for _, prefix := range p.networks {
		if prefix.Contains(addr) {
			return &domain.NetworkIntel{AnonymizingNetwork: true}, nil
		}
	}
	return &domain.NetworkIntel{AnonymizingNetwork: false}, nil
}
