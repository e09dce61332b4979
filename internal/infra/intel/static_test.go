package intel

import (
	"context"
	"testing"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
)

func seededProvider() *StaticProvider {
	return NewStaticProvider(Seed{
		Devices: map[string]domain.DeviceIntel{
			"device-emu": {IsEmulator: true, TrustScore: 5},
		},
		Sims: map[string]domain.SimIntel{
			"sim-clone": {CloneScore: 0.9},
		},
		Patterns: map[string]domain.PatternMatch{
			"device-emu": {Confidence: 0.85},
			"sim-clone":  {Confidence: 0.65},
		},
		Zones: []RiskZone{
			{MinLat: 10, MaxLat: 20, MinLon: 10, MaxLon: 20, Score: 0.5},
			{MinLat: 12, MaxLat: 18, MinLon: 12, MaxLon: 18, Score: 0.9},
		},
		Networks: []string{"10.8.0.0/16", "not-a-cidr"},
	})
}

func TestStaticProviderDeviceLookup(t *testing.T) {
	provider := seededProvider()
	ctx := context.Background()

	intel, err := provider.LookupDevice(ctx, "device-emu")
	if err != nil {
		t.Fatalf("LookupDevice returned error: %v", err)
	}
	if intel == nil || !intel.IsEmulator {
		t.Fatalf("expected emulator intel, got %+v", intel)
	}
	if intel.DeviceID != "device-emu" {
		t.Fatalf("expected device id backfilled, got %q", intel.DeviceID)
	}

	unknown, err := provider.LookupDevice(ctx, "device-clean")
	if err != nil {
		t.Fatalf("LookupDevice returned error: %v", err)
	}
	if unknown != nil {
		t.Fatalf("expected unknown device to yield nil, got %+v", unknown)
	}
}

func TestStaticProviderPatternPicksStrongest(t *testing.T) {
	provider := seededProvider()

	match, err := provider.MatchFraudPattern(context.Background(), "device-emu", "sim-clone")
	if err != nil {
		t.Fatalf("MatchFraudPattern returned error: %v", err)
	}
	if match == nil || match.Confidence != 0.85 {
		t.Fatalf("expected strongest match 0.85, got %+v", match)
	}

	none, err := provider.MatchFraudPattern(context.Background(), "device-x", "sim-y")
	if err != nil {
		t.Fatalf("MatchFraudPattern returned error: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no match, got %+v", none)
	}
}

func TestStaticProviderLocationOverlap(t *testing.T) {
	provider := seededProvider()

	risk, err := provider.AssessLocationRisk(context.Background(), 15, 15)
	if err != nil {
		t.Fatalf("AssessLocationRisk returned error: %v", err)
	}
	if risk == nil || risk.Score != 0.9 {
		t.Fatalf("expected highest overlapping zone score 0.9, got %+v", risk)
	}

	outside, err := provider.AssessLocationRisk(context.Background(), -40, 100)
	if err != nil {
		t.Fatalf("AssessLocationRisk returned error: %v", err)
	}
	if outside != nil {
		t.Fatalf("expected nil outside all zones, got %+v", outside)
	}
}

func TestStaticProviderNetwork(t *testing.T) {
	provider := seededProvider()

	tests := []struct {
		name string
		ip   string
		want *bool
	}{
		{"anonymizing range", "10.8.4.2", boolPtr(true)},
		{"clean address", "203.0.113.7", boolPtr(false)},
		{"unparsable address", "not-an-ip", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			intel, err := provider.AssessNetwork(context.Background(), tc.ip)
			if err != nil {
				t.Fatalf("AssessNetwork returned error: %v", err)
			}
			if tc.want == nil {
				if intel != nil {
					t.Fatalf("expected nil intel, got %+v", intel)
				}
				return
			}
			if intel == nil || intel.AnonymizingNetwork != *tc.want {
				t.Fatalf("expected anonymizing=%v, got %+v", *tc.want, intel)
			}
		})
	}
}

func boolPtr(b bool) *bool { return &b }
