package intel

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
)

// LoadSeed reads a seed file in JSON form. An empty path returns an empty
// seed, which makes every lookup answer unknown.
func LoadSeed(path string) (Seed, error) {
	if path == "" {
		return Seed{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read intel seed: %w", err)
	}

	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("parse intel seed: %w", err)
	}

	return seed, nil
}

// DemoSeed returns a small deterministic intelligence table used when no
// seed file is configured. The entries cover each class of adverse signal so
// local runs exercise every rule.
func DemoSeed() Seed {
	return Seed{
		Devices: map[string]domain.DeviceIntel{
			"device-emulator-01": {IsEmulator: true, TrustScore: 5},
			"device-rooted-01":   {IsRooted: true, TrustScore: 20},
			"device-flagged-01":  {SuspiciousCount: 7, TrustScore: 35},
			"device-lowtrust-01": {TrustScore: 12},
		},
		Sims: map[string]domain.SimIntel{
			"sim-cloned-01": {CloneScore: 0.93},
			"sim-dual-01":   {DualSimDetected: true},
			"sim-churn-01":  {SwapFrequency: 4},
		},
		Patterns: map[string]domain.PatternMatch{
			"device-emulator-01": {Confidence: 0.91},
			"sim-cloned-01":      {Confidence: 0.67},
		},
		Zones: []RiskZone{
			// Known high-fraud corridor used in drills.
			{MinLat: 4.0, MaxLat: 14.0, MinLon: 2.0, MaxLon: 15.0, Score: 0.85},
		},
		Networks: []string{
			"185.220.100.0/22",
			"199.249.230.0/23",
		},
	}
}
