package risk

import (
	"testing"
	"time"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
)

func baselineProfile() domain.EnrolledProfile {
	return domain.EnrolledProfile{
		UserID:         "user-1",
		DeviceID:       "device-1abc",
		SimID:          "sim-1",
		HomeLat:        12.9716,
		HomeLon:        77.5946,
		KeystrokeSpeed: 170,
		MouseSpeed:     200,
		RiskTier:       domain.RiskTierLow,
		RegisteredAt:   time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
	}
}

func matchingAttempt() domain.AttemptInput {
	return domain.AttemptInput{
		UserID:         "user-1",
		DeviceID:       "device-1abc",
		SimID:          "sim-1",
		Lat:            12.9716,
		Lon:            77.5946,
		KeystrokeSpeed: 170,
		MouseSpeed:     200,
		Timestamp:      time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC),
	}
}

func intPtr(v int) *int { return &v }

func TestDeviceRule(t *testing.T) {
	rs := NewRuleSet(DefaultConfig())
	profile := baselineProfile()

	cases := []struct {
		name         string
		deviceID     string
		intel        *domain.DeviceIntel
		wantScore    int
		wantSeverity domain.Severity
		wantCode     string
	}{
		{"matching device contributes nothing", "device-1abc", nil, 0, "", ""},
		{"unknown device", "device-2xyz", nil, 80, domain.SeverityCritical, "DEVICE_UNKNOWN"},
		{"emulator", "device-2xyz", &domain.DeviceIntel{IsEmulator: true, TrustScore: 25}, 95, domain.SeverityCritical, "DEVICE_EMULATOR"},
		{"rooted", "device-2xyz", &domain.DeviceIntel{IsRooted: true, TrustScore: 25}, 65, domain.SeverityWarning, "DEVICE_ROOTED"},
		{"suspicious history", "device-2xyz", &domain.DeviceIntel{SuspiciousCount: 4, TrustScore: 60}, 60, domain.SeverityWarning, "DEVICE_SUSPICIOUS_HISTORY"},
		{"low trust", "device-2xyz", &domain.DeviceIntel{TrustScore: 20}, 60, domain.SeverityWarning, "DEVICE_UNTRUSTED"},
		{"known change", "device-2xyz", &domain.DeviceIntel{TrustScore: 85}, 35, domain.SeverityInfo, "DEVICE_CHANGED"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attempt := matchingAttempt()
			attempt.DeviceID = tc.deviceID

			score, alerts := rs.deviceRule(profile, attempt, Signals{Device: tc.intel})
			if score != tc.wantScore {
				t.Fatalf("score = %d, want %d", score, tc.wantScore)
			}
			if tc.wantScore == 0 {
				if len(alerts) != 0 {
					t.Fatalf("expected no alerts, got %v", alerts)
				}
				return
			}
			if len(alerts) != 1 {
				t.Fatalf("expected one alert, got %d", len(alerts))
			}
			if alerts[0].Severity != tc.wantSeverity || alerts[0].Code != tc.wantCode {
				t.Fatalf("alert = %s/%s, want %s/%s", alerts[0].Severity, alerts[0].Code, tc.wantSeverity, tc.wantCode)
			}
		})
	}
}

func TestSimRule(t *testing.T) {
	rs := NewRuleSet(DefaultConfig())
	profile := baselineProfile()

	cases := []struct {
		name      string
		simID     string
		intel     *domain.SimIntel
		wantScore int
		wantCodes []string
	}{
		{"matching sim contributes nothing", "sim-1", nil, 0, nil},
		{"changed sim unknown intel", "sim-2", nil, 65, []string{"SIM_CHANGED"}},
		{"first swap", "sim-2", &domain.SimIntel{SwapFrequency: 1}, 65, []string{"SIM_SWAP"}},
		{"multiple swaps", "sim-2", &domain.SimIntel{SwapFrequency: 3}, 90, []string{"SIM_SWAP_MULTIPLE"}},
		{"clone plus first swap", "sim-2", &domain.SimIntel{CloneScore: 0.9, SwapFrequency: 1}, 160, []string{"SIM_CLONE", "SIM_SWAP"}},
		{"dual sim plus first swap", "sim-2", &domain.SimIntel{DualSimDetected: true, SwapFrequency: 0}, 135, []string{"SIM_DUAL", "SIM_SWAP"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attempt := matchingAttempt()
			attempt.SimID = tc.simID

			score, alerts := rs.simRule(profile, attempt, Signals{Sim: tc.intel})
			if score != tc.wantScore {
				t.Fatalf("score = %d, want %d", score, tc.wantScore)
			}
			if len(alerts) != len(tc.wantCodes) {
				t.Fatalf("alerts = %v, want codes %v", alerts, tc.wantCodes)
			}
			for i, code := range tc.wantCodes {
				if alerts[i].Code != code {
					t.Fatalf("alert[%d].Code = %s, want %s", i, alerts[i].Code, code)
				}
			}
		})
	}
}

func TestGeoRule(t *testing.T) {
	rs := NewRuleSet(DefaultConfig())
	profile := baselineProfile()

	cases := []struct {
		name      string
		lat, lon  float64
		location  *domain.LocationRisk
		wantScore int
		wantCode  string
	}{
		{"same location", 12.9716, 77.5946, nil, 0, ""},
		{"impossible travel to new york", 40.7128, -74.0060, nil, 85, "GEO_IMPOSSIBLE_TRAVEL"},
		{"high velocity to mumbai", 19.076, 72.8777, nil, 55, "GEO_HIGH_VELOCITY"},
		{"new location to mysore", 12.2958, 76.6394, nil, 30, "GEO_NEW_LOCATION"},
		{"high risk area at home", 12.9716, 77.5946, &domain.LocationRisk{Score: 0.85}, 60, "GEO_HIGH_RISK_AREA"},
		{"location risk at threshold does not fire", 12.9716, 77.5946, &domain.LocationRisk{Score: 0.7}, 0, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attempt := matchingAttempt()
			attempt.Lat, attempt.Lon = tc.lat, tc.lon

			score, alerts := rs.geoRule(profile, attempt, Signals{Location: tc.location})
			if score != tc.wantScore {
				t.Fatalf("score = %d, want %d", score, tc.wantScore)
			}
			if tc.wantCode == "" {
				if len(alerts) != 0 {
					t.Fatalf("expected no alerts, got %v", alerts)
				}
				return
			}
			if len(alerts) != 1 || alerts[0].Code != tc.wantCode {
				t.Fatalf("alerts = %v, want single %s", alerts, tc.wantCode)
			}
		})
	}
}

func TestBehavioralRule(t *testing.T) {
	rs := NewRuleSet(DefaultConfig())
	profile := baselineProfile()

	cases := []struct {
		name             string
		keystroke, mouse float64
		wantScore        int
		wantCode         string
	}{
		{"matching biometrics", 170, 200, 0, ""},
		{"bot signature short-circuits", 100, 150, 90, "BEHAVIOR_BOT"},
		{"severe deviation", 20, 400, 70, "BEHAVIOR_SEVERE"},
		{"moderate deviation", 110, 150, 40, "BEHAVIOR_MODERATE"},
		{"minor deviation", 140, 170, 20, "BEHAVIOR_MINOR"},
		{"deviation at minor threshold does not fire", 145, 175, 0, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attempt := matchingAttempt()
			attempt.KeystrokeSpeed, attempt.MouseSpeed = tc.keystroke, tc.mouse

			score, alerts := rs.behavioralRule(profile, attempt, Signals{})
			if score != tc.wantScore {
				t.Fatalf("score = %d, want %d", score, tc.wantScore)
			}
			if tc.wantCode != "" && (len(alerts) != 1 || alerts[0].Code != tc.wantCode) {
				t.Fatalf("alerts = %v, want single %s", alerts, tc.wantCode)
			}
		})
	}
}

// A bot signature without a profile deviation must still fire: the constants
// are an exact automation fingerprint, not a distance measure.
func TestBehavioralRuleBotSignatureMatchesExactly(t *testing.T) {
	rs := NewRuleSet(DefaultConfig())
	profile := baselineProfile()
	profile.KeystrokeSpeed = 100
	profile.MouseSpeed = 150

	attempt := matchingAttempt()
	attempt.KeystrokeSpeed = 100
	attempt.MouseSpeed = 150

	score, alerts := rs.behavioralRule(profile, attempt, Signals{})
	if score != 90 || len(alerts) != 1 || alerts[0].Code != "BEHAVIOR_BOT" {
		t.Fatalf("expected bot alert, got score=%d alerts=%v", score, alerts)
	}
}

func TestTemporalRule(t *testing.T) {
	rs := NewRuleSet(DefaultConfig())
	profile := baselineProfile()

	cases := []struct {
		name      string
		hour      int
		stepUps   *int
		wantScore int
	}{
		{"mid-day is quiet", 14, nil, 0},
		{"early morning", 3, nil, 45},
		{"boundary hour five is normal", 5, nil, 0},
		{"rapid attempts", 14, intPtr(6), 50},
		{"rapid attempts at threshold does not fire", 14, intPtr(5), 0},
		{"odd hour and rapid attempts stack", 2, intPtr(7), 95},
		{"unknown window is no evidence", 14, nil, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attempt := matchingAttempt()
			attempt.Timestamp = time.Date(2025, 6, 1, tc.hour, 15, 0, 0, time.UTC)

			score, _ := rs.temporalRule(profile, attempt, Signals{RecentStepUps: tc.stepUps})
			if score != tc.wantScore {
				t.Fatalf("score = %d, want %d", score, tc.wantScore)
			}
		})
	}
}

func TestNetworkRule(t *testing.T) {
	rs := NewRuleSet(DefaultConfig())

	if score, _ := rs.networkRule(baselineProfile(), matchingAttempt(), Signals{}); score != 0 {
		t.Fatalf("unknown network signal must contribute nothing, got %d", score)
	}

	score, alerts := rs.networkRule(baselineProfile(), matchingAttempt(), Signals{
		Network: &domain.NetworkIntel{AnonymizingNetwork: true},
	})
	if score != 40 || len(alerts) != 1 || alerts[0].Code != "NETWORK_ANONYMIZED" {
		t.Fatalf("expected VPN alert with score 40, got score=%d alerts=%v", score, alerts)
	}
}

func TestPatternRule(t *testing.T) {
	rs := NewRuleSet(DefaultConfig())

	cases := []struct {
		name      string
		pattern   *domain.PatternMatch
		wantScore int
		wantCode  string
	}{
		{"unknown pattern signal", nil, 0, ""},
		{"strong match", &domain.PatternMatch{Confidence: 0.85}, 75, "PATTERN_MATCH"},
		{"near match", &domain.PatternMatch{Confidence: 0.7}, 50, "PATTERN_NEAR_MATCH"},
		{"weak confidence ignored", &domain.PatternMatch{Confidence: 0.4}, 0, ""},
		{"boundary 0.8 is near match", &domain.PatternMatch{Confidence: 0.8}, 50, "PATTERN_NEAR_MATCH"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, alerts := rs.patternRule(baselineProfile(), matchingAttempt(), Signals{Pattern: tc.pattern})
			if score != tc.wantScore {
				t.Fatalf("score = %d, want %d", score, tc.wantScore)
			}
			if tc.wantCode != "" && (len(alerts) != 1 || alerts[0].Code != tc.wantCode) {
				t.Fatalf("alerts = %v, want single %s", alerts, tc.wantCode)
			}
		})
	}
}

// Pure rules must be idempotent: identical inputs yield identical outputs.
func TestRulesIdempotent(t *testing.T) {
	rs := NewRuleSet(DefaultConfig())
	profile := baselineProfile()
	attempt := matchingAttempt()
	attempt.DeviceID = "device-2xyz"
	attempt.SimID = "sim-2"
	signals := Signals{
		Sim:     &domain.SimIntel{SwapFrequency: 3, CloneScore: 0.9},
		Pattern: &domain.PatternMatch{Confidence: 0.85},
	}

	for _, rule := range rs.Rules() {
		s1, a1 := rule.Evaluate(profile, attempt, signals)
		s2, a2 := rule.Evaluate(profile, attempt, signals)
		if s1 != s2 || len(a1) != len(a2) {
			t.Fatalf("rule %s not idempotent: (%d,%d alerts) vs (%d,%d alerts)", rule.Category, s1, len(a1), s2, len(a2))
		}
		for i := range a1 {
			if a1[i] != a2[i] {
				t.Fatalf("rule %s alert %d differs between runs", rule.Category, i)
			}
		}
	}
}
