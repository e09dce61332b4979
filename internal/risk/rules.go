package risk

import (
	"fmt"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
)

// Risk weights calibrated for banking security. Relative ordering is part of
// the contract: cloning > impossible travel > bot behavior > unknown device >
// multiple swaps > first swap / dual SIM > known device change > moderate
// behavioral deviation.
const (
	weightEmulatorDetected   = 95
	weightSimCloneDetected   = 95
	weightSimSwapMultiple    = 90
	weightBehavioralBot      = 90
	weightImpossibleTravel   = 85
	weightDeviceUnknown      = 80
	weightFraudPatternMatch  = 75
	weightDualSimDetected    = 70
	weightBehavioralSevere   = 70
	weightSimSwapFirst       = 65
	weightRootedDevice       = 65
	weightDeviceSuspicious   = 60
	weightLocationHighRisk   = 60
	weightSuspiciousVelocity = 55
	weightRapidAttempts      = 50
	weightFraudPatternNear   = 50
	weightTimingSuspicious   = 45
	weightVPNProxy           = 40
	weightBehavioralModerate = 40
	weightDeviceKnownChange  = 35
	weightNewLocation        = 30
	weightBehavioralMinor    = 20
)

// Rule category names, used as breakdown keys.
const (
	CategoryDevice     = "device_analysis"
	CategorySim        = "sim_analysis"
	CategoryGeo        = "geospatial_analysis"
	CategoryBehavioral = "behavioral_analysis"
	CategoryTemporal   = "temporal_analysis"
	CategoryNetwork    = "network_analysis"
	CategoryPattern    = "pattern_analysis"
)

// Signals bundles provider results gathered once per evaluation. A nil
// pointer means the signal is unknown; rules treat unknown as no evidence.
type Signals struct {
	Device   *domain.DeviceIntel
	Sim      *domain.SimIntel
	Pattern  *domain.PatternMatch
	Location *domain.LocationRisk
	Network  *domain.NetworkIntel
	// RecentStepUps is the count of blocked or challenged attempts for this
	// user in the trailing window; nil when the window store is unavailable.
	RecentStepUps *int
}

// Config holds the tunable rule thresholds.
type Config struct {
	// BotKeystrokeSpeed and BotMouseSpeed are the exact automation-signature
	// constants the bot rule matches against. Equality against fixed values
	// is a placeholder heuristic carried over from the reference calibration,
	// not a real bot classifier.
	BotKeystrokeSpeed float64
	BotMouseSpeed     float64

	ImpossibleTravelKm float64
	HighVelocityKm     float64
	NewLocationKm      float64

	SevereBehaviorDiff   float64
	ModerateBehaviorDiff float64
	MinorBehaviorDiff    float64

	OddHourBefore int
	OddHourAfter  int

	RapidAttemptThreshold int

	HighRiskLocationScore  float64
	CloneConfidence        float64
	PatternMatchConfidence float64
	PatternNearConfidence  float64
	MultiSwapThreshold     int
	SuspiciousCountLimit   int
	TrustScoreFloor        float64
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		BotKeystrokeSpeed:      100,
		BotMouseSpeed:          150,
		ImpossibleTravelKm:     2000,
		HighVelocityKm:         500,
		NewLocationKm:          50,
		SevereBehaviorDiff:     150,
		ModerateBehaviorDiff:   100,
		MinorBehaviorDiff:      50,
		OddHourBefore:          5,
		OddHourAfter:           23,
		RapidAttemptThreshold:  5,
		HighRiskLocationScore:  0.7,
		CloneConfidence:        0.8,
		PatternMatchConfidence: 0.8,
		PatternNearConfidence:  0.6,
		MultiSwapThreshold:     2,
		SuspiciousCountLimit:   3,
		TrustScoreFloor:        30,
	}
}

// Rule is one independent risk layer. Evaluate is pure: identical inputs
// always yield identical (delta, alerts).
type Rule struct {
	Category string
	Evaluate func(profile domain.EnrolledProfile, attempt domain.AttemptInput, signals Signals) (int, []domain.Alert)
}

// RuleSet is the ordered collection of rule categories. Order affects only
// alert ordering, never the total.
type RuleSet struct {
	cfg   Config
	rules []Rule
}

// NewRuleSet builds the seven reference rule categories with the supplied
// thresholds.
func NewRuleSet(cfg Config) *RuleSet {
	rs := &RuleSet{cfg: cfg}
	rs.rules = []Rule{
		{Category: CategoryDevice, Evaluate: rs.deviceRule},
		{Category: CategorySim, Evaluate: rs.simRule},
		{Category: CategoryGeo, Evaluate: rs.geoRule},
		{Category: CategoryBehavioral, Evaluate: rs.behavioralRule},
		{Category: CategoryTemporal, Evaluate: rs.temporalRule},
		{Category: CategoryNetwork, Evaluate: rs.networkRule},
		{Category: CategoryPattern, Evaluate: rs.patternRule},
	}
	return rs
}

// Rules returns the ordered rule categories.
func (rs *RuleSet) Rules() []Rule {
	return rs.rules
}

func alert(severity domain.Severity, code, rule, format string, args ...any) domain.Alert {
	return domain.Alert{
		Severity: severity,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Rule:     rule,
	}
}

// deviceRule fires only when the attempt's device differs from the enrolled
// one; a matching device contributes zero and no alert.
func (rs *RuleSet) deviceRule(profile domain.EnrolledProfile, attempt domain.AttemptInput, signals Signals) (int, []domain.Alert) {
	if attempt.DeviceID == profile.DeviceID {
		return 0, nil
	}

	intel := signals.Device
	if intel == nil {
		return weightDeviceUnknown, []domain.Alert{
			alert(domain.SeverityCritical, "DEVICE_UNKNOWN", CategoryDevice,
				"Unknown device detected"),
		}
	}

	switch {
	case intel.IsEmulator:
		return weightEmulatorDetected, []domain.Alert{
			alert(domain.SeverityCritical, "DEVICE_EMULATOR", CategoryDevice,
				"Mobile emulator detected"),
		}
	case intel.IsRooted:
		return weightRootedDevice, []domain.Alert{
			alert(domain.SeverityWarning, "DEVICE_ROOTED", CategoryDevice,
				"Rooted/jailbroken device detected"),
		}
	case intel.SuspiciousCount > rs.cfg.SuspiciousCountLimit:
		return weightDeviceSuspicious, []domain.Alert{
			alert(domain.SeverityWarning, "DEVICE_SUSPICIOUS_HISTORY", CategoryDevice,
				"Device with suspicious history (%d incidents)", intel.SuspiciousCount),
		}
	case intel.TrustScore < rs.cfg.TrustScoreFloor:
		return weightDeviceSuspicious, []domain.Alert{
			alert(domain.SeverityWarning, "DEVICE_UNTRUSTED", CategoryDevice,
				"Untrusted device (trust score %.0f)", intel.TrustScore),
		}
	default:
		return weightDeviceKnownChange, []domain.Alert{
			alert(domain.SeverityInfo, "DEVICE_CHANGED", CategoryDevice,
				"Known device change"),
		}
	}
}

// simRule fires only when the SIM identifier changed. Clone, dual-SIM, and
// swap-frequency findings are additive, matching the reference calibration.
func (rs *RuleSet) simRule(profile domain.EnrolledProfile, attempt domain.AttemptInput, signals Signals) (int, []domain.Alert) {
	if attempt.SimID == profile.SimID {
		return 0, nil
	}

	intel := signals.Sim
	if intel == nil {
		return weightSimSwapFirst, []domain.Alert{
			alert(domain.SeverityWarning, "SIM_CHANGED", CategorySim,
				"SIM card changed"),
		}
	}

	score := 0
	var alerts []domain.Alert

	if intel.CloneScore > rs.cfg.CloneConfidence {
		score += weightSimCloneDetected
		alerts = append(alerts, alert(domain.SeverityCritical, "SIM_CLONE", CategorySim,
			"SIM cloning detected (confidence %.2f)", intel.CloneScore))
	}

	if intel.DualSimDetected {
		score += weightDualSimDetected
		alerts = append(alerts, alert(domain.SeverityWarning, "SIM_DUAL", CategorySim,
			"Dual SIM usage detected"))
	}

	if intel.SwapFrequency > rs.cfg.MultiSwapThreshold {
		score += weightSimSwapMultiple
		alerts = append(alerts, alert(domain.SeverityCritical, "SIM_SWAP_MULTIPLE", CategorySim,
			"Multiple SIM swaps (%d times)", intel.SwapFrequency))
	} else {
		score += weightSimSwapFirst
		alerts = append(alerts, alert(domain.SeverityWarning, "SIM_SWAP", CategorySim,
			"SIM swap detected"))
	}

	return score, alerts
}

// geoRule scores distance from the enrolled home location plus the
// provider's geographic risk assessment.
func (rs *RuleSet) geoRule(profile domain.EnrolledProfile, attempt domain.AttemptInput, signals Signals) (int, []domain.Alert) {
	score := 0
	var alerts []domain.Alert

	distance := DistanceKm(profile.HomeLat, profile.HomeLon, attempt.Lat, attempt.Lon)

	switch {
	case distance > rs.cfg.ImpossibleTravelKm:
		score += weightImpossibleTravel
		alerts = append(alerts, alert(domain.SeverityCritical, "GEO_IMPOSSIBLE_TRAVEL", CategoryGeo,
			"Impossible travel %.0fkm", distance))
	case distance > rs.cfg.HighVelocityKm:
		score += weightSuspiciousVelocity
		alerts = append(alerts, alert(domain.SeverityWarning, "GEO_HIGH_VELOCITY", CategoryGeo,
			"High-speed travel %.0fkm", distance))
	case distance > rs.cfg.NewLocationKm:
		score += weightNewLocation
		alerts = append(alerts, alert(domain.SeverityInfo, "GEO_NEW_LOCATION", CategoryGeo,
			"New location %.0fkm away", distance))
	}

	if signals.Location != nil && signals.Location.Score > rs.cfg.HighRiskLocationScore {
		score += weightLocationHighRisk
		alerts = append(alerts, alert(domain.SeverityWarning, "GEO_HIGH_RISK_AREA", CategoryGeo,
			"High-risk geographic area"))
	}

	return score, alerts
}

// behavioralRule compares behavioral biometrics against the enrolled
// baseline. The automation signature short-circuits the deviation bands.
func (rs *RuleSet) behavioralRule(profile domain.EnrolledProfile, attempt domain.AttemptInput, _ Signals) (int, []domain.Alert) {
	if attempt.KeystrokeSpeed == rs.cfg.BotKeystrokeSpeed && attempt.MouseSpeed == rs.cfg.BotMouseSpeed {
		return weightBehavioralBot, []domain.Alert{
			alert(domain.SeverityCritical, "BEHAVIOR_BOT", CategoryBehavioral,
				"Automated/bot behavior detected"),
		}
	}

	keystrokeDiff := abs(profile.KeystrokeSpeed - attempt.KeystrokeSpeed)
	mouseDiff := abs(profile.MouseSpeed - attempt.MouseSpeed)
	totalDiff := keystrokeDiff + mouseDiff

	switch {
	case totalDiff > rs.cfg.SevereBehaviorDiff:
		return weightBehavioralSevere, []domain.Alert{
			alert(domain.SeverityCritical, "BEHAVIOR_SEVERE", CategoryBehavioral,
				"Severe behavioral anomaly"),
		}
	case totalDiff > rs.cfg.ModerateBehaviorDiff:
		return weightBehavioralModerate, []domain.Alert{
			alert(domain.SeverityWarning, "BEHAVIOR_MODERATE", CategoryBehavioral,
				"Moderate behavioral change"),
		}
	case totalDiff > rs.cfg.MinorBehaviorDiff:
		return weightBehavioralMinor, []domain.Alert{
			alert(domain.SeverityInfo, "BEHAVIOR_MINOR", CategoryBehavioral,
				"Minor behavioral variation"),
		}
	}

	return 0, nil
}

// temporalRule flags out-of-hours logins and rapid repeated step-ups.
func (rs *RuleSet) temporalRule(_ domain.EnrolledProfile, attempt domain.AttemptInput, signals Signals) (int, []domain.Alert) {
	score := 0
	var alerts []domain.Alert

	hour := attempt.Timestamp.Hour()
	if hour < rs.cfg.OddHourBefore || hour > rs.cfg.OddHourAfter {
		score += weightTimingSuspicious
		alerts = append(alerts, alert(domain.SeverityWarning, "TEMPORAL_ODD_HOUR", CategoryTemporal,
			"Unusual login time (%02d:xx)", hour))
	}

	if signals.RecentStepUps != nil && *signals.RecentStepUps > rs.cfg.RapidAttemptThreshold {
		score += weightRapidAttempts
		alerts = append(alerts, alert(domain.SeverityWarning, "TEMPORAL_RAPID_ATTEMPTS", CategoryTemporal,
			"Multiple rapid attempts (%d recent)", *signals.RecentStepUps))
	}

	return score, alerts
}

// networkRule flags anonymizing network usage.
func (rs *RuleSet) networkRule(_ domain.EnrolledProfile, _ domain.AttemptInput, signals Signals) (int, []domain.Alert) {
	if signals.Network == nil || !signals.Network.AnonymizingNetwork {
		return 0, nil
	}

	return weightVPNProxy, []domain.Alert{
		alert(domain.SeverityWarning, "NETWORK_ANONYMIZED", CategoryNetwork,
			"VPN/Proxy usage detected"),
	}
}

// patternRule scores matches against known fraud patterns.
func (rs *RuleSet) patternRule(_ domain.EnrolledProfile, _ domain.AttemptInput, signals Signals) (int, []domain.Alert) {
	if signals.Pattern == nil {
		return 0, nil
	}

	confidence := signals.Pattern.Confidence
	switch {
	case confidence > rs.cfg.PatternMatchConfidence:
		return weightFraudPatternMatch, []domain.Alert{
			alert(domain.SeverityCritical, "PATTERN_MATCH", CategoryPattern,
				"Matches known fraud pattern"),
		}
	case confidence > rs.cfg.PatternNearConfidence:
		return weightFraudPatternNear, []domain.Alert{
			alert(domain.SeverityWarning, "PATTERN_NEAR_MATCH", CategoryPattern,
				"Similar to fraud pattern"),
		}
	}

	return 0, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
