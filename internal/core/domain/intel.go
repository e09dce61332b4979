package domain

import "time"

// DeviceIntel is fraud-intelligence context for a device identifier.
// A nil *DeviceIntel anywhere in the engine means the signal is unknown;
// unknown is "no evidence", never "zero risk".
type DeviceIntel struct {
	DeviceID        string
	TrustScore      float64
	IsEmulator      bool
	IsRooted        bool
	SuspiciousCount int
	FirstSeen       time.Time
	LastSeen        time.Time
}

// SimIntel is fraud-intelligence context for a SIM identifier.
type SimIntel struct {
	SimID           string
	SwapFrequency   int
	CloneScore      float64
	DualSimDetected bool
	FirstRegistered time.Time
	LastUsed        time.Time
}

// PatternMatch is the confidence of a match against known fraud patterns.
type PatternMatch struct {
	Confidence float64
}

// NetworkIntel describes the network the attempt originated from.
type NetworkIntel struct {
	AnonymizingNetwork bool
}

// LocationRisk is a geographic risk assessment in [0,1].
type LocationRisk struct {
	Score float64
}
