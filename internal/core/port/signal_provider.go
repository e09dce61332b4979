package port

import (
	"context"
	"time"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
)

// SignalProvider is the capability set over external fraud-intelligence
// lookups. Every method returns (nil, nil) when the signal cannot be
// determined; callers must treat that as "no evidence", never as "zero
// risk". Implementations must not fabricate confident values and must not
// introduce randomness into the decision path.
type SignalProvider interface {
	LookupDevice(ctx context.Context, deviceID string) (*domain.DeviceIntel, error)
	LookupSim(ctx context.Context, userID, simID string) (*domain.SimIntel, error)
	MatchFraudPattern(ctx context.Context, deviceID, simID string) (*domain.PatternMatch, error)
	AssessLocationRisk(ctx context.Context, lat, lon float64) (*domain.LocationRisk, error)
	AssessNetwork(ctx context.Context, ip string) (*domain.NetworkIntel, error)
}

// IntelStore is the shared mutable intelligence record keyed by device and
// SIM identifiers. Read-then-write updates (swap frequency, sighting
// counters) must be atomic per key; implementations use single-command or
// transactional updates, never a read-modify-write across two calls.
type IntelStore interface {
	GetDevice(ctx context.Context, deviceID string) (*domain.DeviceIntel, error)
	PutDevice(ctx context.Context, intel domain.DeviceIntel) error
	// ObserveDevice bumps the device's last-seen marker and sighting counter
	// atomically, creating the record on first sight.
	ObserveDevice(ctx context.Context, deviceID string) error

	GetSim(ctx context.Context, simID string) (*domain.SimIntel, error)
	PutSim(ctx context.Context, intel domain.SimIntel) error
	// ObserveSimSwap atomically increments the SIM's swap frequency and
	// returns the new value. This is the write-through mutation performed
	// once per evaluation when the attempt's SIM differs from the profile's.
	ObserveSimSwap(ctx context.Context, simID string) (int, error)
}

// StepUpWindowStore tracks blocked and challenged outcomes in a trailing
// window, feeding the rapid-attempts rule.
type StepUpWindowStore interface {
	RecordOutcome(ctx context.Context, userID string, status domain.Status, at time.Time) error
	CountRecent(ctx context.Context, userID string, window time.Duration, reference time.Time) (int, error)
}
