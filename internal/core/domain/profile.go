package domain

import (
	"errors"
	"fmt"
	"time"
)

// RiskTier labels an account's standing risk appetite. It is set at
// enrollment and changed only through the audited administrative endpoint.
type RiskTier string

const (
	RiskTierLow    RiskTier = "LOW"
	RiskTierMedium RiskTier = "MEDIUM"
	RiskTierHigh   RiskTier = "HIGH"
)

// Valid reports whether the tier is one of the known values.
func (t RiskTier) Valid() bool {
	switch t {
	case RiskTierLow, RiskTierMedium, RiskTierHigh:
		return true
	}
	return false
}

// EnrolledProfile is a user's registered baseline captured at enrollment.
// UserID is immutable once created; the profile is never overwritten by a
// login attempt.
type EnrolledProfile struct {
	UserID         string
	DeviceID       string
	SimID          string
	HomeLat        float64
	HomeLon        float64
	KeystrokeSpeed float64
	MouseSpeed     float64
	Phone          *string
	Email          *string
	RiskTier       RiskTier
	RegisteredAt   time.Time
	LastLogin      *time.Time
	LoginCount     int
}

// AttemptInput is one authentication attempt. It is constructed per request
// and never stored before scoring.
type AttemptInput struct {
	UserID         string
	DeviceID       string
	SimID          string
	Lat            float64
	Lon            float64
	KeystrokeSpeed float64
	MouseSpeed     float64
	IP             *string
	UserAgent      *string
	Timestamp      time.Time
}

// ErrInvalidInput marks malformed profiles or attempts rejected before scoring.
var ErrInvalidInput = errors.New("invalid input")

func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrInvalidInput, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrInvalidInput, lon)
	}
	return nil
}

// Validate checks the profile's required fields and ranges.
func (p EnrolledProfile) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: profile user id is required", ErrInvalidInput)
	}
	if p.DeviceID == "" {
		return fmt.Errorf("%w: profile device id is required", ErrInvalidInput)
	}
	if p.SimID == "" {
		return fmt.Errorf("%w: profile sim id is required", ErrInvalidInput)
	}
	if err := validateCoordinates(p.HomeLat, p.HomeLon); err != nil {
		return err
	}
	if p.KeystrokeSpeed < 0 {
		return fmt.Errorf("%w: keystroke speed must be non-negative", ErrInvalidInput)
	}
	if p.MouseSpeed < 0 {
		return fmt.Errorf("%w: mouse speed must be non-negative", ErrInvalidInput)
	}
	return nil
}

// Validate checks the attempt's required fields and ranges.
func (a AttemptInput) Validate() error {
	if a.UserID == "" {
		return fmt.Errorf("%w: attempt user id is required", ErrInvalidInput)
	}
	if a.DeviceID == "" {
		return fmt.Errorf("%w: attempt device id is required", ErrInvalidInput)
	}
	if a.SimID == "" {
		return fmt.Errorf("%w: attempt sim id is required", ErrInvalidInput)
	}
	if err := validateCoordinates(a.Lat, a.Lon); err != nil {
		return err
	}
	if a.KeystrokeSpeed < 0 {
		return fmt.Errorf("%w: keystroke speed must be non-negative", ErrInvalidInput)
	}
	if a.MouseSpeed < 0 {
		return fmt.Errorf("%w: mouse speed must be non-negative", ErrInvalidInput)
	}
	return nil
}
