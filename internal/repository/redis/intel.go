package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
)

const (
	defaultIntelPrefix = "intel"

	fieldTrustScore      = "trust_score"
	fieldIsEmulator      = "is_emulator"
	fieldIsRooted        = "is_rooted"
	fieldSuspiciousCount = "suspicious_count"
	fieldFirstSeen       = "first_seen"
	fieldLastSeen        = "last_seen"

	fieldSwapFrequency   = "swap_frequency"
	fieldCloneScore      = "clone_score"
	fieldDualSimDetected = "dual_sim_detected"
	fieldFirstRegistered = "first_registered"
	fieldLastUsed        = "last_used"
)

// IntelRepository keeps shared device and SIM intelligence records in Redis
// hashes. Counter updates go through HIncrBy so concurrent evaluations never
// lose increments to read-modify-write races.
type IntelRepository struct {
	client *red.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewIntelRepository constructs an intelligence store with the provided
// client and key prefix. A zero TTL keeps records indefinitely.
func NewIntelRepository(client *red.Client, keyPrefix string, ttl time.Duration) *IntelRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultIntelPrefix
	}

	return &IntelRepository{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (r *IntelRepository) deviceKey(deviceID string) string {
	return fmt.Sprintf("%s:device:%s", r.prefix, deviceID)
}

func (r *IntelRepository) simKey(simID string) string {
	return fmt.Sprintf("%s:sim:%s", r.prefix, simID)
}

// GetDevice loads a device record, returning (nil, nil) when absent.
func (r *IntelRepository) GetDevice(ctx context.Context, deviceID string) (*domain.DeviceIntel, error) {
	if deviceID == "" {
		return nil, errors.New("device id is required")
	}

	values, err := r.client.HGetAll(ctx, r.deviceKey(deviceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall device: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	intel := &domain.DeviceIntel{DeviceID: deviceID}
	intel.TrustScore = parseFloat(values[fieldTrustScore])
	intel.IsEmulator = values[fieldIsEmulator] == "1"
	intel.IsRooted = values[fieldIsRooted] == "1"
	intel.SuspiciousCount = parseInt(values[fieldSuspiciousCount])
	intel.FirstSeen = parseTime(values[fieldFirstSeen])
	intel.LastSeen = parseTime(values[fieldLastSeen])

	return intel, nil
}

// PutDevice writes the full device record.
func (r *IntelRepository) PutDevice(ctx context.Context, intel domain.DeviceIntel) error {
	if intel.DeviceID == "" {
		return errors.New("device id is required")
	}

	key := r.deviceKey(intel.DeviceID)
	fields := map[string]any{
		fieldTrustScore:      strconv.FormatFloat(intel.TrustScore, 'f', -1, 64),
		fieldIsEmulator:      boolField(intel.IsEmulator),
		fieldIsRooted:        boolField(intel.IsRooted),
		fieldSuspiciousCount: strconv.Itoa(intel.SuspiciousCount),
		fieldFirstSeen:       formatTime(intel.FirstSeen),
		fieldLastSeen:        formatTime(intel.LastSeen),
	}

	if err := r.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis hset device: %w", err)
	}

	return r.touch(ctx, key)
}

// ObserveDevice bumps the sighting counter and last-seen marker atomically,
// creating the record on first sight.
func (r *IntelRepository) ObserveDevice(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return errors.New("device id is required")
	}

	key := r.deviceKey(deviceID)
	now := formatTime(r.now().UTC())

	pipe := r.client.TxPipeline()
	pipe.HIncrBy(ctx, key, "sighting_count", 1)
	pipe.HSet(ctx, key, fieldLastSeen, now)
	pipe.HSetNX(ctx, key, fieldFirstSeen, now)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis observe device: %w", err)
	}

	return nil
}

// GetSim loads a SIM record, returning (nil, nil) when absent.
func (r *IntelRepository) GetSim(ctx context.Context, simID string) (*domain.SimIntel, error) {
	if simID == "" {
		return nil, errors.New("sim id is required")
	}

	values, err := r.client.HGetAll(ctx, r.simKey(simID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall sim: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	intel := &domain.SimIntel{SimID: simID}
	intel.SwapFrequency = parseInt(values[fieldSwapFrequency])
	intel.CloneScore = parseFloat(values[fieldCloneScore])
	intel.DualSimDetected = values[fieldDualSimDetected] == "1"
	intel.FirstRegistered = parseTime(values[fieldFirstRegistered])
	intel.LastUsed = parseTime(values[fieldLastUsed])

	return intel, nil
}

// PutSim writes the full SIM record.
func (r *IntelRepository) PutSim(ctx context.Context, intel domain.SimIntel) error {
	if intel.SimID == "" {
		return errors.New("sim id is required")
	}

	key := r.simKey(intel.SimID)
	fields := map[string]any{
		fieldSwapFrequency:   strconv.Itoa(intel.SwapFrequency),
		fieldCloneScore:      strconv.FormatFloat(intel.CloneScore, 'f', -1, 64),
		fieldDualSimDetected: boolField(intel.DualSimDetected),
		fieldFirstRegistered: formatTime(intel.FirstRegistered),
		fieldLastUsed:        formatTime(intel.LastUsed),
	}

	if err := r.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis hset sim: %w", err)
	}

	return r.touch(ctx, key)
}

// ObserveSimSwap atomically increments the swap frequency and returns the new
// value. HIncrBy makes the update race-free across instances.
func (r *IntelRepository) ObserveSimSwap(ctx context.Context, simID string) (int, error) {
	if simID == "" {
		return 0, errors.New("sim id is required")
	}

	key := r.simKey(simID)
	now := formatTime(r.now().UTC())

	pipe := r.client.TxPipeline()
	incr := pipe.HIncrBy(ctx, key, fieldSwapFrequency, 1)
	pipe.HSet(ctx, key, fieldLastUsed, now)
	pipe.HSetNX(ctx, key, fieldFirstRegistered, now)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis observe sim swap: %w", err)
	}

	return int(incr.Val()), nil
}

func (r *IntelRepository) touch(ctx context.Context, key string) error {
	if r.ttl <= 0 {
		return nil
	}
	if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis expire: %w", err)
	}
	return nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(value string) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
