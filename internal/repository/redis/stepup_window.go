package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
)

const defaultStepUpPrefix = "stepup"

// StepUpWindowRepository tracks challenged and blocked outcomes per user in
// Redis sorted sets, scored by timestamp. Approved outcomes are not recorded;
// the rapid-attempts rule only cares about adverse outcomes inside the
// trailing window.
type StepUpWindowRepository struct {
	client *red.Client
	prefix string
	ttl    time.Duration
}

// NewStepUpWindowRepository constructs a window store. TTL should comfortably
// exceed the largest configured window so entries expire on their own.
func NewStepUpWindowRepository(client *red.Client, keyPrefix string, ttl time.Duration) *StepUpWindowRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultStepUpPrefix
	}

	return &StepUpWindowRepository{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *StepUpWindowRepository) key(userID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, userID)
}

// RecordOutcome stores the outcome timestamp when the attempt was challenged
// or blocked. Approved outcomes are a no-op.
func (r *StepUpWindowRepository) RecordOutcome(ctx context.Context, userID string, status domain.Status, at time.Time) error {
	if userID == "" {
		return errors.New("user id is required")
	}
	if status == domain.StatusApproved {
		return nil
	}

	key := r.key(userID)
	member := red.Z{Score: float64(at.UnixNano()), Member: at.UnixNano()}

	if err := r.client.ZAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}

	if r.ttl > 0 {
		if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
			return fmt.Errorf("redis expire: %w", err)
		}
	}

	return nil
}

// CountRecent returns how many adverse outcomes fall inside the window ending
// at reference time. Entries older than the window are trimmed as a side
// effect to keep the set bounded.
func (r *StepUpWindowRepository) CountRecent(ctx context.Context, userID string, window time.Duration, reference time.Time) (int, error) {
	if userID == "" {
		return 0, errors.New("user id is required")
	}
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	key := r.key(userID)
	threshold := fmt.Sprintf("%f", float64(reference.Add(-window).UnixNano()))
	max := fmt.Sprintf("%f", float64(reference.UnixNano()))

	if err := r.client.ZRemRangeByScore(ctx, key, "-inf", threshold).Err(); err != nil {
		return 0, fmt.Errorf("redis zremrangebyscore: %w", err)
	}

	count, err := r.client.ZCount(ctx, key, threshold, max).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}

	return int(count), nil
}
