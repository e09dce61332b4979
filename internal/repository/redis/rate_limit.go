package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	red "github.com/redis/go-redis/v9"
)

const defaultRateLimitPrefix = "ratelimit"

// RateLimitRepository backs the HTTP sliding-window limiter with Redis
// sorted sets. Members are unique per attempt so concurrent requests in the
// same nanosecond are all counted.
type RateLimitRepository struct {
	client *red.Client
	prefix string
}

// NewRateLimitRepository constructs a rate limit store.
func NewRateLimitRepository(client *red.Client, keyPrefix string) *RateLimitRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRateLimitPrefix
	}

	return &RateLimitRepository{client: client, prefix: prefix}
}

func (r *RateLimitRepository) key(identifier string) string {
	return fmt.Sprintf("%s:%s", r.prefix, identifier)
}

// TrimWindow drops attempts older than the window from the set.
func (r *RateLimitRepository) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	if identifier == "" {
		return errors.New("identifier is required")
	}

	threshold := reference.Add(-window).UnixNano()
	if err := r.client.ZRemRangeByScore(ctx, r.key(identifier), "-inf", strconv.FormatInt(threshold, 10)).Err(); err != nil {
		return fmt.Errorf("redis zremrangebyscore: %w", err)
	}
	return nil
}

// CountAttempts returns the number of attempts inside the trailing window.
func (r *RateLimitRepository) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	if identifier == "" {
		return 0, errors.New("identifier is required")
	}

	threshold := strconv.FormatInt(reference.Add(-window).UnixNano(), 10)
	max := strconv.FormatInt(reference.UnixNano(), 10)

	count, err := r.client.ZCount(ctx, r.key(identifier), threshold, max).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}
	return int(count), nil
}

// RecordAttempt appends one attempt at the given instant and refreshes the
// key's expiry to twice the longest plausible window.
func (r *RateLimitRepository) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	if identifier == "" {
		return errors.New("identifier is required")
	}

	key := r.key(identifier)
	member := red.Z{
		Score:  float64(at.UnixNano()),
		Member: fmt.Sprintf("%d:%s", at.UnixNano(), uuid.NewString()),
	}

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, key, member)
	pipe.Expire(ctx, key, 2*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis rate limit record: %w", err)
	}
	return nil
}
