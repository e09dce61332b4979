package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

type fakeRateLimitStore struct {
	trimErr   error
	count     int
	countErr  error
	recordErr error

	trimmedKeys []string
	countedKeys []string
	recordedKey string
	recordCalls int
}

func (f *fakeRateLimitStore) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	f.trimmedKeys = append(f.trimmedKeys, identifier)
	return f.trimErr
}

func (f *fakeRateLimitStore) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	f.countedKeys = append(f.countedKeys, identifier)
	return f.count, f.countErr
}

func (f *fakeRateLimitStore) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	f.recordedKey = identifier
	f.recordCalls++
	return f.recordErr
}

func newRateLimitRouter(limiter *RateLimiter, rule RateLimitRule) *gin.Engine {
	router := gin.New()
	router.Use(limiter.RateLimit(rule))
	router.POST("/evaluate", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func staticIdentifier(id string) IdentifierFunc {
	return func(*gin.Context) (string, bool) {
		return id, true
	}
}

func TestRateLimiterAllowsWhenBelowLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	store := &fakeRateLimitStore{count: 2}

	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })
	router := newRateLimitRouter(limiter, RateLimitRule{
		Name:       "evaluate_ip",
		Limit:      5,
		Window:     time.Minute,
		Identifier: staticIdentifier("192.0.2.1"),
	})

	req := httptest.NewRequest(http.MethodPost, "/evaluate", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if store.recordCalls != 1 {
		t.Fatalf("expected record attempt to be called once, got %d", store.recordCalls)
	}
	if store.recordedKey != "evaluate_ip:192.0.2.1" {
		t.Fatalf("unexpected storage key %q", store.recordedKey)
	}
}

func TestRateLimiterBlocksAtLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := &fakeRateLimitStore{count: 5}
	limiter := NewRateLimiter(store, zaptest.NewLogger(t))
	router := newRateLimitRouter(limiter, RateLimitRule{
		Name:       "evaluate_ip",
		Limit:      5,
		Window:     time.Minute,
		Identifier: staticIdentifier("192.0.2.1"),
	})

	req := httptest.NewRequest(http.MethodPost, "/evaluate", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if store.recordCalls != 0 {
		t.Fatalf("expected no record on rejected request, got %d", store.recordCalls)
	}
	if got := rr.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After 60, got %q", got)
	}
}

func TestRateLimiterDegradesOpenOnStoreFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := &fakeRateLimitStore{countErr: context.DeadlineExceeded}
	limiter := NewRateLimiter(store, zaptest.NewLogger(t))
	router := newRateLimitRouter(limiter, RateLimitRule{
		Name:       "evaluate_ip",
		Limit:      5,
		Window:     time.Minute,
		Identifier: staticIdentifier("192.0.2.1"),
	})

	req := httptest.NewRequest(http.MethodPost, "/evaluate", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 when the store is unavailable, got %d", rr.Code)
	}
}

func TestRateLimiterSkipsWithoutIdentifier(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := &fakeRateLimitStore{count: 100}
	limiter := NewRateLimiter(store, zaptest.NewLogger(t))
	router := newRateLimitRouter(limiter, RateLimitRule{
		Name:   "evaluate_ip",
		Limit:  5,
		Window: time.Minute,
		Identifier: func(*gin.Context) (string, bool) {
			return "", false
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/evaluate", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(store.countedKeys) != 0 {
		t.Fatalf("expected store untouched, counted %v", store.countedKeys)
	}
}
