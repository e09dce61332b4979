package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/port"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/telemetry"
)

// RetentionService periodically purges approved attempts older than the
// retention window. Blocked and challenged attempts are kept for
// investigation and are never touched here.
type RetentionService struct {
	attempts  port.AttemptRepository
	retention time.Duration
	schedule  string
	metrics   *telemetry.EngineMetrics
	logger    *zap.Logger

	cron *cron.Cron
	now  func() time.Time
}

// NewRetentionService constructs the sweeper. An empty schedule defaults to
// hourly; a non-positive retention defaults to 24h.
func NewRetentionService(attempts port.AttemptRepository, retention time.Duration, schedule string, metrics *telemetry.EngineMetrics, log *zap.Logger) *RetentionService {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if schedule == "" {
		schedule = "@hourly"
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &RetentionService{
		attempts:  attempts,
		retention: retention,
		schedule:  schedule,
		metrics:   metrics,
		logger:    log,
		now:       time.Now,
	}
}

// Start registers the sweep on the cron schedule and begins running it.
func (s *RetentionService) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("retention sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule retention sweep: %w", err)
	}

	c.Start()
	s.cron = c
	s.logger.Info("retention sweeper started",
		zap.String("schedule", s.schedule),
		zap.Duration("retention", s.retention),
	)

	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *RetentionService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Sweep purges approved attempts older than the retention window and returns
// the number of rows removed.
func (s *RetentionService) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.retention)

	removed, err := s.attempts.PurgeApprovedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge approved attempts: %w", err)
	}

	if removed > 0 {
		s.logger.Info("purged approved attempts",
			zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff),
		)
	}
	if s.metrics != nil {
		s.metrics.AttemptsPurgedTotal.Add(float64(removed))
	}

	return removed, nil
}
