package port

import (
	"context"
	"time"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
)

// AttemptRepository persists scored attempts. Record must be at-least-once
// durable before returning nil; the engine does not retry internally and a
// failure never invalidates the decision already computed.
type AttemptRepository interface {
	Record(ctx context.Context, record domain.AttemptRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.AttemptRecord, error)
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
	PurgeApprovedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationRepository persists dispatched fraud notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification domain.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
}
