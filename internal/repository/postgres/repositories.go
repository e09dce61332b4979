package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Profiles      *ProfileRepository
	Attempts      *AttemptRepository
	Notifications *NotificationRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Profiles:      NewProfileRepository(pool),
		Attempts:      NewAttemptRepository(pool),
		Notifications: NewNotificationRepository(pool),
	}
}
