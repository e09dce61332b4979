package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/repository"
)

// ProfileRepository implements port.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewProfileRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewProfileRepository(exec pgExecutor) *ProfileRepository {
	repo := &ProfileRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *ProfileRepository) WithTx(tx pgx.Tx) *ProfileRepository {
	if tx == nil {
		return r
	}
	return &ProfileRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new enrolled profile row.
func (r *ProfileRepository) Create(ctx context.Context, profile domain.EnrolledProfile) error {
	var phoneValue any
	if profile.Phone != nil && *profile.Phone != "" {
		phoneValue = *profile.Phone
	}

	var emailValue any
	if profile.Email != nil && *profile.Email != "" {
		emailValue = *profile.Email
	}

	query := r.builder.Insert("risk.profiles").
		Columns(
			"user_id",
			"device_id",
			"sim_id",
			"home_lat",
			"home_lon",
			"keystroke_speed",
			"mouse_speed",
			"phone",
			"email",
			"risk_tier",
			"registered_at",
			"last_login",
			"login_count",
		).
		Values(
			profile.UserID,
			profile.DeviceID,
			profile.SimID,
			profile.HomeLat,
			profile.HomeLon,
			profile.KeystrokeSpeed,
			profile.MouseSpeed,
			phoneValue,
			emailValue,
			profile.RiskTier,
			profile.RegisteredAt,
			profile.LastLogin,
			profile.LoginCount,
		)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert profile sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}

	return nil
}

// GetByUserID retrieves an enrolled profile by user identifier.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.EnrolledProfile, error) {
	stmt, args, err := r.builder.
		Select(
			"user_id",
			"device_id",
			"sim_id",
			"home_lat",
			"home_lon",
			"keystroke_speed",
			"mouse_speed",
			"phone",
			"email",
			"risk_tier",
			"registered_at",
			"last_login",
			"login_count",
		).
		From("risk.profiles").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select profile sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		phone     sql.NullString
		email     sql.NullString
		lastLogin *time.Time
		profile   domain.EnrolledProfile
	)

	if err := row.Scan(
		&profile.UserID,
		&profile.DeviceID,
		&profile.SimID,
		&profile.HomeLat,
		&profile.HomeLon,
		&profile.KeystrokeSpeed,
		&profile.MouseSpeed,
		&phone,
		&email,
		&profile.RiskTier,
		&profile.RegisteredAt,
		&lastLogin,
		&profile.LoginCount,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	if phone.Valid {
		profile.Phone = &phone.String
	}
	if email.Valid {
		profile.Email = &email.String
	}
	profile.LastLogin = lastLogin

	return &profile, nil
}

// UpdateRiskTier updates the account's risk tier. The change is recorded in
// the tier audit table within the same statement batch.
func (r *ProfileRepository) UpdateRiskTier(ctx context.Context, userID string, tier domain.RiskTier, changedBy string) error {
	stmt, args, err := r.builder.
		Update("risk.profiles").
		Set("risk_tier", tier).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update risk tier sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update risk tier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	auditStmt, auditArgs, err := r.builder.
		Insert("risk.tier_changes").
		Columns("user_id", "new_tier", "changed_by", "changed_at").
		Values(userID, tier, changedBy, time.Now().UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build tier audit sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, auditStmt, auditArgs...); err != nil {
		return fmt.Errorf("insert tier audit: %w", err)
	}

	return nil
}

// RecordLogin bumps last_login and login_count after an approved attempt.
func (r *ProfileRepository) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	stmt, args, err := r.builder.
		Update("risk.profiles").
		Set("last_login", at).
		Set("login_count", squirrel.Expr("login_count + 1")).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build record login sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
