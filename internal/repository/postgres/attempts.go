package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/domain"
)

// AttemptRepository implements port.AttemptRepository using PostgreSQL.
// Alerts and breakdown are stored as JSONB so the audit row carries the full
// explainability payload.
type AttemptRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAttemptRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAttemptRepository(exec pgExecutor) *AttemptRepository {
	repo := &AttemptRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *AttemptRepository) WithTx(tx pgx.Tx) *AttemptRepository {
	if tx == nil {
		return r
	}
	return &AttemptRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Record persists a scored attempt.
func (r *AttemptRepository) Record(ctx context.Context, record domain.AttemptRecord) error {
	alertsJSON, err := json.Marshal(record.Alerts)
	if err != nil {
		return fmt.Errorf("marshal alerts: %w", err)
	}

	breakdownJSON, err := json.Marshal(record.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}

	var ipValue any
	if record.IP != nil && *record.IP != "" {
		ipValue = *record.IP
	}

	var userAgentValue any
	if record.UserAgent != nil && *record.UserAgent != "" {
		userAgentValue = *record.UserAgent
	}

	query := r.builder.Insert("risk.attempts").
		Columns(
			"id",
			"user_id",
			"device_id",
			"sim_id",
			"lat",
			"lon",
			"keystroke_speed",
			"mouse_speed",
			"ip",
			"user_agent",
			"status",
			"risk_score",
			"confidence",
			"alerts",
			"breakdown",
			"distance_from_home",
			"response_time_ms",
			"notification_sent",
			"created_at",
		).
		Values(
			record.ID,
			record.UserID,
			record.DeviceID,
			record.SimID,
			record.Lat,
			record.Lon,
			record.KeystrokeSpeed,
			record.MouseSpeed,
			ipValue,
			userAgentValue,
			record.Status,
			record.RiskScore,
			record.Confidence,
			alertsJSON,
			breakdownJSON,
			record.DistanceFromHome,
			record.ResponseTimeMS,
			record.NotificationSent,
			record.Timestamp,
		)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert attempt sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	return nil
}

// ListByUser returns the user's most recent attempts, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AttemptRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	stmt, args, err := r.builder.
		Select(
			"id",
			"user_id",
			"device_id",
			"sim_id",
			"lat",
			"lon",
			"keystroke_speed",
			"mouse_speed",
			"ip",
			"user_agent",
			"status",
			"risk_score",
			"confidence",
			"alerts",
			"breakdown",
			"distance_from_home",
			"response_time_ms",
			"notification_sent",
			"created_at",
		).
		From("risk.attempts").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list attempts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var records []domain.AttemptRecord
	for rows.Next() {
		record, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}

	return records, nil
}

func scanAttempt(row pgx.Row) (domain.AttemptRecord, error) {
	var (
		record        domain.AttemptRecord
		ip            *string
		userAgent     *string
		alertsJSON    []byte
		breakdownJSON []byte
	)

	if err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.DeviceID,
		&record.SimID,
		&record.Lat,
		&record.Lon,
		&record.KeystrokeSpeed,
		&record.MouseSpeed,
		&ip,
		&userAgent,
		&record.Status,
		&record.RiskScore,
		&record.Confidence,
		&alertsJSON,
		&breakdownJSON,
		&record.DistanceFromHome,
		&record.ResponseTimeMS,
		&record.NotificationSent,
		&record.Timestamp,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AttemptRecord{}, pgx.ErrNoRows
		}
		return domain.AttemptRecord{}, fmt.Errorf("scan attempt: %w", err)
	}

	record.IP = ip
	record.UserAgent = userAgent

	if len(alertsJSON) > 0 {
		if err := json.Unmarshal(alertsJSON, &record.Alerts); err != nil {
			return domain.AttemptRecord{}, fmt.Errorf("unmarshal alerts: %w", err)
		}
	}
	if len(breakdownJSON) > 0 {
		if err := json.Unmarshal(breakdownJSON, &record.Breakdown); err != nil {
			return domain.AttemptRecord{}, fmt.Errorf("unmarshal breakdown: %w", err)
		}
	}

	return record, nil
}

// CountByStatus returns attempt totals grouped by decision status.
func (r *AttemptRepository) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	stmt, args, err := r.builder.
		Select("status", "COUNT(*)").
		From("risk.attempts").
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count attempts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempt counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var (
			status domain.Status
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan attempt count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt counts: %w", err)
	}

	return counts, nil
}

// PurgeApprovedBefore deletes approved attempts older than cutoff and returns
// the number of rows removed. Blocked and challenged attempts are never
// purged here.
func (r *AttemptRepository) PurgeApprovedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	stmt, args, err := r.builder.
		Delete("risk.attempts").
		Where(squirrel.Eq{"status": domain.StatusApproved}).
		Where(squirrel.Lt{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge attempts sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("purge attempts: %w", err)
	}

	return tag.RowsAffected(), nil
}
