// Package postgres provides pgx-backed persistence for connections and daily metrics.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guddu1cse/health-sync-engine/internal/domain"
	"github.com/guddu1cse/health-sync-engine/internal/observability"
)

// ConnectionRepository implements domain.ConnectionRepository on a pgx pool.
type ConnectionRepository struct {
	pool *pgxpool.Pool
}

// NewConnectionRepository constructs a ConnectionRepository.
func NewConnectionRepository(pool *pgxpool.Pool) *ConnectionRepository {
	return &ConnectionRepository{pool: pool}
}

const connectionColumns = `id, user_id, provider, access_token, refresh_token, status, sync_status,
        last_synced_at, last_sync_duration_ms, error_message, sync_retry_count, created_at, updated_at`

// FindByUserAndProvider looks up the one connection for a user+provider pair.
// Returns (nil, nil) when no row matches.
func (r *ConnectionRepository) FindByUserAndProvider(ctx context.Context, userID string, provider domain.Provider) (*domain.Connection, error) {
	const query = `SELECT ` + connectionColumns + `
        FROM user_health_connections WHERE user_id=$1 AND provider=$2`

	row := r.pool.QueryRow(ctx, query, userID, string(provider))
	conn, err := scanConnection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return conn, nil
}

// ListByStatus returns all connections with the given connectivity status.
func (r *ConnectionRepository) ListByStatus(ctx context.Context, status domain.ConnectionStatus) ([]domain.Connection, error) {
	const query = `SELECT ` + connectionColumns + `
        FROM user_health_connections WHERE status=$1 ORDER BY user_id, provider`

	rows, err := r.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *conn)
	}
	return results, rows.Err()
}

// Update writes the mutable sync-state and credential fields of a connection.
func (r *ConnectionRepository) Update(ctx context.Context, conn *domain.Connection) error {
	const stmt = `UPDATE user_health_connections
        SET access_token=$2, refresh_token=$3, status=$4, sync_status=$5, last_synced_at=$6,
            last_sync_duration_ms=$7, error_message=$8, sync_retry_count=$9, updated_at=$10
        WHERE id=$1`

	tag, err := r.pool.Exec(ctx, stmt,
		conn.ID,
		conn.AccessToken,
		conn.RefreshToken,
		string(conn.Status),
		string(conn.SyncStatus),
		conn.LastSyncedAt,
		conn.LastSyncDurationMillis,
		conn.ErrorMessage,
		conn.SyncRetryCount,
		conn.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Create inserts a new connection row.
func (r *ConnectionRepository) Create(ctx context.Context, conn *domain.Connection) error {
	const stmt = `INSERT INTO user_health_connections
        (id, user_id, provider, access_token, refresh_token, status, sync_status,
         last_synced_at, last_sync_duration_ms, error_message, sync_retry_count, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	_, err := r.pool.Exec(ctx, stmt,
		conn.ID,
		conn.UserID,
		string(conn.Provider),
		conn.AccessToken,
		conn.RefreshToken,
		string(conn.Status),
		string(conn.SyncStatus),
		conn.LastSyncedAt,
		conn.LastSyncDurationMillis,
		conn.ErrorMessage,
		conn.SyncRetryCount,
		conn.CreatedAt,
		conn.UpdatedAt,
	)
	return err
}

// MetricRepository implements domain.MetricRepository on a pgx pool.
type MetricRepository struct {
	pool *pgxpool.Pool
}

// NewMetricRepository constructs a MetricRepository.
func NewMetricRepository(pool *pgxpool.Pool) *MetricRepository {
	return &MetricRepository{pool: pool}
}

const metricColumns = `id, user_id, metric_date, source_provider, steps, calories, distance,
        active_minutes, heart_rate, blood_oxygen, created_at, updated_at`

// FindByUserDateProvider looks up the one metric row for the idempotency key.
// Returns (nil, nil) when no row matches.
func (r *MetricRepository) FindByUserDateProvider(ctx context.Context, userID string, date time.Time, provider domain.Provider) (*domain.DailyMetric, error) {
	const query = `SELECT ` + metricColumns + `
        FROM health_metrics_daily WHERE user_id=$1 AND metric_date=$2 AND source_provider=$3`

	row := r.pool.QueryRow(ctx, query, userID, date, string(provider))
	metric, err := scanMetric(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return metric, nil
}

// Create inserts a new daily metric row.
func (r *MetricRepository) Create(ctx context.Context, metric *domain.DailyMetric) error {
	const stmt = `INSERT INTO health_metrics_daily
        (id, user_id, metric_date, source_provider, steps, calories, distance,
         active_minutes, heart_rate, blood_oxygen, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

	_, err := r.pool.Exec(ctx, stmt,
		metric.ID,
		metric.UserID,
		metric.Date,
		string(metric.Provider),
		metric.Steps,
		metric.Calories,
		metric.Distance,
		metric.ActiveMinutes,
		metric.HeartRate,
		metric.BloodOxygen,
		metric.CreatedAt,
		metric.UpdatedAt,
	)
	if err != nil {
		return err
	}
	observability.RecordMetricPersisted(metric.UpdatedAt)
	return nil
}

// Update replaces the measure fields of an existing daily metric row.
// created_at is deliberately left out of the statement.
func (r *MetricRepository) Update(ctx context.Context, metric *domain.DailyMetric) error {
	const stmt = `UPDATE health_metrics_daily
        SET steps=$2, calories=$3, distance=$4, active_minutes=$5, heart_rate=$6, blood_oxygen=$7, updated_at=$8
        WHERE id=$1`

	tag, err := r.pool.Exec(ctx, stmt,
		metric.ID,
		metric.Steps,
		metric.Calories,
		metric.Distance,
		metric.ActiveMinutes,
		metric.HeartRate,
		metric.BloodOxygen,
		metric.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	observability.RecordMetricPersisted(metric.UpdatedAt)
	return nil
}

func scanConnection(row pgx.Row) (*domain.Connection, error) {
	var conn domain.Connection
	var provider, status, syncStatus string
	if err := row.Scan(
		&conn.ID,
		&conn.UserID,
		&provider,
		&conn.AccessToken,
		&conn.RefreshToken,
		&status,
		&syncStatus,
		&conn.LastSyncedAt,
		&conn.LastSyncDurationMillis,
		&conn.ErrorMessage,
		&conn.SyncRetryCount,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	); err != nil {
		return nil, err
	}
	conn.Provider = domain.Provider(provider)
	conn.Status = domain.ConnectionStatus(status)
	conn.SyncStatus = domain.SyncStatus(syncStatus)
	return &conn, nil
}

func scanMetric(row pgx.Row) (*domain.DailyMetric, error) {
	var metric domain.DailyMetric
	var provider string
	if err := row.Scan(
		&metric.ID,
		&metric.UserID,
		&metric.Date,
		&provider,
		&metric.Steps,
		&metric.Calories,
		&metric.Distance,
		&metric.ActiveMinutes,
		&metric.HeartRate,
		&metric.BloodOxygen,
		&metric.CreatedAt,
		&metric.UpdatedAt,
	); err != nil {
		return nil, err
	}
	metric.Provider = domain.Provider(provider)
	return &metric, nil
}

var (
	_ domain.ConnectionRepository = (*ConnectionRepository)(nil)
	_ domain.MetricRepository     = (*MetricRepository)(nil)
)
