//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/guddu1cse/health-sync-engine/internal/domain"
)

func TestConnectionLifecycleRoundTrip(t *testing.T) {
	ctx := context.Background()
	pool := startDatabase(t, ctx)

	repo := NewConnectionRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	conn := &domain.Connection{
		ID:          uuid.NewString(),
		UserID:      uuid.NewString(),
		Provider:    domain.ProviderGoogleFit,
		AccessToken: "iv:tag:ciphertext",
		Status:      domain.ConnectionStatusConnected,
		SyncStatus:  domain.SyncStatusIdle,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, repo.Create(ctx, conn))

	stored, err := repo.FindByUserAndProvider(ctx, conn.UserID, domain.ProviderGoogleFit)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, conn.ID, stored.ID)
	require.Equal(t, domain.SyncStatusIdle, stored.SyncStatus)
	require.Nil(t, stored.LastSyncedAt)

	missing, err := repo.FindByUserAndProvider(ctx, conn.UserID, domain.ProviderFitbit)
	require.NoError(t, err)
	require.Nil(t, missing)

	syncedAt := now.Add(time.Minute)
	stored.SyncStatus = domain.SyncStatusSuccess
	stored.LastSyncedAt = &syncedAt
	stored.LastSyncDurationMillis = 2500
	stored.UpdatedAt = syncedAt
	require.NoError(t, repo.Update(ctx, stored))

	updated, err := repo.FindByUserAndProvider(ctx, conn.UserID, domain.ProviderGoogleFit)
	require.NoError(t, err)
	require.Equal(t, domain.SyncStatusSuccess, updated.SyncStatus)
	require.NotNil(t, updated.LastSyncedAt)
	require.Equal(t, int64(2500), updated.LastSyncDurationMillis)
}

func TestListByStatusFiltersConnectivity(t *testing.T) {
	ctx := context.Background()
	pool := startDatabase(t, ctx)

	repo := NewConnectionRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	for _, status := range []domain.ConnectionStatus{
		domain.ConnectionStatusConnected,
		domain.ConnectionStatusConnected,
		domain.ConnectionStatusDisconnected,
	} {
		require.NoError(t, repo.Create(ctx, &domain.Connection{
			ID:         uuid.NewString(),
			UserID:     uuid.NewString(),
			Provider:   domain.ProviderGoogleFit,
			Status:     status,
			SyncStatus: domain.SyncStatusIdle,
			CreatedAt:  now,
			UpdatedAt:  now,
		}))
	}

	connected, err := repo.ListByStatus(ctx, domain.ConnectionStatusConnected)
	require.NoError(t, err)
	require.Len(t, connected, 2)
}

func TestMetricUpsertKeyedByUserDayProvider(t *testing.T) {
	ctx := context.Background()
	pool := startDatabase(t, ctx)

	repo := NewMetricRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)
	day := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
	userID := uuid.NewString()
	hr := 72.5

	metric := &domain.DailyMetric{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      day,
		Provider:  domain.ProviderGoogleFit,
		Steps:     800,
		Calories:  1900,
		HeartRate: &hr,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, metric))

	stored, err := repo.FindByUserDateProvider(ctx, userID, day, domain.ProviderGoogleFit)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, 800, stored.Steps)
	require.NotNil(t, stored.HeartRate)
	require.Equal(t, 72.5, *stored.HeartRate)

	// Same user+day, different provider resolves to a different row.
	other, err := repo.FindByUserDateProvider(ctx, userID, day, domain.ProviderFitbit)
	require.NoError(t, err)
	require.Nil(t, other)

	stored.Steps = 1400
	stored.HeartRate = nil
	stored.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, repo.Update(ctx, stored))

	replaced, err := repo.FindByUserDateProvider(ctx, userID, day, domain.ProviderGoogleFit)
	require.NoError(t, err)
	require.Equal(t, 1400, replaced.Steps)
	require.Nil(t, replaced.HeartRate)
	require.True(t, metric.CreatedAt.Equal(replaced.CreatedAt), "created_at must survive updates")
}

func startDatabase(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("healthsync"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
