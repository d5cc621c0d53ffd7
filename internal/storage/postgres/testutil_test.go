package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/storage/migrations"
)

// setupTestDB starts a PostgreSQL container with the schema applied.
// Skipped under -short.
func setupTestDB(t *testing.T) *Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("features"),
		postgres.WithUsername("features"),
		postgres.WithPassword("features"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	ms, err := migrations.Postgres()
	require.NoError(t, err)
	_, err = pool.Migrate(ctx, ms)
	require.NoError(t, err, "apply migrations")

	return pool
}

func ptr[T any](v T) *T {
	return &v
}

func date(month time.Month, day int) time.Time {
	return time.Date(2024, month, day, 0, 0, 0, 0, time.UTC)
}

// testContest returns a scheduled MLB contest between the Yankees and the Red Sox.
func testContest(id int64, day time.Time) *domain.Contest {
	return &domain.Contest{
		ContestID:   id,
		Sport:       domain.SportMLB,
		SeasonID:    day.Year(),
		ContestDate: day,
		HomeID:      147,
		AwayID:      111,
		HomeName:    "New York Yankees",
		AwayName:    "Boston Red Sox",
		Status:      domain.StatusScheduled,
		Home: domain.Roster{
			Lineup:   []int64{1, 2, 3, 0, 5, 6, 7, 8, 9},
			Designee: ptr(int64(99)),
			Group:    []int64{41, 42},
		},
		Away: domain.Roster{
			Lineup: []int64{11, 12, 13, 14, 15, 16, 17, 18, 19},
			Group:  []int64{},
		},
	}
}
