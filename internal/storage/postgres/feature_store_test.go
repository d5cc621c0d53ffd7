package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/storage"
)

func testRow(id int64, day time.Time, ba *float64) *domain.FeatureRow {
	return &domain.FeatureRow{
		Contest: *testContest(id, day),
		Features: map[string]*float64{
			"HOME_BA_10":     ba,
			"AWAY_BA_10":     ptr(0.251),
			"HOME_SP_ERA_10": nil,
		},
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFeatureStore_UpsertAndQuery(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewFeatureStore(pool, domain.SportMLB)

	rows := []*domain.FeatureRow{testRow(2, date(4, 2), ptr(0.3)), testRow(1, date(4, 1), nil)}
	require.NoError(t, store.Upsert(ctx, rows))

	got, err := store.Query(ctx, storage.FeatureFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].ContestID())
	assert.Nil(t, got[0].Feature("HOME_BA_10"))
	require.NotNil(t, got[1].Feature("HOME_BA_10"))
	assert.InDelta(t, 0.3, *got[1].Feature("HOME_BA_10"), 1e-12)
	assert.Contains(t, got[1].Features, "HOME_SP_ERA_10")
	assert.Nil(t, got[1].Features["HOME_SP_ERA_10"])
	assert.True(t, got[1].UpdatedAt.Equal(rows[0].UpdatedAt))
	assert.Equal(t, rows[0].Contest.Home.Lineup, got[1].Contest.Home.Lineup)
	assert.True(t, got[1].Annotation.IsEmpty())

	got, err = store.Query(ctx, storage.FeatureFilter{IDs: []int64{2}})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestFeatureStore_UpsertKeepsAnnotations(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewFeatureStore(pool, domain.SportMLB)

	require.NoError(t, store.Upsert(ctx, []*domain.FeatureRow{testRow(1, date(4, 1), ptr(0.3))}))
	require.NoError(t, store.Annotate(ctx, 1, domain.Annotation{Prediction: ptr(1), PredictionPct: ptr(0.64)}))

	// A recomputed row without an annotation must not clear the stored one.
	require.NoError(t, store.Upsert(ctx, []*domain.FeatureRow{testRow(1, date(4, 1), ptr(0.31))}))

	annotations, err := store.Annotations(ctx)
	require.NoError(t, err)
	require.Contains(t, annotations, int64(1))
	assert.Equal(t, 1, *annotations[1].Prediction)
	assert.InDelta(t, 0.64, *annotations[1].PredictionPct, 1e-12)

	got, err := store.Query(ctx, storage.FeatureFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.31, *got[0].Feature("HOME_BA_10"), 1e-12)

	// Inserts take the row's carried annotation.
	carried := testRow(2, date(4, 2), nil)
	carried.Annotation = domain.Annotation{Prediction: ptr(0)}
	require.NoError(t, store.Upsert(ctx, []*domain.FeatureRow{carried}))

	annotations, err = store.Annotations(ctx)
	require.NoError(t, err)
	assert.Len(t, annotations, 2)
	assert.Equal(t, 0, *annotations[2].Prediction)
	assert.Nil(t, annotations[2].PredictionPct)
}

func TestFeatureStore_AnnotateMissing(t *testing.T) {
	pool := setupTestDB(t)

	store := NewFeatureStore(pool, domain.SportMLB)
	err := store.Annotate(context.Background(), 404, domain.Annotation{Prediction: ptr(1)})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFeatureStore_DeleteAllIsPerSport(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	mlb := NewFeatureStore(pool, domain.SportMLB)
	nba := NewFeatureStore(pool, domain.SportNBA)

	require.NoError(t, mlb.Upsert(ctx, []*domain.FeatureRow{testRow(1, date(4, 1), nil)}))
	nbaRow := testRow(1, date(4, 1), nil)
	nbaRow.Contest.Sport = domain.SportNBA
	require.NoError(t, nba.Upsert(ctx, []*domain.FeatureRow{nbaRow}))

	require.NoError(t, mlb.DeleteAll(ctx))

	got, err := mlb.Query(ctx, storage.FeatureFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = nba.Query(ctx, storage.FeatureFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFeatureStore_BatchIsAtomic(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewFeatureStore(pool, domain.SportMLB)

	good := testRow(1, date(4, 1), nil)
	wrongSport := testRow(2, date(4, 1), nil)
	wrongSport.Contest.Sport = domain.SportNBA

	err := store.Upsert(ctx, []*domain.FeatureRow{good, wrongSport})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	got, err := store.Query(ctx, storage.FeatureFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
