package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/storage"
	"sports-feature-lab/internal/storage/memory"
)

type brokenStore struct {
	*memory.FeatureStore
}

func (brokenStore) Upsert(context.Context, []*domain.FeatureRow) error {
	return errors.New("mirror down")
}

func (brokenStore) DeleteAll(context.Context) error {
	return errors.New("mirror down")
}

func mirrorRow(id int64) *domain.FeatureRow {
	return &domain.FeatureRow{
		Contest:   domain.Contest{ContestID: id, ContestDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		Features:  map[string]*float64{},
		UpdatedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMirror_CopiesWrites(t *testing.T) {
	ctx := context.Background()
	primary, secondary := memory.NewFeatureStore(), memory.NewFeatureStore()
	m := storage.NewMirror(primary, secondary, zerolog.Nop())

	require.NoError(t, m.Upsert(ctx, []*domain.FeatureRow{mirrorRow(1), mirrorRow(2)}))
	assert.Equal(t, 2, primary.Len())
	assert.Equal(t, 2, secondary.Len())

	p := 1
	require.NoError(t, m.Annotate(ctx, 2, domain.Annotation{Prediction: &p}))
	got, err := secondary.Annotations(ctx)
	require.NoError(t, err)
	assert.Contains(t, got, int64(2))

	require.NoError(t, m.DeleteAll(ctx))
	assert.Zero(t, primary.Len())
	assert.Zero(t, secondary.Len())
}

func TestMirror_SecondaryFailureIsNotReturned(t *testing.T) {
	ctx := context.Background()
	primary := memory.NewFeatureStore()
	m := storage.NewMirror(primary, brokenStore{memory.NewFeatureStore()}, zerolog.Nop())

	require.NoError(t, m.Upsert(ctx, []*domain.FeatureRow{mirrorRow(1)}))
	require.NoError(t, m.DeleteAll(ctx))

	rows, err := m.Query(ctx, storage.FeatureFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMirror_PrimaryFailureIsReturned(t *testing.T) {
	m := storage.NewMirror(brokenStore{memory.NewFeatureStore()}, memory.NewFeatureStore(), zerolog.Nop())
	assert.Error(t, m.Upsert(context.Background(), []*domain.FeatureRow{mirrorRow(1)}))
}
