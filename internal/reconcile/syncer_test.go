package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/storage"
	"sports-feature-lab/internal/storage/memory"
)

var errPoison = errors.New("poisoned row")

// flakyStore wraps a memory store and rejects any upsert containing a poisoned contest.
type flakyStore struct {
	*memory.FeatureStore
	mu        sync.Mutex
	poison    map[int64]bool
	deleteErr error
	onDelete  func()
	calls     int
}

func newFlakyStore(poison ...int64) *flakyStore {
	p := make(map[int64]bool)
	for _, id := range poison {
		p[id] = true
	}
	return &flakyStore{FeatureStore: memory.NewFeatureStore(), poison: p}
}

func (s *flakyStore) Upsert(ctx context.Context, rows []*domain.FeatureRow) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range rows {
		if s.poison[r.ContestID()] {
			return errPoison
		}
	}
	return s.FeatureStore.Upsert(ctx, rows)
}

func (s *flakyStore) DeleteAll(ctx context.Context) error {
	if s.onDelete != nil {
		s.onDelete()
	}
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.FeatureStore.DeleteAll(ctx)
}

var _ storage.FeatureStore = (*flakyStore)(nil)

func row(id int64, v float64) *domain.FeatureRow {
	return &domain.FeatureRow{
		Contest: domain.Contest{
			ContestID:   id,
			Sport:       domain.SportMLB,
			SeasonID:    2024,
			ContestDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(id)),
			Status:      domain.StatusScheduled,
		},
		Features:  map[string]*float64{"HOME_AVG_10": &v},
		UpdatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func rows(n int) []*domain.FeatureRow {
	out := make([]*domain.FeatureRow, n)
	for i := range out {
		out[i] = row(int64(i+1), float64(i))
	}
	return out
}

func newSyncer(store storage.FeatureStore, batch int) *Syncer {
	return New(Options{
		Store:       store,
		Sport:       domain.SportMLB,
		BatchSize:   batch,
		Concurrency: 3,
		Logger:      zerolog.Nop(),
	})
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("full")
	require.NoError(t, err)
	assert.Equal(t, FullRebuild, m)

	m, err = ParseMode("current")
	require.NoError(t, err)
	assert.Equal(t, IncrementalDelta, m)

	_, err = ParseMode("partial")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestRebuild_PreservesAnnotations(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	s := newSyncer(store, 2)

	_, err := s.Rebuild(ctx, rows(3), nil)
	require.NoError(t, err)
	require.NoError(t, store.Annotate(ctx, 2, domain.Annotation{Prediction: intPtr(1), PredictionPct: floatPtr(0.71)}))
	require.NoError(t, store.Annotate(ctx, 3, domain.Annotation{Prediction: intPtr(0)}))

	carried, err := s.Annotations(ctx)
	require.NoError(t, err)
	require.Len(t, carried, 2)

	// Contest 3 is no longer produced, contest 4 is new.
	next := []*domain.FeatureRow{row(1, 10), row(2, 20), row(4, 40)}
	report, err := s.Rebuild(ctx, next, carried)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.True(t, report.Deleted)
	assert.Equal(t, 3, report.Written)
	assert.Equal(t, 1, report.AnnotationsCarried)

	stored, err := store.Query(ctx, storage.FeatureFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 3)

	byID := make(map[int64]*domain.FeatureRow)
	for _, r := range stored {
		byID[r.ContestID()] = r
	}
	require.NotNil(t, byID[2].Annotation.Prediction)
	assert.Equal(t, 1, *byID[2].Annotation.Prediction)
	assert.InDelta(t, 0.71, *byID[2].Annotation.PredictionPct, 1e-9)
	assert.True(t, byID[1].Annotation.IsEmpty())
	assert.True(t, byID[4].Annotation.IsEmpty())
	assert.InDelta(t, 20.0, *byID[2].Feature("HOME_AVG_10"), 1e-9)
}

func TestRebuild_CanceledBeforeDeleteLeavesStoreUntouched(t *testing.T) {
	store := newFlakyStore()
	s := newSyncer(store, 10)
	_, err := s.Rebuild(context.Background(), rows(4), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Rebuild(ctx, rows(1), nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 4, store.Len())
}

func TestRebuild_CancelDuringDeleteStillWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newFlakyStore()
	store.onDelete = cancel
	s := newSyncer(store, 2)

	report, err := s.Rebuild(ctx, rows(5), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Written)
	assert.Equal(t, 5, store.Len())
}

func TestRebuild_DeleteFailureStillUpserts(t *testing.T) {
	store := newFlakyStore()
	store.deleteErr = errors.New("permission denied")
	s := newSyncer(store, 2)

	report, err := s.Rebuild(context.Background(), rows(3), nil)
	require.NoError(t, err)
	assert.False(t, report.Deleted)
	assert.Error(t, report.DeleteErr)
	assert.False(t, report.OK())
	assert.Equal(t, 3, report.Written)
	assert.Equal(t, 3, store.Len())
}

func TestDelta_BatchFallsBackToRows(t *testing.T) {
	store := newFlakyStore(5)
	s := newSyncer(store, 4)

	report, err := s.Delta(context.Background(), rows(10))
	require.NoError(t, err)

	assert.Equal(t, 10, report.Attempted)
	assert.Equal(t, 9, report.Written)
	assert.Equal(t, 1, report.BatchFailures)
	assert.Equal(t, 4, report.RowRetries)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, int64(5), report.Failures[0].ContestID)
	assert.ErrorIs(t, report.Failures[0], errPoison)
	assert.Equal(t, 9, store.Len())
}

func TestDelta_KeepsStoredAnnotationsAndOtherRows(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	s := newSyncer(store, 400)

	_, err := s.Rebuild(ctx, rows(6), nil)
	require.NoError(t, err)
	require.NoError(t, store.Annotate(ctx, 3, domain.Annotation{Prediction: intPtr(1)}))

	report, err := s.Delta(ctx, []*domain.FeatureRow{row(3, 99), row(7, 70)})
	require.NoError(t, err)
	assert.True(t, report.OK())

	stored, err := store.Query(ctx, storage.FeatureFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 7)
	for _, r := range stored {
		if r.ContestID() == 3 {
			require.NotNil(t, r.Annotation.Prediction)
			assert.InDelta(t, 99.0, *r.Feature("HOME_AVG_10"), 1e-9)
		}
	}
}

func TestDelta_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	s := newSyncer(store, 3)

	_, err := s.Delta(ctx, rows(8))
	require.NoError(t, err)
	first, err := store.Query(ctx, storage.FeatureFilter{})
	require.NoError(t, err)

	_, err = s.Delta(ctx, rows(8))
	require.NoError(t, err)
	second, err := store.Query(ctx, storage.FeatureFilter{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDelta_Limiter(t *testing.T) {
	store := newFlakyStore()
	s := New(Options{
		Store:     store,
		Sport:     domain.SportNBA,
		BatchSize: 2,
		Limiter:   rate.NewLimiter(rate.Inf, 1),
		Logger:    zerolog.Nop(),
	})

	report, err := s.Delta(context.Background(), rows(7))
	require.NoError(t, err)
	assert.Equal(t, 7, report.Written)
	assert.Equal(t, 4, store.calls)
}

func TestDelta_Empty(t *testing.T) {
	report, err := newSyncer(newFlakyStore(), 10).Delta(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
	assert.True(t, report.OK())
}
