package rolling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sports-feature-lab/internal/domain"
)

func contest(id int64, d int, status domain.ContestStatus) *domain.Contest {
	return &domain.Contest{ContestID: id, ContestDate: day(d), Status: status}
}

func TestResolve(t *testing.T) {
	a := newTestAggregator(t, 2)
	idx, err := a.Compute(context.Background(), []*domain.Observation{
		obs(7, 101, day(10), map[string]float64{"PTS": 10}),
		obs(7, 103, day(12), map[string]float64{"PTS": 20}),
		obs(7, 105, day(14), map[string]float64{"PTS": 30}),
	})
	require.NoError(t, err)

	t.Run("exact snapshot for played contest", func(t *testing.T) {
		snap, res := idx.Resolve(7, contest(103, 12, domain.StatusFinal))
		assert.Equal(t, Exact, res)
		assert.InDelta(t, 10.0, *snap.Get("PTS_2"), 1e-12)
	})

	t.Run("future contest carries latest snapshot", func(t *testing.T) {
		snap, res := idx.Resolve(7, contest(110, 20, domain.StatusScheduled))
		assert.Equal(t, CarriedForward, res)
		latest, _ := idx.Latest(7)
		assert.Equal(t, latest.Values, snap)
		assert.InDelta(t, 15.0, *snap.Get("PTS_2"), 1e-12)
	})

	t.Run("contest between observations carries the earlier snapshot", func(t *testing.T) {
		snap, res := idx.Resolve(7, contest(104, 13, domain.StatusPostponed))
		assert.Equal(t, CarriedForward, res)
		assert.InDelta(t, 10.0, *snap.Get("PTS_2"), 1e-12)
	})

	t.Run("contest before first observation is null", func(t *testing.T) {
		snap, res := idx.Resolve(7, contest(99, 5, domain.StatusScheduled))
		assert.Equal(t, Missing, res)
		assert.Nil(t, snap.Get("PTS_2"))
	})

	t.Run("final contest without observation is not substituted", func(t *testing.T) {
		snap, res := idx.Resolve(7, contest(111, 21, domain.StatusFinal))
		assert.Equal(t, Missing, res)
		assert.Nil(t, snap)
	})

	t.Run("unknown entity", func(t *testing.T) {
		_, res := idx.Resolve(8, contest(110, 20, domain.StatusScheduled))
		assert.Equal(t, Missing, res)
	})
}

func TestLatestBefore_SameDateUsesContestOrder(t *testing.T) {
	a := newTestAggregator(t, 3)
	idx, err := a.Compute(context.Background(), []*domain.Observation{
		obs(1, 10, day(1), map[string]float64{"PTS": 4}),
		obs(1, 20, day(2), map[string]float64{"PTS": 8}),
	})
	require.NoError(t, err)

	snap, ok := idx.LatestBefore(1, day(2), 15)
	require.True(t, ok)
	assert.Nil(t, snap.Get("PTS_3"))

	snap, ok = idx.LatestBefore(1, day(2), 25)
	require.True(t, ok)
	assert.InDelta(t, 4.0, *snap.Get("PTS_3"), 1e-12)

	_, ok = idx.LatestBefore(1, day(1), 10)
	assert.False(t, ok)
}
