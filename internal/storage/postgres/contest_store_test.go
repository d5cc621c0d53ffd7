package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/storage"
)

func TestContestStore_UpsertAndRead(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewContestStore(pool, domain.SportMLB, 0)

	c := testContest(745001, date(4, 2))
	require.NoError(t, store.Upsert(ctx, []*domain.Contest{c}))

	got, err := store.Contests(ctx, storage.ContestFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, c.ContestID, got[0].ContestID)
	assert.Equal(t, domain.SportMLB, got[0].Sport)
	assert.Equal(t, 2024, got[0].SeasonID)
	assert.True(t, c.ContestDate.Equal(got[0].ContestDate))
	assert.Equal(t, "New York Yankees", got[0].HomeName)
	assert.Equal(t, domain.StatusScheduled, got[0].Status)
	assert.Nil(t, got[0].Outcome)
	assert.Equal(t, c.Home.Lineup, got[0].Home.Lineup)
	require.NotNil(t, got[0].Home.Designee)
	assert.Equal(t, int64(99), *got[0].Home.Designee)
	assert.Nil(t, got[0].Away.Designee)
	assert.Equal(t, []int64{41, 42}, got[0].Home.Group)
	assert.Empty(t, got[0].Away.Group)

	// Final result replaces the scheduled row
	c.Status = domain.StatusFinal
	c.Outcome = ptr(domain.OutcomeHomeWin)
	c.HomeScore = ptr(5)
	c.AwayScore = ptr(3)
	require.NoError(t, store.Upsert(ctx, []*domain.Contest{c}))

	got, err = store.Contests(ctx, storage.ContestFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.StatusFinal, got[0].Status)
	require.NotNil(t, got[0].Outcome)
	assert.Equal(t, domain.OutcomeHomeWin, *got[0].Outcome)
	assert.Equal(t, 8, got[0].TotalScore())
}

func TestContestStore_InvalidInput(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewContestStore(pool, domain.SportMLB, 0)

	bad := testContest(1, date(4, 2))
	bad.Status = 9
	err := store.Upsert(ctx, []*domain.Contest{bad})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	bad = testContest(2, date(4, 2))
	bad.Outcome = ptr(7)
	err = store.Upsert(ctx, []*domain.Contest{bad})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestContestStore_KeysetPagination(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewContestStore(pool, domain.SportMLB, 3)

	// Several contests share a date so pages must break ties by contest_id.
	var contests []*domain.Contest
	for i := 0; i < 10; i++ {
		contests = append(contests, testContest(int64(100-i), date(4, 1+i/4)))
	}
	require.NoError(t, store.Upsert(ctx, contests))

	got, err := store.Contests(ctx, storage.ContestFilter{})
	require.NoError(t, err)
	require.Len(t, got, 10)

	seen := make(map[int64]bool)
	for i, c := range got {
		assert.False(t, seen[c.ContestID], "duplicate contest %d", c.ContestID)
		seen[c.ContestID] = true
		if i > 0 {
			assert.True(t, got[i-1].Before(c), "rows out of order at %d", i)
		}
	}
}

func TestContestStore_Filters(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	mlb := NewContestStore(pool, domain.SportMLB, 0)
	nba := NewContestStore(pool, domain.SportNBA, 0)

	a := testContest(1, date(4, 1))
	b := testContest(2, date(4, 5))
	b.Status = domain.StatusFinal
	b.Outcome = ptr(domain.OutcomeAwayWin)
	c := testContest(3, date(4, 9))
	c.SeasonID = 2023
	require.NoError(t, mlb.Upsert(ctx, []*domain.Contest{a, b, c}))
	require.NoError(t, nba.Upsert(ctx, []*domain.Contest{testContest(4, date(4, 1))}))

	ids := func(cs []*domain.Contest) []int64 {
		var out []int64
		for _, c := range cs {
			out = append(out, c.ContestID)
		}
		return out
	}

	got, err := mlb.Contests(ctx, storage.ContestFilter{Dates: storage.DateRange{From: date(4, 2), To: date(4, 9)}})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids(got))

	got, err = mlb.Contests(ctx, storage.ContestFilter{Seasons: []int{2024}})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(got))

	got, err = mlb.Contests(ctx, storage.ContestFilter{Statuses: []domain.ContestStatus{domain.StatusFinal}})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(got))

	got, err = mlb.Contests(ctx, storage.ContestFilter{IDs: []int64{3, 1}})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(got))

	got, err = nba.Contests(ctx, storage.ContestFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, ids(got))
}

func TestContestStore_SourceUnavailable(t *testing.T) {
	pool := setupTestDB(t)
	store := NewContestStore(pool, domain.SportMLB, 0)
	pool.Close()

	_, err := store.Contests(context.Background(), storage.ContestFilter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrSourceUnavailable)

	var srcErr *storage.SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, "contests", srcErr.Source)
}
