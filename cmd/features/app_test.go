package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sports-feature-lab/internal/domain"
)

func TestClock(t *testing.T) {
	now, err := clock("")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), now(), time.Second)

	now, err = clock("2024-04-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 4, 0, 0, 0, 0, time.UTC), now())

	now, err = clock("2024-04-04T18:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 18, now().Hour())

	_, err = clock("yesterday")
	assert.Error(t, err)
}

func TestLimiter(t *testing.T) {
	assert.Nil(t, limiter(0))

	l := limiter(0.5)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())

	assert.Equal(t, 20, limiter(20).Burst())
}

func TestExportFilter(t *testing.T) {
	t.Cleanup(func() {
		exportStatuses, exportSeasons, exportFrom, exportTo = nil, nil, "", ""
	})

	exportStatuses = []int{3, 4}
	exportSeasons = []int{2023}
	exportFrom = "2023-04-01"

	f, err := exportFilter()
	require.NoError(t, err)
	assert.Equal(t, []domain.ContestStatus{domain.StatusFinal, domain.StatusPostponed}, f.Statuses)
	assert.Equal(t, []int{2023}, f.Seasons)
	assert.Equal(t, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), f.Dates.From)
	assert.True(t, f.Dates.To.IsZero())

	exportStatuses = []int{9}
	_, err = exportFilter()
	assert.ErrorContains(t, err, "unknown code 9")

	exportStatuses = nil
	exportTo = "04/01/2023"
	_, err = exportFilter()
	assert.ErrorContains(t, err, "--to")
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"full": false, "current": false, "serve": false, "export": false, "migrate": false, "verify": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		assert.True(t, found, "command %s not registered", name)
	}
}
