package sideassign

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sports-feature-lab/internal/domain"
)

const (
	lakers   = 1610612747
	warriors = 1610612744
)

func outcome(v int) *int { return &v }

func testContest(o *int) *domain.Contest {
	return &domain.Contest{ContestID: 22300001, HomeID: warriors, AwayID: lakers, Outcome: o, Status: domain.StatusFinal}
}

func TestParseMatchupToken(t *testing.T) {
	cases := []struct {
		in    string
		token string
		ok    bool
	}{
		{"LAL @ GSW", "LAL", true},
		{"GSW vs. LAL", "GSW", true},
		{"LAL", "", false},
		{"", "", false},
		{" @ GSW", "", false},
	}
	for _, tc := range cases {
		token, ok := ParseMatchupToken(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.token, token, tc.in)
	}
}

func TestAssign_Matchup(t *testing.T) {
	r := NewResolver(NBATokens)
	c := testContest(nil)

	a, err := r.Assign(&domain.Observation{EntityID: 1, Matchup: "LAL @ GSW"}, c)
	require.NoError(t, err)
	assert.Equal(t, domain.SideAway, a.Side)
	assert.Equal(t, int64(lakers), a.TeamID)
	assert.Equal(t, MethodMatchup, a.Method)

	a, err = r.Assign(&domain.Observation{EntityID: 2, Matchup: "GSW vs. LAL"}, c)
	require.NoError(t, err)
	assert.Equal(t, domain.SideHome, a.Side)
}

func TestAssign_WinLossFallback(t *testing.T) {
	r := NewResolver(NBATokens)

	homeWon := testContest(outcome(domain.OutcomeHomeWin))
	a, err := r.Assign(&domain.Observation{Matchup: "???", WinLoss: "W"}, homeWon)
	require.NoError(t, err)
	assert.Equal(t, domain.SideHome, a.Side)
	assert.Equal(t, MethodWinLoss, a.Method)
	assert.Equal(t, int64(warriors), a.TeamID)

	a, err = r.Assign(&domain.Observation{Matchup: "BOS @ NYK", WinLoss: "L"}, homeWon)
	require.NoError(t, err)
	assert.Equal(t, domain.SideAway, a.Side, "token resolves to a team outside the contest")

	awayWon := testContest(outcome(domain.OutcomeAwayWin))
	a, err = r.Assign(&domain.Observation{WinLoss: "W"}, awayWon)
	require.NoError(t, err)
	assert.Equal(t, domain.SideAway, a.Side)

	a, err = r.Assign(&domain.Observation{WinLoss: "L"}, awayWon)
	require.NoError(t, err)
	assert.Equal(t, domain.SideHome, a.Side)
}

func TestAssign_Ambiguous(t *testing.T) {
	r := NewResolver(NBATokens)

	_, err := r.Assign(&domain.Observation{WinLoss: "W"}, testContest(nil))
	var amb *AmbiguityError
	require.True(t, errors.As(err, &amb))

	_, err = r.Assign(&domain.Observation{}, testContest(outcome(domain.OutcomeHomeWin)))
	require.True(t, errors.As(err, &amb))
}

func TestAssign_TrustedTeamID(t *testing.T) {
	r := NewResolver(NBATokens, WithTrustedTeamIDs())
	c := &domain.Contest{ContestID: 1, HomeID: 1610612743, AwayID: 1610612747}

	a, err := r.Assign(&domain.Observation{TeamID: 1610612747}, c)
	require.NoError(t, err)
	assert.Equal(t, domain.SideAway, a.Side)
	assert.Equal(t, MethodTeamID, a.Method)

	// Without the option the team id is ignored.
	_, err = NewResolver(NBATokens).Assign(&domain.Observation{TeamID: 1610612747}, c)
	require.Error(t, err)
}

func TestAssignAll_CountsDrops(t *testing.T) {
	r := NewResolver(NBATokens)
	c := testContest(outcome(domain.OutcomeHomeWin))
	contests := map[int64]*domain.Contest{c.ContestID: c}

	obs := []*domain.Observation{
		{EntityID: 1, ContestID: c.ContestID, Matchup: "LAL @ GSW"},
		{EntityID: 2, ContestID: c.ContestID, Matchup: "GSW vs. LAL"},
		{EntityID: 3, ContestID: c.ContestID, WinLoss: "W"},
		{EntityID: 4, ContestID: c.ContestID},
		{EntityID: 5, ContestID: 999, Matchup: "LAL @ GSW"},
	}

	assigned, report := r.AssignAll(obs, contests)
	require.Len(t, assigned, 3)
	assert.Equal(t, 2, report.ByMatchup)
	assert.Equal(t, 1, report.ByWinLoss)
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, 1, report.UnmatchedContest)
	assert.Equal(t, 3, report.Assigned())
}

func TestAssignAll_WarnsOnUnmatchedContests(t *testing.T) {
	var buf bytes.Buffer
	r := NewResolver(NBATokens, WithLogger(zerolog.New(&buf)))
	c := testContest(outcome(domain.OutcomeHomeWin))

	_, report := r.AssignAll([]*domain.Observation{
		{EntityID: 1, ContestID: 998, Matchup: "LAL @ GSW"},
		{EntityID: 2, ContestID: 999, Matchup: "GSW vs. LAL"},
		{EntityID: 3, ContestID: c.ContestID, Group: domain.GroupPlayer},
	}, map[int64]*domain.Contest{c.ContestID: c})

	assert.Equal(t, 2, report.UnmatchedContest)
	assert.Equal(t, 1, report.Dropped)
	assert.Contains(t, buf.String(), `"observation_id":"22300001_3_`+domain.GroupPlayer+`"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"unmatched":2`)
}
