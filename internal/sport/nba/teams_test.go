package nba

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/teamgame"
)

func TestTeamObservations(t *testing.T) {
	homeWin := domain.OutcomeHomeWin
	c := &domain.Contest{
		ContestID:   22300061,
		ContestDate: time.Date(2023, 10, 24, 0, 0, 0, 0, time.UTC),
		HomeID:      1610612743, // DEN
		AwayID:      1610612747, // LAL
		Status:      domain.StatusFinal,
		Outcome:     &homeWin,
	}
	obs := []*domain.Observation{
		{EntityID: 1, ContestID: c.ContestID, Group: domain.GroupPlayer, Matchup: "DEN vs. LAL", WinLoss: "W", Stats: map[string]float64{"PTS": 29}},
		{EntityID: 2, ContestID: c.ContestID, Group: domain.GroupPlayer, Matchup: "DEN vs. LAL", WinLoss: "W", Stats: map[string]float64{"PTS": 21}},
		{EntityID: 3, ContestID: c.ContestID, Group: domain.GroupPlayer, Matchup: "LAL @ DEN", WinLoss: "L", Stats: map[string]float64{"PTS": 21}},
		{EntityID: 4, ContestID: c.ContestID, Group: domain.GroupPlayer, WinLoss: "L", Stats: map[string]float64{"PTS": 18}},
		{EntityID: 5, ContestID: c.ContestID, Group: domain.GroupPlayer, Stats: map[string]float64{"PTS": 2}},
		{EntityID: 6, ContestID: c.ContestID, Group: domain.GroupTeam, Stats: map[string]float64{"PTS": 500}},
	}

	b := NewTeamBuilder(teamgame.Totals{Counting: []string{"PTS"}}, zerolog.Nop())
	teams, report := b.TeamObservations([]*domain.Contest{c}, obs)

	require.Len(t, teams, 2)
	assert.Equal(t, 3, report.ByMatchup)
	assert.Equal(t, 1, report.ByWinLoss)
	assert.Equal(t, 1, report.Dropped)

	byTeam := map[int64]*domain.Observation{}
	for _, o := range teams {
		byTeam[o.EntityID] = o
	}
	assert.Equal(t, 50.0, byTeam[c.HomeID].Stats["PTS"])
	assert.Equal(t, 1.0, byTeam[c.HomeID].Stats[teamgame.StatWin])
	assert.Equal(t, 39.0, byTeam[c.AwayID].Stats["PTS"])
	assert.Equal(t, 0.0, byTeam[c.AwayID].Stats[teamgame.StatWin])
}

func TestTeamObservations_TrustsTeamID(t *testing.T) {
	c := &domain.Contest{
		ContestID:   22300062,
		ContestDate: time.Date(2023, 10, 24, 0, 0, 0, 0, time.UTC),
		HomeID:      1610612756, // PHX
		AwayID:      1610612744, // GSW
		Status:      domain.StatusScheduled,
	}
	obs := []*domain.Observation{
		{EntityID: 1, ContestID: c.ContestID, Group: domain.GroupPlayer, TeamID: c.AwayID, Stats: map[string]float64{"PTS": 30}},
		{EntityID: 2, ContestID: c.ContestID, Group: domain.GroupPlayer, TeamID: c.HomeID, Matchup: "GSW @ PHX", Stats: map[string]float64{"PTS": 12}},
	}

	b := NewTeamBuilder(teamgame.Totals{Counting: []string{"PTS"}}, zerolog.Nop())
	teams, report := b.TeamObservations([]*domain.Contest{c}, obs)

	require.Len(t, teams, 2)
	assert.Equal(t, 2, report.ByTeamID)
	assert.Equal(t, 0, report.ByMatchup)

	byTeam := map[int64]*domain.Observation{}
	for _, o := range teams {
		byTeam[o.EntityID] = o
	}
	assert.Equal(t, 30.0, byTeam[c.AwayID].Stats["PTS"])
	assert.Equal(t, 12.0, byTeam[c.HomeID].Stats["PTS"])
}
