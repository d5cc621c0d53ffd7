// Package nba adapts the feature engine to basketball: player box scores are
// placed on a side from their matchup string and summed into team games.
package nba

import (
	"github.com/rs/zerolog"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/sideassign"
	"sports-feature-lab/internal/teamgame"
)

// TeamBuilder sums side-assigned player rows into team-game observations.
type TeamBuilder struct {
	resolver *sideassign.Resolver
	totals   teamgame.Totals
}

// NewTeamBuilder creates a TeamBuilder.
func NewTeamBuilder(totals teamgame.Totals, logger zerolog.Logger) *TeamBuilder {
	return &TeamBuilder{
		resolver: sideassign.NewResolver(sideassign.NBATokens, sideassign.WithTrustedTeamIDs(), sideassign.WithLogger(logger)),
		totals:   totals,
	}
}

// TeamObservations assigns player rows to sides and aggregates them per team game.
func (b *TeamBuilder) TeamObservations(contests []*domain.Contest, obs []*domain.Observation) ([]*domain.Observation, sideassign.Report) {
	byID := make(map[int64]*domain.Contest, len(contests))
	for _, c := range contests {
		byID[c.ContestID] = c
	}

	players := make([]*domain.Observation, 0, len(obs))
	for _, o := range obs {
		if o.Group == domain.GroupPlayer {
			players = append(players, o)
		}
	}

	assigned, report := b.resolver.AssignAll(players, byID)
	return teamgame.FromAssignments(assigned, byID, b.totals), report
}
