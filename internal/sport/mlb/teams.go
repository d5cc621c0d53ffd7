// Package mlb adapts the feature engine to baseball: team form comes from
// recorded contest outcomes rather than from player box scores.
package mlb

import (
	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/sideassign"
	"sports-feature-lab/internal/teamgame"
)

// TeamBuilder derives team win records from completed contests.
type TeamBuilder struct{}

// NewTeamBuilder creates a TeamBuilder.
func NewTeamBuilder() *TeamBuilder {
	return &TeamBuilder{}
}

// TeamObservations returns one win record per team for every completed contest.
// Player observations carry explicit team ids and need no side assignment.
func (b *TeamBuilder) TeamObservations(contests []*domain.Contest, _ []*domain.Observation) ([]*domain.Observation, sideassign.Report) {
	return teamgame.FromOutcomes(contests), sideassign.Report{}
}
