// Package sideassign places entity observations on the home or away side of a contest.
package sideassign

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"sports-feature-lab/internal/domain"
)

// Method reports which signal placed an observation.
type Method int

const (
	// MethodNone means the observation was not placed.
	MethodNone Method = iota
	// MethodTeamID matched the observation's own team id to a participant.
	MethodTeamID
	// MethodMatchup resolved the team token of the matchup string.
	MethodMatchup
	// MethodWinLoss derived the side from the W/L flag and the recorded outcome.
	MethodWinLoss
)

// String returns a readable name.
func (m Method) String() string {
	switch m {
	case MethodTeamID:
		return "team_id"
	case MethodMatchup:
		return "matchup"
	case MethodWinLoss:
		return "win_loss"
	default:
		return "none"
	}
}

// AmbiguityError reports an observation that could not be placed on either side.
type AmbiguityError struct {
	ContestID int64
	EntityID  int64
	Reason    string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("contest %d entity %d: cannot assign side: %s", e.ContestID, e.EntityID, e.Reason)
}

// Assignment is an observation placed on a side.
type Assignment struct {
	Observation *domain.Observation
	Side        domain.Side
	TeamID      int64
	Method      Method
}

// Report counts assignments by method.
type Report struct {
	ByTeamID         int
	ByMatchup        int
	ByWinLoss        int
	Dropped          int // could not be placed on either side
	UnmatchedContest int // observation references a contest outside the input set
}

// Assigned returns the number of placed observations.
func (r Report) Assigned() int {
	return r.ByTeamID + r.ByMatchup + r.ByWinLoss
}

// Resolver assigns sides using a token table.
type Resolver struct {
	tokens     Tokens
	trustTeams bool
	logger     zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTrustedTeamIDs makes observations carrying a participant team id skip token parsing.
func WithTrustedTeamIDs() Option {
	return func(r *Resolver) {
		r.trustTeams = true
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a Resolver.
func NewResolver(tokens Tokens, opts ...Option) *Resolver {
	r := &Resolver{tokens: tokens, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ParseMatchupToken extracts the entity's own team token from a matchup string.
// "LAL @ GSW" and "LAL vs. GSW" both yield "LAL".
func ParseMatchupToken(matchup string) (string, bool) {
	for _, sep := range []string{" @ ", " vs. "} {
		if head, _, found := strings.Cut(matchup, sep); found {
			token := strings.TrimSpace(head)
			return token, token != ""
		}
	}
	return "", false
}

// Assign places one observation on a side of its contest.
func (r *Resolver) Assign(o *domain.Observation, c *domain.Contest) (Assignment, error) {
	if r.trustTeams && o.TeamID != 0 {
		if side, ok := c.SideOf(o.TeamID); ok {
			return Assignment{Observation: o, Side: side, TeamID: o.TeamID, Method: MethodTeamID}, nil
		}
	}

	if token, ok := ParseMatchupToken(o.Matchup); ok {
		if id, ok := r.tokens.Lookup(token); ok {
			if side, ok := c.SideOf(id); ok {
				return Assignment{Observation: o, Side: side, TeamID: id, Method: MethodMatchup}, nil
			}
		}
	}

	winner, ok := c.WinnerSide()
	if !ok {
		return Assignment{}, &AmbiguityError{ContestID: c.ContestID, EntityID: o.EntityID, Reason: "no matchup team and no recorded outcome"}
	}
	var side domain.Side
	switch o.WinLoss {
	case domain.WinFlag:
		side = winner
	case domain.LossFlag:
		side = winner.Opposite()
	default:
		return Assignment{}, &AmbiguityError{ContestID: c.ContestID, EntityID: o.EntityID, Reason: "no matchup team and no win/loss flag"}
	}
	return Assignment{Observation: o, Side: side, TeamID: c.TeamID(side), Method: MethodWinLoss}, nil
}

// AssignAll places every observation whose contest is known.
// Unplaceable observations are dropped and counted, never returned.
func (r *Resolver) AssignAll(obs []*domain.Observation, contests map[int64]*domain.Contest) ([]Assignment, Report) {
	var report Report
	out := make([]Assignment, 0, len(obs))
	for _, o := range obs {
		c, ok := contests[o.ContestID]
		if !ok {
			report.UnmatchedContest++
			continue
		}
		a, err := r.Assign(o, c)
		if err != nil {
			report.Dropped++
			r.logger.Debug().Err(err).Str("observation_id", o.ObservationID()).Msg("observation dropped")
			continue
		}
		switch a.Method {
		case MethodTeamID:
			report.ByTeamID++
		case MethodMatchup:
			report.ByMatchup++
		case MethodWinLoss:
			report.ByWinLoss++
		}
		out = append(out, a)
	}

	if report.UnmatchedContest > 0 {
		r.logger.Warn().Int("unmatched", report.UnmatchedContest).Msg("observations reference contests outside the loaded set")
	}
	if report.Dropped > 0 {
		r.logger.Warn().Int("dropped", report.Dropped).Msg("could not determine home/away side for observations")
	}
	if report.ByWinLoss > 0 {
		r.logger.Info().Int("fallback", report.ByWinLoss).Msg("sides assigned from win/loss flag")
	}
	return out, report
}
