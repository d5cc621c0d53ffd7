// Package teamgame derives team-level observations, one per team and contest.
// The results feed the rolling aggregator with the team as the entity.
package teamgame

import (
	"sort"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/sideassign"
)

// StatWin is the win indicator (1 win, 0 loss) of a team observation.
const StatWin = "WIN"

// Ratio is a percentage recomputed from summed totals.
type Ratio struct {
	Name      string // e.g. FG_PCT
	Made      string // e.g. FGM
	Attempted string // e.g. FGA
}

// Totals describes how player rows are combined into a team row.
type Totals struct {
	Counting []string // summed over players
	Ratios   []Ratio  // Made / Attempted from the sums, absent on zero attempts
}

// FromOutcomes returns one win record per team for every completed contest.
func FromOutcomes(contests []*domain.Contest) []*domain.Observation {
	var out []*domain.Observation
	for _, c := range contests {
		if !c.IsCompleted() {
			continue
		}
		winner, ok := c.WinnerSide()
		if !ok {
			continue
		}
		for _, side := range domain.Sides {
			teamID := c.TeamID(side)
			if teamID == 0 {
				continue
			}
			win := 0.0
			if side == winner {
				win = 1
			}
			out = append(out, &domain.Observation{
				EntityID:    teamID,
				ContestID:   c.ContestID,
				ContestDate: c.ContestDate,
				SeasonID:    c.SeasonID,
				Group:       domain.GroupTeam,
				TeamID:      teamID,
				Stats:       map[string]float64{StatWin: win},
			})
		}
	}
	sortTeamObservations(out)
	return out
}

type teamKey struct {
	contestID int64
	side      domain.Side
	teamID    int64
}

type accumulator struct {
	contest *domain.Contest
	winLoss string
	sums    map[string]float64
	seen    map[string]bool
}

// FromAssignments sums side-assigned player rows into one row per (contest, side, team).
// The WIN flag comes from the first row's win/loss flag that is set.
func FromAssignments(assigned []sideassign.Assignment, contests map[int64]*domain.Contest, totals Totals) []*domain.Observation {
	acc := make(map[teamKey]*accumulator)
	var order []teamKey
	for _, a := range assigned {
		c, ok := contests[a.Observation.ContestID]
		if !ok {
			continue
		}
		k := teamKey{contestID: c.ContestID, side: a.Side, teamID: a.TeamID}
		t, ok := acc[k]
		if !ok {
			t = &accumulator{contest: c, sums: make(map[string]float64), seen: make(map[string]bool)}
			acc[k] = t
			order = append(order, k)
		}
		if t.winLoss == "" {
			t.winLoss = a.Observation.WinLoss
		}
		for _, stat := range totals.Counting {
			if v, ok := a.Observation.Value(stat); ok {
				t.sums[stat] += v
				t.seen[stat] = true
			}
		}
	}

	out := make([]*domain.Observation, 0, len(order))
	for _, k := range order {
		t := acc[k]
		stats := make(map[string]float64, len(totals.Counting)+len(totals.Ratios)+1)
		for stat, v := range t.sums {
			if t.seen[stat] {
				stats[stat] = v
			}
		}
		for _, r := range totals.Ratios {
			made, okM := stats[r.Made]
			att, okA := stats[r.Attempted]
			if okM && okA && att > 0 {
				stats[r.Name] = made / att
			}
		}
		switch t.winLoss {
		case domain.WinFlag:
			stats[StatWin] = 1
		case domain.LossFlag:
			stats[StatWin] = 0
		}
		out = append(out, &domain.Observation{
			EntityID:    k.teamID,
			ContestID:   k.contestID,
			ContestDate: t.contest.ContestDate,
			SeasonID:    t.contest.SeasonID,
			Group:       domain.GroupTeam,
			TeamID:      k.teamID,
			WinLoss:     t.winLoss,
			Stats:       stats,
		})
	}
	sortTeamObservations(out)
	return out
}

func sortTeamObservations(obs []*domain.Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		a, b := obs[i], obs[j]
		if !a.ContestDate.Equal(b.ContestDate) {
			return a.ContestDate.Before(b.ContestDate)
		}
		if a.ContestID != b.ContestID {
			return a.ContestID < b.ContestID
		}
		return a.EntityID < b.EntityID
	})
}
