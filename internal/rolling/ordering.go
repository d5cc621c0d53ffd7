package rolling

import (
	"sort"

	"sports-feature-lab/internal/domain"
)

// SortObservations orders observations by (contest_date ASC, contest_id ASC).
// The sort is stable so equal keys keep their input order.
func SortObservations(obs []*domain.Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		return compareObservations(obs[i], obs[j]) < 0
	})
}

// compareObservations returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareObservations(a, b *domain.Observation) int {
	if !a.ContestDate.Equal(b.ContestDate) {
		if a.ContestDate.Before(b.ContestDate) {
			return -1
		}
		return 1
	}
	if a.ContestID != b.ContestID {
		if a.ContestID < b.ContestID {
			return -1
		}
		return 1
	}
	return 0
}

// dedupeByContest drops repeated contests from a sorted series, keeping the first.
func dedupeByContest(obs []*domain.Observation) ([]*domain.Observation, int) {
	if len(obs) < 2 {
		return obs, 0
	}
	out := obs[:1]
	for _, o := range obs[1:] {
		if o.ContestID == out[len(out)-1].ContestID {
			continue
		}
		out = append(out, o)
	}
	return out, len(obs) - len(out)
}
