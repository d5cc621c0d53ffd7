package rolling

import "sports-feature-lab/internal/domain"

// Resolution reports where a resolved snapshot came from.
type Resolution int

const (
	// Missing means no usable snapshot exists; every value is NULL.
	Missing Resolution = iota
	// Exact means the entity has an observation at the contest.
	Exact
	// CarriedForward means the entity's latest earlier snapshot was substituted.
	CarriedForward
)

// String returns a readable name.
func (r Resolution) String() string {
	switch r {
	case Exact:
		return "exact"
	case CarriedForward:
		return "carried_forward"
	default:
		return "missing"
	}
}

// Resolve returns the snapshot an entity contributes to a contest.
//
// The exact snapshot wins when present. Final contests never substitute.
// Any other contest falls back to the entity's last snapshot before the
// contest, which for an unplayed game is its LatestSnapshot. A contest before
// the entity's first observation resolves to Missing.
func (x *Index) Resolve(entityID int64, c *domain.Contest) (Snapshot, Resolution) {
	if snap, ok := x.At(entityID, c.ContestID); ok {
		return snap, Exact
	}
	if c.IsFinal() {
		return nil, Missing
	}
	if last, ok := x.Latest(entityID); ok && last.before(c.ContestDate, c.ContestID) {
		return last.Values, CarriedForward
	}
	if snap, ok := x.LatestBefore(entityID, c.ContestDate, c.ContestID); ok {
		return snap, CarriedForward
	}
	return nil, Missing
}
