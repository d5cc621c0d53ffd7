package storage

import (
	"slices"
	"time"

	"sports-feature-lab/internal/domain"
)

// DateRange is an inclusive range of contest dates. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// ContestFilter selects contests. Empty fields do not filter.
type ContestFilter struct {
	Seasons  []int
	Dates    DateRange
	IDs      []int64
	Statuses []domain.ContestStatus
}

// Match reports whether a contest passes the filter.
func (f ContestFilter) Match(c *domain.Contest) bool {
	if len(f.Seasons) > 0 && !slices.Contains(f.Seasons, c.SeasonID) {
		return false
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, c.ContestID) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, c.Status) {
		return false
	}
	return f.Dates.Contains(c.ContestDate)
}

// ObservationFilter selects observations. Empty fields do not filter.
type ObservationFilter struct {
	Seasons []int
	Dates   DateRange
	Groups  []string
}

// Match reports whether an observation passes the filter.
func (f ObservationFilter) Match(o *domain.Observation) bool {
	if len(f.Seasons) > 0 && !slices.Contains(f.Seasons, o.SeasonID) {
		return false
	}
	if len(f.Groups) > 0 && !slices.Contains(f.Groups, o.Group) {
		return false
	}
	return f.Dates.Contains(o.ContestDate)
}

// FeatureFilter selects feature rows. Empty fields do not filter.
type FeatureFilter struct {
	Statuses []domain.ContestStatus
	Dates    DateRange
	Seasons  []int
	IDs      []int64
}

// Match reports whether a row passes the filter.
func (f FeatureFilter) Match(r *domain.FeatureRow) bool {
	return ContestFilter{Seasons: f.Seasons, Dates: f.Dates, IDs: f.IDs, Statuses: f.Statuses}.Match(&r.Contest)
}
