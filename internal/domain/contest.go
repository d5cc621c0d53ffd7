package domain

import "time"

// ContestStatus is the lifecycle code of a contest.
type ContestStatus int

const (
	StatusScheduled ContestStatus = 1
	StatusLive      ContestStatus = 2
	StatusFinal     ContestStatus = 3
	StatusPostponed ContestStatus = 4
)

// IsValid checks if the status is a known code.
func (s ContestStatus) IsValid() bool {
	return s >= StatusScheduled && s <= StatusPostponed
}

// String returns a readable status name.
func (s ContestStatus) String() string {
	switch s {
	case StatusScheduled:
		return "scheduled"
	case StatusLive:
		return "live"
	case StatusFinal:
		return "final"
	case StatusPostponed:
		return "postponed"
	default:
		return "unknown"
	}
}

// Outcome values stored in GAME_OUTCOME.
const (
	OutcomeAwayWin = 0
	OutcomeHomeWin = 1
)

// Roster holds the entity ids one side fielded (or is expected to field) in a contest.
type Roster struct {
	Lineup   []int64 // batting order; 0 marks an empty slot
	Designee *int64  // starting pitcher, nil if not announced
	Group    []int64 // bullpen
}

// Contest is one game between two teams.
// Corresponds to the contests table in PostgreSQL.
type Contest struct {
	ContestID   int64
	Sport       Sport
	SeasonID    int
	ContestDate time.Time // calendar date, UTC midnight
	HomeID      int64
	AwayID      int64
	HomeName    string
	AwayName    string
	Status      ContestStatus
	Outcome     *int // OutcomeHomeWin | OutcomeAwayWin, NULL until decided
	HomeScore   *int
	AwayScore   *int
	Home        Roster
	Away        Roster
}

// IsFinal reports whether the contest has been played to completion.
func (c *Contest) IsFinal() bool {
	return c.Status == StatusFinal
}

// IsCompleted reports whether the contest counts toward team records:
// final or postponed with a recorded outcome.
func (c *Contest) IsCompleted() bool {
	return (c.Status == StatusFinal || c.Status == StatusPostponed) && c.Outcome != nil
}

// TotalScore returns home + away score, NULL if either is unknown.
func (c *Contest) TotalScore() *int {
	if c.HomeScore == nil || c.AwayScore == nil {
		return nil
	}
	total := *c.HomeScore + *c.AwayScore
	return &total
}

// TeamID returns the team id playing on the given side.
func (c *Contest) TeamID(side Side) int64 {
	if side == SideHome {
		return c.HomeID
	}
	return c.AwayID
}

// RosterFor returns the roster of the given side.
func (c *Contest) RosterFor(side Side) Roster {
	if side == SideHome {
		return c.Home
	}
	return c.Away
}

// SideOf returns the side a team plays on, false if the team is not a participant.
func (c *Contest) SideOf(teamID int64) (Side, bool) {
	switch {
	case teamID == 0:
		return "", false
	case teamID == c.HomeID:
		return SideHome, true
	case teamID == c.AwayID:
		return SideAway, true
	}
	return "", false
}

// WinnerSide returns the side that won, false if no outcome is recorded.
func (c *Contest) WinnerSide() (Side, bool) {
	if c.Outcome == nil {
		return "", false
	}
	switch *c.Outcome {
	case OutcomeHomeWin:
		return SideHome, true
	case OutcomeAwayWin:
		return SideAway, true
	}
	return "", false
}

// Before reports whether c precedes other in (date, contest_id) order.
func (c *Contest) Before(other *Contest) bool {
	if !c.ContestDate.Equal(other.ContestDate) {
		return c.ContestDate.Before(other.ContestDate)
	}
	return c.ContestID < other.ContestID
}
