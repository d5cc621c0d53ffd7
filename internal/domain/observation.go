package domain

import (
	"math"
	"time"
)

// Stat groups recorded per entity and contest.
const (
	GroupBatting  = "batting"
	GroupPitching = "pitching"
	GroupTeam     = "team"
	GroupPlayer   = "player"
)

// Win/loss flags carried by box score rows.
const (
	WinFlag  = "W"
	LossFlag = "L"
)

// Observation is one entity's statline for one contest.
// Corresponds to the observations table in PostgreSQL.
// Stats only holds values that were present and numeric; a missing key is an absent value.
type Observation struct {
	EntityID    int64
	ContestID   int64
	ContestDate time.Time
	SeasonID    int
	Group       string // GroupBatting | GroupPitching | GroupPlayer | GroupTeam
	TeamID      int64  // 0 when the source does not carry a trusted team id
	Matchup     string // e.g. "LAL @ GSW", first token is the entity's team
	WinLoss     string // WinFlag | LossFlag | ""
	Stats       map[string]float64
}

// Value returns the named stat, false if it is absent or not finite.
func (o *Observation) Value(name string) (float64, bool) {
	v, ok := o.Stats[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ObservationID returns the composite source key "{contest}_{entity}_{group}".
func (o *Observation) ObservationID() string {
	return formatObservationID(o.ContestID, o.EntityID, o.Group)
}
