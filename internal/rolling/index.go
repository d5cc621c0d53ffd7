package rolling

import (
	"sort"
	"time"
)

// Snapshot maps snapshot columns (see Column) to values. A nil value is NULL.
type Snapshot map[string]*float64

// Get returns the value of a column, nil when absent.
func (s Snapshot) Get(column string) *float64 {
	if s == nil {
		return nil
	}
	return s[column]
}

// Entry is the snapshot computed for one observation of an entity.
type Entry struct {
	ContestID   int64
	ContestDate time.Time
	Values      Snapshot
}

type series struct {
	entries []Entry // (date, contest_id) ascending
	pos     map[int64]int
}

// Index holds the snapshots of every entity computed in one run.
// It is read-only after Compute returns and safe for concurrent readers.
type Index struct {
	series map[int64]*series
}

func newIndex(size int) *Index {
	return &Index{series: make(map[int64]*series, size)}
}

func (x *Index) put(entityID int64, entries []Entry) {
	s := &series{entries: entries, pos: make(map[int64]int, len(entries))}
	for i, e := range entries {
		s.pos[e.ContestID] = i
	}
	x.series[entityID] = s
}

// Len returns the number of entities in the index.
func (x *Index) Len() int {
	return len(x.series)
}

// At returns the snapshot at the entity's observation for a contest.
func (x *Index) At(entityID, contestID int64) (Snapshot, bool) {
	s, ok := x.series[entityID]
	if !ok {
		return nil, false
	}
	i, ok := s.pos[contestID]
	if !ok {
		return nil, false
	}
	return s.entries[i].Values, true
}

// Latest returns the entry of the entity's chronologically last observation.
// Its snapshot is the entity's LatestSnapshot.
func (x *Index) Latest(entityID int64) (Entry, bool) {
	s, ok := x.series[entityID]
	if !ok || len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

func (e Entry) before(date time.Time, contestID int64) bool {
	if !e.ContestDate.Equal(date) {
		return e.ContestDate.Before(date)
	}
	return e.ContestID < contestID
}

// LatestBefore returns the snapshot of the entity's last observation strictly
// before (date, contestID). False when the entity has no earlier observation.
func (x *Index) LatestBefore(entityID int64, date time.Time, contestID int64) (Snapshot, bool) {
	s, ok := x.series[entityID]
	if !ok {
		return nil, false
	}
	n := sort.Search(len(s.entries), func(i int) bool {
		e := s.entries[i]
		if !e.ContestDate.Equal(date) {
			return e.ContestDate.After(date)
		}
		return e.ContestID >= contestID
	})
	if n == 0 {
		return nil, false
	}
	return s.entries[n-1].Values, true
}
