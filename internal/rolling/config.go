// Package rolling computes trailing-window statistics per entity.
//
// Every value produced for observation i is a function of observations
// [max(0, i-W), i-1] of the same entity in (contest_date, contest_id) order.
// The observation at i never contributes to its own snapshot.
package rolling

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind selects how a stat is aggregated over the window.
type Kind int

const (
	// KindMean averages the present prior values.
	KindMean Kind = iota
	// KindCount counts the prior observations where the stat was present.
	KindCount
)

// Stat describes one tracked statistic.
type Stat struct {
	Source string // key in Observation.Stats
	Name   string // output name, defaults to Source
	Kind   Kind
}

// OutputName returns the name used in snapshot columns.
func (s Stat) OutputName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Source
}

// Config lists the stats and window sizes an aggregator computes.
type Config struct {
	Stats   []Stat
	Windows []int
}

// Errors returned by Config.Validate.
var (
	ErrNoStats   = errors.New("rolling config has no stats")
	ErrNoWindows = errors.New("rolling config has no windows")
)

// Validate checks that the config can produce snapshots.
func (c Config) Validate() error {
	if len(c.Stats) == 0 {
		return ErrNoStats
	}
	if len(c.Windows) == 0 {
		return ErrNoWindows
	}
	for _, w := range c.Windows {
		if w <= 0 {
			return fmt.Errorf("invalid window size %d", w)
		}
	}
	seen := make(map[string]struct{}, len(c.Stats))
	for _, s := range c.Stats {
		if s.Source == "" {
			return fmt.Errorf("stat with empty source")
		}
		name := s.OutputName()
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate stat output %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Columns returns every snapshot column in stat-major order.
func (c Config) Columns() []string {
	cols := make([]string, 0, len(c.Stats)*len(c.Windows))
	for _, s := range c.Stats {
		for _, w := range c.Windows {
			cols = append(cols, Column(s.OutputName(), w))
		}
	}
	return cols
}

// Column names a stat at a window size, e.g. Column("OPS", 10) == "OPS_10".
func Column(name string, window int) string {
	return name + "_" + strconv.Itoa(window)
}
