package compose

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/rolling"
	"sports-feature-lab/internal/storage"
)

// maxGapSamples caps the data gaps kept in Stats.
const maxGapSamples = 50

// Stats counts how entity snapshots were resolved while composing.
type Stats struct {
	Rows           int
	Exact          int
	CarriedForward int
	Missing        int // referenced entity had no usable snapshot
	NoDesignee     int // side without a designated entity

	// Gaps samples the first missing snapshots, at most maxGapSamples.
	Gaps []*storage.DataGapError
}

func (s *Stats) add(o Stats) {
	s.Rows += o.Rows
	s.Exact += o.Exact
	s.CarriedForward += o.CarriedForward
	s.Missing += o.Missing
	s.NoDesignee += o.NoDesignee
	for _, g := range o.Gaps {
		if len(s.Gaps) >= maxGapSamples {
			break
		}
		s.Gaps = append(s.Gaps, g)
	}
}

func (s *Stats) record(r rolling.Resolution, source string, entityID, contestID int64) {
	switch r {
	case rolling.Exact:
		s.Exact++
	case rolling.CarriedForward:
		s.CarriedForward++
	default:
		s.Missing++
		if len(s.Gaps) < maxGapSamples {
			s.Gaps = append(s.Gaps, &storage.DataGapError{Source: source, EntityID: entityID, ContestID: contestID})
		}
	}
}

// Composer builds feature rows from snapshot indexes.
type Composer struct {
	schema  Schema
	indexes map[string]*rolling.Index
	workers int
	logger  zerolog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithWorkers bounds the number of contests composed in parallel.
func WithWorkers(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Composer) {
		c.logger = l
	}
}

// NewComposer creates a Composer. Every source named by the schema must have an index.
func NewComposer(schema Schema, indexes map[string]*rolling.Index, opts ...Option) (*Composer, error) {
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("feature schema: %w", err)
	}
	for _, src := range schema.Sources() {
		if indexes[src] == nil {
			return nil, fmt.Errorf("no snapshot index for source %q", src)
		}
	}
	c := &Composer{
		schema:  schema,
		indexes: indexes,
		workers: runtime.GOMAXPROCS(0),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Compose builds one row per contest, in input order.
func (c *Composer) Compose(ctx context.Context, contests []*domain.Contest, now time.Time) ([]*domain.FeatureRow, Stats, error) {
	rows := make([]*domain.FeatureRow, len(contests))
	stats := make([]Stats, len(contests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, contest := range contests {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			features, st := c.Features(contest)
			rows[i] = &domain.FeatureRow{
				Contest:   *contest,
				Features:  features,
				UpdatedAt: now,
			}
			stats[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, fmt.Errorf("compose feature rows: %w", err)
	}

	var total Stats
	for _, st := range stats {
		total.add(st)
	}
	c.logger.Debug().
		Int("rows", total.Rows).
		Int("exact", total.Exact).
		Int("carried_forward", total.CarriedForward).
		Int("missing", total.Missing).
		Msg("feature rows composed")
	for _, gap := range total.Gaps {
		c.logger.Debug().Err(gap).Msg("entity snapshot missing")
	}
	return rows, total, nil
}

// Features computes every schema column for one contest.
func (c *Composer) Features(contest *domain.Contest) (map[string]*float64, Stats) {
	out := make(map[string]*float64)
	st := Stats{Rows: 1}
	for _, side := range domain.Sides {
		for _, rule := range c.schema.Rules {
			c.applyRule(rule, side, contest, out, &st)
		}
	}
	return out, st
}

func (c *Composer) applyRule(rule Rule, side domain.Side, contest *domain.Contest, out map[string]*float64, st *Stats) {
	idx := c.indexes[rule.Source]
	roster := contest.RosterFor(side)

	var value func(stat string, window int) *float64
	switch rule.Kind {
	case RuleWeightedLineup:
		snaps := make([]rolling.Snapshot, len(roster.Lineup))
		for i, id := range roster.Lineup {
			if id == 0 || i >= len(rule.Weights) {
				continue
			}
			snap, res := idx.Resolve(id, contest)
			st.record(res, rule.Source, id, contest.ContestID)
			snaps[i] = snap
		}
		value = func(stat string, window int) *float64 {
			return weightedMean(snaps, rule.Weights, rolling.Column(stat, window))
		}

	case RuleDesignee:
		var snap rolling.Snapshot
		if roster.Designee != nil {
			var res rolling.Resolution
			snap, res = idx.Resolve(*roster.Designee, contest)
			st.record(res, rule.Source, *roster.Designee, contest.ContestID)
		} else {
			st.NoDesignee++
		}
		value = func(stat string, window int) *float64 {
			return snap.Get(rolling.Column(stat, window))
		}

	case RuleGroupAverage:
		snaps := make([]rolling.Snapshot, 0, len(roster.Group))
		for _, id := range roster.Group {
			snap, res := idx.Resolve(id, contest)
			st.record(res, rule.Source, id, contest.ContestID)
			snaps = append(snaps, snap)
		}
		value = func(stat string, window int) *float64 {
			col := rolling.Column(stat, window)
			vals := make([]*float64, len(snaps))
			for i, s := range snaps {
				vals[i] = s.Get(col)
			}
			mean, _ := rolling.Mean(vals)
			return mean
		}

	case RuleTeam:
		var snap rolling.Snapshot
		if teamID := contest.TeamID(side); teamID != 0 {
			var res rolling.Resolution
			snap, res = idx.Resolve(teamID, contest)
			st.record(res, rule.Source, teamID, contest.ContestID)
		}
		value = func(stat string, window int) *float64 {
			return snap.Get(rolling.Column(stat, window))
		}
	}

	for _, stat := range rule.Stats {
		for _, w := range rule.Windows {
			out[rule.Column(side, stat, w)] = Round(value(stat, w), c.schema.Precision)
		}
	}
}

// weightedMean averages a column over slots, renormalizing the weights
// over the slots that have a value.
func weightedMean(snaps []rolling.Snapshot, weights []float64, column string) *float64 {
	var sum, total float64
	for i, snap := range snaps {
		if i >= len(weights) {
			break
		}
		v := snap.Get(column)
		if v == nil {
			continue
		}
		sum += weights[i] * *v
		total += weights[i]
	}
	if total == 0 {
		return nil
	}
	mean := sum / total
	return &mean
}
