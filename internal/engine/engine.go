// Package engine builds leakage-free feature rows from contests and observations.
// Flow: observations -> rolling snapshot indexes -> team snapshots -> composed rows.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"sports-feature-lab/internal/compose"
	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/rolling"
	"sports-feature-lab/internal/sideassign"
	"sports-feature-lab/internal/sport"
	"sports-feature-lab/internal/sport/mlb"
	"sports-feature-lab/internal/sport/nba"
)

// TeamBuilder derives team-level observations for the team snapshot index.
type TeamBuilder interface {
	TeamObservations(contests []*domain.Contest, obs []*domain.Observation) ([]*domain.Observation, sideassign.Report)
}

// TeamsFor returns the team builder of a sport.
func TeamsFor(p *sport.Profile, logger zerolog.Logger) (TeamBuilder, error) {
	switch p.Sport {
	case domain.SportMLB:
		return mlb.NewTeamBuilder(), nil
	case domain.SportNBA:
		return nba.NewTeamBuilder(p.Totals(), logger), nil
	}
	return nil, fmt.Errorf("%w: %q", sport.ErrUnknownSport, p.Sport)
}

// Inputs are the materialized source records of one run.
type Inputs struct {
	Targets      []*domain.Contest // contests that get a feature row
	History      []*domain.Contest // every contest of the aggregation range, targets included
	Observations []*domain.Observation
}

// Result is the output of one build.
type Result struct {
	Rows             []*domain.FeatureRow
	Compose          compose.Stats
	Assignment       sideassign.Report
	Entities         map[string]int // snapshot index name -> entity count
	TeamObservations int
}

// Engine runs one sport's feature build.
type Engine struct {
	profile *sport.Profile
	teams   TeamBuilder
	workers int
	logger  zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds per-entity and per-contest parallelism.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine.
func New(profile *sport.Profile, teams TeamBuilder, opts ...Option) *Engine {
	e := &Engine{
		profile: profile,
		teams:   teams,
		workers: runtime.GOMAXPROCS(0),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Profile returns the sport profile.
func (e *Engine) Profile() *sport.Profile {
	return e.profile
}

// Build computes one feature row per target contest, ordered by (date, contest_id).
func (e *Engine) Build(ctx context.Context, in Inputs, now time.Time) (*Result, error) {
	result := &Result{Entities: make(map[string]int)}
	indexes := make(map[string]*rolling.Index, len(e.profile.Sources))

	byGroup := make(map[string][]*domain.Observation)
	for _, o := range in.Observations {
		byGroup[o.Group] = append(byGroup[o.Group], o)
	}

	for _, src := range e.profile.Sources {
		var obs []*domain.Observation
		if src.Name == sport.TeamSource {
			var report sideassign.Report
			obs, report = e.teams.TeamObservations(in.History, in.Observations)
			result.Assignment = report
			result.TeamObservations = len(obs)
		} else {
			obs = byGroup[src.Group]
		}

		idx, err := e.computeIndex(ctx, src.Name, obs)
		if err != nil {
			return nil, err
		}
		indexes[src.Name] = idx
		result.Entities[src.Name] = idx.Len()
	}

	composer, err := compose.NewComposer(e.profile.Schema(), indexes,
		compose.WithWorkers(e.workers),
		compose.WithLogger(e.logger),
	)
	if err != nil {
		return nil, err
	}

	targets := make([]*domain.Contest, len(in.Targets))
	copy(targets, in.Targets)
	sort.SliceStable(targets, func(i, j int) bool { return targets[i].Before(targets[j]) })

	rows, stats, err := composer.Compose(ctx, targets, now)
	if err != nil {
		return nil, err
	}
	result.Rows = rows
	result.Compose = stats

	e.logger.Info().
		Int("rows", len(rows)).
		Int("team_observations", result.TeamObservations).
		Int("carried_forward", stats.CarriedForward).
		Int("missing", stats.Missing).
		Int("dropped_assignments", result.Assignment.Dropped).
		Msg("feature rows built")
	return result, nil
}

func (e *Engine) computeIndex(ctx context.Context, name string, obs []*domain.Observation) (*rolling.Index, error) {
	cfg, err := e.profile.RollingConfig(name)
	if err != nil {
		return nil, err
	}
	agg, err := rolling.NewAggregator(cfg,
		rolling.WithWorkers(e.workers),
		rolling.WithLogger(e.logger.With().Str("source", name).Logger()),
	)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", name, err)
	}
	idx, err := agg.Compute(ctx, obs)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", name, err)
	}
	return idx, nil
}
