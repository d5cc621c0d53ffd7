// Package orchestrator sequences one feature run.
// Flow: load sources → build rows → reconcile into the feature store
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/engine"
	"sports-feature-lab/internal/idhash"
	"sports-feature-lab/internal/observability"
	"sports-feature-lab/internal/reconcile"
	"sports-feature-lab/internal/storage"
)

// Orchestrator runs full rebuilds and incremental deltas for one sport.
type Orchestrator struct {
	engine       *engine.Engine
	contests     storage.ContestSource
	observations storage.ObservationSource
	syncer       *reconcile.Syncer
	log          zerolog.Logger
	metrics      *observability.Metrics
	now          func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Engine       *engine.Engine
	Contests     storage.ContestSource
	Observations storage.ObservationSource

	// Syncer writes the rows. Nil makes every run a dry run.
	Syncer *reconcile.Syncer

	Logger  zerolog.Logger
	Metrics *observability.Metrics
	Now     func() time.Time // Injectable clock, defaults to time.Now
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		engine:       opts.Engine,
		contests:     opts.Contests,
		observations: opts.Observations,
		syncer:       opts.Syncer,
		log:          opts.Logger.With().Str("component", "orchestrator").Logger(),
		metrics:      opts.Metrics,
		now:          now,
	}
}

// RunResult contains results from one run.
type RunResult struct {
	RunID      string
	Sport      domain.Sport
	Mode       reconcile.Mode
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time

	// Input scope
	Seasons  []int             // full rebuild
	Targets  storage.DateRange // incremental delta
	History  storage.DateRange // incremental delta
	Contests int               // contests read, history included
	Observed int               // observations read

	Build       *engine.Result
	Write       *reconcile.WriteReport // nil on dry runs
	DataVersion string
	Errors      []string
}

// Rows returns the built rows.
func (r *RunResult) Rows() []*domain.FeatureRow {
	if r.Build == nil {
		return nil
	}
	return r.Build.Rows
}

// Run executes a run in the given mode.
func (o *Orchestrator) Run(ctx context.Context, mode reconcile.Mode) (*RunResult, error) {
	switch mode {
	case reconcile.FullRebuild:
		return o.RunFull(ctx)
	case reconcile.IncrementalDelta:
		return o.RunIncremental(ctx)
	}
	return nil, fmt.Errorf("%w: unknown mode %q", storage.ErrInvalidInput, mode)
}

// RunFull recomputes every contest from the first configured season and
// replaces the stored set, keeping downstream annotations.
// Phases:
//  1. Read stored annotations
//  2. Load contests and observations of every season
//  3. Build rows
//  4. Delete and re-insert
func (o *Orchestrator) RunFull(ctx context.Context) (*RunResult, error) {
	res, log := o.start(reconcile.FullRebuild)
	profile := o.engine.Profile()
	res.Seasons = profile.Seasons(res.StartedAt)

	// Phase 1: annotations are read before anything is recomputed
	var carried map[int64]domain.Annotation
	if o.syncer != nil {
		var err error
		carried, err = o.syncer.Annotations(ctx)
		if err != nil {
			return o.fail(res, fmt.Errorf("phase 1 (read annotations) failed: %w", err))
		}
		log.Info().Int("annotations", len(carried)).Msg("annotations read")
	}

	// Phase 2: load sources
	contests, err := o.contests.Contests(ctx, storage.ContestFilter{Seasons: res.Seasons})
	if err != nil {
		return o.fail(res, fmt.Errorf("phase 2 (load contests) failed: %w", err))
	}
	if len(contests) == 0 {
		return o.fail(res, fmt.Errorf("phase 2 (load contests) failed: %w", storage.ErrNoContests))
	}
	obs, err := o.observations.Observations(ctx, storage.ObservationFilter{Seasons: res.Seasons})
	if err != nil {
		return o.fail(res, fmt.Errorf("phase 2 (load observations) failed: %w", err))
	}
	if len(obs) == 0 {
		return o.fail(res, fmt.Errorf("phase 2 (load observations) failed: %w", storage.ErrNoObservations))
	}
	res.Contests, res.Observed = len(contests), len(obs)
	log.Info().Int("contests", len(contests)).Int("observations", len(obs)).Ints("seasons", res.Seasons).Msg("sources loaded")

	// Phase 3: build
	if err := o.build(ctx, res, engine.Inputs{Targets: contests, History: contests, Observations: obs}); err != nil {
		return o.fail(res, err)
	}

	// Phase 4: replace the stored set
	if o.syncer != nil {
		report, err := o.syncer.Rebuild(ctx, res.Build.Rows, carried)
		if err != nil {
			return o.fail(res, fmt.Errorf("phase 4 (rebuild) failed: %w", err))
		}
		o.recordWrite(res, report)
	}

	return o.finish(res, log), nil
}

// RunIncremental recomputes the contests of the profile's recent window using a
// wider history as aggregation input, and upserts them.
// Phases:
//  1. Load history contests and observations, select targets
//  2. Build rows
//  3. Upsert
func (o *Orchestrator) RunIncremental(ctx context.Context) (*RunResult, error) {
	res, log := o.start(reconcile.IncrementalDelta)
	profile := o.engine.Profile()

	from, to := profile.TargetRange(res.StartedAt)
	res.Targets = storage.DateRange{From: from, To: to}
	res.History = storage.DateRange{From: profile.HistoryFrom(res.StartedAt), To: to}

	// Phase 1: load sources
	history, err := o.contests.Contests(ctx, storage.ContestFilter{Dates: res.History})
	if err != nil {
		return o.fail(res, fmt.Errorf("phase 1 (load contests) failed: %w", err))
	}
	var targets []*domain.Contest
	for _, c := range history {
		if res.Targets.Contains(c.ContestDate) {
			targets = append(targets, c)
		}
	}
	if len(targets) == 0 {
		return o.fail(res, fmt.Errorf("phase 1 (load contests) failed: %w", storage.ErrNoContests))
	}
	obs, err := o.observations.Observations(ctx, storage.ObservationFilter{Dates: res.History})
	if err != nil {
		return o.fail(res, fmt.Errorf("phase 1 (load observations) failed: %w", err))
	}
	if len(obs) == 0 {
		return o.fail(res, fmt.Errorf("phase 1 (load observations) failed: %w", storage.ErrNoObservations))
	}
	res.Contests, res.Observed = len(history), len(obs)
	log.Info().
		Int("targets", len(targets)).
		Int("contests", len(history)).
		Int("observations", len(obs)).
		Time("target_from", from).
		Time("target_to", to).
		Msg("sources loaded")

	// Phase 2: build
	if err := o.build(ctx, res, engine.Inputs{Targets: targets, History: history, Observations: obs}); err != nil {
		return o.fail(res, err)
	}

	// Phase 3: upsert
	if o.syncer != nil {
		report, err := o.syncer.Delta(ctx, res.Build.Rows)
		if err != nil {
			return o.fail(res, fmt.Errorf("phase 3 (delta) failed: %w", err))
		}
		o.recordWrite(res, report)
	}

	return o.finish(res, log), nil
}

func (o *Orchestrator) start(mode reconcile.Mode) (*RunResult, zerolog.Logger) {
	res := &RunResult{
		RunID:     uuid.NewString(),
		Sport:     o.engine.Profile().Sport,
		Mode:      mode,
		DryRun:    o.syncer == nil,
		StartedAt: o.now().UTC(),
	}
	log := o.log.With().
		Str("run_id", res.RunID).
		Str("sport", res.Sport.String()).
		Str("mode", string(mode)).
		Logger()
	log.Info().Bool("dry_run", res.DryRun).Msg("run started")
	return res, log
}

func (o *Orchestrator) build(ctx context.Context, res *RunResult, in engine.Inputs) error {
	built, err := o.engine.Build(ctx, in, res.StartedAt)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	res.Build = built
	res.DataVersion = idhash.ComputeDataVersion(built.Rows)

	st := built.Compose
	o.metrics.RecordBuild(res.Sport.String(), st.Rows, st.Exact, st.CarriedForward, st.Missing, built.Assignment.Dropped)
	return nil
}

func (o *Orchestrator) recordWrite(res *RunResult, report *reconcile.WriteReport) {
	res.Write = report
	if report.DeleteErr != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("delete all: %v", report.DeleteErr))
	}
	for _, f := range report.Failures {
		res.Errors = append(res.Errors, f.Error())
	}
}

func (o *Orchestrator) finish(res *RunResult, log zerolog.Logger) *RunResult {
	res.FinishedAt = o.now().UTC()
	o.metrics.RecordRun(res.Sport.String(), string(res.Mode), "success",
		res.FinishedAt.Sub(res.StartedAt).Seconds(), res.FinishedAt.Unix())

	ev := log.Info().
		Int("rows", len(res.Rows())).
		Str("data_version", res.DataVersion).
		Int("errors", len(res.Errors))
	if res.Write != nil {
		ev = ev.Int("written", res.Write.Written).Int("failed", res.Write.Failed())
	}
	ev.Msg("run completed")
	return res
}

func (o *Orchestrator) fail(res *RunResult, err error) (*RunResult, error) {
	res.FinishedAt = o.now().UTC()
	o.metrics.RecordRun(res.Sport.String(), string(res.Mode), "failure",
		res.FinishedAt.Sub(res.StartedAt).Seconds(), res.FinishedAt.Unix())
	o.log.Error().Err(err).Str("run_id", res.RunID).Msg("run failed")
	return nil, err
}
