package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"sports-feature-lab/internal/config"
	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/engine"
	"sports-feature-lab/internal/observability"
	"sports-feature-lab/internal/orchestrator"
	"sports-feature-lab/internal/reconcile"
	"sports-feature-lab/internal/reporting"
	"sports-feature-lab/internal/sport"
	"sports-feature-lab/internal/storage"
	chstore "sports-feature-lab/internal/storage/clickhouse"
	"sports-feature-lab/internal/storage/memory"
	pgstore "sports-feature-lab/internal/storage/postgres"
)

// app holds the wired components of one sport.
type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
	profile  *sport.Profile

	contests     storage.ContestSource
	observations storage.ObservationSource
	features     storage.FeatureStore
	orchestrator *orchestrator.Orchestrator

	cleanup []func()
}

// newApp loads configuration and wires stores, engine and orchestrator.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}

	s := domain.Sport(sportFlag)
	if !s.IsValid() {
		return nil, fmt.Errorf("--sport must be mlb or nba, got %q", sportFlag)
	}
	profile, err := sport.Load(s, cfg.ProfileDir)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	registry := prometheus.NewRegistry()
	a := &app{
		cfg:      cfg,
		logger:   logger.With().Str("sport", s.String()).Logger(),
		registry: registry,
		metrics:  observability.NewMetrics("sports_features", registry),
		profile:  profile,
	}
	if err := a.connect(ctx); err != nil {
		a.close()
		return nil, err
	}

	teams, err := engine.TeamsFor(profile, a.logger)
	if err != nil {
		a.close()
		return nil, err
	}
	eng := engine.New(profile, teams, engine.WithLogger(a.logger))

	var syncer *reconcile.Syncer
	if !dryRun {
		syncer = reconcile.New(reconcile.Options{
			Store:       a.features,
			Sport:       s,
			BatchSize:   cfg.BatchSize,
			Concurrency: cfg.WriteConcurrency,
			Limiter:     limiter(cfg.WritesPerSecond),
			Logger:      a.logger,
			Metrics:     a.metrics,
		})
	}

	now, err := clock(nowFlag)
	if err != nil {
		a.close()
		return nil, err
	}

	a.orchestrator = orchestrator.New(orchestrator.Options{
		Engine:       eng,
		Contests:     a.contests,
		Observations: a.observations,
		Syncer:       syncer,
		Logger:       a.logger,
		Metrics:      a.metrics,
		Now:          now,
	})
	return a, nil
}

// connect opens the source database and the selected feature store.
func (a *app) connect(ctx context.Context) error {
	s := a.profile.Sport

	if a.cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required: contests and observations are read from postgres")
	}
	pool, err := pgstore.NewPool(ctx, a.cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	pool.SetMetrics(a.metrics)
	a.cleanup = append(a.cleanup, pool.Close)

	a.contests = pgstore.NewContestStore(pool, s, a.cfg.SourcePageSize)
	a.observations = pgstore.NewObservationStore(pool, s, a.cfg.SourcePageSize)

	var ch *chstore.Conn
	if a.cfg.FeatureStore == config.StoreClickhouse || a.cfg.MirrorClickhouse {
		ch, err = chstore.NewConn(ctx, a.cfg.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		ch.SetMetrics(a.metrics)
		a.cleanup = append(a.cleanup, func() { _ = ch.Close() })
	}

	var primary storage.FeatureStore
	switch a.cfg.FeatureStore {
	case config.StorePostgres:
		primary = pgstore.NewFeatureStore(pool, s)
	case config.StoreClickhouse:
		primary = chstore.NewFeatureStore(ch, s)
	case config.StoreMemory:
		primary = memory.NewFeatureStore()
	}

	if a.cfg.MirrorClickhouse && a.cfg.FeatureStore != config.StoreClickhouse {
		a.features = storage.NewMirror(primary, chstore.NewFeatureStore(ch, s), a.logger)
	} else {
		a.features = primary
	}

	a.logger.Info().
		Str("store", a.cfg.FeatureStore).
		Bool("mirror_clickhouse", a.cfg.MirrorClickhouse).
		Bool("dry_run", dryRun).
		Msg("stores connected")
	return nil
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

// writeSummary renders the markdown run summary to --out, if set.
func (a *app) writeSummary(res *orchestrator.RunResult) error {
	if outPath == "" {
		return nil
	}
	report := reporting.NewGenerator(a.profile.Schema().Columns()).Generate(res)
	if err := os.WriteFile(outPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	a.logger.Info().Str("path", outPath).Msg("run summary written")
	return nil
}

// limiter returns a write throttle, nil when unlimited.
func limiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// clock parses --now into a fixed clock. Empty means time.Now.
func clock(value string) (func() time.Time, error) {
	if value == "" {
		return time.Now, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return func() time.Time { return t }, nil
		}
	}
	return nil, fmt.Errorf("--now: expected RFC3339 or YYYY-MM-DD, got %q", value)
}
