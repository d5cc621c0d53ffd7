// Package reconcile writes computed feature rows to a FeatureStore.
//
// Two modes exist. FullRebuild reads the stored annotations, deletes every row
// and re-inserts the recomputed set with the annotations re-attached.
// IncrementalDelta upserts the rows of a narrow date window and leaves all other
// rows alone. Both modes write in bounded concurrent batches; a failed batch is
// retried row by row so one bad row never blocks the rest.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/observability"
	"sports-feature-lab/internal/storage"
)

// Mode selects the reconciliation strategy.
type Mode string

const (
	FullRebuild      Mode = "full"
	IncrementalDelta Mode = "current"
)

// ParseMode converts a CLI/config value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case FullRebuild, IncrementalDelta:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", storage.ErrInvalidInput, s)
}

// Defaults.
const (
	DefaultBatchSize   = 400
	DefaultConcurrency = 4
)

// Options configures a Syncer.
type Options struct {
	Store       storage.FeatureStore
	Sport       domain.Sport
	BatchSize   int           // rows per upsert call, DefaultBatchSize when <= 0
	Concurrency int           // concurrent batches, DefaultConcurrency when <= 0
	Limiter     *rate.Limiter // optional, one token per upsert call
	Logger      zerolog.Logger
	Metrics     *observability.Metrics
}

// Syncer reconciles feature rows into a store.
type Syncer struct {
	store       storage.FeatureStore
	sport       domain.Sport
	batchSize   int
	concurrency int
	limiter     *rate.Limiter
	log         zerolog.Logger
	metrics     *observability.Metrics
}

// New creates a Syncer.
func New(opts Options) *Syncer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Syncer{
		store:       opts.Store,
		sport:       opts.Sport,
		batchSize:   opts.BatchSize,
		concurrency: opts.Concurrency,
		limiter:     opts.Limiter,
		log:         opts.Logger.With().Str("component", "reconcile").Logger(),
		metrics:     opts.Metrics,
	}
}

// Annotations reads the annotations that a full rebuild must carry over.
// Call it before building rows so a failure aborts the run before any write.
func (s *Syncer) Annotations(ctx context.Context) (map[int64]domain.Annotation, error) {
	carried, err := s.store.Annotations(ctx)
	if err != nil {
		return nil, fmt.Errorf("read annotations: %w", err)
	}
	return carried, nil
}

// Rebuild replaces the whole stored set with rows.
// Annotations found in carried are re-attached by contest_id; annotations of
// contests absent from rows are dropped with them.
//
// Cancellation is honored only up to the delete. Once rows are deleted the
// re-insert runs to completion so the store is never left empty.
// A delete failure is recorded in the report and the upsert still runs.
func (s *Syncer) Rebuild(ctx context.Context, rows []*domain.FeatureRow, carried map[int64]domain.Annotation) (*WriteReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rebuild canceled before delete: %w", err)
	}

	report := &WriteReport{Mode: FullRebuild}
	for _, row := range rows {
		if a, ok := carried[row.ContestID()]; ok {
			row.Annotation = a
			report.AnnotationsCarried++
		} else {
			row.Annotation = domain.Annotation{}
		}
	}

	wctx := context.WithoutCancel(ctx)
	if err := s.store.DeleteAll(wctx); err != nil {
		report.DeleteErr = err
		s.log.Error().Err(err).Str("sport", s.sport.String()).Msg("delete before rebuild failed, upserting anyway")
	} else {
		report.Deleted = true
	}

	s.write(wctx, rows, report)
	s.log.Info().
		Str("sport", s.sport.String()).
		Int("attempted", report.Attempted).
		Int("written", report.Written).
		Int("failed", report.Failed()).
		Int("annotations_carried", report.AnnotationsCarried).
		Msg("full rebuild written")
	return report, nil
}

// Delta upserts rows by contest_id. Rows outside the set are untouched and
// stored annotations of existing rows are kept by the store.
func (s *Syncer) Delta(ctx context.Context, rows []*domain.FeatureRow) (*WriteReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("delta canceled: %w", err)
	}

	report := &WriteReport{Mode: IncrementalDelta}
	for _, row := range rows {
		row.Annotation = domain.Annotation{}
	}
	s.write(ctx, rows, report)
	s.log.Info().
		Str("sport", s.sport.String()).
		Int("attempted", report.Attempted).
		Int("written", report.Written).
		Int("failed", report.Failed()).
		Msg("delta written")
	return report, nil
}

// write upserts rows in concurrent batches. It never returns an error: every
// failure ends up in report.Failures.
func (s *Syncer) write(ctx context.Context, rows []*domain.FeatureRow, report *WriteReport) {
	report.Attempted = len(rows)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for start := 0; start < len(rows); start += s.batchSize {
		end := min(start+s.batchSize, len(rows))
		batch := rows[start:end]
		g.Go(func() error {
			res := s.writeBatch(ctx, batch)
			mu.Lock()
			report.merge(res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].ContestID < report.Failures[j].ContestID
	})
	s.metrics.RecordWrite(s.sport.String(), string(report.Mode), report.Written)
}

func (s *Syncer) writeBatch(ctx context.Context, batch []*domain.FeatureRow) batchResult {
	err := s.upsert(ctx, batch)
	if err == nil {
		return batchResult{written: len(batch)}
	}

	s.log.Warn().Err(err).
		Int64("first_contest", batch[0].ContestID()).
		Int("rows", len(batch)).
		Msg("batch upsert failed, retrying per row")
	s.metrics.RecordWriteFailure(s.sport.String(), "batch")

	res := batchResult{batchFailed: true}
	for _, row := range batch {
		res.retries++
		if err := s.upsert(ctx, []*domain.FeatureRow{row}); err != nil {
			s.log.Error().Err(err).Int64("contest_id", row.ContestID()).Msg("row upsert failed")
			s.metrics.RecordWriteFailure(s.sport.String(), "row")
			res.failures = append(res.failures, WriteFailure{ContestID: row.ContestID(), Err: err})
			continue
		}
		res.written++
	}
	return res
}

func (s *Syncer) upsert(ctx context.Context, rows []*domain.FeatureRow) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return s.store.Upsert(ctx, rows)
}
