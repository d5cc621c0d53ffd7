package rolling

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sports-feature-lab/internal/domain"
)

// Aggregator computes rolling snapshots for every entity of a run.
type Aggregator struct {
	cfg     Config
	workers int
	logger  zerolog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithWorkers bounds the number of entities computed in parallel.
// Output is identical for any value.
func WithWorkers(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// NewAggregator creates an Aggregator. Returns an error for an invalid config.
func NewAggregator(cfg Config, opts ...Option) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("rolling config: %w", err)
	}
	a := &Aggregator{
		cfg:     cfg,
		workers: runtime.GOMAXPROCS(0),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Compute builds the snapshot index for the given observations.
// Observations are grouped by EntityID; the input slice is not modified.
func (a *Aggregator) Compute(ctx context.Context, obs []*domain.Observation) (*Index, error) {
	byEntity := make(map[int64][]*domain.Observation)
	for _, o := range obs {
		byEntity[o.EntityID] = append(byEntity[o.EntityID], o)
	}

	ids := make([]int64, 0, len(byEntity))
	for id := range byEntity {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	results := make([][]Entry, len(ids))
	dropped := make([]int, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], dropped[i] = a.computeEntity(byEntity[id])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compute rolling snapshots: %w", err)
	}

	idx := newIndex(len(ids))
	duplicates := 0
	for i, id := range ids {
		idx.put(id, results[i])
		duplicates += dropped[i]
	}
	if duplicates > 0 {
		a.logger.Warn().Int("duplicates", duplicates).Msg("dropped repeated entity-contest observations")
	}
	a.logger.Debug().Int("entities", len(ids)).Int("observations", len(obs)).Msg("rolling snapshots computed")
	return idx, nil
}

// computeEntity computes the snapshots of one entity's observations.
func (a *Aggregator) computeEntity(obs []*domain.Observation) ([]Entry, int) {
	SortObservations(obs)
	obs, dropped := dedupeByContest(obs)

	entries := make([]Entry, len(obs))
	for i, o := range obs {
		entries[i] = Entry{
			ContestID:   o.ContestID,
			ContestDate: o.ContestDate,
			Values:      make(Snapshot, len(a.cfg.Stats)*len(a.cfg.Windows)),
		}
	}

	values := make([]*float64, len(obs))
	for _, stat := range a.cfg.Stats {
		for i, o := range obs {
			values[i] = nil
			if v, ok := o.Value(stat.Source); ok {
				values[i] = &v
			}
		}
		name := stat.OutputName()
		for _, w := range a.cfg.Windows {
			col := Column(name, w)
			for i := range obs {
				window := Prior(values, i, w)
				switch stat.Kind {
				case KindCount:
					entries[i].Values[col] = Count(window)
				default:
					entries[i].Values[col], _ = Mean(window)
				}
			}
		}
	}
	return entries, dropped
}
