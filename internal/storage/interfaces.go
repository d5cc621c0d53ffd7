package storage

import (
	"context"

	"sports-feature-lab/internal/domain"
)

// ContestSource provides read access to contest records with their rosters.
type ContestSource interface {
	// Contests returns contests matching the filter, ordered by (contest_date, contest_id).
	// Failures are returned as *SourceError.
	Contests(ctx context.Context, f ContestFilter) ([]*domain.Contest, error)
}

// ObservationSource provides read access to entity observations.
type ObservationSource interface {
	// Observations returns observations matching the filter in a stable order
	// (contest_id, entity_id, group). Failures are returned as *SourceError.
	Observations(ctx context.Context, f ObservationFilter) ([]*domain.Observation, error)
}

// FeatureStore provides access to the persisted feature rows of one sport.
// contest_id is the unique key.
type FeatureStore interface {
	// Upsert inserts or replaces rows by contest_id. All rows of one call succeed or fail together.
	// Existing annotation columns are never overwritten; new rows take the row's annotation.
	Upsert(ctx context.Context, rows []*domain.FeatureRow) error

	// DeleteAll removes every row.
	DeleteAll(ctx context.Context) error

	// Annotations returns the non-empty annotations keyed by contest_id.
	Annotations(ctx context.Context) (map[int64]domain.Annotation, error)

	// Annotate writes the annotation of one contest. Returns ErrNotFound if the row does not exist.
	// This is the downstream consumer's write path.
	Annotate(ctx context.Context, contestID int64, a domain.Annotation) error

	// Query returns rows matching the filter, ordered by (contest_date, contest_id).
	Query(ctx context.Context, f FeatureFilter) ([]*domain.FeatureRow, error)
}
