package storage

import (
	"context"

	"github.com/rs/zerolog"

	"sports-feature-lab/internal/domain"
)

// Mirror writes to a primary FeatureStore and copies every successful write to
// a secondary one. Reads are served by the primary. Secondary failures are
// logged and never returned, so the mirror cannot fail a run.
type Mirror struct {
	primary   FeatureStore
	secondary FeatureStore
	log       zerolog.Logger
}

// NewMirror creates a Mirror.
func NewMirror(primary, secondary FeatureStore, logger zerolog.Logger) *Mirror {
	return &Mirror{
		primary:   primary,
		secondary: secondary,
		log:       logger.With().Str("component", "mirror").Logger(),
	}
}

// Compile-time interface check.
var _ FeatureStore = (*Mirror)(nil)

// Upsert implements FeatureStore.
func (m *Mirror) Upsert(ctx context.Context, rows []*domain.FeatureRow) error {
	if err := m.primary.Upsert(ctx, rows); err != nil {
		return err
	}
	if err := m.secondary.Upsert(ctx, rows); err != nil {
		m.log.Warn().Err(err).Int("rows", len(rows)).Msg("mirror upsert failed")
	}
	return nil
}

// DeleteAll implements FeatureStore.
func (m *Mirror) DeleteAll(ctx context.Context) error {
	if err := m.primary.DeleteAll(ctx); err != nil {
		return err
	}
	if err := m.secondary.DeleteAll(ctx); err != nil {
		m.log.Warn().Err(err).Msg("mirror delete failed")
	}
	return nil
}

// Annotations implements FeatureStore.
func (m *Mirror) Annotations(ctx context.Context) (map[int64]domain.Annotation, error) {
	return m.primary.Annotations(ctx)
}

// Annotate implements FeatureStore.
func (m *Mirror) Annotate(ctx context.Context, contestID int64, a domain.Annotation) error {
	if err := m.primary.Annotate(ctx, contestID, a); err != nil {
		return err
	}
	if err := m.secondary.Annotate(ctx, contestID, a); err != nil {
		m.log.Warn().Err(err).Int64("contest_id", contestID).Msg("mirror annotate failed")
	}
	return nil
}

// Query implements FeatureStore.
func (m *Mirror) Query(ctx context.Context, f FeatureFilter) ([]*domain.FeatureRow, error) {
	return m.primary.Query(ctx, f)
}
