package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/storage"
)

const featureColumns = contestColumns + `, features, prediction, prediction_pct, updated_at`

// FeatureStore implements storage.FeatureStore using PostgreSQL.
// Rows of one sport share the feature_rows table, keyed by (sport, contest_id).
type FeatureStore struct {
	pool  *Pool
	sport domain.Sport
}

// NewFeatureStore creates a new FeatureStore.
func NewFeatureStore(pool *Pool, sport domain.Sport) *FeatureStore {
	return &FeatureStore{pool: pool, sport: sport}
}

// Compile-time interface check.
var _ storage.FeatureStore = (*FeatureStore)(nil)

// Upsert inserts or replaces rows by contest_id in one transaction.
// prediction and prediction_pct are only written on insert.
func (s *FeatureStore) Upsert(ctx context.Context, rows []*domain.FeatureRow) (err error) {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { s.pool.observe("feature_rows_upsert", start, err) }()

	query := `
		INSERT INTO feature_rows (` + featureColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22)
		ON CONFLICT (sport, contest_id) DO UPDATE SET ` + contestUpdateSet + `,
			features = EXCLUDED.features,
			updated_at = EXCLUDED.updated_at
	`

	batch := &pgx.Batch{}
	for _, r := range rows {
		if r == nil || r.ContestID() == 0 {
			return storage.ErrInvalidInput
		}
		if r.Contest.Sport != "" && r.Contest.Sport != s.sport {
			return fmt.Errorf("%w: row %d is %s, store is %s", storage.ErrInvalidInput, r.ContestID(), r.Contest.Sport, s.sport)
		}
		features := r.Features
		if features == nil {
			features = map[string]*float64{}
		}
		args := append(contestArgs(s.sport, &r.Contest),
			features,
			r.Annotation.Prediction,
			r.Annotation.PredictionPct,
			r.UpdatedAt,
		)
		batch.Queue(query, args...)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := execBatch(ctx, tx, batch); err != nil {
		return fmt.Errorf("upsert feature rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// DeleteAll removes every row of the store's sport.
func (s *FeatureStore) DeleteAll(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.pool.observe("feature_rows_delete", start, err) }()

	if _, err := s.pool.Exec(ctx, `DELETE FROM feature_rows WHERE sport = $1`, string(s.sport)); err != nil {
		return fmt.Errorf("delete feature rows: %w", err)
	}
	return nil
}

// Annotations returns the non-empty annotations keyed by contest_id.
func (s *FeatureStore) Annotations(ctx context.Context) (map[int64]domain.Annotation, error) {
	query := `
		SELECT contest_id, prediction, prediction_pct
		FROM feature_rows
		WHERE sport = $1 AND (prediction IS NOT NULL OR prediction_pct IS NOT NULL)
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, string(s.sport))
	if err != nil {
		s.pool.observe("feature_rows_annotations", start, err)
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]domain.Annotation)
	for rows.Next() {
		var id int64
		var a domain.Annotation
		if err := rows.Scan(&id, &a.Prediction, &a.PredictionPct); err != nil {
			return nil, fmt.Errorf("scan annotation row: %w", err)
		}
		out[id] = a
	}
	err = rows.Err()
	s.pool.observe("feature_rows_annotations", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate annotation rows: %w", err)
	}
	return out, nil
}

// Annotate writes the annotation of one contest. Returns ErrNotFound if the row does not exist.
func (s *FeatureStore) Annotate(ctx context.Context, contestID int64, a domain.Annotation) error {
	query := `
		UPDATE feature_rows
		SET prediction = $3, prediction_pct = $4
		WHERE sport = $1 AND contest_id = $2
	`

	tag, err := s.pool.Exec(ctx, query, string(s.sport), contestID, a.Prediction, a.PredictionPct)
	if err != nil {
		return fmt.Errorf("annotate feature row: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Query returns rows matching the filter, ordered by (contest_date, contest_id).
func (s *FeatureStore) Query(ctx context.Context, f storage.FeatureFilter) ([]*domain.FeatureRow, error) {
	w := contestWhere(s.sport, f.Seasons, f.Dates, f.IDs, f.Statuses)
	query := fmt.Sprintf(`
		SELECT %s
		FROM feature_rows
		%s
		ORDER BY contest_date ASC, contest_id ASC
	`, featureColumns, w)

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, w.args...)
	if err != nil {
		s.pool.observe("feature_rows_select", start, err)
		return nil, fmt.Errorf("query feature rows: %w", err)
	}

	out, err := scanFeatureRows(rows)
	s.pool.observe("feature_rows_select", start, err)
	return out, err
}

// scanFeatureRows scans multiple rows into a slice of FeatureRow.
func scanFeatureRows(rows pgx.Rows) ([]*domain.FeatureRow, error) {
	defer rows.Close()

	var out []*domain.FeatureRow
	for rows.Next() {
		var r domain.FeatureRow
		var cs contestScan

		dest := append(cs.dest(&r.Contest),
			&r.Features,
			&r.Annotation.Prediction,
			&r.Annotation.PredictionPct,
			&r.UpdatedAt,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}
		cs.apply(&r.Contest)
		r.UpdatedAt = r.UpdatedAt.UTC()
		out = append(out, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}
	return out, nil
}
