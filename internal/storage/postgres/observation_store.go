package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/storage"
)

const observationColumns = `contest_id, entity_id, obs_group, contest_date, season_id, team_id, matchup, win_loss, stats`

// ObservationStore implements storage.ObservationSource using PostgreSQL.
// Reads are keyset-paginated on (contest_id, entity_id, obs_group).
type ObservationStore struct {
	pool     *Pool
	sport    domain.Sport
	pageSize int
}

// NewObservationStore creates a new ObservationStore. pageSize <= 0 uses DefaultPageSize.
func NewObservationStore(pool *Pool, sport domain.Sport, pageSize int) *ObservationStore {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ObservationStore{pool: pool, sport: sport, pageSize: pageSize}
}

// Compile-time interface check.
var _ storage.ObservationSource = (*ObservationStore)(nil)

// Upsert inserts or replaces observations by (contest_id, entity_id, group) atomically.
func (s *ObservationStore) Upsert(ctx context.Context, obs []*domain.Observation) (err error) {
	if len(obs) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { s.pool.observe("observations_upsert", start, err) }()

	query := `
		INSERT INTO observations (sport, ` + observationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (sport, contest_id, entity_id, obs_group) DO UPDATE SET
			contest_date = EXCLUDED.contest_date,
			season_id = EXCLUDED.season_id,
			team_id = EXCLUDED.team_id,
			matchup = EXCLUDED.matchup,
			win_loss = EXCLUDED.win_loss,
			stats = EXCLUDED.stats
	`

	batch := &pgx.Batch{}
	for _, o := range obs {
		if o.ContestID == 0 || o.EntityID == 0 || o.Group == "" {
			return storage.ErrInvalidInput
		}
		stats := o.Stats
		if stats == nil {
			stats = map[string]float64{}
		}
		batch.Queue(query,
			string(s.sport),
			o.ContestID,
			o.EntityID,
			o.Group,
			o.ContestDate,
			o.SeasonID,
			o.TeamID,
			o.Matchup,
			o.WinLoss,
			stats,
		)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := execBatch(ctx, tx, batch); err != nil {
		return fmt.Errorf("upsert observations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Observations returns observations matching the filter, ordered by (contest_id, entity_id, group).
// Stat payload values are coerced with storage.CoerceStats.
func (s *ObservationStore) Observations(ctx context.Context, f storage.ObservationFilter) ([]*domain.Observation, error) {
	start := time.Now()
	out, err := s.observations(ctx, f)
	s.pool.observe("observations_select", start, err)
	if err != nil {
		return nil, storage.Unavailable("observations", err)
	}
	return out, nil
}

func (s *ObservationStore) observations(ctx context.Context, f storage.ObservationFilter) ([]*domain.Observation, error) {
	var out []*domain.Observation
	var last *domain.Observation

	for {
		w := &where{}
		w.and("sport = " + w.arg(string(s.sport)))
		if len(f.Seasons) > 0 {
			w.and("season_id = ANY(" + w.arg(f.Seasons) + ")")
		}
		w.dates("contest_date", f.Dates.From, f.Dates.To)
		if len(f.Groups) > 0 {
			w.and("obs_group = ANY(" + w.arg(f.Groups) + ")")
		}
		if last != nil {
			w.and(fmt.Sprintf("(contest_id, entity_id, obs_group) > (%s, %s, %s)",
				w.arg(last.ContestID), w.arg(last.EntityID), w.arg(last.Group)))
		}

		query := fmt.Sprintf(`
			SELECT %s
			FROM observations
			%s
			ORDER BY contest_id ASC, entity_id ASC, obs_group ASC
			LIMIT %d
		`, observationColumns, w, s.pageSize)

		rows, err := s.pool.Query(ctx, query, w.args...)
		if err != nil {
			return nil, fmt.Errorf("query observations: %w", err)
		}
		page, err := scanObservations(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, page...)
		if len(page) < s.pageSize {
			return out, nil
		}
		last = page[len(page)-1]
	}
}

// scanObservations scans multiple rows into a slice of Observation.
func scanObservations(rows pgx.Rows) ([]*domain.Observation, error) {
	defer rows.Close()

	var obs []*domain.Observation
	for rows.Next() {
		var o domain.Observation
		var raw map[string]any

		err := rows.Scan(
			&o.ContestID,
			&o.EntityID,
			&o.Group,
			&o.ContestDate,
			&o.SeasonID,
			&o.TeamID,
			&o.Matchup,
			&o.WinLoss,
			&raw,
		)
		if err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}
		o.Stats = storage.CoerceStats(raw)
		obs = append(obs, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}
	return obs, nil
}
