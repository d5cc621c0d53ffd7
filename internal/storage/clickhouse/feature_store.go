package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/storage"
)

const featureColumns = `
	sport, contest_id, season_id, contest_date, home_id, away_id, home_name, away_name,
	status, outcome, home_score, away_score,
	home_lineup, away_lineup, home_designee, away_designee, home_group, away_group,
	features, prediction, prediction_pct, updated_at`

// FeatureStore implements storage.FeatureStore on a ReplacingMergeTree table.
// Every write inserts a new version; reads use FINAL so the newest version of a
// contest wins. DeleteAll is a lightweight DELETE scoped to the sport.
type FeatureStore struct {
	conn        *Conn
	sport       domain.Sport
	lastVersion atomic.Uint64
}

// NewFeatureStore creates a new FeatureStore.
func NewFeatureStore(conn *Conn, sport domain.Sport) *FeatureStore {
	return &FeatureStore{conn: conn, sport: sport}
}

// Compile-time interface check.
var _ storage.FeatureStore = (*FeatureStore)(nil)

// Upsert inserts a new version of each row. Annotations already stored for a
// contest are copied onto its new version.
func (s *FeatureStore) Upsert(ctx context.Context, rows []*domain.FeatureRow) (err error) {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { s.conn.observe("feature_rows_upsert", start, err) }()

	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		if r == nil || r.ContestID() == 0 {
			return storage.ErrInvalidInput
		}
		if r.Contest.Sport != "" && r.Contest.Sport != s.sport {
			return fmt.Errorf("%w: row %d is %s, store is %s", storage.ErrInvalidInput, r.ContestID(), r.Contest.Sport, s.sport)
		}
		ids = append(ids, r.ContestID())
	}

	existing, err := s.annotations(ctx, ids, false)
	if err != nil {
		return err
	}

	out := make([]*domain.FeatureRow, len(rows))
	for i, r := range rows {
		cp := *r
		if a, ok := existing[r.ContestID()]; ok {
			cp.Annotation = a
		}
		out[i] = &cp
	}
	return s.insert(ctx, out)
}

// DeleteAll removes every row of the store's sport.
func (s *FeatureStore) DeleteAll(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.conn.observe("feature_rows_delete", start, err) }()

	if err := s.conn.Exec(ctx, `DELETE FROM feature_rows WHERE sport = ?`, string(s.sport)); err != nil {
		return fmt.Errorf("delete feature rows: %w", err)
	}
	return nil
}

// Annotations returns the non-empty annotations keyed by contest_id.
func (s *FeatureStore) Annotations(ctx context.Context) (map[int64]domain.Annotation, error) {
	return s.annotations(ctx, nil, true)
}

// Annotate writes a new version of the row carrying the annotation.
func (s *FeatureStore) Annotate(ctx context.Context, contestID int64, a domain.Annotation) error {
	rows, err := s.Query(ctx, storage.FeatureFilter{IDs: []int64{contestID}})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return storage.ErrNotFound
	}
	rows[0].Annotation = a
	return s.insert(ctx, rows[:1])
}

// Query returns rows matching the filter, ordered by (contest_date, contest_id).
func (s *FeatureStore) Query(ctx context.Context, f storage.FeatureFilter) (out []*domain.FeatureRow, err error) {
	start := time.Now()
	defer func() { s.conn.observe("feature_rows_select", start, err) }()

	clauses := []string{"sport = ?"}
	args := []any{string(s.sport)}
	if len(f.Seasons) > 0 {
		clauses = append(clauses, "has(?, season_id)")
		args = append(args, f.Seasons)
	}
	if len(f.IDs) > 0 {
		clauses = append(clauses, "has(?, contest_id)")
		args = append(args, f.IDs)
	}
	if len(f.Statuses) > 0 {
		codes := make([]int, len(f.Statuses))
		for i, st := range f.Statuses {
			codes[i] = int(st)
		}
		clauses = append(clauses, "has(?, status)")
		args = append(args, codes)
	}
	if !f.Dates.From.IsZero() {
		clauses = append(clauses, "contest_date >= toDate(?)")
		args = append(args, f.Dates.From.Format(time.DateOnly))
	}
	if !f.Dates.To.IsZero() {
		clauses = append(clauses, "contest_date <= toDate(?)")
		args = append(args, f.Dates.To.Format(time.DateOnly))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM feature_rows FINAL
		WHERE %s
		ORDER BY contest_date ASC, contest_id ASC
	`, featureColumns, strings.Join(clauses, " AND "))

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feature rows: %w", err)
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

// annotations reads stored annotations. ids limits the contests; nonEmpty drops
// rows without any annotation.
func (s *FeatureStore) annotations(ctx context.Context, ids []int64, nonEmpty bool) (map[int64]domain.Annotation, error) {
	clauses := []string{"sport = ?"}
	args := []any{string(s.sport)}
	if ids != nil {
		clauses = append(clauses, "has(?, contest_id)")
		args = append(args, ids)
	}
	if nonEmpty {
		clauses = append(clauses, "(prediction IS NOT NULL OR prediction_pct IS NOT NULL)")
	}

	query := `
		SELECT contest_id, prediction, prediction_pct
		FROM feature_rows FINAL
		WHERE ` + strings.Join(clauses, " AND ")

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]domain.Annotation)
	for rows.Next() {
		var id int64
		var prediction *uint8
		var a domain.Annotation
		if err := rows.Scan(&id, &prediction, &a.PredictionPct); err != nil {
			return nil, fmt.Errorf("scan annotation row: %w", err)
		}
		a.Prediction = fromUint8(prediction)
		out[id] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotation rows: %w", err)
	}
	return out, nil
}

func (s *FeatureStore) insert(ctx context.Context, rows []*domain.FeatureRow) error {
	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO feature_rows (`+featureColumns+`, version)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	version := s.nextVersion()
	for _, r := range rows {
		features, err := json.Marshal(r.Features)
		if err != nil {
			return fmt.Errorf("encode features of contest %d: %w", r.ContestID(), err)
		}
		c := r.Contest

		// Pass nil values directly for Nullable columns
		err = batch.Append(
			string(s.sport), c.ContestID, int32(c.SeasonID), c.ContestDate,
			c.HomeID, c.AwayID, c.HomeName, c.AwayName,
			uint8(c.Status), toUint8(c.Outcome), toInt32(c.HomeScore), toInt32(c.AwayScore),
			nonNil(c.Home.Lineup), nonNil(c.Away.Lineup), c.Home.Designee, c.Away.Designee,
			nonNil(c.Home.Group), nonNil(c.Away.Group),
			string(features), toUint8(r.Annotation.Prediction), r.Annotation.PredictionPct, r.UpdatedAt,
			version,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// nextVersion returns a strictly increasing version based on wall time.
func (s *FeatureStore) nextVersion() uint64 {
	for {
		last := s.lastVersion.Load()
		next := uint64(time.Now().UnixNano())
		if next <= last {
			next = last + 1
		}
		if s.lastVersion.CompareAndSwap(last, next) {
			return next
		}
	}
}

// scanFeatureRows scans multiple rows into a slice of FeatureRow.
func scanFeatureRows(rows driver.Rows) ([]*domain.FeatureRow, error) {
	var out []*domain.FeatureRow

	for rows.Next() {
		var (
			r                    domain.FeatureRow
			sport, features      string
			seasonID             int32
			status               uint8
			outcome, prediction  *uint8
			homeScore, awayScore *int32
		)
		c := &r.Contest

		err := rows.Scan(
			&sport, &c.ContestID, &seasonID, &c.ContestDate,
			&c.HomeID, &c.AwayID, &c.HomeName, &c.AwayName,
			&status, &outcome, &homeScore, &awayScore,
			&c.Home.Lineup, &c.Away.Lineup, &c.Home.Designee, &c.Away.Designee,
			&c.Home.Group, &c.Away.Group,
			&features, &prediction, &r.Annotation.PredictionPct, &r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}

		c.Sport = domain.Sport(sport)
		c.SeasonID = int(seasonID)
		c.Status = domain.ContestStatus(status)
		c.Outcome = fromUint8(outcome)
		c.HomeScore = fromInt32(homeScore)
		c.AwayScore = fromInt32(awayScore)
		r.Annotation.Prediction = fromUint8(prediction)
		r.UpdatedAt = r.UpdatedAt.UTC()
		if err := json.Unmarshal([]byte(features), &r.Features); err != nil {
			return nil, fmt.Errorf("decode features of contest %d: %w", c.ContestID, err)
		}

		out = append(out, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}
	return out, nil
}

func toUint8(v *int) *uint8 {
	if v == nil {
		return nil
	}
	u := uint8(*v)
	return &u
}

func fromUint8(v *uint8) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

func toInt32(v *int) *int32 {
	if v == nil {
		return nil
	}
	i := int32(*v)
	return &i
}

func fromInt32(v *int32) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
