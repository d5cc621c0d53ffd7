package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/storage"
)

// contestColumns is shared by the contests and feature_rows tables.
const contestColumns = `sport, contest_id, season_id, contest_date, home_id, away_id, home_name, away_name,
	status, outcome, home_score, away_score,
	home_lineup, away_lineup, home_designee, away_designee, home_group, away_group`

// contestUpdateSet refreshes every contest column on conflict.
const contestUpdateSet = `season_id = EXCLUDED.season_id,
	contest_date = EXCLUDED.contest_date,
	home_id = EXCLUDED.home_id,
	away_id = EXCLUDED.away_id,
	home_name = EXCLUDED.home_name,
	away_name = EXCLUDED.away_name,
	status = EXCLUDED.status,
	outcome = EXCLUDED.outcome,
	home_score = EXCLUDED.home_score,
	away_score = EXCLUDED.away_score,
	home_lineup = EXCLUDED.home_lineup,
	away_lineup = EXCLUDED.away_lineup,
	home_designee = EXCLUDED.home_designee,
	away_designee = EXCLUDED.away_designee,
	home_group = EXCLUDED.home_group,
	away_group = EXCLUDED.away_group`

// ContestStore implements storage.ContestSource using PostgreSQL.
// It is scoped to one sport and reads in keyset pages ordered by (contest_date, contest_id).
type ContestStore struct {
	pool     *Pool
	sport    domain.Sport
	pageSize int
}

// NewContestStore creates a new ContestStore. pageSize <= 0 uses DefaultPageSize.
func NewContestStore(pool *Pool, sport domain.Sport, pageSize int) *ContestStore {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ContestStore{pool: pool, sport: sport, pageSize: pageSize}
}

// Compile-time interface check.
var _ storage.ContestSource = (*ContestStore)(nil)

// Upsert inserts or replaces contests by contest_id atomically.
func (s *ContestStore) Upsert(ctx context.Context, contests []*domain.Contest) (err error) {
	if len(contests) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { s.pool.observe("contests_upsert", start, err) }()

	query := `
		INSERT INTO contests (` + contestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (sport, contest_id) DO UPDATE SET ` + contestUpdateSet + `, updated_at = now()
	`

	batch := &pgx.Batch{}
	for _, c := range contests {
		if c.ContestID == 0 || !c.Status.IsValid() {
			return storage.ErrInvalidInput
		}
		batch.Queue(query, contestArgs(s.sport, c)...)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := execBatch(ctx, tx, batch); err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
		return fmt.Errorf("upsert contests: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Contests returns contests matching the filter, ordered by (contest_date, contest_id).
func (s *ContestStore) Contests(ctx context.Context, f storage.ContestFilter) ([]*domain.Contest, error) {
	start := time.Now()
	out, err := s.contests(ctx, f)
	s.pool.observe("contests_select", start, err)
	if err != nil {
		return nil, storage.Unavailable("contests", err)
	}
	return out, nil
}

func (s *ContestStore) contests(ctx context.Context, f storage.ContestFilter) ([]*domain.Contest, error) {
	var out []*domain.Contest
	var last *domain.Contest

	for {
		w := contestWhere(s.sport, f.Seasons, f.Dates, f.IDs, f.Statuses)
		if last != nil {
			w.and(fmt.Sprintf("(contest_date, contest_id) > (%s, %s)", w.arg(last.ContestDate), w.arg(last.ContestID)))
		}
		query := fmt.Sprintf(`
			SELECT %s
			FROM contests
			%s
			ORDER BY contest_date ASC, contest_id ASC
			LIMIT %d
		`, contestColumns, w, s.pageSize)

		rows, err := s.pool.Query(ctx, query, w.args...)
		if err != nil {
			return nil, fmt.Errorf("query contests: %w", err)
		}
		page, err := scanContests(rows)
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

// contestWhere builds the predicates shared by contest and feature row reads.
func contestWhere(sport domain.Sport, seasons []int, dates storage.DateRange, ids []int64, statuses []domain.ContestStatus) *where {
	w := &where{}
	w.and("sport = " + w.arg(string(sport)))
	if len(seasons) > 0 {
		w.and("season_id = ANY(" + w.arg(seasons) + ")")
	}
	w.dates("contest_date", dates.From, dates.To)
	if len(ids) > 0 {
		w.and("contest_id = ANY(" + w.arg(ids) + ")")
	}
	if len(statuses) > 0 {
		codes := make([]int, len(statuses))
		for i, st := range statuses {
			codes[i] = int(st)
		}
		w.and("status = ANY(" + w.arg(codes) + ")")
	}
	return w
}

// contestArgs returns the bind values for contestColumns.
func contestArgs(sport domain.Sport, c *domain.Contest) []any {
	return []any{
		string(sport),
		c.ContestID,
		c.SeasonID,
		c.ContestDate,
		c.HomeID,
		c.AwayID,
		c.HomeName,
		c.AwayName,
		int(c.Status),
		c.Outcome,
		c.HomeScore,
		c.AwayScore,
		nonNil(c.Home.Lineup),
		nonNil(c.Away.Lineup),
		c.Home.Designee,
		c.Away.Designee,
		nonNil(c.Home.Group),
		nonNil(c.Away.Group),
	}
}

// contestScan holds scan targets for contestColumns.
type contestScan struct {
	sport  string
	status int
}

func (cs *contestScan) dest(c *domain.Contest) []any {
	return []any{
		&cs.sport,
		&c.ContestID,
		&c.SeasonID,
		&c.ContestDate,
		&c.HomeID,
		&c.AwayID,
		&c.HomeName,
		&c.AwayName,
		&cs.status,
		&c.Outcome,
		&c.HomeScore,
		&c.AwayScore,
		&c.Home.Lineup,
		&c.Away.Lineup,
		&c.Home.Designee,
		&c.Away.Designee,
		&c.Home.Group,
		&c.Away.Group,
	}
}

func (cs *contestScan) apply(c *domain.Contest) {
	c.Sport = domain.Sport(cs.sport)
	c.Status = domain.ContestStatus(cs.status)
}

// scanContests scans multiple rows into a slice of Contest.
func scanContests(rows pgx.Rows) ([]*domain.Contest, error) {
	defer rows.Close()

	var contests []*domain.Contest
	for rows.Next() {
		var c domain.Contest
		var cs contestScan
		if err := rows.Scan(cs.dest(&c)...); err != nil {
			return nil, fmt.Errorf("scan contest row: %w", err)
		}
		cs.apply(&c)
		contests = append(contests, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contest rows: %w", err)
	}
	return contests, nil
}

// execBatch sends a batch on tx and checks every result.
func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	return br.Close()
}
