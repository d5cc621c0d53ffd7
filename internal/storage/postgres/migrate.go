package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"sports-feature-lab/internal/storage/migrations"
)

// migrationLock serializes concurrent Migrate calls across processes.
const migrationLock int64 = 0x7370_6f72_7473 // "sports"

const createLedger = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    checksum   TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migrate applies the migrations not yet recorded in schema_migrations, each in
// its own transaction, and returns the versions it applied. An applied version
// whose checksum changed fails with migrations.ErrChecksumMismatch.
func (p *Pool) Migrate(ctx context.Context, ms []migrations.Migration) (applied []string, err error) {
	start := time.Now()
	defer func() { p.observe("migrate", start, err) }()

	if _, err := p.Exec(ctx, createLedger); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range ms {
		ok, err := p.apply(ctx, m)
		if err != nil {
			return applied, err
		}
		if ok {
			applied = append(applied, m.Version)
		}
	}
	return applied, nil
}

// apply runs one migration unless it is already recorded.
func (p *Pool) apply(ctx context.Context, m migrations.Migration) (bool, error) {
	tx, err := p.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin migration %s: %w", m.Version, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLock); err != nil {
		return false, fmt.Errorf("lock migrations: %w", err)
	}

	var checksum string
	err = tx.QueryRow(ctx, "SELECT checksum FROM schema_migrations WHERE version = $1", m.Version).Scan(&checksum)
	switch {
	case err == nil:
		if checksum != m.Checksum {
			return false, fmt.Errorf("%w: %s", migrations.ErrChecksumMismatch, m.Version)
		}
		return false, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return false, fmt.Errorf("read schema_migrations: %w", err)
	}

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return false, fmt.Errorf("apply migration %s: %w", m.Version, err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, checksum) VALUES ($1, $2)",
		m.Version, m.Checksum,
	); err != nil {
		return false, fmt.Errorf("record migration %s: %w", m.Version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit migration %s: %w", m.Version, err)
	}
	return true, nil
}
