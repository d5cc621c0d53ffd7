package clickhouse

import (
	"context"
	"fmt"
	"time"

	"sports-feature-lab/internal/storage/migrations"
)

const createLedger = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    String,
    checksum   String,
    applied_at DateTime64(3, 'UTC')
) ENGINE = ReplacingMergeTree(applied_at)
ORDER BY version`

// Migrate applies the migrations not yet recorded in schema_migrations and
// returns the versions it applied. ClickHouse DDL is not transactional: a file
// that fails halfway is not recorded, so its statements must be idempotent
// (IF NOT EXISTS) to be retried.
func (c *Conn) Migrate(ctx context.Context, ms []migrations.Migration) (applied []string, err error) {
	start := time.Now()
	defer func() { c.observe("migrate", start, err) }()

	if err := c.Exec(ctx, createLedger); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	recorded, err := c.recorded(ctx)
	if err != nil {
		return nil, err
	}

	for _, m := range ms {
		if sum, ok := recorded[m.Version]; ok {
			if sum != m.Checksum {
				return applied, fmt.Errorf("%w: %s", migrations.ErrChecksumMismatch, m.Version)
			}
			continue
		}

		// The native protocol executes one statement per call.
		for _, stmt := range m.Statements() {
			if err := c.Exec(ctx, stmt); err != nil {
				return applied, fmt.Errorf("apply migration %s: %w", m.Version, err)
			}
		}
		if err := c.Exec(ctx,
			"INSERT INTO schema_migrations (version, checksum, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Checksum, time.Now().UTC(),
		); err != nil {
			return applied, fmt.Errorf("record migration %s: %w", m.Version, err)
		}
		applied = append(applied, m.Version)
	}
	return applied, nil
}

func (c *Conn) recorded(ctx context.Context) (map[string]string, error) {
	rows, err := c.Query(ctx, "SELECT version, checksum FROM schema_migrations FINAL")
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		out[version] = checksum
	}
	return out, rows.Err()
}
