package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sports-feature-lab/internal/observability"
	chstore "sports-feature-lab/internal/storage/clickhouse"
	"sports-feature-lab/internal/storage/migrations"
	pgstore "sports-feature-lab/internal/storage/postgres"
)

// migrateCmd applies the embedded schema migrations.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply the embedded SQL migrations to PostgreSQL (contests, observations,
feature_rows) and, when CLICKHOUSE_DSN is set, to ClickHouse (feature_rows mirror).
Applied versions are recorded in schema_migrations with a checksum; re-runs
apply only new files and fail if an applied file was edited.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	if cfg.PostgresDSN == "" && cfg.ClickhouseDSN == "" {
		return errors.New("nothing to migrate: set POSTGRES_DSN and/or CLICKHOUSE_DSN")
	}

	if cfg.PostgresDSN != "" {
		ms, err := migrations.Postgres()
		if err != nil {
			return err
		}
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		applied, err := pool.Migrate(ctx, ms)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		logger.Info().Strs("applied", applied).Int("known", len(ms)).Msg("postgres migrations done")
	}

	if cfg.ClickhouseDSN != "" {
		ms, err := migrations.Clickhouse()
		if err != nil {
			return err
		}
		if err := chstore.CreateDatabase(ctx, cfg.ClickhouseDSN); err != nil {
			return err
		}
		conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()

		applied, err := conn.Migrate(ctx, ms)
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		logger.Info().Strs("applied", applied).Int("known", len(ms)).Str("database", conn.Database()).Msg("clickhouse migrations done")
	}
	return nil
}
