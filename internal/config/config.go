// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Feature store backends.
const (
	StorePostgres   = "postgres"
	StoreClickhouse = "clickhouse"
	StoreMemory     = "memory"
)

// Config is the environment configuration of the features binary.
type Config struct {
	PostgresDSN      string        `env:"POSTGRES_DSN"`
	ClickhouseDSN    string        `env:"CLICKHOUSE_DSN"`
	FeatureStore     string        `env:"FEATURE_STORE"     envDefault:"postgres"`
	MirrorClickhouse bool          `env:"MIRROR_CLICKHOUSE" envDefault:"false"`
	BatchSize        int           `env:"UPSERT_BATCH_SIZE" envDefault:"400"`
	WriteConcurrency int           `env:"WRITE_CONCURRENCY" envDefault:"4"`
	WritesPerSecond  float64       `env:"WRITES_PER_SECOND" envDefault:"0"`
	SourcePageSize   int           `env:"SOURCE_PAGE_SIZE"  envDefault:"1000"`
	ProfileDir       string        `env:"SPORT_PROFILE_DIR"`
	MetricsAddr      string        `env:"METRICS_ADDR"      envDefault:":9090"`
	LogLevel         string        `env:"LOG_LEVEL"         envDefault:"info"`
	LogFormat        string        `env:"LOG_FORMAT"        envDefault:"json"`
	ServeInterval    time.Duration `env:"SERVE_INTERVAL"    envDefault:"10m"`
}

// Load parses the environment, applies overrides (command-line flags) and
// validates the result.
func Load(overrides ...func(*Config)) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	for _, o := range overrides {
		o(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and that the selected backends have a DSN.
func (c Config) Validate() error {
	var errs []error

	switch c.FeatureStore {
	case StorePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres feature store"))
		}
	case StoreClickhouse:
		if c.ClickhouseDSN == "" {
			errs = append(errs, errors.New("CLICKHOUSE_DSN is required for the clickhouse feature store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("FEATURE_STORE: unknown backend %q", c.FeatureStore))
	}
	if c.MirrorClickhouse && c.ClickhouseDSN == "" {
		errs = append(errs, errors.New("CLICKHOUSE_DSN is required when MIRROR_CLICKHOUSE is set"))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("UPSERT_BATCH_SIZE must be positive, got %d", c.BatchSize))
	}
	if c.WriteConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("WRITE_CONCURRENCY must be positive, got %d", c.WriteConcurrency))
	}
	if c.WritesPerSecond < 0 {
		errs = append(errs, fmt.Errorf("WRITES_PER_SECOND must not be negative, got %v", c.WritesPerSecond))
	}
	if c.SourcePageSize <= 0 {
		errs = append(errs, fmt.Errorf("SOURCE_PAGE_SIZE must be positive, got %d", c.SourcePageSize))
	}
	if c.ServeInterval <= 0 {
		errs = append(errs, fmt.Errorf("SERVE_INTERVAL must be positive, got %s", c.ServeInterval))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
