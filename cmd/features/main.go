// Package main provides the features CLI: pre-game feature rows for MLB and NBA
// contests, rebuilt in full or refreshed incrementally.
//
//	features full    --sport mlb          recompute every season, replace the stored set
//	features current --sport nba          recompute the recent window, upsert
//	features serve   --sport nba          run current on an interval, expose /metrics
//	features export  --sport mlb --out f  write stored rows as CSV
//	features verify  --sport mlb          compare the stored set with a fresh rebuild
//	features migrate                      apply embedded schema migrations
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sports-feature-lab/internal/config"
)

// Global flags
var (
	sportFlag string
	storeFlag string
	nowFlag   string
	dryRun    bool
	outPath   string
)

// rootCmd is the base command for the features CLI
var rootCmd = &cobra.Command{
	Use:   "features",
	Short: "Rolling pre-game feature rows for sports contests",
	Long: `features computes leakage-free rolling aggregates for every contest of a sport
and reconciles them into the feature table read by the downstream model.

Configuration comes from the environment (POSTGRES_DSN, CLICKHOUSE_DSN,
FEATURE_STORE, UPSERT_BATCH_SIZE, ...); flags override it.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&sportFlag, "sport", "", "Sport to process (mlb|nba)")
	pf.StringVar(&storeFlag, "store", "", "Feature store backend, overrides FEATURE_STORE (postgres|clickhouse|memory)")
	pf.StringVar(&nowFlag, "now", "", "Reference time, RFC3339 or YYYY-MM-DD (default: current time)")
	pf.BoolVar(&dryRun, "dry-run", false, "Build rows without writing them")
	pf.StringVar(&outPath, "out", "", "Output file: markdown run summary, or CSV for export")
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() (config.Config, error) {
	return config.Load(func(c *config.Config) {
		if storeFlag != "" {
			c.FeatureStore = storeFlag
		}
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
