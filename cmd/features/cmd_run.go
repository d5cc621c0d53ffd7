package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sports-feature-lab/internal/reconcile"
)

// fullCmd recomputes every season and replaces the stored set.
var fullCmd = &cobra.Command{
	Use:   "full",
	Short: "Rebuild every feature row of the sport",
	Long: `Recompute feature rows for every contest from the profile's first season
through the current one, delete the stored set and insert the new rows.
Stored PREDICTION and PREDICTION_PCT values are carried over by contest id.

Examples:
  features full --sport mlb
  features full --sport nba --dry-run --out summary.md`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(reconcile.FullRebuild)
	},
}

// currentCmd recomputes the recent window and upserts it.
var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Refresh feature rows of recent and upcoming contests",
	Long: `Recompute feature rows for contests within the profile's incremental target
range, using the wider history range as aggregation input, and upsert them.

Examples:
  features current --sport nba
  features current --sport mlb --now 2024-04-04`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(reconcile.IncrementalDelta)
	},
}

func init() {
	rootCmd.AddCommand(fullCmd, currentCmd)
}

func runOnce(mode reconcile.Mode) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.orchestrator.Run(ctx, mode)
	if err != nil {
		return err
	}
	if err := a.writeSummary(res); err != nil {
		return err
	}

	if w := res.Write; w != nil && !w.OK() {
		if w.DeleteErr != nil {
			return fmt.Errorf("run %s: delete all failed: %w", res.RunID, w.DeleteErr)
		}
		return fmt.Errorf("run %s: %d of %d rows failed to write", res.RunID, w.Failed(), w.Attempted)
	}
	return nil
}
