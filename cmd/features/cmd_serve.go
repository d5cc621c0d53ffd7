package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sports-feature-lab/internal/observability"
	"sports-feature-lab/internal/reconcile"
)

// serveCmd runs incremental deltas on an interval.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Refresh current feature rows on an interval",
	Long: `Run the current (incremental) mode immediately and then every SERVE_INTERVAL.
Prometheus metrics are served on METRICS_ADDR at /metrics, liveness at /healthz.
A failed run is logged and retried on the next tick.

The first SIGINT/SIGTERM lets the running pass finish; a second one exits immediately.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// loopStatus is reported by /healthz.
type loopStatus struct {
	mu          sync.Mutex
	StartedAt   time.Time `json:"started_at"`
	Runs        int       `json:"runs"`
	Failures    int       `json:"failures"`
	LastRunID   string    `json:"last_run_id,omitempty"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

func (s *loopStatus) record(runID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Runs++
	s.LastRunID = runID
	if err != nil {
		s.Failures++
		s.LastError = err.Error()
		return
	}
	s.LastSuccess = time.Now().UTC()
	s.LastError = ""
}

func (s *loopStatus) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	log := a.logger.With().Str("component", "serve").Logger()

	// Channel to signal completion
	done := make(chan struct{})
	defer close(done)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down after the current pass")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			log.Warn().Str("signal", sig.String()).Msg("second signal, exiting immediately")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Error().Msg("graceful shutdown timed out after 30s, exiting")
			os.Exit(1)
		case <-done:
		}
	}()

	status := &loopStatus{StartedAt: time.Now().UTC()}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(a.registry))
	mux.Handle("/healthz", status)
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", a.cfg.MetricsAddr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	ticker := time.NewTicker(a.cfg.ServeInterval)
	defer ticker.Stop()

	for {
		pass(ctx, a, status)

		select {
		case <-ctx.Done():
			log.Info().Int("runs", status.Runs).Int("failures", status.Failures).Msg("serve stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// pass runs one incremental delta. The run itself is not cancelled by the
// first shutdown signal so a started write completes.
func pass(ctx context.Context, a *app, status *loopStatus) {
	if ctx.Err() != nil {
		return
	}
	res, err := a.orchestrator.Run(context.WithoutCancel(ctx), reconcile.IncrementalDelta)
	runID := ""
	if res != nil {
		runID = res.RunID
		if err == nil {
			err = a.writeSummary(res)
		}
	}
	status.record(runID, err)
	if err != nil {
		a.logger.Error().Err(err).Msg("incremental pass failed")
	}
}
