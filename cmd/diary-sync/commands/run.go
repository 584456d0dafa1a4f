package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"diary-sync/internal/metrics"

	"github.com/spf13/cobra"
)

var (
	runBackfill *bool
	runInterval *time.Duration
)

func init() {
	runBackfill = runCmd.Flags().Bool("backfill", false, "Keep paginating past pages without new entries (overrides BACKFILL).")
	runInterval = runCmd.Flags().Duration("interval", 0, "Poll at this interval instead of running once (overrides POLL_INTERVAL).")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--backfill] [--interval <duration>]",
	Short: "Fetches new entries, publishes them and records them in the store.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg := loadConfig()
		if cmd.Flags().Changed("backfill") {
			cfg.Backfill = *runBackfill
		}
		if cmd.Flags().Changed("interval") {
			cfg.PollInterval = *runInterval
		}

		n := needs{store: true, source: true}
		var recorder *metrics.Recorder
		if cfg.PollInterval > 0 {
			recorder = metrics.New()
			n.observer = recorder
		}

		a, err := newApp(ctx, cfg, n)
		if err != nil {
			logger.Fatalf("setup failed: %v", err)
		}
		defer a.close()

		if cfg.PollInterval <= 0 {
			report, err := a.svc.RunOnce(ctx)
			logReport(report)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.close()
				logger.Fatalf("run failed: %v", err)
			}
			return
		}

		srv := healthz(cfg.HTTPAddr, recorder.Handler())
		a.svc.StartPolling(ctx, cfg.PollInterval)

		logger.Println("shutdown signal received, shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("HTTP server shutdown error: %v", err)
		}
		logger.Println("shutdown complete")
	},
}
