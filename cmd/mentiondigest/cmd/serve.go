package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/linkerlin/mentiondigest/internal/metrics"
	"github.com/linkerlin/mentiondigest/internal/queue"
	"github.com/linkerlin/mentiondigest/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Fire installed triggers as they come due",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if addr := a.cfg.Metrics.Addr; addr != "" {
			srv := metrics.NewServer(addr)
			go func() {
				if err := srv.Start(); err != nil {
					slog.Error("metrics server failed", "err", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
		}

		q := queue.New(int64(a.cfg.Scheduler.MaxConcurrent))
		interval := time.Duration(a.cfg.Scheduler.PollInterval) * time.Second
		runner := scheduler.NewRunner(a.db, a.handlers, q, a.clock, interval)

		slog.Info("mentiondigest started", "data_dir", a.cfg.App.DataDir, "timezone", a.cfg.App.Timezone)
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		slog.Info("shutting down...")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
