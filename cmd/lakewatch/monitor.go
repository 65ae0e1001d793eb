package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lakewatch/lakewatch/pkg/config"
	"github.com/lakewatch/lakewatch/pkg/monitor"
)

var monitorFlags struct {
	once bool
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run scheduled workspace sweeps",
}

var monitorRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sweeps in the foreground",
	Long: `Run the budget and idle-cluster sweeps on the configured cron
schedule until interrupted. With --once the sweeps run a single time
and the command exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		mon := monitor.New(monitor.Config{
			Schedule:        a.cfg.Monitor.Schedule,
			BudgetDimension: a.cfg.Monitor.BudgetDimension,
			WarnThreshold:   a.cfg.Monitor.WarnThreshold,
			IdleThreshold:   a.cfg.Monitor.IdleThreshold,
			Chargeback:      a.chargeback,
			Clusters:        a.clusters,
			Logger:          a.logger,
			Metrics:         a.metrics,
		})

		if monitorFlags.once {
			mon.RunOnce(cmd.Context())
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if a.metrics != nil && a.cfg.Telemetry.Metrics.Listen != "" {
			srv := &http.Server{
				Addr:              a.cfg.Telemetry.Metrics.Listen,
				Handler:           a.metrics.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.logger.Error("metrics endpoint failed", "error", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
			a.logger.Info("metrics endpoint listening", "addr", a.cfg.Telemetry.Metrics.Listen)
		}

		// Watch the config file so operators see that edits need a
		// restart to take effect.
		watcher, err := config.NewWatcher(cfgFile, func(*config.Config) {
			a.logger.Warn("config file changed, restart to apply")
		}, func(err error) {
			a.logger.Warn("config reload check failed", "error", err)
		})
		if err == nil {
			defer watcher.Close()
		}

		if err := mon.Start(ctx); err != nil {
			return err
		}
		if next := mon.NextRun(); next != nil {
			a.logger.Info("next sweep scheduled", "at", next)
		}

		<-ctx.Done()
		mon.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.AddCommand(monitorRunCmd)

	monitorRunCmd.Flags().BoolVar(&monitorFlags.once, "once", false, "run the sweeps once and exit")
}
