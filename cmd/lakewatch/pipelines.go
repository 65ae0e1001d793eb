package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/lakewatch/lakewatch/pkg/observe"
)

var pipelinesFlags struct {
	maxLag   time.Duration
	lookback time.Duration
	limit    int
}

var pipelinesCmd = &cobra.Command{
	Use:   "pipelines",
	Short: "Inspect pipelines",
}

var pipelinesLaggingCmd = &cobra.Command{
	Use:   "lagging",
	Short: "List continuous pipelines whose last update is stale",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.pipelines.ListLaggingPipelines(cmd.Context(), observe.LaggingPipelinesParams{
			MaxLag: pipelinesFlags.maxLag,
			Limit:  pipelinesFlags.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

var pipelinesFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List pipelines whose most recent update failed",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.pipelines.ListFailedPipelines(cmd.Context(), observe.FailedPipelinesParams{
			Lookback: pipelinesFlags.lookback,
			Limit:    pipelinesFlags.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

func init() {
	rootCmd.AddCommand(pipelinesCmd)
	pipelinesCmd.AddCommand(pipelinesLaggingCmd, pipelinesFailedCmd)

	pipelinesLaggingCmd.Flags().DurationVar(&pipelinesFlags.maxLag, "max-lag", 0, "lag threshold (default 10m)")
	pipelinesFailedCmd.Flags().DurationVar(&pipelinesFlags.lookback, "lookback", 0, "how far back to look (default 24h)")
	pipelinesCmd.PersistentFlags().IntVar(&pipelinesFlags.limit, "limit", 0, "maximum records (default 50)")
}
