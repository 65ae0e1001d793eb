package main

import (
	"github.com/spf13/cobra"

	"github.com/lakewatch/lakewatch/pkg/chargeback"
)

var usageFlags struct {
	dimension    string
	lookbackDays int
	limit        int
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Inspect spend and consumption",
	Long: `Inspect spend by cost center. With a billing usage table configured
the figures are actual cost; otherwise they are consumption units
estimated from live compute state.`,
}

var usageTopCmd = &cobra.Command{
	Use:   "top",
	Short: "List the highest-spend cost centers",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.chargeback.TopCostCenters(cmd.Context(), chargeback.TopCostCentersParams{
			LookbackDays: usageFlags.lookbackDays,
			Limit:        usageFlags.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

var usageByDimensionCmd = &cobra.Command{
	Use:   "by-dimension",
	Short: "Aggregate spend by one dimension",
	Long: `Aggregate spend by one dimension: workspace, cluster, job, warehouse,
or tag:<key>. "project" and "team" are shorthand for their tag form.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.chargeback.CostByDimension(cmd.Context(), chargeback.CostByDimensionParams{
			Dimension:    usageFlags.dimension,
			LookbackDays: usageFlags.lookbackDays,
			Limit:        usageFlags.limit,
		})
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
	usageCmd.AddCommand(usageTopCmd, usageByDimensionCmd)

	usageCmd.PersistentFlags().IntVar(&usageFlags.lookbackDays, "lookback-days", 0, "how far back to look, in days")
	usageCmd.PersistentFlags().IntVar(&usageFlags.limit, "limit", 0, "maximum records")
	usageByDimensionCmd.Flags().StringVar(&usageFlags.dimension, "dimension", "", "dimension to aggregate by (required)")
	_ = usageByDimensionCmd.MarkFlagRequired("dimension")
}
