package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lakewatch/lakewatch/pkg/chargeback"
)

var budgetFlags struct {
	dimension     string
	value         string
	amount        float64
	periodDays    int
	warnThreshold float64
}

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage budget allocations and evaluate standing",
	Long: `Manage budget allocations and evaluate spend against them.

Allocations come from the provisioned budgets table when one is
configured, otherwise from the local store (store.path in the config).
set, list and delete always operate on the local store.`,
}

var budgetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Evaluate spend against budget allocations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		dimension := budgetFlags.dimension
		if dimension == "" {
			dimension = a.cfg.Monitor.BudgetDimension
		}

		records, err := a.chargeback.BudgetStatus(cmd.Context(), chargeback.BudgetStatusParams{
			Dimension:     dimension,
			PeriodDays:    budgetFlags.periodDays,
			WarnThreshold: budgetFlags.warnThreshold,
		})
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

var budgetSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set a budget allocation in the local store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if a.store == nil {
			return fmt.Errorf("no local budget store configured (set store.path)")
		}
		if budgetFlags.dimension == "" {
			return fmt.Errorf("--dimension is required")
		}
		if err := a.store.SetBudget(cmd.Context(), budgetFlags.dimension, budgetFlags.value, budgetFlags.amount); err != nil {
			return err
		}

		allocation, err := a.store.GetBudget(cmd.Context(), budgetFlags.dimension, budgetFlags.value)
		if err != nil {
			return err
		}
		return printJSON(allocation)
	},
}

var budgetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List budget allocations in the local store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if a.store == nil {
			return fmt.Errorf("no local budget store configured (set store.path)")
		}
		allocations, err := a.store.ListBudgets(cmd.Context(), budgetFlags.dimension)
		if err != nil {
			return err
		}
		return printJSON(allocations)
	},
}

var budgetDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a budget allocation from the local store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if a.store == nil {
			return fmt.Errorf("no local budget store configured (set store.path)")
		}
		if budgetFlags.dimension == "" {
			return fmt.Errorf("--dimension is required")
		}
		return a.store.DeleteBudget(cmd.Context(), budgetFlags.dimension, budgetFlags.value)
	},
}

func init() {
	rootCmd.AddCommand(budgetCmd)
	budgetCmd.AddCommand(budgetStatusCmd, budgetSetCmd, budgetListCmd, budgetDeleteCmd)

	budgetCmd.PersistentFlags().StringVar(&budgetFlags.dimension, "dimension", "", "budget dimension, e.g. tag:team")

	budgetStatusCmd.Flags().IntVar(&budgetFlags.periodDays, "period-days", 0, "evaluation period in days (default 30)")
	budgetStatusCmd.Flags().Float64Var(&budgetFlags.warnThreshold, "warn-threshold", 0, "warning threshold in (0,1) (default 0.8)")

	budgetSetCmd.Flags().StringVar(&budgetFlags.value, "value", "", "dimension value (required)")
	budgetSetCmd.Flags().Float64Var(&budgetFlags.amount, "amount", 0, "budget amount (required)")
	_ = budgetSetCmd.MarkFlagRequired("value")
	_ = budgetSetCmd.MarkFlagRequired("amount")

	budgetDeleteCmd.Flags().StringVar(&budgetFlags.value, "value", "", "dimension value (required)")
	_ = budgetDeleteCmd.MarkFlagRequired("value")
}
