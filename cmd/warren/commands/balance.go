package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/warrenhq/warren/internal/printer"
)

var (
	balanceAccount string
	summaryAccount string
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show an account's cached ledger balance",
	Long: `Show the cached balance of an account.

Reads return the cached value; they never trigger reconciliation.
Use 'warren reconcile' to repair suspected drift.

Examples:
  warren balance --account 0xBBB`,
	RunE: runBalance,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show an account's income/expense breakdown",
	Long: `Derive income and expense totals, grouped by reason, from an
account's full ledger history.

Examples:
  warren summary --account 0xBBB`,
	RunE: runSummary,
}

func init() {
	balanceCmd.Flags().StringVarP(&balanceAccount, "account", "a", "", "Account address (required)")
	balanceCmd.MarkFlagRequired("account")
	rootCmd.AddCommand(balanceCmd)

	summaryCmd.Flags().StringVarP(&summaryAccount, "account", "a", "", "Account address (required)")
	summaryCmd.MarkFlagRequired("account")
	rootCmd.AddCommand(summaryCmd)
}

func runBalance(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	balance, err := a.treasury.Balance(ctx, balanceAccount)
	if err != nil {
		return err
	}

	printer.Printf("%s\n", balance.String())
	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.treasury.GetSummary(ctx, summaryAccount)
	if err != nil {
		return err
	}

	printer.Info("account %s\n", summaryAccount)
	printer.Field("total income", summary.TotalIncome)
	printer.Field("total expense", summary.TotalExpense)

	if len(summary.IncomeBreakdown) > 0 {
		printer.Println("  income by reason:")
		for reason, total := range summary.IncomeBreakdown {
			printer.Printf("    %-24s %s\n", reason, total)
		}
	}
	if len(summary.ExpenseBreakdown) > 0 {
		printer.Println("  expense by reason:")
		for reason, total := range summary.ExpenseBreakdown {
			printer.Printf("    %-24s %s\n", reason, total)
		}
	}

	return nil
}
