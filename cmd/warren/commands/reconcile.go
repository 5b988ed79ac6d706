package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/warrenhq/warren/internal/printer"
)

var (
	reconcileAccount string
	reconcileAll     bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute cached balances from ledger history",
	Long: `Recompute an account's cached balance from its full entry history and
overwrite the cache if it drifted. Repairs are always reported, never silent.

This is the repair path for the partial-failure window between a claim write
and its reward credits (claim recorded, fan-out interrupted).

Examples:
  # Reconcile one account
  warren reconcile --account 0xBBB

  # Administrative sweep over every account with a balance
  warren reconcile --all`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVarP(&reconcileAccount, "account", "a", "", "Account address")
	reconcileCmd.Flags().BoolVar(&reconcileAll, "all", false, "Sweep all accounts (offline/admin use)")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if reconcileAccount == "" && !reconcileAll {
		return printer.Error(
			"nothing to reconcile",
			"Provide --account for one account or --all for a full sweep.",
			nil,
		)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if reconcileAll {
		drifted, err := a.distributor.Repair(ctx)
		if err != nil {
			return err
		}
		if len(drifted) == 0 {
			printer.Success("all balances consistent\n")
			return nil
		}
		printer.Warning("repaired %d drifted balance(s)\n", len(drifted))
		for _, report := range drifted {
			printer.Printf("  %s: %s -> %s\n", report.Account, report.OldBalance, report.NewBalance)
		}
		return nil
	}

	report, err := a.treasury.Reconcile(ctx, reconcileAccount)
	if err != nil {
		return err
	}

	if report.Drifted {
		printer.Warning("balance drift repaired for %s\n", report.Account)
		printer.Field("old balance", report.OldBalance)
		printer.Field("new balance", report.NewBalance)
	} else {
		printer.Success("balance consistent: %s\n", report.NewBalance)
	}

	return nil
}
