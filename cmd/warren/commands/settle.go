package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/warrenhq/warren/internal/printer"
	"github.com/warrenhq/warren/internal/watch"
	"github.com/warrenhq/warren/pkg/dropstore"
)

var (
	settleNamespace string
	settleAddress   string
	settleTxHash    string
	settleWait      time.Duration
)

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Record a settlement transaction hash on a claim",
	Long: `Record the transaction hash returned by the blockchain settlement
collaborator onto an existing claim record. The hash is stored as-is; warren
does not await on-chain finality.

Examples:
  warren settle --address 0xAAA --tx 0xDEADBEEF`,
	RunE: runSettle,
}

func init() {
	settleCmd.Flags().StringVarP(&settleAddress, "address", "a", "", "Claimed address (required)")
	settleCmd.Flags().StringVarP(&settleNamespace, "namespace", "n", "", "Collection namespace (default: primary)")
	settleCmd.Flags().StringVar(&settleTxHash, "tx", "", "Settlement transaction hash (required)")
	settleCmd.Flags().DurationVar(&settleWait, "wait", 0, "Wait up to this long for an in-flight claim to land")
	settleCmd.MarkFlagRequired("address")
	settleCmd.MarkFlagRequired("tx")
	rootCmd.AddCommand(settleCmd)
}

func runSettle(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if settleWait > 0 {
		namespace := settleNamespace
		if namespace == "" {
			namespace = dropstore.PrimaryNamespace
		}
		if _, err := watch.AwaitClaim(ctx, a.store, namespace, settleAddress, settleWait); err != nil {
			return printer.Error(
				"no claim to settle",
				err.Error(),
				[]string{"Check the address and namespace", "Increase --wait if the claim is still in flight"},
			)
		}
	}

	if err := a.distributor.Settle(ctx, settleNamespace, settleAddress, settleTxHash); err != nil {
		if dropstore.IsNotFound(err) {
			return printer.Error(
				"no claim to settle",
				"The address has no claim record in this namespace.",
				nil,
			)
		}
		return err
	}

	printer.Success("recorded settlement %s for %s\n", settleTxHash, settleAddress)
	return nil
}
