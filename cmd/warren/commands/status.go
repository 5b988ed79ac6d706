package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/warrenhq/warren/internal/printer"
	"github.com/warrenhq/warren/pkg/dropstore"
)

var statusNamespace string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show claim totals for a collection namespace",
	Long: `Show how many tokens of a namespace have been claimed, and the
configured supply ceiling when one exists.

Examples:
  warren status
  warren status --namespace partner:acme`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusNamespace, "namespace", "n", "", "Collection namespace (default: primary)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	namespace := statusNamespace
	if namespace == "" {
		namespace = dropstore.PrimaryNamespace
	}

	total, err := a.claims.TotalClaims(ctx, namespace)
	if err != nil {
		return err
	}

	printer.Info("namespace %s\n", namespace)
	printer.Field("claimed", total)

	var supply int64
	if namespace == dropstore.PrimaryNamespace {
		supply = a.cfg.Supply.Primary
	} else {
		supply, err = a.partners.SupplyCeiling(ctx, namespace)
		if err != nil {
			return err
		}
	}
	if supply > 0 {
		printer.Field("supply", supply)
		printer.Field("remaining", supply-total)
	}

	return nil
}
