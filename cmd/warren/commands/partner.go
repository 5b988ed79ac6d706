package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/warrenhq/warren/internal/partner"
	"github.com/warrenhq/warren/internal/printer"
	"github.com/warrenhq/warren/pkg/dropstore"
)

var (
	partnerID       string
	partnerName     string
	partnerSupply   int64
	partnerLogo     string
	partnerContract string
)

var partnerCmd = &cobra.Command{
	Use:   "partner",
	Short: "Manage partner collections",
	Long: `Manage partner collections. Each partner gets an isolated claim
namespace (partner:{id}) with its own token sequence and totals.`,
}

var partnerAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new partner collection",
	Long: `Register a new partner collection.

Examples:
  warren partner add --id acme --name "ACME Corp" --supply 500`,
	RunE: runPartnerAdd,
}

var partnerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered partners",
	RunE:  runPartnerList,
}

var partnerDeployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Record a partner collection's deployed contract address",
	Long: `Record the contract address reported by the settlement collaborator
after it deploys the partner collection on chain.

Examples:
  warren partner deploy --id acme --contract 0xC0FFEE`,
	RunE: runPartnerDeploy,
}

var partnerLogoCmd = &cobra.Command{
	Use:   "logo",
	Short: "Update a partner's logo reference",
	RunE:  runPartnerLogo,
}

func init() {
	partnerAddCmd.Flags().StringVar(&partnerID, "id", "", "Partner ID (required, lowercase alphanumeric with dashes)")
	partnerAddCmd.Flags().StringVar(&partnerName, "name", "", "Display name (required)")
	partnerAddCmd.Flags().Int64Var(&partnerSupply, "supply", 0, "Total supply ceiling (0 = unlimited)")
	partnerAddCmd.Flags().StringVar(&partnerLogo, "logo", "", "Logo reference")
	partnerAddCmd.MarkFlagRequired("id")
	partnerAddCmd.MarkFlagRequired("name")

	partnerDeployCmd.Flags().StringVar(&partnerID, "id", "", "Partner ID (required)")
	partnerDeployCmd.Flags().StringVar(&partnerContract, "contract", "", "Deployed contract address (required)")
	partnerDeployCmd.MarkFlagRequired("id")
	partnerDeployCmd.MarkFlagRequired("contract")

	partnerLogoCmd.Flags().StringVar(&partnerID, "id", "", "Partner ID (required)")
	partnerLogoCmd.Flags().StringVar(&partnerLogo, "logo", "", "Logo reference (required)")
	partnerLogoCmd.MarkFlagRequired("id")
	partnerLogoCmd.MarkFlagRequired("logo")

	partnerCmd.AddCommand(partnerAddCmd)
	partnerCmd.AddCommand(partnerListCmd)
	partnerCmd.AddCommand(partnerDeployCmd)
	partnerCmd.AddCommand(partnerLogoCmd)
	rootCmd.AddCommand(partnerCmd)
}

func runPartnerAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	record := &dropstore.PartnerRecord{
		ID:          partnerID,
		DisplayName: partnerName,
		TotalSupply: partnerSupply,
		LogoRef:     partnerLogo,
	}

	if err := a.partners.Register(ctx, record); err != nil {
		return err
	}

	printer.Success("registered partner %s\n", partnerID)
	printer.Field("namespace", partner.Namespace(partnerID))
	printer.Field("supply", partnerSupply)
	return nil
}

func runPartnerList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	partners, err := a.partners.List(ctx)
	if err != nil {
		return err
	}

	if len(partners) == 0 {
		printer.Info("no partners registered\n")
		return nil
	}

	for _, record := range partners {
		status := "pending"
		if record.Deployed {
			status = record.ContractAddress
		}
		printer.Printf("%-16s %-24s supply=%-6d contract=%s\n", record.ID, record.DisplayName, record.TotalSupply, status)
	}
	return nil
}

func runPartnerDeploy(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.partners.MarkDeployed(ctx, partnerID, partnerContract); err != nil {
		return err
	}

	printer.Success("partner %s marked deployed at %s\n", partnerID, partnerContract)
	return nil
}

func runPartnerLogo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.partners.SetLogo(ctx, partnerID, partnerLogo); err != nil {
		return err
	}

	printer.Success("updated logo for partner %s\n", partnerID)
	return nil
}
