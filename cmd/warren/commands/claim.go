package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/warrenhq/warren/internal/claims"
	"github.com/warrenhq/warren/internal/distributor"
	"github.com/warrenhq/warren/internal/printer"
)

var (
	claimNamespace string
	claimAddress   string
	claimReferrer  string
	claimMetadata  []string
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim the next token of a collection for an address",
	Long: `Claim the next available token of a collection namespace for an address.

Claims are idempotent: retrying an already-succeeded claim resolves to the
same claim record. On first success the referral edge is recorded (if a
referrer was given) and reward credits fan out along the referral chain.

Examples:
  # Claim on the primary collection
  warren claim --address 0xAAA

  # Claim with a referrer
  warren claim --address 0xAAA --referrer 0xBBB

  # Claim on a partner collection with metadata
  warren claim --address 0xAAA --namespace partner:acme --meta tier=gold`,
	RunE: runClaim,
}

func init() {
	claimCmd.Flags().StringVarP(&claimAddress, "address", "a", "", "Claiming wallet address (required)")
	claimCmd.Flags().StringVarP(&claimReferrer, "referrer", "r", "", "Referring wallet address")
	claimCmd.Flags().StringVarP(&claimNamespace, "namespace", "n", "", "Collection namespace (default: primary)")
	claimCmd.Flags().StringArrayVar(&claimMetadata, "meta", nil, "Claim metadata as key=value (repeatable)")
	claimCmd.MarkFlagRequired("address")
	rootCmd.AddCommand(claimCmd)
}

func runClaim(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	metadata, err := parseMetadata(claimMetadata)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.distributor.Claim(ctx, distributor.ClaimRequest{
		Namespace: claimNamespace,
		Address:   claimAddress,
		Referrer:  claimReferrer,
		Metadata:  metadata,
	})
	if err != nil {
		if errors.Is(err, claims.ErrSupplyExhausted) {
			return printer.Error(
				"collection supply exhausted",
				fmt.Sprintf("Every token of namespace %q has been claimed.", displayNamespace(claimNamespace)),
				nil,
			)
		}
		if errors.Is(err, claims.ErrClaimPending) {
			return printer.Error(
				"claim already in flight",
				"Another claim for this address is being processed.",
				[]string{"Retry in a moment; the retry will resolve to the existing claim"},
			)
		}
		return err
	}

	record := result.Record
	if result.AlreadyClaimed {
		printer.Warning("address %s already claimed token #%d\n", record.OwnerAddress, record.TokenID)
	} else {
		printer.Success("claimed token #%d for %s\n", record.TokenID, record.OwnerAddress)
	}

	printer.Field("namespace", record.Namespace)
	printer.Field("token", record.TokenID)
	if record.Referrer != "" {
		printer.Field("referrer", record.Referrer)
	}
	if len(result.Rewarded) > 0 {
		printer.Field("rewarded", strings.Join(result.Rewarded, ", "))
	}

	return nil
}

func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	metadata := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, printer.Error(
				fmt.Sprintf("invalid --meta value %q", pair),
				"Metadata must be given as key=value.",
				nil,
			)
		}
		metadata[key] = value
	}
	return metadata, nil
}

func displayNamespace(namespace string) string {
	if namespace == "" {
		return "primary"
	}
	return namespace
}
