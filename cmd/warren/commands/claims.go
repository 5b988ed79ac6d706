package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/warrenhq/warren/internal/filter"
	"github.com/warrenhq/warren/internal/printer"
	"github.com/warrenhq/warren/internal/timespec"
)

var (
	claimsNamespace string
	claimsSince     string
	claimsUntil     string
	claimsReferrer  string
	claimsAddress   string
	claimsSettled   bool
	claimsUnsettled bool
)

var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "List claim records of a collection",
	Long: `List the claim records of a collection namespace in claim order,
optionally filtered by time window, referrer, owner address pattern, or
settlement state.

Time bounds accept a duration relative to now ("1h", "30m") or an RFC3339
timestamp.

Examples:
  # All primary claims
  warren claims

  # Claims of the last hour that are not yet settled
  warren claims --since 1h --unsettled

  # Claims referred by one address on a partner collection
  warren claims --namespace partner:acme --referrer 0xBBB`,
	RunE: runClaims,
}

func init() {
	claimsCmd.Flags().StringVarP(&claimsNamespace, "namespace", "n", "", "Collection namespace (default: primary)")
	claimsCmd.Flags().StringVar(&claimsSince, "since", "", "Only claims at or after this time")
	claimsCmd.Flags().StringVar(&claimsUntil, "until", "", "Only claims at or before this time")
	claimsCmd.Flags().StringVarP(&claimsReferrer, "referrer", "r", "", "Only claims referred by this address")
	claimsCmd.Flags().StringVarP(&claimsAddress, "address", "a", "", "Glob pattern for the owner address")
	claimsCmd.Flags().BoolVar(&claimsSettled, "settled", false, "Only claims with a settlement tx hash")
	claimsCmd.Flags().BoolVar(&claimsUnsettled, "unsettled", false, "Only claims without a settlement tx hash")
	rootCmd.AddCommand(claimsCmd)
}

func runClaims(cmd *cobra.Command, args []string) error {
	if claimsSettled && claimsUnsettled {
		return printer.Error(
			"conflicting flags",
			"--settled and --unsettled cannot be combined.",
			nil,
		)
	}

	criteria, err := buildClaimCriteria()
	if err != nil {
		return err
	}

	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addresses, err := a.claims.ClaimedAddresses(ctx, claimsNamespace)
	if err != nil {
		return err
	}

	shown := 0
	for _, address := range addresses {
		record, err := a.claims.GetClaim(ctx, claimsNamespace, address)
		if err != nil {
			return err
		}
		if !criteria.Matches(record) {
			continue
		}
		shown++

		line := fmt.Sprintf("#%-6d %s  %s", record.TokenID, record.OwnerAddress,
			time.UnixMilli(record.ClaimedAtMs).UTC().Format(time.RFC3339))
		if record.Referrer != "" {
			line += "  ref=" + record.Referrer
		}
		if record.TxHash != "" {
			line += "  tx=" + record.TxHash
		}
		printer.Println(line)
	}

	printer.Info("%d of %d claims in namespace %s\n", shown, len(addresses), displayNamespace(claimsNamespace))
	return nil
}

func buildClaimCriteria() (*filter.Criteria, error) {
	criteria := &filter.Criteria{
		Referrer:    claimsReferrer,
		AddressGlob: claimsAddress,
	}

	if claimsSince != "" {
		ms, err := timespec.Parse(claimsSince)
		if err != nil {
			return nil, printer.Error("invalid --since value", err.Error(), nil)
		}
		criteria.SinceTimestampMs = ms
	}

	if claimsUntil != "" {
		ms, err := timespec.Parse(claimsUntil)
		if err != nil {
			return nil, printer.Error("invalid --until value", err.Error(), nil)
		}
		criteria.UntilTimestampMs = ms
	}

	if claimsSettled {
		settled := true
		criteria.Settled = &settled
	}
	if claimsUnsettled {
		settled := false
		criteria.Settled = &settled
	}

	return criteria, nil
}
