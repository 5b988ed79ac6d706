package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/warrenhq/warren/internal/migration"
	"github.com/warrenhq/warren/internal/printer"
	"github.com/warrenhq/warren/pkg/dropstore"
)

var (
	migrateCode        string
	migrateFingerprint string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Move an account identity to a new device",
	Long: `Exchange a one-time transfer code for continuity of a user identity
across a new device fingerprint.`,
}

var migrateLookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Resolve a transfer code without consuming it",
	RunE:  runMigrateLookup,
}

var migrateImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Consume a transfer code for a new device fingerprint",
	Long: `Consume a transfer code, binding the account identity to the new
device fingerprint. A code is consumed exactly once; importing it again from
the same fingerprint is idempotent, from any other it is rejected.

Examples:
  warren migrate import --code <64-hex> --fingerprint fp-new-device`,
	RunE: runMigrateImport,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the migration state of a device fingerprint",
	RunE:  runMigrateStatus,
}

var (
	issueUserID   string
	issueUsername string
	issueEVM      string
)

var migrateIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a transfer code for an account",
	Long: `Issue a one-time transfer code carrying an account snapshot. Treat
the code as a secret: whoever imports it first owns the identity.

Examples:
  warren migrate issue --user u-1 --fingerprint fp-old --username alice --evm 0xAAA`,
	RunE: runMigrateIssue,
}

func init() {
	migrateLookupCmd.Flags().StringVar(&migrateCode, "code", "", "Transfer code (required)")
	migrateLookupCmd.MarkFlagRequired("code")

	migrateImportCmd.Flags().StringVar(&migrateCode, "code", "", "Transfer code (required)")
	migrateImportCmd.Flags().StringVar(&migrateFingerprint, "fingerprint", "", "New device fingerprint (required)")
	migrateImportCmd.MarkFlagRequired("code")
	migrateImportCmd.MarkFlagRequired("fingerprint")

	migrateStatusCmd.Flags().StringVar(&migrateFingerprint, "fingerprint", "", "Device fingerprint (required)")
	migrateStatusCmd.MarkFlagRequired("fingerprint")

	migrateIssueCmd.Flags().StringVar(&issueUserID, "user", "", "User ID (required)")
	migrateIssueCmd.Flags().StringVar(&migrateFingerprint, "fingerprint", "", "Fingerprint the account was issued under (required)")
	migrateIssueCmd.Flags().StringVar(&issueUsername, "username", "", "Username")
	migrateIssueCmd.Flags().StringVar(&issueEVM, "evm", "", "EVM wallet address")
	migrateIssueCmd.MarkFlagRequired("user")
	migrateIssueCmd.MarkFlagRequired("fingerprint")

	migrateCmd.AddCommand(migrateIssueCmd)
	migrateCmd.AddCommand(migrateLookupCmd)
	migrateCmd.AddCommand(migrateImportCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func runMigrateIssue(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	code, err := a.migration.IssueCode(ctx, &dropstore.AccountSnapshot{
		UserID:      issueUserID,
		Fingerprint: migrateFingerprint,
		Username:    issueUsername,
		EVMAddress:  issueEVM,
	})
	if err != nil {
		return err
	}

	printer.Success("issued transfer code for %s\n", issueUserID)
	printer.Field("code", code)
	return nil
}

func runMigrateLookup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	snapshot, err := a.migration.Lookup(ctx, migrateCode)
	if err != nil {
		return migrateError(err)
	}

	printSnapshot(snapshot)
	return nil
}

func runMigrateImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	snapshot, err := a.migration.Import(ctx, migrateCode, migrateFingerprint)
	if err != nil {
		return migrateError(err)
	}

	printer.Success("account %s migrated to %s\n", snapshot.Username, migrateFingerprint)
	printSnapshot(snapshot)
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.migration.GetStatus(ctx, migrateFingerprint)
	if err != nil {
		return err
	}

	if !status.HasMigration {
		printer.Info("no migration recorded for %s\n", migrateFingerprint)
		return nil
	}

	printer.Info("migrated from %s\n", status.Record.OriginalFingerprint)
	if status.Account != nil {
		printSnapshot(status.Account)
	} else {
		printer.Warning("original account record no longer resolvable\n")
	}
	return nil
}

func printSnapshot(snapshot *dropstore.AccountSnapshot) {
	printer.Field("user", snapshot.UserID)
	printer.Field("username", snapshot.Username)
	printer.Field("fingerprint", snapshot.Fingerprint)
	if snapshot.EVMAddress != "" {
		printer.Field("evm address", snapshot.EVMAddress)
	}
}

func migrateError(err error) error {
	switch {
	case errors.Is(err, migration.ErrInvalidCode):
		return printer.Error(
			"malformed transfer code",
			"Transfer codes are 64 lowercase hexadecimal characters.",
			nil,
		)
	case errors.Is(err, migration.ErrCodeConsumed):
		return printer.Error(
			"transfer code already used",
			"This code was consumed by a different device.",
			nil,
		)
	case dropstore.IsNotFound(err):
		return printer.Error(
			"unknown transfer code",
			"No account is associated with this code.",
			nil,
		)
	default:
		return err
	}
}
