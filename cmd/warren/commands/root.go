package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "warren",
	Short: "Warren - NFT drop claim, referral and ledger core",
	Long: `Warren distributes a limited-supply NFT collection: it guarantees
at-most-once claims per address, tracks multi-level referral attribution,
and keeps an append-only income/expense ledger per account.

All state lives in a shared Redis store that warren treats as the single
source of truth. On-chain minting is performed by an external settlement
collaborator after warren approves a claim.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "warren.yml", "Path to campaign configuration file")
}
