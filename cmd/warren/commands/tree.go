package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/warrenhq/warren/internal/printer"
	"github.com/warrenhq/warren/pkg/dropstore"
)

var (
	treeRoot     string
	chainAddress string
	chainDepth   int
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the distribution tree below a root address",
	Long: `Materialize and print the referral distribution tree rooted at an
address. The tree is rebuilt from referral edges on every call.

Examples:
  warren tree --root 0xBBB`,
	RunE: runTree,
}

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the referrer chain above an address",
	Long: `Walk referrer links upward from an address, nearest ancestor first.

Examples:
  warren chain --address 0xAAA
  warren chain --address 0xAAA --depth 3`,
	RunE: runChain,
}

func init() {
	treeCmd.Flags().StringVarP(&treeRoot, "root", "r", "", "Root address (required)")
	treeCmd.MarkFlagRequired("root")
	rootCmd.AddCommand(treeCmd)

	chainCmd.Flags().StringVarP(&chainAddress, "address", "a", "", "Address to walk up from (required)")
	chainCmd.Flags().IntVarP(&chainDepth, "depth", "d", 0, "Maximum ancestors to walk (default: campaign max depth)")
	chainCmd.MarkFlagRequired("address")
	rootCmd.AddCommand(chainCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tree, err := a.graph.DistributionTree(ctx, treeRoot)
	if err != nil {
		return err
	}

	printTreeNode(tree)
	printer.Info("%d address(es) in tree\n", tree.TotalNodes())
	return nil
}

func printTreeNode(node *dropstore.DistributionTreeNode) {
	indent := strings.Repeat("  ", node.Depth)
	printer.Printf("%s%s (depth %d)\n", indent, node.Address, node.Depth)
	for _, child := range node.Children {
		printTreeNode(child)
	}
}

func runChain(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	depth := chainDepth
	if depth <= 0 {
		depth = a.cfg.Referral.MaxDepth
	}

	chain, err := a.graph.Chain(ctx, chainAddress, depth)
	if err != nil {
		return err
	}

	if len(chain) == 0 {
		printer.Info("%s has no referrer\n", chainAddress)
		return nil
	}

	for i, ancestor := range chain {
		printer.Printf("  level %d: %s\n", i+1, ancestor)
	}
	return nil
}
