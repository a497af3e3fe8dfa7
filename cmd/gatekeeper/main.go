package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/apigovern/gatekeeper/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "gatekeeper",
	Short: "API governance gatekeeper with MinHash/LSH duplicate detection",
	Long: `gatekeeper detects duplicate and near-duplicate API definitions across
an organization's API portfolio.

It prunes OpenAPI boilerplate, extracts structural features, computes
MinHash signatures, and answers similarity queries through an LSH index
backed by a durable signature store.`,
	Version: version.Short(),
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to .gatekeeper.toml")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewCheckCmd())
	rootCmd.AddCommand(NewIndexCmd())
	rootCmd.AddCommand(NewRemoveCmd())
	rootCmd.AddCommand(NewHydrateCmd())
	rootCmd.AddCommand(NewListenCmd())
	rootCmd.AddCommand(NewServeMCPCmd())
	rootCmd.AddCommand(NewVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
