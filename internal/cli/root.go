package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantfold/deepstock/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "deepstock",
	Short: "Multi-stage equity analysis engine",
	Long: `deepstock runs a fixed task graph of analysis stages over one or
more tickers and synthesizes a buy/hold/sell decision per ticker,
optionally refined by a language model.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Bare invocation drops into the interactive flow.
		return runInteractive(cmd.Context(), config.Load())
	},
}

// Execute is the CLI entry point.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(versionCmd)
}

var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("deepstock", version)
	},
}
