package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Market discovery scoring and guarded execution pipeline",
	Long: `Discovery pipeline CLI

Scans the US equity market for momentum and squeeze candidates,
scores them, and routes buy intents through exposure guardrails to
bracket orders.

Usage:
  go run ./cmd/discovery [command]

Examples:
  go run ./cmd/discovery api
  go run ./cmd/discovery worker
  go run ./cmd/discovery scan
  go run ./cmd/discovery status`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// -v wins over LOG_LEVEL; config.Load reads the env
		if verbose {
			os.Setenv("LOG_LEVEL", "debug")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
