package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// startCmd runs API server and background jobs in one process
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start API server and background jobs together",
	Long: `Runs the full pipeline in one process: the scheduled scan
refresh, heartbeat checks, exposure snapshots, the trade-updates
stream, and the REST API.

Example:
  go run ./cmd/discovery start
  go run ./cmd/discovery start --port 8090`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from PORT)")
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := startBackground(ctx, a)
	if err != nil {
		return err
	}
	defer sched.Stop()

	return serveAPI(ctx, a, sched)
}
