package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alphastack/discovery/internal/scheduler"
	"github.com/alphastack/discovery/internal/scheduler/jobs"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run background jobs without the API server",
	Long: `Runs the scheduled pipeline:

- scan refresh on the configured interval
- heartbeat checks against every data source
- periodic exposure ledger snapshots
- the broker trade-updates stream (when orders are enabled)

Example:
  go run ./cmd/discovery worker`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	a.log.Info("Worker shutting down")
	return nil
}

// startBackground registers and starts the scheduled jobs, primes the
// heartbeat, and connects the trade-updates stream when configured
func startBackground(ctx context.Context, a *app) (*scheduler.Scheduler, error) {
	// First heartbeat before the gate can be consulted
	a.monitor.Check(ctx)

	sched := scheduler.New(ctx, a.log)

	jobList := []scheduler.Job{
		jobs.NewScanRefreshJob(a.cache, a.cfg.Scan.RefreshEvery, a.log),
		jobs.NewHeartbeatJob(a.monitor, a.cfg.Heartbeat.Interval, a.log),
		jobs.NewExposureSnapshotJob(a.executor, a.exposureRepo, a.log),
	}
	for _, job := range jobList {
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}
	sched.Start()

	if a.stream != nil {
		if err := a.stream.Connect(ctx); err != nil {
			a.log.WithError(err).Warn("Trade-updates stream unavailable, fills will not be tracked")
		}
	}

	return sched, nil
}
