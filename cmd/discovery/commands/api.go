package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alphastack/discovery/internal/api"
	"github.com/alphastack/discovery/internal/api/handlers"
	"github.com/alphastack/discovery/internal/scheduler"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server without background jobs.

Reads are served from the scan cache; a cold or stale cache triggers a
single background refresh per TTL window.

Endpoints:
  GET  /health              - Health check
  GET  /api/discoveries     - Scored candidates (?limit=N)
  POST /api/scan/refresh    - Force a synchronous scan refresh
  POST /api/trades          - Submit a buy intent through the guardrails
  GET  /api/exposure        - Committed exposure ledger
  GET  /api/heartbeat       - Data source freshness
  GET  /api/jobs            - Scheduler job stats

Example:
  go run ./cmd/discovery api
  go run ./cmd/discovery api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return serveAPI(ctx, a, nil)
}

// serveAPI runs the HTTP server until interrupted. sched may be nil
// when no scheduler is running in this process.
func serveAPI(ctx context.Context, a *app, sched *scheduler.Scheduler) error {
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	discoveryHandler := handlers.NewDiscoveryHandler(a.cache, a.log)
	tradingHandler := handlers.NewTradingHandler(a.executor, a.log)
	systemHandler := handlers.NewSystemHandler(a.monitor, sched, a.log)

	router := api.NewRouter(discoveryHandler, tradingHandler, systemHandler, a.log)
	server := api.New(a.cfg, a.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("Server running on http://localhost:%s\n", a.cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
