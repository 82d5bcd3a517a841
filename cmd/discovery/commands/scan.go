package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// scanCmd runs one scan and prints the ranked candidates
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan and print the ranked candidates",
	Long: `Runs a single synchronous market scan through the full
pipeline (snapshot, prefilter, enrichment, scoring) and prints the
ranked result. The snapshot is also committed to the cache sinks, so
a following API read serves it.

Example:
  go run ./cmd/discovery scan
  go run ./cmd/discovery scan --top 10`,
	RunE: runScan,
}

var scanTop int

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().IntVar(&scanTop, "top", 20, "number of candidates to print")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Heartbeat first so a gated cache has a verdict to consult
	a.monitor.Check(ctx)

	if err := a.cache.Refresh(ctx); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	entry := a.cache.Snapshot()
	if entry.IsEmpty() {
		fmt.Println("No candidates survived the scan")
		return nil
	}

	fmt.Printf("Scanned %d tickers, %d candidates (source: %s)\n\n",
		entry.PreFilterCount, entry.PostFilterCount, entry.Source)
	fmt.Printf("%-8s %6s %6s %-13s %8s  %s\n",
		"SYMBOL", "SCORE", "EXPL", "ACTION", "PRICE", "REASONS")
	fmt.Println(strings.Repeat("-", 72))

	limit := scanTop
	if limit > len(entry.Payload) {
		limit = len(entry.Payload)
	}
	for _, result := range entry.Payload[:limit] {
		fmt.Printf("%-8s %6.1f %6d %-13s %8.2f  %s\n",
			result.Symbol,
			result.Composite,
			result.Explosiveness,
			result.Action,
			result.Price,
			strings.Join(result.Reasons, ","),
		)
	}
	return nil
}
