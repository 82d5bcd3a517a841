package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd queries a running API server and prints its state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of a running server",
	Long: `Queries a running API server for health, data source
freshness, and exposure, and prints a summary.

Example:
  go run ./cmd/discovery status
  go run ./cmd/discovery status --addr http://localhost:8090`,
	RunE: runStatus,
}

var statusAddr string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8090", "API server address")
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	var health map[string]interface{}
	if err := getJSON(client, statusAddr+"/health", &health); err != nil {
		return fmt.Errorf("server unreachable at %s: %w", statusAddr, err)
	}
	fmt.Printf("Server:    %v\n", health["status"])

	var hb struct {
		AllHealthy bool `json:"all_healthy"`
		Sources    map[string]struct {
			Status   string    `json:"status"`
			LastOkAt time.Time `json:"last_ok_at"`
			Detail   string    `json:"detail"`
		} `json:"sources"`
	}
	if err := getJSON(client, statusAddr+"/api/heartbeat", &hb); err != nil {
		return err
	}
	fmt.Printf("Healthy:   %v\n", hb.AllHealthy)
	for name, src := range hb.Sources {
		line := fmt.Sprintf("  %-10s %-6s last ok %s", name, src.Status, src.LastOkAt.Format(time.RFC3339))
		if src.Detail != "" {
			line += " (" + src.Detail + ")"
		}
		fmt.Println(line)
	}

	var exposure struct {
		Date              string             `json:"date"`
		DailyNotionalUsed float64            `json:"daily_notional_used"`
		PerSymbolNotional map[string]float64 `json:"per_symbol_notional"`
	}
	if err := getJSON(client, statusAddr+"/api/exposure", &exposure); err != nil {
		return err
	}
	fmt.Printf("Exposure:  $%.2f used on %s\n", exposure.DailyNotionalUsed, exposure.Date)
	for symbol, notional := range exposure.PerSymbolNotional {
		fmt.Printf("  %-10s $%.2f\n", symbol, notional)
	}

	return nil
}

func getJSON(client *http.Client, url string, dest interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
