package polygon

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/alphastack/discovery/internal/ta"
	"github.com/alphastack/discovery/pkg/config"
	"github.com/alphastack/discovery/pkg/httputil"
	"github.com/alphastack/discovery/pkg/logger"
)

// Client handles communication with the Polygon.io market data API
// ⭐ SSOT: Polygon API calls go through this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	apiKey     string
	baseURL    string

	// Local token bucket; the shared Redis limiter applies across
	// processes, this one smooths bursts within the process.
	limiter *rate.Limiter
}

// NewClient creates a new Polygon client
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	perSec := cfg.Polygon.RateLimit
	if perSec <= 0 {
		perSec = 5
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		apiKey:     cfg.Polygon.APIKey,
		baseURL:    cfg.Polygon.BaseURL,
		limiter:    rate.NewLimiter(rate.Limit(perSec), int(perSec)+1),
	}
}

// get performs a rate-limited GET and decodes the JSON response
func (c *Client) get(ctx context.Context, path string, params url.Values, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)

	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	return c.httpClient.GetJSON(ctx, fullURL, dest)
}

// TickerSnapshot is one entry of the full-market snapshot
type TickerSnapshot struct {
	Ticker           string  `json:"ticker"`
	TodaysChangePerc float64 `json:"todaysChangePerc"`
	Day              AggBar  `json:"day"`
	PrevDay          AggBar  `json:"prevDay"`
}

// AggBar is Polygon's aggregate bar shape
type AggBar struct {
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
	VWAP   float64 `json:"vw"`
	Ts     int64   `json:"t"`
}

type snapshotResponse struct {
	Status  string           `json:"status"`
	Tickers []TickerSnapshot `json:"tickers"`
}

// MarketSnapshot fetches the full US equities snapshot, the cheap
// first stage of the screen
func (c *Client) MarketSnapshot(ctx context.Context) ([]TickerSnapshot, error) {
	var resp snapshotResponse
	if err := c.get(ctx, "/v2/snapshot/locale/us/markets/stocks/tickers", nil, &resp); err != nil {
		return nil, fmt.Errorf("market snapshot failed: %w", err)
	}

	c.logger.WithField("tickers", len(resp.Tickers)).Debug("Fetched market snapshot")
	return resp.Tickers, nil
}

type marketStatusResponse struct {
	Market     string `json:"market"`
	ServerTime string `json:"serverTime"`
}

// MarketStatus returns the API server time, the cheapest liveness
// probe Polygon offers
func (c *Client) MarketStatus(ctx context.Context) (time.Time, error) {
	var resp marketStatusResponse
	if err := c.get(ctx, "/v1/marketstatus/now", nil, &resp); err != nil {
		return time.Time{}, fmt.Errorf("market status failed: %w", err)
	}

	serverTime, err := time.Parse(time.RFC3339, resp.ServerTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable server time %q: %w", resp.ServerTime, err)
	}
	return serverTime, nil
}

type aggsResponse struct {
	Status  string   `json:"status"`
	Results []AggBar `json:"results"`
}

// DailyBars fetches up to `days` recent daily bars for a symbol,
// oldest first
func (c *Client) DailyBars(ctx context.Context, symbol string, days int) ([]ta.Bar, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days*2) // calendar padding for weekends/holidays

	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
		url.PathEscape(symbol), from.Format("2006-01-02"), to.Format("2006-01-02"))

	params := url.Values{}
	params.Set("adjusted", "true")
	params.Set("sort", "asc")
	params.Set("limit", fmt.Sprintf("%d", days))

	var resp aggsResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, fmt.Errorf("daily bars for %s failed: %w", symbol, err)
	}

	bars := make([]ta.Bar, len(resp.Results))
	for i, r := range resp.Results {
		bars[i] = ta.Bar{Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume}
	}
	return bars, nil
}
