package shortdata

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/pkg/config"
	"github.com/alphastack/discovery/pkg/httputil"
	"github.com/alphastack/discovery/pkg/logger"
	"github.com/alphastack/discovery/pkg/redis"
)

// Scraper fetches short-interest squeeze enablers from a public
// short-data page. Metrics the page does not expose stay absent; a
// missing short-interest figure is estimated from the float when
// possible and flagged as such.
// ⭐ SSOT: short data fetches go through this scraper only
type Scraper struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	cache      *redis.Cache // optional
	baseURL    string
}

// estimatedShortInterest is the assumed short interest when the page
// shows a float but no short figure
const estimatedShortInterest = 0.15

// NewScraper creates a short-data scraper. cache may be nil.
func NewScraper(cfg *config.Config, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Scraper {
	return &Scraper{
		httpClient: httpClient,
		logger:     log,
		cache:      cache,
		baseURL:    cfg.ShortData.BaseURL,
	}
}

// Configured reports whether a scrape target is set. An unconfigured
// scraper is simply not wired into the screener.
func (s *Scraper) Configured() bool {
	return s.baseURL != ""
}

// Metrics returns the squeeze metrics for one symbol
func (s *Scraper) Metrics(ctx context.Context, symbol string) (*contracts.ShortMetrics, error) {
	cacheKey := redis.ShortMetricsKey(symbol)
	if s.cache != nil {
		var cached contracts.ShortMetrics
		if found, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && found {
			return &cached, nil
		}
	}

	pageURL := fmt.Sprintf("%s/%s", s.baseURL, strings.ToLower(symbol))
	resp, err := s.httpClient.Get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("short data fetch for %s failed: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("short data page for %s returned %d", symbol, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read short data page failed: %w", err)
	}

	metrics := s.parse(string(body))

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, metrics, redis.TTLDaily); err != nil {
			s.logger.WithError(err).Debug("Short metrics cache write failed")
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"symbol":    symbol,
		"estimated": metrics.Estimated,
	}).Debug("Fetched short metrics")
	return metrics, nil
}

// parse pulls the metric table out of the page. Label matching is
// substring-based since the page wording shifts.
func (s *Scraper) parse(html string) *contracts.ShortMetrics {
	metrics := &contracts.ShortMetrics{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return metrics
	}

	doc.Find("table tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}

		label := strings.ToLower(strings.TrimSpace(cells.Eq(0).Text()))
		value := strings.TrimSpace(cells.Eq(1).Text())

		switch {
		case strings.Contains(label, "short interest % float"),
			strings.Contains(label, "short interest ratio"):
			if v, ok := parsePercent(value); ok {
				metrics.ShortInterestPct = contracts.Some(v)
			}
		case strings.Contains(label, "borrow fee"):
			if v, ok := parsePercent(value); ok {
				metrics.BorrowFeePct = contracts.Some(v)
			}
		case strings.Contains(label, "utilization"):
			if v, ok := parsePercent(value); ok {
				metrics.UtilizationPct = contracts.Some(v)
			}
		case strings.Contains(label, "float"):
			if v, ok := parseShares(value); ok {
				metrics.FloatShares = contracts.Some(v)
			}
		}
	})

	if !metrics.ShortInterestPct.Present && metrics.FloatShares.Present {
		metrics.ShortInterestPct = contracts.Some(estimatedShortInterest)
		metrics.Estimated = true
	}
	return metrics
}

// parsePercent reads "23.4%" or "23.4" into a 0-1 fraction
func parsePercent(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v / 100, true
}

// parseShares reads "12.5M", "980K", "1.2B", or a plain number
func parseShares(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}

	mult := 1.0
	switch s[len(s)-1] {
	case 'K', 'k':
		mult = 1e3
		s = s[:len(s)-1]
	case 'M', 'm':
		mult = 1e6
		s = s[:len(s)-1]
	case 'B', 'b':
		mult = 1e9
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v * mult, true
}
