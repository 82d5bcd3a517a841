package shortdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphastack/discovery/pkg/config"
	"github.com/alphastack/discovery/pkg/httputil"
	"github.com/alphastack/discovery/pkg/logger"
)

const samplePage = `
<html><body>
<table>
  <tr><th>Metric</th><th>Value</th></tr>
  <tr><td>Short Interest % Float</td><td>32.50%</td></tr>
  <tr><td>Borrow Fee</td><td>48.2%</td></tr>
  <tr><td>Utilization</td><td>94.1%</td></tr>
  <tr><td>Float</td><td>12.5M</td></tr>
</table>
</body></html>`

const floatOnlyPage = `
<html><body>
<table>
  <tr><td>Float</td><td>45M</td></tr>
</table>
</body></html>`

func newTestScraper(t *testing.T, handler http.HandlerFunc) *Scraper {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		LogLevel:  "error",
		LogFormat: "json",
		ShortData: config.ShortDataConfig{BaseURL: server.URL},
	}
	log := logger.New(cfg)
	return NewScraper(cfg, httputil.New(cfg, log).DisableRetry(), nil, log)
}

func TestMetrics(t *testing.T) {
	scraper := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vigl", r.URL.Path, "symbol is lowercased in the path")
		w.Write([]byte(samplePage))
	})

	metrics, err := scraper.Metrics(context.Background(), "VIGL")
	require.NoError(t, err)

	assert.InDelta(t, 0.325, metrics.ShortInterestPct.Value, 1e-9)
	assert.True(t, metrics.ShortInterestPct.Present)
	assert.InDelta(t, 0.482, metrics.BorrowFeePct.Value, 1e-9)
	assert.InDelta(t, 0.941, metrics.UtilizationPct.Value, 1e-9)
	assert.Equal(t, 12_500_000.0, metrics.FloatShares.Value)
	assert.False(t, metrics.Estimated)
}

func TestMetricsEstimatedShortInterest(t *testing.T) {
	scraper := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(floatOnlyPage))
	})

	metrics, err := scraper.Metrics(context.Background(), "QUBT")
	require.NoError(t, err)

	assert.Equal(t, 45_000_000.0, metrics.FloatShares.Value)
	assert.True(t, metrics.Estimated)
	assert.Equal(t, estimatedShortInterest, metrics.ShortInterestPct.Value)
}

func TestMetricsUnparseablePageStaysAbsent(t *testing.T) {
	scraper := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>maintenance</body></html>"))
	})

	metrics, err := scraper.Metrics(context.Background(), "VIGL")
	require.NoError(t, err)

	assert.False(t, metrics.ShortInterestPct.Present, "no fake zeros")
	assert.False(t, metrics.FloatShares.Present)
	assert.False(t, metrics.BorrowFeePct.Present)
}

func TestMetricsHTTPError(t *testing.T) {
	scraper := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	})

	_, err := scraper.Metrics(context.Background(), "VIGL")
	assert.Error(t, err)
}

func TestParseShares(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.5M", 12_500_000, true},
		{"980K", 980_000, true},
		{"1.2B", 1_200_000_000, true},
		{"1,250,000", 1_250_000, true},
		{"n/a", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		got, ok := parseShares(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.InDelta(t, tc.want, got, 1e-6, tc.in)
		}
	}
}

func TestParsePercent(t *testing.T) {
	v, ok := parsePercent("23.4%")
	require.True(t, ok)
	assert.InDelta(t, 0.234, v, 1e-9)

	_, ok = parsePercent("--")
	assert.False(t, ok)
}
