package news

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphastack/discovery/pkg/config"
	"github.com/alphastack/discovery/pkg/httputil"
	"github.com/alphastack/discovery/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		LogLevel:  "error",
		LogFormat: "json",
		News:      config.NewsConfig{APIKey: "test-key", BaseURL: server.URL, LookbackDays: 3},
	}
	log := logger.New(cfg)
	return NewClient(cfg, httputil.New(cfg, log).DisableRetry(), nil, log)
}

func TestRecentNews(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "VIGL", r.URL.Query().Get("ticker"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))

		json.NewEncoder(w).Encode(newsResponse{Results: []article{
			{
				Title:    "VIGL announces FDA approval for lead drug",
				Insights: []insight{{Sentiment: "positive"}},
			},
			{
				Title:    "Quarterly earnings beat expectations",
				Insights: []insight{{Sentiment: "positive"}},
			},
			{
				Title:    "Shares dip on profit taking",
				Insights: []insight{{Sentiment: "negative"}},
			},
		}})
	})

	summary, err := client.RecentNews(context.Background(), "VIGL", 3)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, 2, summary.PositiveCount)
	assert.Equal(t, 1, summary.NegativeCount)
	assert.True(t, summary.CatalystPresent)
	assert.Equal(t, "fda", summary.CatalystType, "fda outranks earnings")
}

func TestRecentNewsNoCoverage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(newsResponse{})
	})

	summary, err := client.RecentNews(context.Background(), "OBSCURE", 3)
	require.NoError(t, err, "zero articles is a real answer, not an error")
	assert.Equal(t, 0, summary.Count)
	assert.False(t, summary.CatalystPresent)
}

func TestRecentNewsUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.RecentNews(context.Background(), "VIGL", 3)
	assert.Error(t, err)
}

func TestSummarizeCatalystRanking(t *testing.T) {
	summary := summarize([]article{
		{Title: "Company signs distribution agreement"},
		{Title: "Board approves merger with rival"},
	})
	assert.Equal(t, "mna", summary.CatalystType, "stronger group wins regardless of order")
}

func TestConfigured(t *testing.T) {
	cfg := &config.Config{LogLevel: "error", LogFormat: "json"}
	log := logger.New(cfg)
	client := NewClient(cfg, httputil.New(cfg, log), nil, log)
	assert.False(t, client.Configured())
}
