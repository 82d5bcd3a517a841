package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/pkg/config"
	"github.com/alphastack/discovery/pkg/httputil"
	"github.com/alphastack/discovery/pkg/logger"
	"github.com/alphastack/discovery/pkg/redis"
)

// Client fetches recent company news and classifies catalysts
// ⭐ SSOT: news provider calls go through this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	cache      *redis.Cache // optional
	apiKey     string
	baseURL    string
}

// NewClient creates a news client. cache may be nil.
func NewClient(cfg *config.Config, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		cache:      cache,
		apiKey:     cfg.News.APIKey,
		baseURL:    cfg.News.BaseURL,
	}
}

// Configured reports whether an API key is present. An unconfigured
// client is simply not wired into the screener.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type insight struct {
	Sentiment string `json:"sentiment"`
}

type article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Insights    []insight `json:"insights"`
}

type newsResponse struct {
	Results []article `json:"results"`
}

// RecentNews returns counts, polarity, and catalyst classification for
// a symbol over the lookback window. Zero articles is a real answer.
func (c *Client) RecentNews(ctx context.Context, symbol string, lookbackDays int) (*contracts.NewsSummary, error) {
	cacheKey := redis.NewsKey(symbol, lookbackDays)
	if c.cache != nil {
		var cached contracts.NewsSummary
		if found, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && found {
			return &cached, nil
		}
	}

	since := time.Now().AddDate(0, 0, -lookbackDays)

	params := url.Values{}
	params.Set("ticker", symbol)
	params.Set("published_utc.gte", since.Format("2006-01-02"))
	params.Set("limit", "50")
	params.Set("apiKey", c.apiKey)

	var resp newsResponse
	fullURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		return nil, fmt.Errorf("news fetch for %s failed: %w", symbol, err)
	}

	summary := summarize(resp.Results)

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, summary, redis.TTLMedium); err != nil {
			c.logger.WithError(err).Debug("News cache write failed")
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"count":    summary.Count,
		"catalyst": summary.CatalystType,
	}).Debug("Fetched recent news")
	return summary, nil
}

// LatestPublished returns the publish time of the newest article on
// the market-wide feed. Used as the provider's freshness probe.
func (c *Client) LatestPublished(ctx context.Context) (time.Time, error) {
	params := url.Values{}
	params.Set("limit", "1")
	params.Set("order", "desc")
	params.Set("sort", "published_utc")
	params.Set("apiKey", c.apiKey)

	var resp struct {
		Results []struct {
			PublishedUTC string `json:"published_utc"`
		} `json:"results"`
	}
	fullURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		return time.Time{}, fmt.Errorf("news freshness probe failed: %w", err)
	}
	if len(resp.Results) == 0 {
		return time.Time{}, fmt.Errorf("news feed returned no articles")
	}

	published, err := time.Parse(time.RFC3339, resp.Results[0].PublishedUTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable publish time %q: %w", resp.Results[0].PublishedUTC, err)
	}
	return published, nil
}

// Catalyst keyword groups, strongest first. The first group with a hit
// names the catalyst type.
var catalystKeywords = []struct {
	catalystType string
	keywords     []string
}{
	{"fda", []string{"fda", "phase", "trial", "approval", "drug"}},
	{"mna", []string{"acquire", "merger", "m&a", "takeover", "buyout"}},
	{"earnings", []string{"earnings", "guidance", "revenue", "beat", "eps"}},
	{"insider", []string{"insider", "form 4", "purchases", "buys shares"}},
	{"contract", []string{"contract", "partnership", "deal", "agreement"}},
}

// summarize classifies headlines and counts sentiment. The strongest
// catalyst group hit across all articles wins.
func summarize(articles []article) *contracts.NewsSummary {
	summary := &contracts.NewsSummary{Count: len(articles)}
	bestRank := len(catalystKeywords)

	for _, a := range articles {
		headline := strings.ToLower(a.Title + " " + a.Description)

		for rank, group := range catalystKeywords {
			if rank >= bestRank {
				break
			}
			for _, kw := range group.keywords {
				if strings.Contains(headline, kw) {
					bestRank = rank
					break
				}
			}
		}

		for _, insight := range a.Insights {
			switch insight.Sentiment {
			case "positive":
				summary.PositiveCount++
			case "negative":
				summary.NegativeCount++
			}
		}
	}

	if bestRank < len(catalystKeywords) {
		summary.CatalystPresent = true
		summary.CatalystType = catalystKeywords[bestRank].catalystType
	}
	return summary
}
