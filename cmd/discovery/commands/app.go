package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/internal/data/repos"
	"github.com/alphastack/discovery/internal/execution"
	"github.com/alphastack/discovery/internal/external/alpaca"
	"github.com/alphastack/discovery/internal/external/news"
	"github.com/alphastack/discovery/internal/external/polygon"
	"github.com/alphastack/discovery/internal/external/shortdata"
	"github.com/alphastack/discovery/internal/heartbeat"
	"github.com/alphastack/discovery/internal/scan"
	"github.com/alphastack/discovery/internal/scoring"
	"github.com/alphastack/discovery/pkg/config"
	"github.com/alphastack/discovery/pkg/database"
	"github.com/alphastack/discovery/pkg/httputil"
	"github.com/alphastack/discovery/pkg/logger"
	"github.com/alphastack/discovery/pkg/redis"
)

// scanPreset is the single scan configuration key used for the cache,
// its redis mirror, and its postgres view
const scanPreset = "default"

// app holds the wired pipeline. Every command builds the same graph
// and uses the parts it needs.
type app struct {
	cfg *config.Config
	log *logger.Logger

	db          *database.DB
	redisClient *redis.Client
	redisCache  *redis.Cache // nil when redis is disabled

	discoveryRepo *repos.DiscoveryRepository
	exposureRepo  *repos.ExposureRepository
	heartbeatRepo *repos.HeartbeatRepository
	orderRepo     *repos.OrderRepository

	polygonClient *polygon.Client
	newsClient    *news.Client
	shortScraper  *shortdata.Scraper
	alpacaClient  *alpaca.Client

	cache    *scan.Cache
	monitor  *heartbeat.Monitor
	executor *execution.Executor
	stream   *alpaca.Stream // nil without broker credentials
}

// buildApp wires the full pipeline from configuration.
// ⭐ SSOT: dependency wiring happens here only; the scan runner is
// handed to the cache and referenced nowhere else.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log}

	// Database
	a.db, err = database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := repos.EnsureSchema(ctx, a.db.Pool); err != nil {
		a.db.Close()
		return nil, err
	}

	a.discoveryRepo = repos.NewDiscoveryRepository(a.db.Pool)
	a.exposureRepo = repos.NewExposureRepository(a.db.Pool)
	a.heartbeatRepo = repos.NewHeartbeatRepository(a.db.Pool)
	a.orderRepo = repos.NewOrderRepository(a.db.Pool)

	// Redis is optional; without it the cache just loses its mirror
	if cfg.Redis.Enabled {
		a.redisClient, err = redis.New(cfg)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, continuing without mirror")
		} else {
			a.redisCache = redis.NewCache(a.redisClient, "discovery")
		}
	}

	// One HTTP client per external API so each gets its own rate
	// budget when redis is available
	var limiter *redis.RateLimiter
	if a.redisClient != nil {
		limiter = redis.NewRateLimiter(a.redisClient, "discovery")
	}
	polygonHTTP := httputil.New(cfg, log)
	newsHTTP := httputil.New(cfg, log)
	shortHTTP := httputil.New(cfg, log)
	if limiter != nil {
		polygonHTTP.WithRateLimiter(limiter, redis.PolygonRateLimit)
		newsHTTP.WithRateLimiter(limiter, redis.NewsRateLimit)
		shortHTTP.WithRateLimiter(limiter, redis.ShortDataRateLimit)
	}

	// Data source clients
	a.polygonClient = polygon.NewClient(cfg, polygonHTTP, log)
	a.newsClient = news.NewClient(cfg, newsHTTP, a.redisCache, log)
	a.shortScraper = shortdata.NewScraper(cfg, shortHTTP, a.redisCache, log)

	// Heartbeat over the configured sources
	a.monitor = heartbeat.NewMonitor(cfg.Heartbeat, a.heartbeatSources(), a.heartbeatRepo, log)
	a.monitor.Restore(ctx)

	// Scoring and the screener that feeds the cache
	scorer := scoring.NewCompositeScorer(cfg.Scoring, cfg.News.OptionsEnabled)

	var newsProvider polygon.NewsProvider
	if a.newsClient.Configured() {
		newsProvider = a.newsClient
	}
	var shortProvider polygon.ShortProvider
	if a.shortScraper.Configured() {
		shortProvider = a.shortScraper
	}
	// The screener stays local: the cache holds the only reference to
	// the expensive scan
	screener := polygon.NewScreener(a.polygonClient, scorer, newsProvider, shortProvider, cfg, log)

	// Cache: redis mirror first, postgres view second
	fallbacks := []scan.Fallback{scan.NewStoreFallback(a.discoveryRepo, scanPreset)}
	sinks := []scan.Sink{scan.NewStoreSink(a.discoveryRepo)}
	if a.redisCache != nil {
		fallbacks = append([]scan.Fallback{scan.NewRedisFallback(a.redisCache, scanPreset)}, fallbacks...)
		sinks = append(sinks, scan.NewRedisSink(a.redisCache, scanPreset, cfg.Scan.TTL*10))
	}
	a.cache = scan.NewCache(cfg.Scan, screener, log,
		scan.WithFallbacks(fallbacks...),
		scan.WithSinks(sinks...),
		scan.WithHealthGate(a.monitor),
	)

	// Execution: paper broker unless live orders are both enabled and
	// credentialed
	ledger := execution.NewLedger(cfg.Trading.MaxDailyNotional, cfg.Trading.MaxTickerExposure, tradeLocation(cfg))
	if snapshot, err := a.exposureRepo.Get(ctx, time.Now().In(tradeLocation(cfg)).Format("2006-01-02")); err != nil {
		log.WithError(err).Warn("Could not restore exposure ledger")
	} else if snapshot != nil {
		ledger.Restore(snapshot)
	}

	var broker execution.Broker = &execution.PaperBroker{}
	a.alpacaClient = alpaca.NewClient(cfg.Alpaca, httputil.New(cfg, log), log)
	if cfg.Trading.OrdersEnabled {
		if !a.alpacaClient.Configured() {
			a.db.Close()
			return nil, fmt.Errorf("ORDERS_ENABLED requires ALPACA_API_KEY and ALPACA_API_SECRET")
		}
		broker = a.alpacaClient
	}
	a.executor = execution.NewExecutor(cfg.Trading, ledger, broker, a.orderRepo, log)

	if cfg.Trading.OrdersEnabled {
		a.stream = alpaca.NewStream(cfg.Alpaca, log)
		a.stream.OnFill(func(fill *contracts.Fill) {
			fillCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := a.executor.TrackFill(fillCtx, fill); err != nil {
				log.WithError(err).WithField("order_id", fill.OrderID).Warn("Fill tracking failed")
			}
		})
		a.stream.OnError(func(err error) {
			log.WithError(err).Warn("Trade-updates stream error")
		})
	}

	return a, nil
}

// heartbeatSources lists every configured data source with its
// freshness threshold
func (a *app) heartbeatSources() []heartbeat.Source {
	sources := []heartbeat.Source{
		{
			Checker:   heartbeat.NewFuncChecker("polygon", a.polygonClient.MarketStatus),
			Threshold: a.cfg.Heartbeat.PolygonFreshness,
		},
	}
	if a.newsClient.Configured() {
		sources = append(sources, heartbeat.Source{
			Checker:   heartbeat.NewFuncChecker("news", a.newsClient.LatestPublished),
			Threshold: a.cfg.Heartbeat.NewsFreshness,
		})
	}
	if a.shortScraper.Configured() {
		sources = append(sources, heartbeat.Source{
			Checker: heartbeat.NewFuncChecker("shortdata", func(ctx context.Context) (time.Time, error) {
				// The page is daily data; reachability is the signal
				if _, err := a.shortScraper.Metrics(ctx, "AAPL"); err != nil {
					return time.Time{}, err
				}
				return time.Now(), nil
			}),
			Threshold: a.cfg.Heartbeat.ShortFreshness,
		})
	}
	return sources
}

// Close releases held connections
func (a *app) Close() {
	if a.stream != nil && a.stream.IsConnected() {
		_ = a.stream.Disconnect()
	}
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func tradeLocation(cfg *config.Config) *time.Location {
	loc, err := time.LoadLocation(cfg.Trading.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
