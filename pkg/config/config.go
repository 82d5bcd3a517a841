package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	Polygon   PolygonConfig
	Alpaca    AlpacaConfig
	News      NewsConfig
	ShortData ShortDataConfig

	// Discovery pipeline
	Scan    ScanConfig
	Scoring ScoringConfig

	// Order guardrails
	Trading TradingConfig

	// Data-source freshness gate
	Heartbeat HeartbeatConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// PolygonConfig holds Polygon.io market-data API configuration
type PolygonConfig struct {
	APIKey  string
	BaseURL string

	// Requests per second allowed against the API
	RateLimit float64
}

// AlpacaConfig holds Alpaca broker API configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
	StreamURL string
	IsPaper   bool
}

// NewsConfig holds the news/sentiment provider configuration.
// An empty APIKey disables the provider; the catalyst and sentiment
// subscores then score zero on zero articles, which is a real score.
// OptionsEnabled=false marks the options subscore unavailable instead.
type NewsConfig struct {
	APIKey         string
	BaseURL        string
	LookbackDays   int
	OptionsEnabled bool
}

// ShortDataConfig holds the short-interest page scraper configuration.
// An empty BaseURL disables the scraper; squeeze metrics then fall
// back to the volume/volatility proxy.
type ShortDataConfig struct {
	BaseURL string
}

// ScanConfig holds scan cache and screener parameters
type ScanConfig struct {
	TTL            time.Duration // SCAN_TTL_MS
	Timeout        time.Duration // SCAN_TIMEOUT_MS
	RefreshEvery   time.Duration // proactive refresh interval
	Limit          int           // max candidates kept per scan
	PriceMin       float64
	PriceMax       float64
	MinDollarVol   float64
	RequireHealthy bool // refuse scans while heartbeat is unhealthy
}

// ScoringConfig holds the composite scorer weight table and thresholds.
// Weights are the target weights before re-weighting; they sum to 1.
type ScoringConfig struct {
	WeightVolume    float64
	WeightSqueeze   float64
	WeightCatalyst  float64
	WeightSentiment float64
	WeightOptions   float64
	WeightTechnical float64

	MinBars int // below this, a symbol scores MONITOR with "insufficient_bars"

	ThresholdBuy         float64
	ThresholdEarlyReady  float64
	ThresholdPreBreakout float64
	ThresholdWatchlist   float64
}

// TradingConfig holds order guardrail parameters
type TradingConfig struct {
	OrdersEnabled bool // false = dry-run, bracket payloads are synthesized only

	MaxDailyNotional  float64
	MaxTickerExposure float64

	TradeStart string // "HH:MM" local to Timezone
	TradeEnd   string
	Timezone   string

	MinTP1Pct  float64
	MaxTP1Pct  float64
	MinTP2Pct  float64
	MaxTP2Pct  float64
	MinStopPct float64
	MaxStopPct float64
}

// HeartbeatConfig holds per-source freshness thresholds
type HeartbeatConfig struct {
	Interval     time.Duration
	CheckTimeout time.Duration

	// Freshness thresholds per data source
	PolygonFreshness time.Duration
	NewsFreshness    time.Duration
	ShortFreshness   time.Duration
}

// Load reads configuration from environment variables.
// This is the only function in the repository that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Polygon: PolygonConfig{
			APIKey:    getEnv("POLYGON_API_KEY", ""),
			BaseURL:   getEnv("POLYGON_BASE_URL", "https://api.polygon.io"),
			RateLimit: getEnvAsFloat("POLYGON_RATE_LIMIT", 5),
		},

		Alpaca: AlpacaConfig{
			APIKey:    getEnv("ALPACA_API_KEY", ""),
			APISecret: getEnv("ALPACA_API_SECRET", ""),
			BaseURL:   getEnv("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
			StreamURL: getEnv("ALPACA_STREAM_URL", "wss://paper-api.alpaca.markets/stream"),
			IsPaper:   getEnvAsBool("ALPACA_IS_PAPER", true),
		},

		News: NewsConfig{
			APIKey:         getEnv("NEWS_API_KEY", ""),
			BaseURL:        getEnv("NEWS_BASE_URL", "https://api.polygon.io/v2/reference/news"),
			LookbackDays:   getEnvAsInt("NEWS_LOOKBACK_DAYS", 3),
			OptionsEnabled: getEnvAsBool("OPTIONS_ENABLED", false),
		},

		ShortData: ShortDataConfig{
			BaseURL: getEnv("SHORTDATA_BASE_URL", ""),
		},

		Scan: ScanConfig{
			TTL:            getEnvAsMillis("SCAN_TTL_MS", 60_000),
			Timeout:        getEnvAsMillis("SCAN_TIMEOUT_MS", 15_000),
			RefreshEvery:   getEnvAsMillis("SCAN_REFRESH_MS", 30_000),
			Limit:          getEnvAsInt("SCAN_LIMIT", 50),
			PriceMin:       getEnvAsFloat("SCAN_PRICE_MIN", 0.10),
			PriceMax:       getEnvAsFloat("SCAN_PRICE_MAX", 100.0),
			MinDollarVol:   getEnvAsFloat("SCAN_MIN_DOLLAR_VOL", 1_000_000),
			RequireHealthy: getEnvAsBool("REQUIRE_HEALTHY_SCAN", false),
		},

		Scoring: ScoringConfig{
			WeightVolume:    getEnvAsFloat("SCORE_W_VOLUME", 0.25),
			WeightSqueeze:   getEnvAsFloat("SCORE_W_SQUEEZE", 0.20),
			WeightCatalyst:  getEnvAsFloat("SCORE_W_CATALYST", 0.20),
			WeightSentiment: getEnvAsFloat("SCORE_W_SENTIMENT", 0.15),
			WeightOptions:   getEnvAsFloat("SCORE_W_OPTIONS", 0.10),
			WeightTechnical: getEnvAsFloat("SCORE_W_TECHNICAL", 0.10),

			MinBars: getEnvAsInt("SCORE_MIN_BARS", 5),

			ThresholdBuy:         getEnvAsFloat("SCORE_TH_BUY", 75),
			ThresholdEarlyReady:  getEnvAsFloat("SCORE_TH_EARLY_READY", 65),
			ThresholdPreBreakout: getEnvAsFloat("SCORE_TH_PRE_BREAKOUT", 55),
			ThresholdWatchlist:   getEnvAsFloat("SCORE_TH_WATCHLIST", 50),
		},

		Trading: TradingConfig{
			OrdersEnabled:     getEnvAsBool("ORDERS_ENABLED", false),
			MaxDailyNotional:  getEnvAsFloat("MAX_DAILY_NOTIONAL", 2000),
			MaxTickerExposure: getEnvAsFloat("MAX_TICKER_EXPOSURE", 500),
			TradeStart:        getEnv("TRADE_START", "09:30"),
			TradeEnd:          getEnv("TRADE_END", "15:55"),
			Timezone:          getEnv("TRADE_TZ", "America/New_York"),
			MinTP1Pct:         getEnvAsFloat("MIN_TP1_PCT", 0.05),
			MaxTP1Pct:         getEnvAsFloat("MAX_TP1_PCT", 0.30),
			MinTP2Pct:         getEnvAsFloat("MIN_TP2_PCT", 0.10),
			MaxTP2Pct:         getEnvAsFloat("MAX_TP2_PCT", 0.60),
			MinStopPct:        getEnvAsFloat("MIN_STOP_PCT", 0.05),
			MaxStopPct:        getEnvAsFloat("MAX_STOP_PCT", 0.20),
		},

		Heartbeat: HeartbeatConfig{
			Interval:         getEnvAsDuration("HEARTBEAT_INTERVAL", "60s"),
			CheckTimeout:     getEnvAsDuration("HEARTBEAT_CHECK_TIMEOUT", "5s"),
			PolygonFreshness: getEnvAsDuration("POLYGON_FRESHNESS", "10m"),
			NewsFreshness:    getEnvAsDuration("NEWS_FRESHNESS", "30m"),
			ShortFreshness:   getEnvAsDuration("SHORT_FRESHNESS", "24h"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	wsum := c.Scoring.WeightVolume + c.Scoring.WeightSqueeze + c.Scoring.WeightCatalyst +
		c.Scoring.WeightSentiment + c.Scoring.WeightOptions + c.Scoring.WeightTechnical
	if wsum < 0.999 || wsum > 1.001 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.4f", wsum)
	}

	if c.Trading.MaxDailyNotional <= 0 || c.Trading.MaxTickerExposure <= 0 {
		return fmt.Errorf("MAX_DAILY_NOTIONAL and MAX_TICKER_EXPOSURE must be positive")
	}
	if c.Trading.MaxTickerExposure > c.Trading.MaxDailyNotional {
		return fmt.Errorf("MAX_TICKER_EXPOSURE cannot exceed MAX_DAILY_NOTIONAL")
	}

	if _, err := time.LoadLocation(c.Trading.Timezone); err != nil {
		return fmt.Errorf("invalid TRADE_TZ %q: %w", c.Trading.Timezone, err)
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsMillis reads an integer millisecond value (the *_MS options)
func getEnvAsMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultValue)) * time.Millisecond
}
