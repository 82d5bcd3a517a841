package polygon

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/internal/scoring"
	"github.com/alphastack/discovery/internal/ta"
	"github.com/alphastack/discovery/pkg/config"
	"github.com/alphastack/discovery/pkg/logger"
)

// NewsProvider supplies recent-news counts and catalyst detection
type NewsProvider interface {
	RecentNews(ctx context.Context, symbol string, lookbackDays int) (*contracts.NewsSummary, error)
}

// ShortProvider supplies short-interest squeeze enablers
type ShortProvider interface {
	Metrics(ctx context.Context, symbol string) (*contracts.ShortMetrics, error)
}

// Screener is the expensive external scan: full-market snapshot,
// staged pre-filtering, per-candidate enrichment, scoring. It is
// handed to the scan cache at construction and must not be invoked
// from anywhere else.
type Screener struct {
	client *Client
	scorer *scoring.CompositeScorer
	news   NewsProvider  // optional
	shorts ShortProvider // optional

	scanCfg  config.ScanConfig
	newsDays int
	log      *logger.Logger
}

// NewScreener wires the scan pipeline. news and shorts may be nil;
// the scorer re-weights around what is missing.
func NewScreener(client *Client, scorer *scoring.CompositeScorer, news NewsProvider, shorts ShortProvider, cfg *config.Config, log *logger.Logger) *Screener {
	return &Screener{
		client:   client,
		scorer:   scorer,
		news:     news,
		shorts:   shorts,
		scanCfg:  cfg.Scan,
		newsDays: cfg.News.LookbackDays,
		log:      log.WithField("component", "screener"),
	}
}

// candidate pairs a snapshot row with its cheap pre-score
type candidate struct {
	snap     TickerSnapshot
	relVol   float64
	preScore float64
}

// RunScan executes one full scan. The caller (the scan cache) owns the
// timeout on ctx.
func (s *Screener) RunScan(ctx context.Context) (*contracts.CacheEntry, error) {
	snapshots, err := s.client.MarketSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	preFilterCount := len(snapshots)

	candidates := s.prefilter(snapshots)
	s.log.WithFields(map[string]interface{}{
		"universe":   preFilterCount,
		"candidates": len(candidates),
	}).Debug("Prefilter complete")

	// Enrich three times the requested limit for better selection,
	// stopping early when the scan budget runs out
	enrichBudget := s.scanCfg.Limit * 3
	if enrichBudget > len(candidates) {
		enrichBudget = len(candidates)
	}

	var results []contracts.ScoreResult
	for _, cand := range candidates[:enrichBudget] {
		if ctx.Err() != nil {
			s.log.WithField("scored", len(results)).Warn("Scan budget exceeded, returning partial results")
			break
		}

		result, err := s.scoreOne(ctx, cand)
		if err != nil {
			s.log.WithError(err).WithField("symbol", cand.snap.Ticker).Debug("Skipping candidate")
			continue
		}
		results = append(results, *result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Composite > results[j].Composite
	})
	if len(results) > s.scanCfg.Limit {
		results = results[:s.scanCfg.Limit]
	}

	return &contracts.CacheEntry{
		Key:             "default",
		Payload:         results,
		UpdatedAt:       time.Now(),
		PreFilterCount:  preFilterCount,
		PostFilterCount: len(results),
	}, nil
}

// prefilter applies the cheap staged filters: price band, liquidity
// floor with a micro-cap allowance, then movement. Survivors are
// ranked by pre-score so the enrichment budget goes to the strongest
// signals first.
func (s *Screener) prefilter(snapshots []TickerSnapshot) []candidate {
	var out []candidate
	for _, snap := range snapshots {
		price := snap.Day.Close
		if price < s.scanCfg.PriceMin || price > s.scanCfg.PriceMax {
			continue
		}

		dollarVol := price * snap.Day.Volume
		minDollar := s.scanCfg.MinDollarVol
		if price < 5.0 {
			minDollar /= 2 // micro-cap allowance
		}
		if dollarVol < minDollar {
			continue
		}

		relVol := 1.0
		if snap.PrevDay.Volume > 0 {
			relVol = snap.Day.Volume / snap.PrevDay.Volume
		}
		if relVol < 1.5 && snap.TodaysChangePerc < 3 && snap.TodaysChangePerc > -3 {
			continue
		}

		out = append(out, candidate{
			snap:     snap,
			relVol:   relVol,
			preScore: snap.TodaysChangePerc*2 + relVol*10 + dollarVol/1e6*0.1,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].preScore > out[j].preScore })
	return out
}

// scoreOne enriches one candidate with history, news, and short data,
// then scores it
func (s *Screener) scoreOne(ctx context.Context, cand candidate) (*contracts.ScoreResult, error) {
	symbol := cand.snap.Ticker

	bars, err := s.client.DailyBars(ctx, symbol, 60)
	if err != nil {
		return nil, fmt.Errorf("history fetch failed: %w", err)
	}

	features, reasons := s.buildFeatures(ctx, cand, bars)
	result := s.scorer.Score(features)
	result.Reasons = append(result.Reasons, reasons...)

	if result.Action != contracts.ActionMonitor {
		result.Explosiveness = scoring.Explosiveness(features)
		result.SqueezeRisk = scoring.SqueezeRisk(features)
		// ATR% scaled to a rough annualized volatility for the ladder
		result.Targets = scoring.EntryTargets(features.Price, result.Composite, features.ATRPercent.Or(0)*16)
	}
	return &result, nil
}

// buildFeatures derives the normalized feature bundle from the
// snapshot, daily history, and the optional enrichment providers
func (s *Screener) buildFeatures(ctx context.Context, cand candidate, bars []ta.Bar) (*contracts.FeatureSet, []string) {
	snap := cand.snap
	price := snap.Day.Close

	closes := make([]float64, len(bars))
	var volSum float64
	for i, b := range bars {
		closes[i] = b.Close
		volSum += b.Volume
	}

	f := &contracts.FeatureSet{
		Symbol:     snap.Ticker,
		AsOf:       time.Now(),
		Price:      price,
		DollarVol:  price * snap.Day.Volume,
		BarCount:   len(bars),
		EMABullish: ta.EMA(closes, 9) > ta.EMA(closes, 20),
	}

	if len(bars) > 0 {
		if avgVol := volSum / float64(len(bars)); avgVol > 0 {
			f.VolumeRatio = contracts.Some(snap.Day.Volume / avgVol)
		}
		if lastClose := closes[len(closes)-1]; lastClose > 0 {
			f.ATRPercent = contracts.Some(ta.ATR(bars, 14) / lastClose)
		}
		f.RSI14 = contracts.Some(ta.RSI(closes, 14))
		f.Ret5D = contracts.Some(ta.Return(closes, 5))
		f.Ret21D = contracts.Some(ta.Return(closes, 21))
		if high := ta.HighestClose(closes, 20); high > 0 {
			f.HighRatio = contracts.Some(closes[len(closes)-1] / high)
		}
	}
	if snap.Day.VWAP > 0 {
		f.VWAPHeld = price >= snap.Day.VWAP
	}

	var reasons []string

	if s.news != nil {
		summary, err := s.news.RecentNews(ctx, snap.Ticker, s.newsDays)
		if err != nil {
			reasons = append(reasons, contracts.ReasonNewsFail)
		} else {
			f.NewsCount = summary.Count
			f.PositiveCount = summary.PositiveCount
			f.NegativeCount = summary.NegativeCount
			f.CatalystPresent = summary.CatalystPresent
			f.CatalystType = summary.CatalystType
		}
	}

	if s.shorts != nil {
		metrics, err := s.shorts.Metrics(ctx, snap.Ticker)
		if err == nil && metrics != nil {
			f.FloatShares = metrics.FloatShares
			f.ShortInterestPct = metrics.ShortInterestPct
			f.ShortUtilizationPct = metrics.UtilizationPct
			f.BorrowFeePct = metrics.BorrowFeePct
			if metrics.Estimated {
				reasons = append(reasons, contracts.ReasonShortEstimated)
			}
		}
	}

	return f, reasons
}
