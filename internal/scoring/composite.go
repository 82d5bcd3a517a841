package scoring

import (
	"math"
	"time"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/pkg/config"
)

// CompositeScorer turns a FeatureSet into subscores and a single 0-100
// composite. Subsystems that are not wired (options without a provider)
// are excluded from the weight sum entirely; their weight is
// redistributed across the remaining subsystems so a missing signal
// never dilutes an otherwise strong candidate.
type CompositeScorer struct {
	cfg            config.ScoringConfig
	optionsEnabled bool
}

// NewCompositeScorer creates the scorer used at initial scan time
func NewCompositeScorer(cfg config.ScoringConfig, optionsEnabled bool) *CompositeScorer {
	return &CompositeScorer{cfg: cfg, optionsEnabled: optionsEnabled}
}

// Score computes the composite score for one symbol. It never returns
// an error: too little history yields a MONITOR result with a reason
// string, which is a normal outcome.
func (s *CompositeScorer) Score(f *contracts.FeatureSet) contracts.ScoreResult {
	result := contracts.ScoreResult{
		Symbol:   f.Symbol,
		Price:    f.Price,
		ScoredAt: time.Now(),
	}

	if f.BarCount < s.cfg.MinBars {
		result.Action = contracts.ActionMonitor
		result.Components = map[string]float64{}
		result.Reasons = append(result.Reasons, contracts.ReasonInsufficientBars)
		return result
	}

	components := map[string]float64{
		contracts.ComponentVolume:    volumeScore(f),
		contracts.ComponentSqueeze:   squeezeScore(f),
		contracts.ComponentCatalyst:  catalystScore(f),
		contracts.ComponentSentiment: sentimentScore(f),
		contracts.ComponentTechnical: technicalScore(f),
	}

	weights := map[string]float64{
		contracts.ComponentVolume:    s.cfg.WeightVolume,
		contracts.ComponentSqueeze:   s.cfg.WeightSqueeze,
		contracts.ComponentCatalyst:  s.cfg.WeightCatalyst,
		contracts.ComponentSentiment: s.cfg.WeightSentiment,
		contracts.ComponentTechnical: s.cfg.WeightTechnical,
	}

	// Options is the only subsystem that can be unavailable: every other
	// subscore has a meaningful zero. An unconfigured provider is
	// excluded from the weight sum, not scored as zero.
	if s.optionsEnabled {
		components[contracts.ComponentOptions] = optionsScore(f)
		weights[contracts.ComponentOptions] = s.cfg.WeightOptions
	} else {
		result.Reasons = append(result.Reasons, contracts.ReasonOptionsOff)
	}

	var weightSum, weighted float64
	for name, w := range weights {
		weightSum += w
		weighted += components[name] * w
	}

	composite := 0.0
	if weightSum > 0 {
		composite = math.Round(weighted / weightSum)
	}
	composite = clamp(composite, 0, 100)

	result.Composite = composite
	result.Components = components
	result.Action = s.mapAction(composite)
	return result
}

// mapAction derives the trade-readiness label from fixed thresholds
func (s *CompositeScorer) mapAction(composite float64) contracts.Action {
	switch {
	case composite >= s.cfg.ThresholdBuy:
		return contracts.ActionBuy
	case composite >= s.cfg.ThresholdEarlyReady:
		return contracts.ActionEarlyReady
	case composite >= s.cfg.ThresholdPreBreakout:
		return contracts.ActionPreBreakout
	case composite >= s.cfg.ThresholdWatchlist:
		return contracts.ActionWatchlist
	default:
		return contracts.ActionMonitor
	}
}

// volumeScore rewards elevated relative volume, saturating at 3x, plus
// confirmation from VWAP hold and proximity to the recent high
func volumeScore(f *contracts.FeatureSet) float64 {
	score := 60 * clamp((f.VolumeRatio.Or(1)-1)/2, 0, 1)
	if f.VWAPHeld {
		score += 20
	}
	if f.HighRatio.Or(0) >= 0.95 {
		score += 20
	}
	return clamp(score, 0, 100)
}

// technicalScore: EMA bull cross, RSI in the momentum band, ATR elevation
func technicalScore(f *contracts.FeatureSet) float64 {
	score := 0.0
	if f.EMABullish {
		score += 30
	}
	if rsi := f.RSI14.Or(50); rsi >= 60 && rsi <= 70 {
		score += 40
	}
	if f.ATRPercent.Or(0) >= 0.04 {
		score += 30
	}
	return clamp(score, 0, 100)
}

// squeezeScore uses real short/float data when present. Without a
// borrow-fee provider it falls back to a proxy built from relative
// volume, ATR elevation, and closeness to the N-day high.
func squeezeScore(f *contracts.FeatureSet) float64 {
	if f.HasSqueezeData() {
		score := 0.0
		if f.FloatShares.Present {
			switch {
			case f.FloatShares.Value <= 50_000_000:
				score += 60
			case f.FloatShares.Value >= 150_000_000 && f.ShortInterestPct.Or(0) >= 0.20:
				score += 40
			}
		}
		if f.BorrowFeePct.Or(0) >= 0.20 {
			score += 20
		}
		if f.ShortUtilizationPct.Or(0) >= 0.85 {
			score += 20
		}
		return clamp(score, 0, 100)
	}

	proxy := 40*clamp((f.VolumeRatio.Or(1)-1)/2, 0, 1) +
		30*clamp(f.ATRPercent.Or(0)/0.08, 0, 1) +
		30*clamp((f.HighRatio.Or(0)-0.85)/0.15, 0, 1)
	return clamp(proxy, 0, 100)
}

// catalystTypeScore mirrors the per-headline catalyst weighting
var catalystTypeScore = map[string]float64{
	"fda":      35,
	"mna":      35,
	"earnings": 30,
	"insider":  20,
	"contract": 15,
}

// catalystScore: the strongest recognized catalyst type scores per
// recent article and accumulates, capped at 100. Zero news is a real
// zero, not missing data.
func catalystScore(f *contracts.FeatureSet) float64 {
	if !f.CatalystPresent {
		return 0
	}
	base, ok := catalystTypeScore[f.CatalystType]
	if !ok {
		base = 20
	}
	articles := math.Max(1, float64(f.NewsCount))
	return clamp(base*articles, 0, 100)
}

// sentimentScore combines chatter volume with polarity
func sentimentScore(f *contracts.FeatureSet) float64 {
	score := 0.0
	if f.NewsCount >= 5 {
		score += 40
	} else {
		score += float64(f.NewsCount) * 8
	}

	polarity := f.SentimentScore.Or(countPolarity(f))
	switch {
	case polarity > 0.5:
		score += 60
	case polarity > 0.2:
		score += 30
	}
	return clamp(score, 0, 100)
}

// countPolarity derives polarity from article counts when no scored
// sentiment is available
func countPolarity(f *contracts.FeatureSet) float64 {
	if f.NewsCount == 0 {
		return 0
	}
	return float64(f.PositiveCount-f.NegativeCount) / float64(f.NewsCount)
}

// optionsScore: call/put skew and IV percentile
func optionsScore(f *contracts.FeatureSet) float64 {
	score := 0.0
	if cpr := f.CallPutRatio.Or(0); cpr >= 2.0 {
		score += 60
		if cpr >= 3.0 {
			score += 20
		}
	}
	if f.IVPercentile.Or(0) >= 80 {
		score += 20
	}
	return clamp(score, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
