package contracts

import "time"

// Metric is a float measurement that knows whether it was actually
// observed. A zero Value with Present=true is a real zero (e.g. no news
// in the lookback window); Present=false means the upstream never
// produced the number at all. The two must never be conflated.
type Metric struct {
	Value   float64 `json:"value"`
	Present bool    `json:"present"`
}

// Some wraps an observed value
func Some(v float64) Metric {
	return Metric{Value: v, Present: true}
}

// None is the absent metric
func None() Metric {
	return Metric{}
}

// Or returns the value when present, fallback otherwise
func (m Metric) Or(fallback float64) float64 {
	if m.Present {
		return m.Value
	}
	return fallback
}

// FeatureSet represents the normalized signal bundle for one symbol at
// one evaluation instant
// ⭐ SSOT: datasources → scoring feature hand-off
type FeatureSet struct {
	Symbol string    `json:"symbol"`
	AsOf   time.Time `json:"as_of"`

	// Price / volume
	Price       float64 `json:"price"`
	DollarVol   float64 `json:"dollar_vol"`
	VolumeRatio Metric  `json:"volume_ratio"` // current / 30d average, >= 0
	Ret5D       Metric  `json:"ret_5d"`       // 5-day return, fractional
	Ret21D      Metric  `json:"ret_21d"`      // 21-day return, fractional
	BarCount    int     `json:"bar_count"`    // daily bars backing the features

	// Technical
	ATRPercent Metric `json:"atr_percent"`
	RSI14      Metric `json:"rsi_14"`
	EMABullish bool   `json:"ema_bullish"` // EMA9 > EMA20
	VWAPHeld   bool   `json:"vwap_held"`
	HighRatio  Metric `json:"high_ratio"` // close / N-day high, (0,1]

	// Squeeze enablers
	FloatShares         Metric `json:"float_shares"`
	ShortInterestPct    Metric `json:"short_interest_pct"`
	ShortUtilizationPct Metric `json:"short_utilization_pct"`
	BorrowFeePct        Metric `json:"borrow_fee_pct"`

	// Catalyst / sentiment
	CatalystPresent bool   `json:"catalyst_present"`
	CatalystType    string `json:"catalyst_type,omitempty"`
	NewsCount       int    `json:"news_count"`
	PositiveCount   int    `json:"positive_count"`
	NegativeCount   int    `json:"negative_count"`
	SentimentScore  Metric `json:"sentiment_score"` // [-1, 1]

	// Options flow (unavailable unless an options provider is configured)
	CallPutRatio Metric `json:"call_put_ratio"`
	IVPercentile Metric `json:"iv_percentile"`
}

// HasSqueezeData reports whether any real short/float metric was observed
func (f *FeatureSet) HasSqueezeData() bool {
	return f.FloatShares.Present || f.ShortInterestPct.Present ||
		f.ShortUtilizationPct.Present || f.BorrowFeePct.Present
}

// HasOptionsData reports whether the options subsystem produced anything
func (f *FeatureSet) HasOptionsData() bool {
	return f.CallPutRatio.Present || f.IVPercentile.Present
}
