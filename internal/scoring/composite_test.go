package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/pkg/config"
)

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		WeightVolume:    0.25,
		WeightSqueeze:   0.20,
		WeightCatalyst:  0.20,
		WeightSentiment: 0.15,
		WeightOptions:   0.10,
		WeightTechnical: 0.10,

		MinBars: 5,

		ThresholdBuy:         75,
		ThresholdEarlyReady:  65,
		ThresholdPreBreakout: 55,
		ThresholdWatchlist:   50,
	}
}

func strongFeatures() *contracts.FeatureSet {
	return &contracts.FeatureSet{
		Symbol:          "VIGL",
		Price:           4.20,
		BarCount:        30,
		VolumeRatio:     contracts.Some(4.0),
		RSI14:           contracts.Some(65),
		ATRPercent:      contracts.Some(0.06),
		HighRatio:       contracts.Some(0.98),
		EMABullish:      true,
		VWAPHeld:        true,
		CatalystPresent: true,
		CatalystType:    "fda",
		NewsCount:       4,
		PositiveCount:   3,
		SentimentScore:  contracts.Some(0.6),
	}
}

func TestScoreBounds(t *testing.T) {
	scorer := NewCompositeScorer(testScoringConfig(), false)

	cases := []struct {
		name string
		f    *contracts.FeatureSet
	}{
		{"empty", &contracts.FeatureSet{Symbol: "X", BarCount: 30}},
		{"strong", strongFeatures()},
		{"extreme volume", &contracts.FeatureSet{
			Symbol: "Y", BarCount: 30, VolumeRatio: contracts.Some(100),
		}},
		{"everything maxed", func() *contracts.FeatureSet {
			f := strongFeatures()
			f.ShortInterestPct = contracts.Some(0.45)
			f.BorrowFeePct = contracts.Some(0.80)
			f.ShortUtilizationPct = contracts.Some(0.99)
			f.FloatShares = contracts.Some(8_000_000)
			f.NewsCount = 50
			f.PositiveCount = 50
			return f
		}()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := scorer.Score(tc.f)
			assert.GreaterOrEqual(t, result.Composite, 0.0)
			assert.LessOrEqual(t, result.Composite, 100.0)
			for name, sub := range result.Components {
				assert.GreaterOrEqual(t, sub, 0.0, name)
				assert.LessOrEqual(t, sub, 100.0, name)
			}
		})
	}
}

func TestScoreInsufficientBars(t *testing.T) {
	scorer := NewCompositeScorer(testScoringConfig(), true)

	f := strongFeatures()
	f.BarCount = 3

	result := scorer.Score(f)
	assert.Equal(t, contracts.ActionMonitor, result.Action)
	assert.Equal(t, 0.0, result.Composite)
	assert.Contains(t, result.Reasons, contracts.ReasonInsufficientBars)
}

// A subsystem that is not wired must be excluded from the weight sum,
// not scored as zero. Scoring the same strong candidate with options
// unconfigured must beat scoring it with a configured provider that
// reports nothing.
func TestReweightingExcludesUnavailableOptions(t *testing.T) {
	f := strongFeatures()

	withoutOptions := NewCompositeScorer(testScoringConfig(), false).Score(f)
	withZeroOptions := NewCompositeScorer(testScoringConfig(), true).Score(f)

	assert.Greater(t, withoutOptions.Composite, withZeroOptions.Composite)
	assert.Contains(t, withoutOptions.Reasons, contracts.ReasonOptionsOff)
	assert.NotContains(t, withZeroOptions.Reasons, contracts.ReasonOptionsOff)

	_, present := withoutOptions.Components[contracts.ComponentOptions]
	assert.False(t, present, "unconfigured subsystem must not report a component")
}

// With all subscores equal, re-weighting must be exact: the composite
// equals the common subscore value no matter which subsystems are in
// the available set.
func TestReweightingInvariant(t *testing.T) {
	// RSI 65 + EMA bull + ATR 4% = full technical score; craft a set
	// where every computed subscore lands at 100.
	f := &contracts.FeatureSet{
		Symbol:              "MAX",
		BarCount:            30,
		VolumeRatio:         contracts.Some(10),
		HighRatio:           contracts.Some(1.0),
		VWAPHeld:            true,
		EMABullish:          true,
		RSI14:               contracts.Some(65),
		ATRPercent:          contracts.Some(0.10),
		FloatShares:         contracts.Some(5_000_000),
		BorrowFeePct:        contracts.Some(0.60),
		ShortUtilizationPct: contracts.Some(0.95),
		CatalystPresent:     true,
		CatalystType:        "mna",
		NewsCount:           10,
		PositiveCount:       10,
		SentimentScore:      contracts.Some(0.9),
		CallPutRatio:        contracts.Some(4.0),
		IVPercentile:        contracts.Some(90),
	}

	for _, optionsEnabled := range []bool{true, false} {
		result := NewCompositeScorer(testScoringConfig(), optionsEnabled).Score(f)
		require.Equal(t, 100.0, result.Composite, "optionsEnabled=%v", optionsEnabled)
	}
}

func TestMapAction(t *testing.T) {
	scorer := NewCompositeScorer(testScoringConfig(), false)

	cases := []struct {
		composite float64
		want      contracts.Action
	}{
		{90, contracts.ActionBuy},
		{75, contracts.ActionBuy},
		{74, contracts.ActionEarlyReady},
		{65, contracts.ActionEarlyReady},
		{60, contracts.ActionPreBreakout},
		{55, contracts.ActionPreBreakout},
		{50, contracts.ActionWatchlist},
		{49, contracts.ActionMonitor},
		{0, contracts.ActionMonitor},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, scorer.mapAction(tc.composite), "composite=%v", tc.composite)
	}
}

func TestSqueezeScoreProxyWithoutShortData(t *testing.T) {
	// No short/float provider wired: proxy from volume, ATR, and
	// closeness to the high must still produce a non-zero squeeze score.
	f := &contracts.FeatureSet{
		Symbol:      "PROXY",
		BarCount:    30,
		VolumeRatio: contracts.Some(3.5),
		ATRPercent:  contracts.Some(0.08),
		HighRatio:   contracts.Some(1.0),
	}
	require.False(t, f.HasSqueezeData())
	assert.Equal(t, 100.0, squeezeScore(f))

	quiet := &contracts.FeatureSet{Symbol: "QUIET", BarCount: 30, VolumeRatio: contracts.Some(1.0)}
	assert.Equal(t, 0.0, squeezeScore(quiet))
}

func TestSqueezeScoreRealData(t *testing.T) {
	f := &contracts.FeatureSet{
		Symbol:              "SQZ",
		BarCount:            30,
		FloatShares:         contracts.Some(20_000_000),
		BorrowFeePct:        contracts.Some(0.35),
		ShortUtilizationPct: contracts.Some(0.90),
	}
	// 60 (small float) + 20 (fee) + 20 (utilization)
	assert.Equal(t, 100.0, squeezeScore(f))

	big := &contracts.FeatureSet{
		Symbol:           "BIG",
		BarCount:         30,
		FloatShares:      contracts.Some(200_000_000),
		ShortInterestPct: contracts.Some(0.25),
	}
	// Large float qualifies only with heavy short interest
	assert.Equal(t, 40.0, squeezeScore(big))
}

func TestCatalystScoreZeroNewsIsRealZero(t *testing.T) {
	f := &contracts.FeatureSet{Symbol: "NONEWS", BarCount: 30}
	assert.Equal(t, 0.0, catalystScore(f))
	assert.Equal(t, 0.0, sentimentScore(f))
}

func TestSentimentPolarityFromCounts(t *testing.T) {
	// No scored sentiment: polarity falls back to count balance
	f := &contracts.FeatureSet{
		Symbol:        "CNT",
		BarCount:      30,
		NewsCount:     4,
		PositiveCount: 3,
		NegativeCount: 0,
	}
	// 4*8 chatter + 60 polarity (3/4 = 0.75 > 0.5)
	assert.Equal(t, 92.0, sentimentScore(f))
}
