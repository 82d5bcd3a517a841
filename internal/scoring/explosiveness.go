package scoring

import (
	"math"

	"github.com/alphastack/discovery/internal/contracts"
)

// Explosiveness weights. Distinct from the composite scorer: this runs
// after asynchronous enrichment (short-interest estimates, options
// proxy, full technicals) and leans harder on volume and squeeze
// mechanics. The squeeze term takes the max of the float-size and
// short-metrics subscores, since either alone is enough fuel.
const (
	wExploVolMomentum = 0.30
	wExploSqueeze     = 0.25
	wExploCatalyst    = 0.20
	wExploSentiment   = 0.15
	wExploOptions     = 0.05
	wExploTechnical   = 0.05
)

// Explosiveness scores enriched features on a 0-100 integer scale
func Explosiveness(f *contracts.FeatureSet) int {
	volMom := 0.5*norm(f.VolumeRatio.Or(1), 1, 5) +
		0.3*norm(f.Ret5D.Or(0), 0, 0.5) +
		0.2*norm(f.Ret21D.Or(0), 0, 1.0)

	floatScore := 0.0
	if f.FloatShares.Present {
		floatScore = 1 - norm(f.FloatShares.Value, 10_000_000, 200_000_000)
	}
	shortScore := 0.5*norm(f.ShortInterestPct.Or(0), 0.05, 0.40) +
		0.3*norm(f.BorrowFeePct.Or(0), 0.05, 0.50) +
		0.2*norm(f.ShortUtilizationPct.Or(0), 0.50, 1.0)
	squeeze := math.Max(floatScore, shortScore)

	catalyst := 0.0
	if f.CatalystPresent {
		catalyst = 1.0
	} else {
		catalyst = 0.5 * norm(float64(f.NewsCount), 0, 5)
	}

	sentiment := norm(f.SentimentScore.Or(countPolarity(f)), -1, 1)

	options := norm(f.CallPutRatio.Or(0), 0.5, 3.0)

	technical := 0.4*norm(f.RSI14.Or(50), 40, 70)
	if f.EMABullish {
		technical += 0.3
	}
	if f.VWAPHeld {
		technical += 0.3
	}

	total := wExploVolMomentum*volMom +
		wExploSqueeze*squeeze +
		wExploCatalyst*catalyst +
		wExploSentiment*sentiment +
		wExploOptions*options +
		wExploTechnical*clamp(technical, 0, 1)

	return int(math.Round(100 * clamp(total, 0, 1)))
}

// norm is a min-max clamp to [0,1] so inputs in different native units
// (percent, ratio, dollars) stay commensurable
func norm(x, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return clamp((x-lo)/(hi-lo), 0, 1)
}
