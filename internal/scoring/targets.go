package scoring

import (
	"math"

	"github.com/alphastack/discovery/internal/contracts"
)

// EntryTargets builds the staged exit ladder for a scored candidate.
// Percentages widen as conviction drops: a high score earns a tight
// stop and ambitious targets, a marginal one the reverse. A realized
// volatility (annualized fraction) scales the whole ladder, clamped to
// [0.5x, 2x] around a 30% baseline. Entry is placed 2% below the
// current price.
func EntryTargets(price, score, volatility float64) *contracts.EntryTargets {
	if price <= 0 {
		return nil
	}

	var stopPct, tp1Pct, tp2Pct float64
	switch {
	case score >= 85:
		stopPct, tp1Pct, tp2Pct = 0.08, 0.25, 0.50
	case score >= 75:
		stopPct, tp1Pct, tp2Pct = 0.10, 0.20, 0.40
	case score >= 70:
		stopPct, tp1Pct, tp2Pct = 0.12, 0.15, 0.30
	default:
		stopPct, tp1Pct, tp2Pct = 0.15, 0.10, 0.20
	}

	if volatility > 0 {
		mult := clamp(volatility/0.3, 0.5, 2.0)
		stopPct *= mult
		tp1Pct *= mult
		tp2Pct *= mult
	}

	return &contracts.EntryTargets{
		Entry:      round2(price * 0.98),
		Stop:       round2(price * (1 - stopPct)),
		TP1:        round2(price * (1 + tp1Pct)),
		TP2:        round2(price * (1 + tp2Pct)),
		StopPct:    stopPct,
		TP1Pct:     tp1Pct,
		TP2Pct:     tp2Pct,
		RiskReward: round2(tp1Pct / stopPct),
	}
}

// SqueezeRisk scores short-squeeze fuel on 0-100 from the four
// enabler metrics. Absent metrics contribute nothing.
func SqueezeRisk(f *contracts.FeatureSet) int {
	risk := 0

	// Short interest: 0-40 points
	if f.ShortInterestPct.Present {
		switch si := f.ShortInterestPct.Value; {
		case si >= 0.30:
			risk += 40
		case si >= 0.20:
			risk += 30
		case si >= 0.10:
			risk += 20
		default:
			risk += 10
		}
	}

	// Borrow fee: 0-30 points
	if f.BorrowFeePct.Present {
		switch fee := f.BorrowFeePct.Value; {
		case fee >= 0.50:
			risk += 30
		case fee >= 0.30:
			risk += 25
		case fee >= 0.20:
			risk += 20
		case fee >= 0.10:
			risk += 15
		default:
			risk += 5
		}
	}

	// Utilization: 0-20 points
	if f.ShortUtilizationPct.Present {
		switch u := f.ShortUtilizationPct.Value; {
		case u >= 0.90:
			risk += 20
		case u >= 0.80:
			risk += 15
		case u >= 0.70:
			risk += 10
		default:
			risk += 5
		}
	}

	// Small floats squeeze harder: 0-10 points
	if f.FloatShares.Present {
		switch fs := f.FloatShares.Value; {
		case fs <= 10_000_000:
			risk += 10
		case fs <= 50_000_000:
			risk += 5
		}
	}

	if risk > 100 {
		risk = 100
	}
	return risk
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
