// Package ta holds the small set of indicator helpers the screener
// needs. It is deliberately minimal, not a general indicator library.
package ta

// Bar is one OHLCV bar, oldest-first in all slice arguments
type Bar struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// EMA returns the exponential moving average of the final value.
// Returns 0 when there are fewer than period values.
func EMA(values []float64, period int) float64 {
	if len(values) < period || period <= 0 {
		return 0
	}
	k := 2.0 / float64(period+1)
	ema := values[0]
	for _, v := range values[1:] {
		ema = v*k + ema*(1-k)
	}
	return ema
}

// RSI returns the Wilder RSI of the final value, or 50 when there is
// not enough history to compute it
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ATR returns the average true range over period, or 0 without enough
// bars
func ATR(bars []Bar, period int) float64 {
	if len(bars) < period+1 || period <= 0 {
		return 0
	}

	trSum := 0.0
	start := len(bars) - period
	for i := start; i < len(bars); i++ {
		tr := bars[i].High - bars[i].Low
		if hc := abs(bars[i].High - bars[i-1].Close); hc > tr {
			tr = hc
		}
		if lc := abs(bars[i].Low - bars[i-1].Close); lc > tr {
			tr = lc
		}
		trSum += tr
	}
	return trSum / float64(period)
}

// VWAP returns the volume-weighted average price across bars, or 0
// with no volume
func VWAP(bars []Bar) float64 {
	var pv, vol float64
	for _, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3
		pv += typical * b.Volume
		vol += b.Volume
	}
	if vol == 0 {
		return 0
	}
	return pv / vol
}

// Return computes the fractional return over the last n bars
func Return(closes []float64, n int) float64 {
	if len(closes) < n+1 || n <= 0 {
		return 0
	}
	prev := closes[len(closes)-1-n]
	if prev == 0 {
		return 0
	}
	return closes[len(closes)-1]/prev - 1
}

// HighestClose returns the max close over the last n bars
func HighestClose(closes []float64, n int) float64 {
	if len(closes) == 0 || n <= 0 {
		return 0
	}
	start := len(closes) - n
	if start < 0 {
		start = 0
	}
	high := closes[start]
	for _, c := range closes[start+1:] {
		if c > high {
			high = c
		}
	}
	return high
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
