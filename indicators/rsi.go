package indicators

import "math"

// RSI computes the Relative Strength Index with Wilder smoothing. It returns
// 100 when there were no losses over the window.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		ch := closes[i] - closes[i-1]
		avgGain += math.Max(ch, 0)
		avgLoss += math.Max(-ch, 0)
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		ch := closes[i] - closes[i-1]
		avgGain = (avgGain*float64(period-1) + math.Max(ch, 0)) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + math.Max(-ch, 0)) / float64(period)
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return round(100-100/(1+rs), 2), true
}
