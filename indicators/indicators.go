// Package indicators provides technical analysis indicators over float64
// price series. Series are ordered oldest first.
package indicators

import "math"

// round returns x rounded to n decimal places.
func round(x float64, n int) float64 {
	p := math.Pow(10, float64(n))
	return math.Round(x*p) / p
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the population standard deviation of xs.
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	v := 0.0
	for _, x := range xs {
		v += (x - m) * (x - m)
	}
	return math.Sqrt(v / float64(len(xs)))
}

// Volatility returns the population standard deviation of simple returns
// over the last lookback prices. It is 0 until lookback prices are available.
func Volatility(prices []float64, lookback int) float64 {
	if lookback < 2 || len(prices) < lookback {
		return 0
	}
	recent := prices[len(prices)-lookback:]
	returns := make([]float64, 0, lookback-1)
	for i := 1; i < len(recent); i++ {
		if recent[i-1] == 0 {
			continue
		}
		returns = append(returns, (recent[i]-recent[i-1])/recent[i-1])
	}
	return StdDev(returns)
}
