package indicators

import "math"

// Trend is the direction reported by TrendDirection.
type Trend string

const (
	Bullish Trend = "BULLISH"
	Bearish Trend = "BEARISH"
	Neutral Trend = "NEUTRAL"
)

// DirectionalIndex holds the latest ADX, +DI and -DI values, each in [0, 100].
type DirectionalIndex struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// wilderSmooth seeds with the SMA of the first period values and then applies
// rma = (prev*(period-1) + x) / period.
func wilderSmooth(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}
	out := make([]float64, 0, len(values)-period+1)
	out = append(out, mean(values[:period]))
	for i := period; i < len(values); i++ {
		prev := out[len(out)-1]
		out = append(out, (prev*float64(period-1)+values[i])/float64(period))
	}
	return out
}

// ADX implements Wilder's Average Directional Index over parallel high, low
// and close series. It needs at least 2*period+1 bars; ok is false otherwise.
// Results are rounded to two decimals.
func ADX(highs, lows, closes []float64, period int) (DirectionalIndex, bool) {
	n := len(highs)
	if period <= 0 || n < 2*period+1 || len(lows) != n || len(closes) != n {
		return DirectionalIndex{}, false
	}

	tr := make([]float64, 0, n-1)
	pdm := make([]float64, 0, n-1)
	mdm := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		h, l, pc := highs[i], lows[i], closes[i-1]
		tr = append(tr, math.Max(h-l, math.Max(math.Abs(h-pc), math.Abs(l-pc))))

		up := h - highs[i-1]
		down := lows[i-1] - l
		p, m := 0.0, 0.0
		if up > down && up > 0 {
			p = up
		}
		if down > up && down > 0 {
			m = down
		}
		pdm = append(pdm, p)
		mdm = append(mdm, m)
	}

	atr := wilderSmooth(tr, period)
	spdm := wilderSmooth(pdm, period)
	smdm := wilderSmooth(mdm, period)
	if len(atr) == 0 {
		return DirectionalIndex{}, false
	}

	plus := make([]float64, len(atr))
	minus := make([]float64, len(atr))
	dx := make([]float64, len(atr))
	for i := range atr {
		if atr[i] > 0 {
			plus[i] = clamp(spdm[i]/atr[i]*100, 0, 100)
			minus[i] = clamp(smdm[i]/atr[i]*100, 0, 100)
		}
		if sum := plus[i] + minus[i]; sum > 0 {
			dx[i] = math.Abs(plus[i]-minus[i]) / sum * 100
		}
	}

	adx := wilderSmooth(dx, period)
	if len(adx) == 0 {
		return DirectionalIndex{}, false
	}

	last := len(plus) - 1
	return DirectionalIndex{
		ADX:     round(clamp(adx[len(adx)-1], 0, 100), 2),
		PlusDI:  round(plus[last], 2),
		MinusDI: round(minus[last], 2),
	}, true
}

// TrendDirection classifies the trend. Below threshold the market is Neutral.
func TrendDirection(di DirectionalIndex, threshold float64) Trend {
	if di.ADX < threshold {
		return Neutral
	}
	switch {
	case di.PlusDI > di.MinusDI:
		return Bullish
	case di.MinusDI > di.PlusDI:
		return Bearish
	default:
		return Neutral
	}
}

// IsTrending reports whether ADX is at or above threshold.
func IsTrending(di DirectionalIndex, threshold float64) bool {
	return di.ADX >= threshold
}
