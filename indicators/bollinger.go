package indicators

// Bands are Bollinger Bands. Width is (upper-lower)/middle as a percentage.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
	Width  float64
}

// Bollinger computes bands over the last period closes using the population
// standard deviation.
func Bollinger(closes []float64, period int, numStd float64) (Bands, bool) {
	if period <= 0 || len(closes) < period {
		return Bands{}, false
	}
	recent := closes[len(closes)-period:]
	sma := mean(recent)
	sd := StdDev(recent)

	b := Bands{
		Upper:  sma + numStd*sd,
		Middle: sma,
		Lower:  sma - numStd*sd,
	}
	if sma > 0 {
		b.Width = (b.Upper - b.Lower) / sma * 100
	}
	b.Upper = round(b.Upper, 8)
	b.Middle = round(b.Middle, 8)
	b.Lower = round(b.Lower, 8)
	b.Width = round(b.Width, 4)
	return b, true
}

// IsSqueeze reports whether the band width is below threshold percent.
func (b Bands) IsSqueeze(threshold float64) bool {
	return b.Width < threshold
}

// IsExpansion reports whether the band width is above threshold percent.
func (b Bands) IsExpansion(threshold float64) bool {
	return b.Width > threshold
}

// MeanReversionSignal returns Bullish when price is within 20% of the band
// distance above the lower band, Bearish when within 20% below the upper band
// and Neutral otherwise. Bands narrower than minWidth percent are Neutral.
func (b Bands) MeanReversionSignal(price, minWidth float64) Trend {
	if minWidth > 0 {
		width := 0.0
		if b.Middle > 0 {
			width = (b.Upper - b.Lower) / b.Middle * 100
		}
		if width < minWidth {
			return Neutral
		}
	}
	if price <= b.Lower+(b.Middle-b.Lower)*0.2 {
		return Bullish
	}
	if price >= b.Upper-(b.Upper-b.Middle)*0.2 {
		return Bearish
	}
	return Neutral
}
