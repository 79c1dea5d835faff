package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/polypaper/indicators"
	"github.com/rustyeddy/polypaper/market"
	"github.com/shopspring/decimal"
)

// TrendFollowing buys breakouts above the recent high while ADX confirms a
// bullish trend. Positions exit on a trailing stop or a bearish reversal.
type TrendFollowing struct {
	breaker

	ADXPeriod           int
	ADXThreshold        float64
	LookbackPeriod      int
	TrailingStopPercent float64

	highs  []float64
	lows   []float64
	closes []float64

	highestSinceEntry float64
}

func NewTrendFollowing(p Params) (Strategy, error) {
	s := &TrendFollowing{
		breaker:             newBreaker(p, 24),
		ADXPeriod:           p.Int("adxPeriod", 14),
		ADXThreshold:        p.Float("adxThreshold", 25),
		LookbackPeriod:      p.Int("lookbackPeriod", 20),
		TrailingStopPercent: p.Float("trailingStopPercent", 2.0),
	}
	if s.LookbackPeriod < 2 {
		return nil, fmt.Errorf("trend-following-v1: lookbackPeriod must be at least 2, got %d", s.LookbackPeriod)
	}
	if s.ADXPeriod <= 0 {
		return nil, fmt.Errorf("trend-following-v1: adxPeriod must be positive, got %d", s.ADXPeriod)
	}
	return s, nil
}

func (s *TrendFollowing) Metadata() Metadata {
	params := breakerParams(24)
	params["adxPeriod"] = ParamSpec{Type: "number", Default: 14, Description: "ADX period"}
	params["adxThreshold"] = ParamSpec{Type: "number", Default: 25.0, Description: "Minimum ADX to confirm trend"}
	params["lookbackPeriod"] = ParamSpec{Type: "number", Default: 20, Description: "Lookback for high/low"}
	params["trailingStopPercent"] = ParamSpec{Type: "number", Default: 2.0, Description: "Trailing stop percentage"}
	return Metadata{
		ID:               "trend-following-v1",
		Name:             "Trend Following",
		Description:      "Follows established trends with ADX confirmation and trailing stops",
		Version:          "1.0.0",
		SupportedMarkets: []string{"CRYPTO"},
		Parameters:       params,
	}
}

func (s *TrendFollowing) OnData(bar market.Bar, positions []Position) *Signal {
	high := bar.High.InexactFloat64()
	s.highs = append(s.highs, high)
	s.lows = append(s.lows, bar.Low.InexactFloat64())
	s.closes = append(s.closes, bar.Close.InexactFloat64())

	keep := s.LookbackPeriod + 20
	if floor := 2*s.ADXPeriod + 1; keep < floor {
		keep = floor
	}
	if len(s.closes) > keep {
		s.highs = s.highs[len(s.highs)-keep:]
		s.lows = s.lows[len(s.lows)-keep:]
		s.closes = s.closes[len(s.closes)-keep:]
	}

	if !s.Allow(bar.Timestamp, s.maxLosses) {
		return nil
	}
	if len(s.closes) < s.LookbackPeriod+10 {
		return nil
	}

	di, ok := indicators.ADX(s.highs, s.lows, s.closes, s.ADXPeriod)
	if !ok {
		return nil
	}
	trend := indicators.TrendDirection(di, s.ADXThreshold)

	if pos := findPosition(positions, bar.Symbol); pos != nil {
		s.highestSinceEntry = math.Max(s.highestSinceEntry, high)
		stop := s.highestSinceEntry * (1 - s.TrailingStopPercent/100)
		if bar.Close.LessThanOrEqual(decimal.NewFromFloat(stop)) {
			return closeLong(bar, pos, 0.8, fmt.Sprintf("trailing stop hit at %.2f", stop))
		}
		if trend == indicators.Bearish && indicators.IsTrending(di, s.ADXThreshold) {
			return closeLong(bar, pos, 0.7, fmt.Sprintf("trend reversal: ADX=%.1f, trend=%s", di.ADX, trend))
		}
		return nil
	}

	if !indicators.IsTrending(di, s.ADXThreshold) || trend != indicators.Bullish {
		return nil
	}

	// Breakout is measured against the prior bars, excluding this one.
	window := s.highs[len(s.highs)-s.LookbackPeriod : len(s.highs)-1]
	recentHigh := window[0]
	for _, h := range window[1:] {
		recentHigh = math.Max(recentHigh, h)
	}
	if bar.Close.InexactFloat64() <= recentHigh {
		return nil
	}

	qty := s.size(bar.Close)
	if !qty.IsPositive() {
		return nil
	}
	s.highestSinceEntry = high
	return &Signal{
		Symbol:     bar.Symbol,
		Type:       Buy,
		Quantity:   &qty,
		Confidence: math.Min(0.85, di.ADX/50),
		Reason:     fmt.Sprintf("breakout above %.2f, ADX=%.1f, trend=%s", recentHigh, di.ADX, trend),
	}
}

// OnPositionClose updates the breaker and clears the trailing stop.
func (s *TrendFollowing) OnPositionClose(pnl decimal.Decimal, ts int64) {
	s.breaker.OnPositionClose(pnl, ts)
	s.highestSinceEntry = 0
}
