package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/polypaper/indicators"
	"github.com/rustyeddy/polypaper/market"
	"github.com/shopspring/decimal"
)

// MeanReversion buys near the lower Bollinger band when the bands are wide
// enough, and exits on take profit, stop loss or a return toward the middle
// band. It never shorts.
type MeanReversion struct {
	breaker

	BBPeriod          int
	BBStdDev          float64
	MinBandWidth      float64
	TakeProfitPercent float64
	StopLossPercent   float64

	closes []float64
}

func NewMeanReversion(p Params) (Strategy, error) {
	s := &MeanReversion{
		breaker:           newBreaker(p, 12),
		BBPeriod:          p.Int("bbPeriod", 20),
		BBStdDev:          p.Float("bbStdDev", 2.0),
		MinBandWidth:      p.Float("minBandWidth", 5.0),
		TakeProfitPercent: p.Float("takeProfitPercent", 2.0),
		StopLossPercent:   p.Float("stopLossPercent", 2.0),
	}
	if s.BBPeriod < 2 {
		return nil, fmt.Errorf("mean-reversion-v1: bbPeriod must be at least 2, got %d", s.BBPeriod)
	}
	return s, nil
}

func (s *MeanReversion) Metadata() Metadata {
	params := breakerParams(12)
	params["bbPeriod"] = ParamSpec{Type: "number", Default: 20, Description: "Bollinger Band period"}
	params["bbStdDev"] = ParamSpec{Type: "number", Default: 2.0, Description: "Standard deviations"}
	params["minBandWidth"] = ParamSpec{Type: "number", Default: 5.0, Description: "Minimum bandwidth % to trade"}
	params["takeProfitPercent"] = ParamSpec{Type: "number", Default: 2.0, Description: "Profit target %"}
	params["stopLossPercent"] = ParamSpec{Type: "number", Default: 2.0, Description: "Stop loss %"}
	return Metadata{
		ID:               "mean-reversion-v1",
		Name:             "Mean Reversion",
		Description:      "Trades mean reversion using Bollinger Bands with volatility filter",
		Version:          "1.0.0",
		SupportedMarkets: []string{"CRYPTO"},
		Parameters:       params,
	}
}

func (s *MeanReversion) OnData(bar market.Bar, positions []Position) *Signal {
	s.closes = append(s.closes, bar.Close.InexactFloat64())
	if keep := s.BBPeriod + 10; len(s.closes) > keep {
		s.closes = s.closes[len(s.closes)-keep:]
	}

	if !s.Allow(bar.Timestamp, s.maxLosses) {
		return nil
	}

	bands, ok := indicators.Bollinger(s.closes, s.BBPeriod, s.BBStdDev)
	if !ok {
		return nil
	}

	if pos := findPosition(positions, bar.Symbol); pos != nil {
		pct := pnlPercent(pos, bar.Close)
		if pct >= s.TakeProfitPercent {
			return closeLong(bar, pos, 0.8, fmt.Sprintf("take profit: %.1f%% >= %.1f%%", pct, s.TakeProfitPercent))
		}
		if pct <= -s.StopLossPercent {
			return closeLong(bar, pos, 0.8, fmt.Sprintf("stop loss: %.1f%% <= -%.1f%%", pct, s.StopLossPercent))
		}
		if bar.Close.GreaterThanOrEqual(decimal.NewFromFloat(bands.Middle * 0.98)) {
			return closeLong(bar, pos, 0.7, fmt.Sprintf("reversion to mean: price near middle band %.2f", bands.Middle))
		}
		return nil
	}

	if bands.IsSqueeze(s.MinBandWidth) {
		return nil
	}
	price := bar.Close.InexactFloat64()
	if bands.MeanReversionSignal(price, s.MinBandWidth) != indicators.Bullish {
		return nil
	}

	qty := s.size(bar.Close)
	if !qty.IsPositive() {
		return nil
	}
	return &Signal{
		Symbol:     bar.Symbol,
		Type:       Buy,
		Quantity:   &qty,
		Confidence: math.Min(0.8, bands.Width/10),
		Reason:     fmt.Sprintf("mean reversion buy: price=%.2f near lower band %.2f, bandwidth=%.1f%%", price, bands.Lower, bands.Width),
	}
}
