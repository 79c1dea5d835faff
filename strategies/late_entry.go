package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/polypaper/indicators"
	"github.com/rustyeddy/polypaper/market"
)

// LateEntry enters long when recent volatility is above a threshold and the
// close is above its short average. Exits on take profit or stop loss.
type LateEntry struct {
	breaker

	VolatilityThreshold float64
	TakeProfitPercent   float64
	StopLossPercent     float64
	Lookback            int

	history []float64
}

func NewLateEntry(p Params) (Strategy, error) {
	s := &LateEntry{
		breaker:             newBreaker(p, 24),
		VolatilityThreshold: p.Float("volatilityThreshold", 0.015),
		TakeProfitPercent:   p.Float("takeProfitPercent", 5.0),
		StopLossPercent:     p.Float("stopLossPercent", 3.0),
		Lookback:            p.Int("lookback", 10),
	}
	if s.Lookback < 5 {
		return nil, fmt.Errorf("late-entry-v1: lookback must be at least 5, got %d", s.Lookback)
	}
	return s, nil
}

func (s *LateEntry) Metadata() Metadata {
	params := breakerParams(24)
	params["volatilityThreshold"] = ParamSpec{Type: "number", Default: 0.015, Description: "Minimum volatility to trigger entry"}
	params["takeProfitPercent"] = ParamSpec{Type: "number", Default: 5.0, Description: "Take profit threshold %"}
	params["stopLossPercent"] = ParamSpec{Type: "number", Default: 3.0, Description: "Stop loss threshold %"}
	params["lookback"] = ParamSpec{Type: "number", Default: 10, Description: "Bars used for the volatility estimate"}
	return Metadata{
		ID:               "late-entry-v1",
		Name:             "Late Entry",
		Description:      "Enters trades during favorable volatility conditions with position cap and circuit breaker",
		Version:          "1.0.0",
		SupportedMarkets: []string{"CRYPTO"},
		Parameters:       params,
	}
}

func (s *LateEntry) OnData(bar market.Bar, positions []Position) *Signal {
	s.history = append(s.history, bar.Close.InexactFloat64())
	if keep := s.Lookback + 5; len(s.history) > keep {
		s.history = s.history[len(s.history)-keep:]
	}

	if !s.Allow(bar.Timestamp, s.maxLosses) {
		return nil
	}

	if pos := findPosition(positions, bar.Symbol); pos != nil {
		pct := pnlPercent(pos, bar.Close)
		if pct >= s.TakeProfitPercent {
			return closeLong(bar, pos, 0.9, fmt.Sprintf("take profit hit: %.1f%% >= %.1f%%", pct, s.TakeProfitPercent))
		}
		if pct <= -s.StopLossPercent {
			return closeLong(bar, pos, 0.9, fmt.Sprintf("stop loss hit: %.1f%% <= -%.1f%%", pct, s.StopLossPercent))
		}
		return nil
	}

	vol := indicators.Volatility(s.history, s.Lookback)
	if vol < s.VolatilityThreshold {
		return nil
	}

	avg, err := indicators.SMA(s.history, 5)
	if err != nil || bar.Close.InexactFloat64() <= avg {
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
		Confidence: math.Min(0.8, vol*10),
		Reason:     fmt.Sprintf("volatility %.2f%% > threshold %.1f%%, trending up", vol*100, s.VolatilityThreshold*100),
	}
}

var _ PositionCloseListener = (*LateEntry)(nil)
