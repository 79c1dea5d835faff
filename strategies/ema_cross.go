package strategies

import (
	"fmt"

	"github.com/rustyeddy/polypaper/indicators"
	"github.com/rustyeddy/polypaper/market"
)

// EMACross goes long when the fast EMA crosses above the slow EMA and closes
// when it crosses back below.
type EMACross struct {
	breaker

	FastPeriod int
	SlowPeriod int

	fast *indicators.ExponentialMA
	slow *indicators.ExponentialMA

	lastDiff     float64
	haveLastDiff bool
}

func NewEMACross(p Params) (Strategy, error) {
	fast := p.Int("fastPeriod", 10)
	slow := p.Int("slowPeriod", 30)
	if fast <= 0 || slow <= 0 {
		return nil, fmt.Errorf("ema-cross: periods must be positive (fast=%d slow=%d)", fast, slow)
	}
	if fast >= slow {
		return nil, fmt.Errorf("ema-cross: fastPeriod %d must be less than slowPeriod %d", fast, slow)
	}
	return &EMACross{
		breaker:    newBreaker(p, 24),
		FastPeriod: fast,
		SlowPeriod: slow,
		fast:       indicators.NewEMA(fast),
		slow:       indicators.NewEMA(slow),
	}, nil
}

func (s *EMACross) Metadata() Metadata {
	params := breakerParams(24)
	params["fastPeriod"] = ParamSpec{Type: "number", Default: 10, Description: "Fast EMA period"}
	params["slowPeriod"] = ParamSpec{Type: "number", Default: 30, Description: "Slow EMA period"}
	return Metadata{
		ID:               "ema-cross",
		Name:             "EMA Cross",
		Description:      "Long on fast/slow EMA crossover, flat on the opposite cross",
		Version:          "1.0.0",
		SupportedMarkets: []string{"CRYPTO"},
		Parameters:       params,
	}
}

func (s *EMACross) OnData(bar market.Bar, positions []Position) *Signal {
	c := bar.Close.InexactFloat64()
	s.fast.Update(c)
	s.slow.Update(c)
	if !s.fast.Ready() || !s.slow.Ready() {
		return nil
	}

	diff := s.fast.Value() - s.slow.Value()
	if !s.haveLastDiff {
		s.lastDiff = diff
		s.haveLastDiff = true
		return nil
	}
	prev := s.lastDiff
	s.lastDiff = diff

	pos := findPosition(positions, bar.Symbol)
	if pos != nil {
		if prev >= 0 && diff < 0 {
			return closeLong(bar, pos, 0.7, "fast EMA crossed below slow")
		}
		return nil
	}

	if !s.Allow(bar.Timestamp, s.maxLosses) {
		return nil
	}
	if prev <= 0 && diff > 0 {
		qty := s.size(bar.Close)
		return &Signal{
			Symbol:     bar.Symbol,
			Type:       Buy,
			Quantity:   &qty,
			Confidence: 0.7,
			Reason:     fmt.Sprintf("fast EMA(%d) crossed above slow EMA(%d)", s.FastPeriod, s.SlowPeriod),
		}
	}
	return nil
}
