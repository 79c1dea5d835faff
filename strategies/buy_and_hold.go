package strategies

import (
	"github.com/rustyeddy/polypaper/market"
	"github.com/shopspring/decimal"
)

// BuyAndHold opens a single position on the first bar it sees and holds it.
// With exitAfterBars > 0 it sells after holding that many bars and does not
// re-enter.
type BuyAndHold struct {
	ExitAfterBars int
	Quantity      decimal.Decimal // zero lets the engine size from its cap

	entered bool
	held    int
}

func NewBuyAndHold(p Params) (Strategy, error) {
	return &BuyAndHold{
		ExitAfterBars: p.Int("exitAfterBars", 0),
		Quantity:      p.Decimal("quantity", decimal.Zero),
	}, nil
}

func (s *BuyAndHold) Metadata() Metadata {
	return Metadata{
		ID:               "buy-and-hold",
		Name:             "Buy and Hold",
		Description:      "Buys on the first bar and holds",
		Version:          "1.0.0",
		SupportedMarkets: []string{"CRYPTO"},
		Parameters: map[string]ParamSpec{
			"exitAfterBars": {Type: "number", Default: 0, Description: "Bars to hold before selling, 0 holds forever"},
			"quantity":      {Type: "number", Default: 0, Description: "Fixed order quantity, 0 uses the engine position cap"},
		},
	}
}

func (s *BuyAndHold) OnData(bar market.Bar, positions []Position) *Signal {
	pos := findPosition(positions, bar.Symbol)
	if pos == nil {
		if s.entered {
			return nil
		}
		s.entered = true
		sig := &Signal{Symbol: bar.Symbol, Type: Buy, Confidence: 1, Reason: "buy and hold entry"}
		if s.Quantity.IsPositive() {
			q := s.Quantity
			sig.Quantity = &q
		}
		return sig
	}

	s.held++
	if s.ExitAfterBars > 0 && s.held >= s.ExitAfterBars {
		return closeLong(bar, pos, 1, "hold period elapsed")
	}
	return nil
}
