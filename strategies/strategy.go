package strategies

import (
	"github.com/rustyeddy/polypaper/market"
	"github.com/shopspring/decimal"
)

// SignalType is the action a strategy requests for a bar.
type SignalType string

const (
	Buy        SignalType = "BUY"
	Sell       SignalType = "SELL"
	Hold       SignalType = "HOLD"
	CloseLong  SignalType = "CLOSE_LONG"
	CloseShort SignalType = "CLOSE_SHORT"
)

// Signal is a strategy's request to the engine. A nil Quantity lets the
// engine size the order from its position cap.
type Signal struct {
	Symbol     string           `json:"symbol"`
	Type       SignalType       `json:"type"`
	Quantity   *decimal.Decimal `json:"quantity,omitempty"`
	Confidence float64          `json:"confidence"`
	Reason     string           `json:"reason,omitempty"`
}

// Position is the read-only view of an open position handed to strategies.
type Position struct {
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
}

// ParamSpec describes one tunable strategy parameter.
type ParamSpec struct {
	Type        string `json:"type"`
	Default     any    `json:"default"`
	Description string `json:"description"`
}

// Metadata identifies a strategy and documents its parameters.
type Metadata struct {
	ID               string               `json:"id"`
	Name             string               `json:"name"`
	Description      string               `json:"description"`
	Version          string               `json:"version"`
	SupportedMarkets []string             `json:"supported_markets"`
	Parameters       map[string]ParamSpec `json:"parameters"`
}

// Strategy is called once per bar in timestamp order.
type Strategy interface {
	Metadata() Metadata
	OnData(bar market.Bar, positions []Position) *Signal
}

// PositionCloseListener is an optional interface that strategies can
// implement to be told the realized PnL when the engine closes their
// position. ts is the timestamp of the closing bar.
type PositionCloseListener interface {
	OnPositionClose(pnl decimal.Decimal, ts int64)
}

func findPosition(positions []Position, symbol string) *Position {
	for i := range positions {
		if positions[i].Symbol == symbol {
			return &positions[i]
		}
	}
	return nil
}

func closeLong(bar market.Bar, pos *Position, confidence float64, reason string) *Signal {
	qty := pos.Quantity
	return &Signal{
		Symbol:     bar.Symbol,
		Type:       CloseLong,
		Quantity:   &qty,
		Confidence: confidence,
		Reason:     reason,
	}
}

// pnlPercent returns the unrealized move from entry to price in percent.
func pnlPercent(pos *Position, price decimal.Decimal) float64 {
	if pos.AvgEntryPrice.IsZero() {
		return 0
	}
	return price.Sub(pos.AvgEntryPrice).Div(pos.AvgEntryPrice).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
