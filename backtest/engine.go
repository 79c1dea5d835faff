package backtest

import (
	"github.com/rustyeddy/polypaper/strategies"
	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is one fill. Entry legs carry zero PnL.
type Trade struct {
	Timestamp int64           `json:"timestamp"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	PnL       decimal.Decimal `json:"pnl"`
	Fees      decimal.Decimal `json:"fees"`
	Slippage  decimal.Decimal `json:"slippage"`
}

// Position is the engine's open long position.
type Position struct {
	Symbol     string
	Side       string
	Quantity   decimal.Decimal
	EntryPrice decimal.Decimal
	EntryTime  int64
	FeesPaid   decimal.Decimal
}

// EquityPoint is one equity sample, taken once per processed bar.
type EquityPoint struct {
	Timestamp int64           `json:"timestamp"`
	Equity    decimal.Decimal `json:"equity"`
}

// quoPrecision bounds the digits kept when scaling a buy down to what the
// capital can afford.
const quoPrecision = 16

// Engine simulates fills for a single position at a time. It is not safe for
// concurrent use.
type Engine struct {
	cfg Config

	capital     decimal.Decimal
	pos         *Position
	trades      []Trade
	equity      []EquityPoint
	peakEquity  decimal.Decimal
	maxDrawdown decimal.Decimal
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{cfg: cfg}
	e.Reset()
	return e
}

// Reset returns the engine to its initial flat state.
func (e *Engine) Reset() {
	e.capital = e.cfg.InitialCapital
	e.pos = nil
	e.trades = nil
	e.equity = nil
	e.peakEquity = e.cfg.InitialCapital
	e.maxDrawdown = decimal.Zero
}

func (e *Engine) Config() Config               { return e.cfg }
func (e *Engine) Capital() decimal.Decimal     { return e.capital }
func (e *Engine) PeakEquity() decimal.Decimal  { return e.peakEquity }
func (e *Engine) MaxDrawdown() decimal.Decimal { return e.maxDrawdown }
func (e *Engine) Trades() []Trade              { return e.trades }
func (e *Engine) EquityCurve() []EquityPoint   { return e.equity }

// Position returns a copy of the open position, or nil when flat.
func (e *Engine) Position() *Position {
	if e.pos == nil {
		return nil
	}
	p := *e.pos
	return &p
}

// Positions returns the strategy view of the open position.
func (e *Engine) Positions() []strategies.Position {
	if e.pos == nil {
		return nil
	}
	return []strategies.Position{{
		Symbol:        e.pos.Symbol,
		Side:          e.pos.Side,
		Quantity:      e.pos.Quantity,
		AvgEntryPrice: e.pos.EntryPrice,
	}}
}

func (e *Engine) slip(price decimal.Decimal, buy bool) decimal.Decimal {
	s := price.Mul(e.cfg.SlippageRate)
	if buy {
		return price.Add(s)
	}
	return price.Sub(s)
}

// ExecuteBuy opens a long position at price plus slippage. A nil qty sizes
// the order from the position cap. Orders that cost more than the available
// capital, fee included, are scaled down to the largest affordable quantity.
// It returns nil without changing state when a position is already open or
// nothing can be bought.
func (e *Engine) ExecuteBuy(ts int64, symbol string, price decimal.Decimal, qty *decimal.Decimal) *Trade {
	if e.pos != nil || !price.IsPositive() || !e.capital.IsPositive() {
		return nil
	}

	fill := e.slip(price, true)

	var quantity decimal.Decimal
	if qty != nil {
		quantity = *qty
	} else {
		quantity = e.cfg.PositionCap.Div(fill)
	}
	if !quantity.IsPositive() {
		return nil
	}

	one := decimal.NewFromInt(1)
	cost := quantity.Mul(fill)
	fee := cost.Mul(e.cfg.FeeRate)
	if cost.Add(fee).GreaterThan(e.capital) {
		quantity, _ = e.capital.QuoRem(fill.Mul(one.Add(e.cfg.FeeRate)), quoPrecision)
		if !quantity.IsPositive() {
			return nil
		}
		cost = quantity.Mul(fill)
		fee = cost.Mul(e.cfg.FeeRate)
	}
	if cost.Add(fee).GreaterThan(e.capital) {
		return nil
	}

	e.capital = e.capital.Sub(cost).Sub(fee)
	e.pos = &Position{
		Symbol:     symbol,
		Side:       "LONG",
		Quantity:   quantity,
		EntryPrice: fill,
		EntryTime:  ts,
		FeesPaid:   fee,
	}

	t := Trade{
		Timestamp: ts,
		Symbol:    symbol,
		Side:      SideBuy,
		Quantity:  quantity,
		Price:     fill,
		PnL:       decimal.Zero,
		Fees:      fee,
		Slippage:  fill.Sub(price).Mul(quantity),
	}
	e.trades = append(e.trades, t)
	return &t
}

// ExecuteSell closes the open position at price minus slippage. It returns
// nil when flat.
func (e *Engine) ExecuteSell(ts int64, price decimal.Decimal) *Trade {
	if e.pos == nil {
		return nil
	}
	pos := e.pos

	fill := e.slip(price, false)
	proceeds := pos.Quantity.Mul(fill)
	fee := proceeds.Mul(e.cfg.FeeRate)
	net := proceeds.Sub(fee)
	basis := pos.Quantity.Mul(pos.EntryPrice).Add(pos.FeesPaid)

	e.capital = e.capital.Add(net)
	e.pos = nil

	t := Trade{
		Timestamp: ts,
		Symbol:    pos.Symbol,
		Side:      SideSell,
		Quantity:  pos.Quantity,
		Price:     fill,
		PnL:       net.Sub(basis),
		Fees:      fee,
		Slippage:  price.Sub(fill).Mul(pos.Quantity),
	}
	e.trades = append(e.trades, t)
	return &t
}

// UpdateEquity marks the position to close, appends an equity sample and
// tracks the running peak and maximum drawdown.
func (e *Engine) UpdateEquity(ts int64, close decimal.Decimal) decimal.Decimal {
	eq := e.capital
	if e.pos != nil {
		eq = eq.Add(e.pos.Quantity.Mul(close))
	}
	e.equity = append(e.equity, EquityPoint{Timestamp: ts, Equity: eq})

	if eq.GreaterThan(e.peakEquity) {
		e.peakEquity = eq
	}
	if dd := e.peakEquity.Sub(eq); dd.GreaterThan(e.maxDrawdown) {
		e.maxDrawdown = dd
	}
	return eq
}
