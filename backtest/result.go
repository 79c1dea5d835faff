package backtest

import (
	"math"

	"github.com/shopspring/decimal"
)

// periodsPerYear annualizes per-bar statistics.
const periodsPerYear = 252

// Result summarizes a completed run. TotalTrades counts exits only.
type Result struct {
	StrategyID     string          `json:"strategy_id"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	FinalCapital   decimal.Decimal `json:"final_capital"`
	TotalReturn    decimal.Decimal `json:"total_return"`
	TotalReturnPct decimal.Decimal `json:"total_return_pct"`
	WinRate        float64         `json:"win_rate"`
	TotalTrades    int             `json:"total_trades"`
	WinningTrades  int             `json:"winning_trades"`
	LosingTrades   int             `json:"losing_trades"`
	MaxDrawdown    decimal.Decimal `json:"max_drawdown"`
	MaxDrawdownPct decimal.Decimal `json:"max_drawdown_pct"`
	SharpeRatio    *float64        `json:"sharpe_ratio"`
	Trades         []Trade         `json:"trades"`
	EquityCurve    []EquityPoint   `json:"equity_curve"`
}

// Results computes the report for everything processed so far.
func (e *Engine) Results(strategyID, startDate, endDate string) *Result {
	final := e.capital
	if n := len(e.equity); n > 0 {
		final = e.equity[n-1].Equity
	}

	hundred := decimal.NewFromInt(100)
	r := &Result{
		StrategyID:     strategyID,
		StartDate:      startDate,
		EndDate:        endDate,
		InitialCapital: e.cfg.InitialCapital,
		FinalCapital:   final,
		TotalReturn:    final.Sub(e.cfg.InitialCapital),
		MaxDrawdown:    e.maxDrawdown,
		MaxDrawdownPct: decimal.Zero,
		TotalReturnPct: decimal.Zero,
		Trades:         e.trades,
		EquityCurve:    e.equity,
	}
	if e.cfg.InitialCapital.IsPositive() {
		r.TotalReturnPct = r.TotalReturn.Div(e.cfg.InitialCapital).Mul(hundred)
	}
	if e.peakEquity.IsPositive() {
		r.MaxDrawdownPct = e.maxDrawdown.Div(e.peakEquity).Mul(hundred)
	}

	for _, t := range e.trades {
		if t.Side != SideSell {
			continue
		}
		r.TotalTrades++
		if t.PnL.IsPositive() {
			r.WinningTrades++
		} else {
			r.LosingTrades++
		}
	}
	if r.TotalTrades > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades) * 100
	}

	r.SharpeRatio = sharpe(e.equity, e.cfg.RiskFreeRate)
	return r
}

// sharpe annualizes the mean and population standard deviation of
// period-over-period equity returns. It is nil with fewer than two returns or
// zero variance.
func sharpe(curve []EquityPoint, riskFree float64) *float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if !prev.IsPositive() {
			continue
		}
		returns = append(returns, curve[i].Equity.Sub(prev).Div(prev).InexactFloat64())
	}
	if len(returns) < 2 {
		return nil
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / float64(len(returns)))
	if std == 0 {
		return nil
	}

	s := (mean*periodsPerYear - riskFree) / (std * math.Sqrt(periodsPerYear))
	return &s
}

// TradeReturns returns the fractional return of each round trip, net of
// fees on both legs.
func (r *Result) TradeReturns() []float64 {
	var out []float64
	var entry *Trade
	for i := range r.Trades {
		t := &r.Trades[i]
		switch t.Side {
		case SideBuy:
			entry = t
		case SideSell:
			if entry == nil {
				continue
			}
			basis := entry.Quantity.Mul(entry.Price).Add(entry.Fees)
			if basis.IsPositive() {
				out = append(out, t.PnL.Div(basis).InexactFloat64())
			}
			entry = nil
		}
	}
	return out
}

// EquityValues returns the equity curve as float64.
func (r *Result) EquityValues() []float64 {
	out := make([]float64, len(r.EquityCurve))
	for i, p := range r.EquityCurve {
		out[i] = p.Equity.InexactFloat64()
	}
	return out
}
