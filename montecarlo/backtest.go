package montecarlo

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/polypaper/backtest"
)

// Source selects which return series of a backtest is resampled.
type Source string

const (
	FromEquity Source = "equity" // per-bar equity returns
	FromTrades Source = "trades" // per round-trip returns
)

func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case "", FromEquity:
		return FromEquity, nil
	case FromTrades:
		return FromTrades, nil
	default:
		return "", fmt.Errorf("montecarlo: unknown source %q (supported: equity, trades)", s)
	}
}

// FromBacktest runs the analyzer over a completed backtest.
func FromBacktest(res *backtest.Result, src Source, opts Options) *Result {
	if src == FromTrades {
		return Run(res.TradeReturns(), res.InitialCapital.InexactFloat64(), opts)
	}
	return RunFromEquityCurve(res.EquityValues(), opts)
}
