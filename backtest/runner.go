package backtest

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/polypaper/market"
	"github.com/rustyeddy/polypaper/strategies"
)

// ErrNoBars is returned when Run is given an empty bar sequence.
var ErrNoBars = errors.New("backtest: no bars")

const dateLayout = "2006-01-02"

// Run replays strat over bars and returns the result. Bars are sorted by
// timestamp first; the caller's slice is not modified. Only BUY, SELL and
// CLOSE_LONG signals are acted on, at the bar's close.
func Run(strat strategies.Strategy, bars []market.Bar, cfg Config) (*Result, error) {
	if strat == nil {
		return nil, fmt.Errorf("backtest: Strategy is required")
	}
	if len(bars) == 0 {
		return nil, ErrNoBars
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sorted := make([]market.Bar, len(bars))
	copy(sorted, bars)
	market.SortBars(sorted)

	listener, _ := strat.(strategies.PositionCloseListener)
	e := NewEngine(cfg)

	for _, bar := range sorted {
		sig := strat.OnData(bar, e.Positions())
		if sig != nil {
			switch sig.Type {
			case strategies.Buy:
				e.ExecuteBuy(bar.Timestamp, bar.Symbol, bar.Close, sig.Quantity)
			case strategies.Sell, strategies.CloseLong:
				if t := e.ExecuteSell(bar.Timestamp, bar.Close); t != nil && listener != nil {
					listener.OnPositionClose(t.PnL, bar.Timestamp)
				}
			}
		}
		e.UpdateEquity(bar.Timestamp, bar.Close)
	}

	first, last := sorted[0], sorted[len(sorted)-1]
	return e.Results(
		strat.Metadata().ID,
		first.Time().Format(dateLayout),
		last.Time().Format(dateLayout),
	), nil
}
