package walkforward

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/polypaper/backtest"
)

// Metric is the train-window score maximized by the grid search.
type Metric string

const (
	TotalReturn Metric = "total_return"
	Sharpe      Metric = "sharpe"
	WinRate     Metric = "win_rate"
)

func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return TotalReturn, nil
	case TotalReturn, Sharpe, WinRate:
		return m, nil
	default:
		return "", fmt.Errorf("walkforward: unknown metric %q (supported: total_return, sharpe, win_rate)", s)
	}
}

// Score extracts the metric from r. ok is false when the metric is not
// available, which happens for a Sharpe ratio over a flat equity curve.
func (m Metric) Score(r *backtest.Result) (float64, bool) {
	switch m {
	case Sharpe:
		if r.SharpeRatio == nil {
			return 0, false
		}
		return *r.SharpeRatio, true
	case WinRate:
		return r.WinRate, true
	default:
		return r.TotalReturn.InexactFloat64(), true
	}
}
