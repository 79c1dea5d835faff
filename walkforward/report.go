package walkforward

import (
	"bytes"
	"fmt"
	"io"
)

// PrintReport writes a fold table and the aggregates of r to w.
func PrintReport(w io.Writer, r *Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " Walk-Forward Report: %s\n", r.StrategyID)
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Windows:       train %dd / test %dd (metric %s)\n", r.TrainDays, r.TestDays, r.Metric)
	fmt.Fprintf(w, "Folds:         %d ok, %d failed\n", r.NumFolds, len(r.FailedFolds))

	if len(r.Folds) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fold  Test Window               Return     Trades  Params")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, f := range r.Folds {
			fmt.Fprintf(w, "%-4d  %s - %s  %10s  %6d  %s\n",
				f.Index,
				f.TestStart.Format("2006-01-02"),
				f.TestEnd.Format("2006-01-02"),
				f.TotalReturn.StringFixed(2),
				f.TotalTrades,
				f.Params.Key())
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Aggregate")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Total Return:  %s\n", r.TotalReturn.StringFixed(2))
	fmt.Fprintf(w, "Trades:        %d\n", r.TotalTrades)
	fmt.Fprintf(w, "Win Rate:      %.1f%%\n", r.WinRate)
	fmt.Fprintf(w, "Max Drawdown:  %s (%.2f%%)\n", r.MaxDrawdown.StringFixed(2), r.MaxDrawdownPct.InexactFloat64())
	fmt.Fprintf(w, "Profit Factor: %s\n", r.ProfitFactor)
}

func FormatReport(r *Result) string {
	var buf bytes.Buffer
	PrintReport(&buf, r)
	return buf.String()
}
