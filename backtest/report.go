package backtest

import (
	"bytes"
	"fmt"
	"io"
)

// PrintReport writes a human readable summary of r to w.
func PrintReport(w io.Writer, r *Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " Backtest Report: %s\n", r.StrategyID)
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Period:        %s to %s\n", r.StartDate, r.EndDate)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Capital:       %s -> %s\n", r.InitialCapital.StringFixed(2), r.FinalCapital.StringFixed(2))
	fmt.Fprintf(w, "Net P/L:       %s\n", r.TotalReturn.StringFixed(2))
	fmt.Fprintf(w, "Total Return:  %+.2f%%\n", r.TotalReturnPct.InexactFloat64())

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", r.TotalTrades)
	fmt.Fprintf(w, "Wins:          %d\n", r.WinningTrades)
	fmt.Fprintf(w, "Losses:        %d\n", r.LosingTrades)
	fmt.Fprintf(w, "Win Rate:      %.1f%%\n", r.WinRate)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Risk")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.MaxDrawdownPct.InexactFloat64())
	if r.SharpeRatio != nil {
		fmt.Fprintf(w, "Sharpe Ratio:  %.2f\n", *r.SharpeRatio)
	}
}

// FormatReport returns the PrintReport output as a string.
func FormatReport(r *Result) string {
	var buf bytes.Buffer
	PrintReport(&buf, r)
	return buf.String()
}
