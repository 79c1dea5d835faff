package montecarlo

import (
	"bytes"
	"fmt"
	"io"
)

// PrintReport writes a human readable summary of r to w.
func PrintReport(w io.Writer, r *Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Monte Carlo Analysis")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Simulations:   %d (block size %d, seed %d)\n", r.NumSimulations, r.BlockSize, r.Seed)
	if r.NumSimulations == 0 {
		fmt.Fprintln(w, "No returns to resample.")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Final Equity")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "P5 / P50 / P95: %.2f / %.2f / %.2f\n", r.EquityP5, r.EquityP50, r.EquityP95)
	fmt.Fprintf(w, "Mean:          %.2f (std %.2f)\n", r.EquityMean, r.EquityStd)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Max Drawdown")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "P5 / P50 / P95: %.2f%% / %.2f%% / %.2f%%\n", r.DrawdownP5, r.DrawdownP50, r.DrawdownP95)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Prob. Profit:  %.1f%%\n", r.ProbProfit*100)
	fmt.Fprintf(w, "Prob. Ruin:    %.1f%%\n", r.ProbRuin*100)
}

func FormatReport(r *Result) string {
	var buf bytes.Buffer
	PrintReport(&buf, r)
	return buf.String()
}
