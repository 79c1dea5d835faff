package journal

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"
)

// BacktestOrg is the data behind the backtest Org template.
type BacktestOrg struct {
	Run         BacktestRun
	Trades      []TradeRecord
	Dataset     string
	Notes       []string
	NextActions []string
}

var backtestOrgFuncs = template.FuncMap{
	"dec2": func(v interface{ StringFixed(int32) string }) string { return v.StringFixed(2) },
	"ts": func(ms int64) string {
		return time.UnixMilli(ms).UTC().Format(time.RFC3339)
	},
	"orDefault": func(s, def string) string {
		if s == "" {
			return def
		}
		return s
	},
	"sharpe": func(p *float64) string {
		if p == nil {
			return "(n/a)"
		}
		return fmt.Sprintf("%.2f", *p)
	},
}

var backtestOrgTmpl = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// FormatBacktestOrg renders a stored run as an Org-mode entry.
func FormatBacktestOrg(v BacktestOrg) (string, error) {
	var buf bytes.Buffer
	if err := backtestOrgTmpl.Execute(&buf, v); err != nil {
		return "", err
	}
	return strings.TrimLeft(buf.String(), "\n"), nil
}

// WriteBacktestOrg writes FormatBacktestOrg output to path.
func WriteBacktestOrg(path string, v BacktestOrg) error {
	s, err := FormatBacktestOrg(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0644)
}

const BacktestOrgTemplate = `
* BACKTEST: {{.Run.StrategyID}} {{orDefault .Run.Symbol "(symbol?)"}}
:PROPERTIES:
:RUN_ID:      {{.Run.RunID}}
:STRATEGY:    {{.Run.StrategyID}}
:SYMBOL:      {{orDefault .Run.Symbol "(symbol?)"}}
:DATASET:     {{orDefault .Dataset "(dataset?)"}}
:START_DATE:  {{.Run.StartDate}}
:END_DATE:    {{.Run.EndDate}}
:START_BAL:   {{dec2 .Run.InitialCapital}}
:END_BAL:     {{dec2 .Run.FinalCapital}}
:NET_PL:      {{dec2 .Run.TotalReturn}}
:RETURN_PCT:  {{dec2 .Run.TotalReturnPct}}
:MAX_DD_PCT:  {{dec2 .Run.MaxDrawdownPct}}
:TRADES:      {{.Run.TotalTrades}}
:WINS:        {{.Run.WinningTrades}}
:LOSSES:      {{.Run.LosingTrades}}
:WIN_RATE:    {{printf "%.2f" .Run.WinRate}}
:SHARPE:      {{sharpe .Run.SharpeRatio}}
:CREATED:     [{{.Run.Created.Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
#+begin_src json
{{.Run.Params}}
#+end_src

** Performance Summary
- Net P/L:          *{{dec2 .Run.TotalReturn}}*
- Return:           *{{dec2 .Run.TotalReturnPct}}%*
- Max Drawdown:     *{{dec2 .Run.MaxDrawdownPct}}%*
- Win Rate:         *{{printf "%.2f" .Run.WinRate}}%*
- Sharpe Ratio:     *{{sharpe .Run.SharpeRatio}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Run.WinningTrades}} |
| Losses  | {{.Run.LosingTrades}} |
| Total   | {{.Run.TotalTrades}} |

{{- if .Trades }}

** Trades
| Time | Side | Qty | Price | Fees | P/L |
|------+------+-----+-------+------+-----|
{{- range .Trades }}
| {{ts .Timestamp}} | {{.Side}} | {{.Quantity}} | {{dec2 .Price}} | {{dec2 .Fees}} | {{dec2 .PnL}} |
{{- end }}
{{- end }}

{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}

{{- if .NextActions }}

** Notes / Next Actions
{{- range .NextActions }}
- [ ] {{.}}
{{- end }}
{{- end }}
`
