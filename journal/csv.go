package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// WriteTradesCSV writes trade records with a header row.
func WriteTradesCSV(w io.Writer, trades []TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"run_id", "seq", "time", "symbol", "side", "quantity", "price", "fees", "slippage", "pnl"}); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write([]string{
			t.RunID,
			strconv.Itoa(t.Seq),
			t.Time().Format(time.RFC3339),
			t.Symbol,
			string(t.Side),
			t.Quantity.String(),
			t.Price.String(),
			t.Fees.String(),
			t.Slippage.String(),
			t.PnL.String(),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEquityCSV writes equity samples with a header row.
func WriteEquityCSV(w io.Writer, eq []EquityRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"run_id", "seq", "time", "equity"}); err != nil {
		return err
	}
	for _, e := range eq {
		if err := cw.Write([]string{
			e.RunID,
			strconv.Itoa(e.Seq),
			time.UnixMilli(e.Timestamp).UTC().Format(time.RFC3339),
			e.Equity.String(),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
