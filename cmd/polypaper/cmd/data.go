package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/polypaper/config"
	"github.com/rustyeddy/polypaper/feed"
	"github.com/rustyeddy/polypaper/market"
	"github.com/spf13/cobra"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Manage bar data",
}

var dataImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a bar CSV into a SQL candles table",
	Long: `Import reads a bar CSV (optionally .xz compressed) and upserts it into
a SQL candles table, creating the table if needed.

Example:
  polypaper data import --csv btc-1h.csv.xz --symbol BTC-USD --driver sqlite3 --dsn bars.db`,
	Args: cobra.NoArgs,
	RunE: runDataImport,
}

var dataInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Report coverage and gaps of a bar series",
	Long: `Inspect loads one symbol and reports how many intervals are present
and where the holes are.

Example:
  polypaper data inspect --csv btc-1h.csv --symbol BTC-USD --interval 1h`,
	Args: cobra.NoArgs,
	RunE: runDataInspect,
}

var (
	inspectData     config.DataConfig
	inspectInterval time.Duration
	inspectShowGaps bool
)

var (
	importCSV    string
	importSymbol string
	importDriver string
	importDSN    string
	importTable  string
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataImportCmd)
	dataCmd.AddCommand(dataInspectCmd)

	fl := dataImportCmd.Flags()
	fl.StringVar(&importCSV, "csv", "", "bar CSV file (required)")
	fl.StringVar(&importSymbol, "symbol", "", "symbol for rows without one")
	fl.StringVar(&importDriver, "driver", "sqlite3", "SQL driver: sqlite3|pgx")
	fl.StringVar(&importDSN, "dsn", "", "SQL data source (required)")
	fl.StringVar(&importTable, "table", feed.DefaultTable, "candles table name")
	_ = dataImportCmd.MarkFlagRequired("csv")
	_ = dataImportCmd.MarkFlagRequired("dsn")

	fl = dataInspectCmd.Flags()
	fl.StringVar(&inspectData.CSV, "csv", "", "bar CSV file")
	fl.StringVar(&inspectData.Driver, "driver", "sqlite3", "SQL driver for --dsn: sqlite3|pgx")
	fl.StringVar(&inspectData.DSN, "dsn", "", "SQL data source")
	fl.StringVar(&inspectData.Table, "table", feed.DefaultTable, "candles table name")
	fl.StringVar(&inspectData.Symbol, "symbol", "", "symbol to inspect (required)")
	fl.DurationVar(&inspectInterval, "interval", time.Hour, "expected bar spacing")
	fl.BoolVar(&inspectShowGaps, "gaps", false, "list every gap")
	_ = dataInspectCmd.MarkFlagRequired("symbol")
}

func runDataImport(cmd *cobra.Command, args []string) error {
	mem, err := feed.OpenCSV(importCSV, importSymbol)
	if err != nil {
		return err
	}
	bars := mem.Bars()

	dst, err := feed.OpenSQL(importDriver, importDSN, importTable)
	if err != nil {
		return err
	}
	defer dst.Close()

	ctx := cmd.Context()
	if err := dst.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if err := dst.InsertBars(ctx, bars); err != nil {
		return fmt.Errorf("insert bars: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d bars into %s\n", len(bars), importTable)
	return nil
}

func runDataInspect(cmd *cobra.Command, args []string) error {
	src, closeSrc, err := inspectData.OpenSource()
	if err != nil {
		return err
	}
	defer closeSrc()

	bars, err := src.LoadBars(cmd.Context(), inspectData.Symbol, time.Time{}, time.Time{})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(bars) == 0 {
		fmt.Fprintf(out, "No bars for %s\n", inspectData.Symbol)
		return nil
	}

	gaps, stats := market.FindGaps(bars, inspectInterval)
	fmt.Fprintf(out, "Symbol:        %s\n", inspectData.Symbol)
	fmt.Fprintf(out, "Range:         %s to %s\n",
		bars[0].Time().Format(time.RFC3339), bars[len(bars)-1].Time().Format(time.RFC3339))
	market.PrintGapStats(out, stats)
	if inspectShowGaps {
		for _, g := range gaps {
			fmt.Fprintf(out, "  %s  %4d missing  %s\n", g.Start.Format(time.RFC3339), g.Missing, g.Kind)
		}
	}
	return nil
}
