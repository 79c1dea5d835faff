package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/polypaper/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query saved runs",
	Long: `Query and export runs saved with --save.

Subcommands:
  list    - List saved backtests, newest first
  show    - Show one backtest and its trades
  export  - Write a run's trades or equity curve as CSV

Examples:
  polypaper journal list --limit 10
  polypaper journal show 01HZX3... --org run.org
  polypaper journal export 01HZX3... --trades-csv trades.csv`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved backtests",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a saved backtest",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var journalExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export trades or equity of a saved backtest as CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalExport,
}

var (
	journalLimit     int
	journalOrg       string
	journalTradesCSV string
	journalEquityCSV string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalExportCmd)

	journalListCmd.Flags().IntVar(&journalLimit, "limit", 20, "maximum runs to list, 0 for all")
	journalShowCmd.Flags().StringVar(&journalOrg, "org", "", "also write an Org-mode entry to this file")
	journalExportCmd.Flags().StringVar(&journalTradesCSV, "trades-csv", "", "trades output file")
	journalExportCmd.Flags().StringVar(&journalEquityCSV, "equity-csv", "", "equity curve output file")
}

func runJournalList(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListBacktests(cmd.Context(), journalLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs saved.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tSTRATEGY\tSYMBOL\tTRADES\tRETURN %")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.RunID, r.Created().Format(time.DateTime), r.StrategyID, r.Symbol,
			r.TotalTrades, r.TotalReturnPct.StringFixed(2))
	}
	return tw.Flush()
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	ctx := cmd.Context()
	run, err := j.GetBacktest(ctx, args[0])
	if err != nil {
		return err
	}
	trades, err := j.ListTrades(ctx, run.RunID)
	if err != nil {
		return err
	}
	org := journal.BacktestOrg{Run: run, Trades: trades}

	text, err := journal.FormatBacktestOrg(org)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), text)

	if journalOrg != "" {
		if err := journal.WriteBacktestOrg(journalOrg, org); err != nil {
			return fmt.Errorf("write org: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", journalOrg)
	}
	return nil
}

func runJournalExport(cmd *cobra.Command, args []string) error {
	if journalTradesCSV == "" && journalEquityCSV == "" {
		return fmt.Errorf("nothing to export: set --trades-csv or --equity-csv")
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	ctx := cmd.Context()
	runID := args[0]
	if _, err := j.GetBacktest(ctx, runID); err != nil {
		return err
	}

	if journalTradesCSV != "" {
		trades, err := j.ListTrades(ctx, runID)
		if err != nil {
			return err
		}
		if err := writeFile(journalTradesCSV, func(f *os.File) error { return journal.WriteTradesCSV(f, trades) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %d trades to %s\n", len(trades), journalTradesCSV)
	}
	if journalEquityCSV != "" {
		eq, err := j.ListEquity(ctx, runID)
		if err != nil {
			return err
		}
		if err := writeFile(journalEquityCSV, func(f *os.File) error { return journal.WriteEquityCSV(f, eq) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %d equity points to %s\n", len(eq), journalEquityCSV)
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
