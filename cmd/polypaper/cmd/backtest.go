package cmd

import (
	"fmt"

	"github.com/rustyeddy/polypaper/backtest"
	"github.com/rustyeddy/polypaper/journal"
	"github.com/rustyeddy/polypaper/strategies"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a strategy over historical bars",
	Long: `Backtest replays a strategy over bars from a CSV file or a SQL candles
table and prints the performance report.

Example:
  polypaper backtest --csv data/btc-1h.csv.xz --symbol BTC-USD -s trend-following-v1 -p adxThreshold=30
  polypaper backtest --config run.yaml --save --org btc.org`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

var (
	btFlags runFlags
	btOrg   string
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	btFlags.bind(backtestCmd)
	backtestCmd.Flags().StringVar(&btOrg, "org", "", "write an Org-mode entry for the saved run to this file (implies --save)")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	if err := btFlags.apply(); err != nil {
		return err
	}
	res, err := backtestOnce(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if btFlags.asJSON {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else {
		backtest.PrintReport(out, res)
	}

	if !btFlags.save && btOrg == "" {
		return nil
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	ctx := cmd.Context()
	runID, err := j.SaveBacktest(ctx, cfg.Data.Symbol, cfg.Strategy.Params, res)
	if err != nil {
		return fmt.Errorf("save backtest: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Saved run %s to %s\n", runID, cfg.Journal.DBPath)

	if btOrg != "" {
		run, err := j.GetBacktest(ctx, runID)
		if err != nil {
			return err
		}
		trades, err := j.ListTrades(ctx, runID)
		if err != nil {
			return err
		}
		org := journal.BacktestOrg{Run: run, Trades: trades, Dataset: datasetName()}
		if err := journal.WriteBacktestOrg(btOrg, org); err != nil {
			return fmt.Errorf("write org: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", btOrg)
	}
	return nil
}

// backtestOnce loads bars and runs the configured strategy once.
func backtestOnce(cmd *cobra.Command) (*backtest.Result, error) {
	bars, err := loadBars(cmd.Context())
	if err != nil {
		return nil, err
	}
	strat, err := strategies.Default().New(cfg.Strategy.ID, cfg.Strategy.Params)
	if err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}

	res, err := backtest.Run(strat, bars, cfg.EngineConfig())
	if err != nil {
		return nil, err
	}
	recorder.ObserveBacktest(res.StrategyID)
	logger.Info("backtest complete",
		zap.String("strategy", res.StrategyID),
		zap.Int("bars", len(bars)),
		zap.Int("trades", res.TotalTrades),
		zap.String("total_return", res.TotalReturn.StringFixed(2)))
	return res, nil
}

func datasetName() string {
	if cfg.Data.CSV != "" {
		return cfg.Data.CSV
	}
	if cfg.Data.DSN != "" {
		return cfg.Data.Driver + ":" + cfg.Data.Table
	}
	return ""
}
