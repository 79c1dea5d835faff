package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/polypaper/feed"
	"github.com/rustyeddy/polypaper/internal/metrics"
	"github.com/rustyeddy/polypaper/strategies"
	"github.com/rustyeddy/polypaper/walkforward"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var walkforwardCmd = &cobra.Command{
	Use:     "walkforward",
	Aliases: []string{"wf"},
	Short:   "Re-optimize on rolling train windows and score out of sample",
	Long: `Walkforward splits the data into rolling train/test folds. On each
train window it grid-searches the --range values, then runs the winner on
the following test window.

Example:
  polypaper walkforward --csv data/btc.csv -s ema-cross \
    --range fastPeriod=5,10,15 --range slowPeriod=30,50 \
    --train-days 90 --test-days 30 --metric sharpe`,
	Args: cobra.NoArgs,
	RunE: runWalkForward,
}

var (
	wfFlags     runFlags
	wfRanges    []string
	wfTrainDays int
	wfTestDays  int
	wfMetric    string
	wfWorkers   int
)

func init() {
	rootCmd.AddCommand(walkforwardCmd)
	wfFlags.bind(walkforwardCmd)
	fl := walkforwardCmd.Flags()
	fl.StringArrayVar(&wfRanges, "range", nil, "grid values name=v1,v2,... (repeatable, overrides config)")
	fl.IntVar(&wfTrainDays, "train-days", 0, "train window in days (overrides config)")
	fl.IntVar(&wfTestDays, "test-days", 0, "test window in days (overrides config)")
	fl.StringVar(&wfMetric, "metric", "", "train metric: total_return|sharpe|win_rate (overrides config)")
	fl.IntVar(&wfWorkers, "workers", 0, "parallel grid evaluations, 0 uses all CPUs")
}

func runWalkForward(cmd *cobra.Command, args []string) error {
	if len(wfRanges) > 0 {
		ranges, err := parseRanges(wfRanges)
		if err != nil {
			return err
		}
		cfg.WalkForward.Ranges = ranges
	}
	if wfTrainDays > 0 {
		cfg.WalkForward.TrainDays = wfTrainDays
	}
	if wfTestDays > 0 {
		cfg.WalkForward.TestDays = wfTestDays
	}
	if wfMetric != "" {
		cfg.WalkForward.Metric = wfMetric
	}
	if wfWorkers > 0 {
		cfg.WalkForward.Workers = wfWorkers
	}
	if err := wfFlags.apply(); err != nil {
		return err
	}

	// Bars are loaded once and every fold reads from memory.
	bars, err := loadBars(cmd.Context())
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return fmt.Errorf("no bars for %s", cfg.Data.Symbol)
	}
	src := feed.NewMemorySource(bars)
	start, end, err := cfg.Data.Window()
	if err != nil {
		return err
	}
	first, last, _ := src.Bounds()
	if start.IsZero() {
		start = first
	}
	if end.IsZero() {
		end = last.Add(time.Millisecond)
	}

	eval := metrics.InstrumentEvaluator(
		walkforward.NewBarEvaluator(cfg.Strategy.ID, strategies.Default(), src, cfg.Data.Symbol, cfg.EngineConfig()),
		recorder)

	opts := cfg.WalkForwardOptions()
	opts.Logger = logger
	opts.OnFold = func(f walkforward.FoldResult, err error) {
		recorder.ObserveFold(f, err)
		if err == nil {
			logger.Info("fold done",
				zap.Int("fold", f.Index),
				zap.String("params", f.Params.Key()),
				zap.String("total_return", f.TotalReturn.StringFixed(2)))
		}
	}

	res, err := walkforward.Run(cmd.Context(), eval, cfg.Strategy.Params, cfg.WalkForward.Ranges, start, end, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if wfFlags.asJSON {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else {
		walkforward.PrintReport(out, res)
	}

	if !wfFlags.save {
		return nil
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runID, err := j.SaveWalkForward(cmd.Context(), cfg.Data.Symbol, res)
	if err != nil {
		return fmt.Errorf("save walk-forward: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Saved run %s to %s\n", runID, cfg.Journal.DBPath)
	return nil
}
