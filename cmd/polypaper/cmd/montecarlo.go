package cmd

import (
	"fmt"

	"github.com/rustyeddy/polypaper/montecarlo"
	"github.com/spf13/cobra"
)

var montecarloCmd = &cobra.Command{
	Use:     "montecarlo",
	Aliases: []string{"mc"},
	Short:   "Backtest, then bootstrap the returns",
	Long: `Montecarlo runs a backtest and resamples its returns with a block
bootstrap to estimate the spread of outcomes.

--source equity resamples per-bar equity returns, --source trades resamples
per round-trip returns.

Example:
  polypaper montecarlo --csv data/btc.csv -s late-entry-v1 --simulations 5000 --block-size 10 --seed 7`,
	Args: cobra.NoArgs,
	RunE: runMonteCarlo,
}

var (
	mcFlags       runFlags
	mcSimulations int
	mcBlockSize   int
	mcRuin        float64
	mcSeed        int64
	mcSource      string
	mcWorkers     int
)

func init() {
	rootCmd.AddCommand(montecarloCmd)
	mcFlags.bind(montecarloCmd)
	fl := montecarloCmd.Flags()
	fl.IntVar(&mcSimulations, "simulations", 0, "number of trials (overrides config)")
	fl.IntVar(&mcBlockSize, "block-size", 0, "bootstrap block length (overrides config)")
	fl.Float64Var(&mcRuin, "ruin", 0, "ruin threshold as a fraction of initial capital (overrides config)")
	fl.Int64Var(&mcSeed, "seed", 0, "random seed, 0 picks one (overrides config)")
	fl.StringVar(&mcSource, "source", "", "returns to resample: equity|trades (overrides config)")
	fl.IntVar(&mcWorkers, "workers", 0, "parallel workers, 0 uses all CPUs")
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	if mcSimulations > 0 {
		cfg.MonteCarlo.Simulations = mcSimulations
	}
	if mcBlockSize > 0 {
		cfg.MonteCarlo.BlockSize = mcBlockSize
	}
	if mcRuin > 0 {
		cfg.MonteCarlo.RuinThreshold = mcRuin
	}
	if mcSeed != 0 {
		cfg.MonteCarlo.Seed = mcSeed
	}
	if mcSource != "" {
		cfg.MonteCarlo.Source = mcSource
	}
	if mcWorkers > 0 {
		cfg.MonteCarlo.Workers = mcWorkers
	}
	if err := mcFlags.apply(); err != nil {
		return err
	}
	src, err := montecarlo.ParseSource(cfg.MonteCarlo.Source)
	if err != nil {
		return err
	}

	bt, err := backtestOnce(cmd)
	if err != nil {
		return err
	}

	opts := cfg.MonteCarloOptions()
	opts.Logger = logger
	res := montecarlo.FromBacktest(bt, src, opts)
	recorder.ObserveMonteCarlo(res.NumSimulations)

	out := cmd.OutOrStdout()
	if mcFlags.asJSON {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else {
		montecarlo.PrintReport(out, res)
	}

	if !mcFlags.save {
		return nil
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	ctx := cmd.Context()
	btID, err := j.SaveBacktest(ctx, cfg.Data.Symbol, cfg.Strategy.Params, bt)
	if err != nil {
		return fmt.Errorf("save backtest: %w", err)
	}
	runID, err := j.SaveMonteCarlo(ctx, btID, src, res)
	if err != nil {
		return fmt.Errorf("save monte carlo: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Saved run %s (backtest %s) to %s\n", runID, btID, cfg.Journal.DBPath)
	return nil
}
