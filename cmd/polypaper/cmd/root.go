package cmd

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/polypaper/config"
	"github.com/rustyeddy/polypaper/internal/logging"
	"github.com/rustyeddy/polypaper/internal/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "polypaper",
	Short: "Backtesting and strategy validation for paper trading",
	Long: `Polypaper replays strategies over historical bars and checks whether
the results hold up.

It provides tools for:
  - Backtesting strategies with a fee and slippage aware fill model
  - Monte Carlo block bootstrap of backtest returns
  - Walk-forward validation with grid search
  - Journaling runs to SQLite and exporting them to Org-mode
  - Serving all of the above over HTTP`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		path := v.GetString("metrics-file")
		if path == "" || recorder == nil {
			return nil
		}
		if err := recorder.WriteTextfile(path); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		return nil
	},
}

var (
	v        = viper.New()
	cfg      *config.Config
	logger   = zap.NewNop()
	recorder *metrics.Recorder
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (YAML or JSON)")
	pf.String("log-level", "", "log level: debug|info|warn|error (overrides config)")
	pf.String("log-format", "", "log encoding: console|json (overrides config)")
	pf.String("metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.String("db", "", "SQLite journal path (overrides config)")

	for _, name := range []string{"config", "log-level", "log-format", "metrics-file", "db"} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}
	v.SetEnvPrefix("POLYPAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	if path := v.GetString("config"); path != "" {
		cfg, err = config.LoadFromFile(path)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}

	if lvl := v.GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if enc := v.GetString("log-format"); enc != "" {
		cfg.Logging.Encoding = enc
	}
	if db := v.GetString("db"); db != "" {
		cfg.Journal.DBPath = db
	}

	logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Encoding)
	if err != nil {
		return err
	}
	recorder = metrics.NewRecorder()
	return nil
}
