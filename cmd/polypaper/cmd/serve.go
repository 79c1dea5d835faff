package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/polypaper/api"
	"github.com/rustyeddy/polypaper/strategies"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve starts the HTTP API for backtests, Monte Carlo analysis and
walk-forward validation. Prometheus metrics are exposed on /metrics.

Example:
  polypaper serve --addr :8080 --db runs.db`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr      string
	serveNoJournal bool
	serveWorkers   int
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serveNoJournal, "no-journal", false, "disable saving runs")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 0, "walk-forward grid workers per request, 0 uses all CPUs")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveWorkers > 0 {
		cfg.WalkForward.Workers = serveWorkers
	}

	opts := api.Options{
		Registry:   strategies.Default(),
		Recorder:   recorder,
		Logger:     logger,
		Engine:     cfg.EngineConfig(),
		MonteCarlo: cfg.MonteCarloOptions(),
		Workers:    cfg.WalkForward.Workers,
	}
	if !serveNoJournal {
		j, err := openJournal()
		if err != nil {
			return err
		}
		defer j.Close()
		opts.Journal = j
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving", zap.String("addr", cfg.Server.Addr), zap.Bool("journal", opts.Journal != nil))
	return api.NewServer(opts).ListenAndServe(ctx, cfg.Server.Addr)
}
