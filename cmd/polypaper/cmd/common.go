package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rustyeddy/polypaper/journal"
	"github.com/rustyeddy/polypaper/market"
	"github.com/rustyeddy/polypaper/strategies"
	"github.com/rustyeddy/polypaper/walkforward"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runFlags are shared by backtest, montecarlo and walkforward.
type runFlags struct {
	strategy string
	params   []string
	csv      string
	driver   string
	dsn      string
	table    string
	symbol   string
	start    string
	end      string
	tf       string
	capital  float64
	asJSON   bool
	save     bool
}

func (f *runFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.strategy, "strategy", "s", "", "strategy id (overrides config)")
	fl.StringArrayVarP(&f.params, "param", "p", nil, "strategy parameter name=value (repeatable)")
	fl.StringVar(&f.csv, "csv", "", "bar CSV file, .xz allowed (overrides config)")
	fl.StringVar(&f.driver, "driver", "", "SQL driver for --dsn: sqlite3|pgx")
	fl.StringVar(&f.dsn, "dsn", "", "SQL data source with a candles table (overrides config)")
	fl.StringVar(&f.table, "table", "", "candles table name")
	fl.StringVar(&f.symbol, "symbol", "", "symbol to load (overrides config)")
	fl.StringVar(&f.start, "start", "", "first day, YYYY-MM-DD")
	fl.StringVar(&f.end, "end", "", "end day (exclusive), YYYY-MM-DD")
	fl.StringVar(&f.tf, "timeframe", "", "resample bars to this interval, e.g. 4h")
	fl.Float64Var(&f.capital, "capital", 0, "initial capital (overrides config)")
	fl.BoolVar(&f.asJSON, "json", false, "print the result as JSON instead of a report")
	fl.BoolVar(&f.save, "save", false, "save the run to the journal")
}

// apply folds the flags into the loaded config.
func (f *runFlags) apply() error {
	if f.strategy != "" {
		cfg.Strategy.ID = f.strategy
	}
	if len(f.params) > 0 {
		p, err := parseParams(f.params)
		if err != nil {
			return err
		}
		cfg.Strategy.Params = cfg.Strategy.Params.Merge(p)
	}
	if f.csv != "" {
		cfg.Data.CSV, cfg.Data.DSN = f.csv, ""
	}
	if f.dsn != "" {
		cfg.Data.DSN, cfg.Data.CSV = f.dsn, ""
	}
	if f.driver != "" {
		cfg.Data.Driver = f.driver
	}
	if f.table != "" {
		cfg.Data.Table = f.table
	}
	if f.symbol != "" {
		cfg.Data.Symbol = f.symbol
	}
	if f.start != "" {
		cfg.Data.Start = f.start
	}
	if f.end != "" {
		cfg.Data.End = f.end
	}
	if f.tf != "" {
		cfg.Data.Timeframe = f.tf
	}
	if f.capital > 0 {
		cfg.Engine.InitialCapital = f.capital
	}
	return cfg.Validate()
}

func loadBars(ctx context.Context) ([]market.Bar, error) {
	src, closeSrc, err := cfg.Data.OpenSource()
	if err != nil {
		return nil, err
	}
	defer closeSrc()

	start, end, err := cfg.Data.Window()
	if err != nil {
		return nil, err
	}
	bars, err := src.LoadBars(ctx, cfg.Data.Symbol, start, end)
	if err != nil {
		return nil, err
	}
	logger.Debug("bars loaded",
		zap.String("symbol", cfg.Data.Symbol),
		zap.Int("bars", len(bars)))
	return bars, nil
}

func openJournal() (*journal.SQLite, error) {
	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return j, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseParams turns name=value pairs into Params.
func parseParams(pairs []string) (strategies.Params, error) {
	p := strategies.Params{}
	for _, kv := range pairs {
		name, val, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("bad parameter %q (want name=value)", kv)
		}
		p[name] = parseValue(val)
	}
	return p, nil
}

// parseRanges turns name=v1,v2,... arguments into grid ranges.
func parseRanges(args []string) ([]walkforward.ParamRange, error) {
	var out []walkforward.ParamRange
	for _, arg := range args {
		name, vals, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.TrimSpace(vals) == "" {
			return nil, fmt.Errorf("bad range %q (want name=v1,v2,...)", arg)
		}
		r := walkforward.ParamRange{Name: name}
		for _, s := range strings.Split(vals, ",") {
			r.Values = append(r.Values, parseValue(s))
		}
		out = append(out, r)
	}
	return out, nil
}

// parseValue picks int, float, bool or string, in that order.
func parseValue(s string) any {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
