package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/polypaper/backtest"
	"github.com/rustyeddy/polypaper/feed"
	"github.com/rustyeddy/polypaper/montecarlo"
	"github.com/rustyeddy/polypaper/strategies"
	"github.com/rustyeddy/polypaper/walkforward"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Config is the complete run configuration.
type Config struct {
	Engine      EngineConfig      `json:"engine" yaml:"engine"`
	Strategy    StrategyConfig    `json:"strategy" yaml:"strategy"`
	Data        DataConfig        `json:"data" yaml:"data"`
	MonteCarlo  MonteCarloConfig  `json:"montecarlo" yaml:"montecarlo"`
	WalkForward WalkForwardConfig `json:"walkforward" yaml:"walkforward"`
	Journal     JournalConfig     `json:"journal" yaml:"journal"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
	Server      ServerConfig      `json:"server" yaml:"server"`
}

// EngineConfig holds the fill model. Rates are fractions, 0.001 is 0.1%.
type EngineConfig struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
	PositionCap    float64 `json:"position_cap" yaml:"position_cap"`
	FeeRate        float64 `json:"fee_rate" yaml:"fee_rate"`
	SlippageRate   float64 `json:"slippage_rate" yaml:"slippage_rate"`
	RiskFreeRate   float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
}

type StrategyConfig struct {
	ID     string            `json:"id" yaml:"id"`
	Params strategies.Params `json:"params,omitempty" yaml:"params,omitempty"`
}

// DataConfig selects the bar source: a CSV file (optionally .xz) or a SQL
// candles table. Start and End are YYYY-MM-DD, End exclusive. Timeframe,
// when set, resamples the loaded bars (e.g. "4h").
type DataConfig struct {
	CSV    string `json:"csv,omitempty" yaml:"csv,omitempty"`
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"` // "sqlite3" or "pgx"
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Table  string `json:"table,omitempty" yaml:"table,omitempty"`
	Symbol string `json:"symbol" yaml:"symbol"`
	Start  string `json:"start,omitempty" yaml:"start,omitempty"`
	End    string `json:"end,omitempty" yaml:"end,omitempty"`

	Timeframe string `json:"timeframe,omitempty" yaml:"timeframe,omitempty"`
}

type MonteCarloConfig struct {
	Simulations   int     `json:"simulations" yaml:"simulations"`
	BlockSize     int     `json:"block_size" yaml:"block_size"`
	RuinThreshold float64 `json:"ruin_threshold" yaml:"ruin_threshold"`
	Seed          int64   `json:"seed" yaml:"seed"`
	Workers       int     `json:"workers,omitempty" yaml:"workers,omitempty"`
	Source        string  `json:"source" yaml:"source"` // "equity" or "trades"
}

type WalkForwardConfig struct {
	TrainDays int                      `json:"train_days" yaml:"train_days"`
	TestDays  int                      `json:"test_days" yaml:"test_days"`
	Metric    string                   `json:"metric" yaml:"metric"`
	Workers   int                      `json:"workers,omitempty" yaml:"workers,omitempty"`
	Ranges    []walkforward.ParamRange `json:"ranges,omitempty" yaml:"ranges,omitempty"`
}

type JournalConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

type LoggingConfig struct {
	Level    string `json:"level" yaml:"level"`       // debug, info, warn, error
	Encoding string `json:"encoding" yaml:"encoding"` // console or json
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// LoadFromFile loads configuration from a file (JSON or YAML)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file, YAML for .yaml/.yml and JSON
// otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	if c.Strategy.ID == "" {
		return fmt.Errorf("strategy.id is required")
	}
	if _, err := strategies.Default().New(c.Strategy.ID, c.Strategy.Params); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	if c.Data.CSV != "" && c.Data.DSN != "" {
		return fmt.Errorf("data: set either csv or dsn, not both")
	}
	if c.Data.DSN != "" && c.Data.Driver == "" {
		return fmt.Errorf("data.driver is required with data.dsn")
	}
	if _, _, err := c.Data.Window(); err != nil {
		return err
	}
	if _, err := c.Data.Interval(); err != nil {
		return err
	}

	if c.MonteCarlo.Simulations < 0 {
		return fmt.Errorf("montecarlo.simulations must not be negative")
	}
	if c.MonteCarlo.BlockSize < 1 {
		return fmt.Errorf("montecarlo.block_size must be at least 1")
	}
	if c.MonteCarlo.RuinThreshold <= 0 || c.MonteCarlo.RuinThreshold > 1 {
		return fmt.Errorf("montecarlo.ruin_threshold must be in (0, 1]")
	}
	if _, err := montecarlo.ParseSource(c.MonteCarlo.Source); err != nil {
		return err
	}

	if c.WalkForward.TrainDays <= 0 || c.WalkForward.TestDays <= 0 {
		return fmt.Errorf("walkforward.train_days and walkforward.test_days must be positive")
	}
	if _, err := walkforward.ParseMetric(c.WalkForward.Metric); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Encoding {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.encoding must be 'console' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			InitialCapital: 10000,
			PositionCap:    20,
			FeeRate:        0.001,
			SlippageRate:   0.0005,
			RiskFreeRate:   0.02,
		},
		Strategy: StrategyConfig{
			ID: "late-entry-v1",
		},
		Data: DataConfig{
			Symbol: "BTC-USD",
		},
		MonteCarlo: MonteCarloConfig{
			Simulations:   1000,
			BlockSize:     5,
			RuinThreshold: 0.5,
			Source:        string(montecarlo.FromEquity),
		},
		WalkForward: WalkForwardConfig{
			TrainDays: 90,
			TestDays:  30,
			Metric:    string(walkforward.TotalReturn),
		},
		Journal: JournalConfig{
			DBPath: "./polypaper.db",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "console",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// EngineConfig converts the engine section.
func (c *Config) EngineConfig() backtest.Config {
	e := c.Engine
	return backtest.Config{
		InitialCapital: decimal.NewFromFloat(e.InitialCapital),
		PositionCap:    decimal.NewFromFloat(e.PositionCap),
		FeeRate:        decimal.NewFromFloat(e.FeeRate),
		SlippageRate:   decimal.NewFromFloat(e.SlippageRate),
		RiskFreeRate:   e.RiskFreeRate,
	}
}

func (c *Config) MonteCarloOptions() montecarlo.Options {
	opts := montecarlo.DefaultOptions()
	opts.NumSimulations = c.MonteCarlo.Simulations
	opts.BlockSize = c.MonteCarlo.BlockSize
	opts.RuinThreshold = c.MonteCarlo.RuinThreshold
	opts.Seed = c.MonteCarlo.Seed
	if c.MonteCarlo.Workers > 0 {
		opts.Workers = c.MonteCarlo.Workers
	}
	return opts
}

func (c *Config) WalkForwardOptions() walkforward.Options {
	metric, _ := walkforward.ParseMetric(c.WalkForward.Metric)
	return walkforward.Options{
		TrainDays: c.WalkForward.TrainDays,
		TestDays:  c.WalkForward.TestDays,
		Metric:    metric,
		Workers:   c.WalkForward.Workers,
	}
}

// Window parses Start and End. Empty values are zero times.
func (d DataConfig) Window() (start, end time.Time, err error) {
	if d.Start != "" {
		if start, err = time.Parse(dateLayout, d.Start); err != nil {
			return start, end, fmt.Errorf("data.start: %w", err)
		}
	}
	if d.End != "" {
		if end, err = time.Parse(dateLayout, d.End); err != nil {
			return start, end, fmt.Errorf("data.end: %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		return start, end, fmt.Errorf("data.end must be after data.start")
	}
	return start, end, nil
}

// Interval parses Timeframe. Empty is zero, meaning no resampling.
func (d DataConfig) Interval() (time.Duration, error) {
	if d.Timeframe == "" {
		return 0, nil
	}
	iv, err := time.ParseDuration(d.Timeframe)
	if err != nil || iv <= 0 {
		return 0, fmt.Errorf("data.timeframe: invalid duration %q", d.Timeframe)
	}
	return iv, nil
}

// OpenSource opens the configured bar source, resampled to Timeframe. The
// returned func releases it.
func (d DataConfig) OpenSource() (feed.Source, func() error, error) {
	nop := func() error { return nil }
	iv, err := d.Interval()
	if err != nil {
		return nil, nil, err
	}
	switch {
	case d.CSV != "":
		m, err := feed.OpenCSV(d.CSV, d.Symbol)
		if err != nil {
			return nil, nil, err
		}
		return feed.Resampled(m, iv), nop, nil
	case d.DSN != "":
		s, err := feed.OpenSQL(d.Driver, d.DSN, d.Table)
		if err != nil {
			return nil, nil, err
		}
		return feed.Resampled(s, iv), s.Close, nil
	default:
		return nil, nil, fmt.Errorf("data: no source configured (set data.csv or data.dsn)")
	}
}
