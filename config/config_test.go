package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rustyeddy/polypaper/feed"
	"github.com/rustyeddy/polypaper/walkforward"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, 10000.0, cfg.Engine.InitialCapital)
	assert.Equal(t, "late-entry-v1", cfg.Strategy.ID)
	assert.NoError(t, cfg.Validate())

	ec := cfg.EngineConfig()
	assert.Equal(t, "0.001", ec.FeeRate.String())
	assert.Equal(t, "0.0005", ec.SlippageRate.String())
	assert.NoError(t, ec.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "no capital",
			mutate:  func(c *Config) { c.Engine.InitialCapital = 0 },
			wantErr: true,
			errMsg:  "engine:",
		},
		{
			name:    "bad timeframe",
			mutate:  func(c *Config) { c.Data.Timeframe = "hourly" },
			wantErr: true,
			errMsg:  "data.timeframe",
		},
		{
			name:    "missing strategy",
			mutate:  func(c *Config) { c.Strategy.ID = "" },
			wantErr: true,
			errMsg:  "strategy.id is required",
		},
		{
			name:    "unknown strategy",
			mutate:  func(c *Config) { c.Strategy.ID = "martingale" },
			wantErr: true,
			errMsg:  "unknown strategy",
		},
		{
			name: "bad strategy params",
			mutate: func(c *Config) {
				c.Strategy.ID = "ema-cross"
				c.Strategy.Params = map[string]any{"fastPeriod": 30, "slowPeriod": 10}
			},
			wantErr: true,
			errMsg:  "strategy:",
		},
		{
			name: "csv and dsn",
			mutate: func(c *Config) {
				c.Data.CSV = "bars.csv"
				c.Data.DSN = "bars.db"
				c.Data.Driver = "sqlite3"
			},
			wantErr: true,
			errMsg:  "not both",
		},
		{
			name:    "dsn without driver",
			mutate:  func(c *Config) { c.Data.DSN = "bars.db" },
			wantErr: true,
			errMsg:  "data.driver is required",
		},
		{
			name:    "bad start date",
			mutate:  func(c *Config) { c.Data.Start = "01/02/2024" },
			wantErr: true,
			errMsg:  "data.start",
		},
		{
			name: "end before start",
			mutate: func(c *Config) {
				c.Data.Start = "2024-02-01"
				c.Data.End = "2024-01-01"
			},
			wantErr: true,
			errMsg:  "data.end must be after data.start",
		},
		{
			name:    "block size",
			mutate:  func(c *Config) { c.MonteCarlo.BlockSize = 0 },
			wantErr: true,
			errMsg:  "montecarlo.block_size",
		},
		{
			name:    "ruin threshold",
			mutate:  func(c *Config) { c.MonteCarlo.RuinThreshold = 1.5 },
			wantErr: true,
			errMsg:  "montecarlo.ruin_threshold",
		},
		{
			name:    "mc source",
			mutate:  func(c *Config) { c.MonteCarlo.Source = "prices" },
			wantErr: true,
			errMsg:  "unknown source",
		},
		{
			name:    "walkforward windows",
			mutate:  func(c *Config) { c.WalkForward.TestDays = 0 },
			wantErr: true,
			errMsg:  "must be positive",
		},
		{
			name:    "walkforward metric",
			mutate:  func(c *Config) { c.WalkForward.Metric = "sortino" },
			wantErr: true,
			errMsg:  "unknown metric",
		},
		{
			name:    "log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: true,
			errMsg:  "logging.level",
		},
		{
			name:    "log encoding",
			mutate:  func(c *Config) { c.Logging.Encoding = "xml" },
			wantErr: true,
			errMsg:  "logging.encoding",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Strategy.Params = map[string]any{"positionCapUsd": 50}
			cfg.WalkForward.Ranges = []walkforward.ParamRange{
				{Name: "takeProfitPercent", Values: []any{2, 5}},
			}
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))
			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, cfg.Engine, loaded.Engine)
			assert.Equal(t, cfg.Strategy.ID, loaded.Strategy.ID)
			assert.Equal(t, 50, loaded.Strategy.Params.Int("positionCapUsd", 0))
			require.Len(t, loaded.WalkForward.Ranges, 1)
			assert.Equal(t, "takeProfitPercent", loaded.WalkForward.Ranges[0].Name)
			assert.Len(t, loaded.WalkForward.Ranges[0].Values, 2)
			assert.Equal(t, cfg.Server.Addr, loaded.Server.Addr)
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategy:\n  id: noop\nmontecarlo:\n  seed: 42\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "noop", cfg.Strategy.ID)
	assert.Equal(t, int64(42), cfg.MonteCarlo.Seed)
	assert.Equal(t, 1000, cfg.MonteCarlo.Simulations)
	assert.Equal(t, 42, int(cfg.MonteCarloOptions().Seed))
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [1, 2"), 0644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestWalkForwardOptions(t *testing.T) {
	cfg := Default()
	cfg.WalkForward.Metric = "Sharpe"
	opts := cfg.WalkForwardOptions()
	assert.Equal(t, walkforward.Sharpe, opts.Metric)
	assert.Equal(t, 90, opts.TrainDays)
}

func TestOpenSourceCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bars.csv")
	rows := []string{
		"timestamp,symbol,open,high,low,close,volume",
		"1704067200000,,100,101,99,100,1",
		"1704070800000,,100,102,99,101,1",
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(rows, "\n")), 0644))

	d := DataConfig{CSV: path, Symbol: "BTC-USD"}
	src, closeFn, err := d.OpenSource()
	require.NoError(t, err)
	defer closeFn()

	start, end, err := d.Window()
	require.NoError(t, err)
	bars, err := src.LoadBars(context.Background(), "BTC-USD", start, end)
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.IsType(t, &feed.MemorySource{}, src)

	d.Timeframe = "2h"
	src, _, err = d.OpenSource()
	require.NoError(t, err)
	bars, err = src.LoadBars(context.Background(), "BTC-USD", start, end)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "102", bars[0].High.String())

	_, _, err = DataConfig{}.OpenSource()
	assert.ErrorContains(t, err, "no source configured")
}
