package journal

import (
	"context"
	"encoding/json"

	"github.com/rustyeddy/polypaper/strategies"
)

// GetBacktest returns the stored summary of runID.
func (j *SQLite) GetBacktest(ctx context.Context, runID string) (BacktestRun, error) {
	var run BacktestRun
	err := j.db.GetContext(ctx, &run, `SELECT * FROM backtests WHERE run_id = ?`, runID)
	if err != nil {
		return BacktestRun{}, notFound(err, runID)
	}
	return run, nil
}

// ListBacktests returns the newest runs first. limit <= 0 returns all.
func (j *SQLite) ListBacktests(ctx context.Context, limit int) ([]BacktestRun, error) {
	if limit <= 0 {
		limit = -1
	}
	var runs []BacktestRun
	err := j.db.SelectContext(ctx, &runs,
		`SELECT * FROM backtests ORDER BY created_ms DESC, run_id DESC LIMIT ?`, limit)
	return runs, err
}

// ListTrades returns the fills of runID in execution order.
func (j *SQLite) ListTrades(ctx context.Context, runID string) ([]TradeRecord, error) {
	var out []TradeRecord
	err := j.db.SelectContext(ctx, &out,
		`SELECT * FROM backtest_trades WHERE run_id = ? ORDER BY seq ASC`, runID)
	return out, err
}

// ListEquity returns the equity curve of runID.
func (j *SQLite) ListEquity(ctx context.Context, runID string) ([]EquityRecord, error) {
	var out []EquityRecord
	err := j.db.SelectContext(ctx, &out,
		`SELECT * FROM backtest_equity WHERE run_id = ? ORDER BY seq ASC`, runID)
	return out, err
}

func (j *SQLite) GetMonteCarlo(ctx context.Context, runID string) (MonteCarloRun, error) {
	var run MonteCarloRun
	err := j.db.GetContext(ctx, &run, `SELECT * FROM montecarlo_runs WHERE run_id = ?`, runID)
	if err != nil {
		return MonteCarloRun{}, notFound(err, runID)
	}
	return run, nil
}

func (j *SQLite) GetWalkForward(ctx context.Context, runID string) (WalkForwardRun, error) {
	var run WalkForwardRun
	err := j.db.GetContext(ctx, &run, `SELECT * FROM walkforward_runs WHERE run_id = ?`, runID)
	if err != nil {
		return WalkForwardRun{}, notFound(err, runID)
	}
	return run, nil
}

// ListFolds returns the completed folds of a walk-forward run in fold order.
func (j *SQLite) ListFolds(ctx context.Context, runID string) ([]FoldRecord, error) {
	var out []FoldRecord
	err := j.db.SelectContext(ctx, &out,
		`SELECT * FROM walkforward_folds WHERE run_id = ? ORDER BY fold_index ASC`, runID)
	return out, err
}

// DecodeParams parses a stored params column.
func DecodeParams(s string) (strategies.Params, error) {
	p := strategies.Params{}
	if s == "" {
		return p, nil
	}
	err := json.Unmarshal([]byte(s), &p)
	return p, err
}
