package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rustyeddy/polypaper/backtest"
	"github.com/rustyeddy/polypaper/montecarlo"
	"github.com/rustyeddy/polypaper/pkg/id"
	"github.com/rustyeddy/polypaper/strategies"
	"github.com/rustyeddy/polypaper/walkforward"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a run id is not in the journal.
var ErrNotFound = errors.New("journal: run not found")

// SQLite is a journal backed by a single SQLite file.
type SQLite struct {
	db  *sqlx.DB
	ids *id.Generator
	now func() time.Time
}

// NewSQLite opens (creating if needed) the journal at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &SQLite{db: db, ids: id.NewGenerator(), now: time.Now}, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// SaveBacktest stores the summary, trades and equity curve of res and
// returns the new run id.
func (j *SQLite) SaveBacktest(ctx context.Context, symbol string, params strategies.Params, res *backtest.Result) (string, error) {
	if res == nil {
		return "", fmt.Errorf("journal: nil backtest result")
	}
	paramsJSON, err := marshalParams(params)
	if err != nil {
		return "", err
	}

	now := j.now()
	run := BacktestRun{
		RunID:          j.ids.NewAt(now),
		CreatedMs:      now.UnixMilli(),
		StrategyID:     res.StrategyID,
		Symbol:         symbol,
		Params:         paramsJSON,
		StartDate:      res.StartDate,
		EndDate:        res.EndDate,
		InitialCapital: res.InitialCapital,
		FinalCapital:   res.FinalCapital,
		TotalReturn:    res.TotalReturn,
		TotalReturnPct: res.TotalReturnPct,
		WinRate:        res.WinRate,
		TotalTrades:    res.TotalTrades,
		WinningTrades:  res.WinningTrades,
		LosingTrades:   res.LosingTrades,
		MaxDrawdown:    res.MaxDrawdown,
		MaxDrawdownPct: res.MaxDrawdownPct,
		SharpeRatio:    res.SharpeRatio,
	}

	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO backtests
		(run_id, created_ms, strategy_id, symbol, params, start_date, end_date,
		 initial_capital, final_capital, total_return, total_return_pct, win_rate,
		 total_trades, winning_trades, losing_trades, max_drawdown, max_drawdown_pct, sharpe_ratio)
		VALUES
		(:run_id, :created_ms, :strategy_id, :symbol, :params, :start_date, :end_date,
		 :initial_capital, :final_capital, :total_return, :total_return_pct, :win_rate,
		 :total_trades, :winning_trades, :losing_trades, :max_drawdown, :max_drawdown_pct, :sharpe_ratio)`,
		run); err != nil {
		return "", fmt.Errorf("journal: insert backtest: %w", err)
	}

	for i, t := range res.Trades {
		rec := TradeRecord{
			RunID:     run.RunID,
			Seq:       i,
			Timestamp: t.Timestamp,
			Symbol:    t.Symbol,
			Side:      t.Side,
			Quantity:  t.Quantity,
			Price:     t.Price,
			PnL:       t.PnL,
			Fees:      t.Fees,
			Slippage:  t.Slippage,
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO backtest_trades
			(run_id, seq, ts_ms, symbol, side, quantity, price, pnl, fees, slippage)
			VALUES (:run_id, :seq, :ts_ms, :symbol, :side, :quantity, :price, :pnl, :fees, :slippage)`,
			rec); err != nil {
			return "", fmt.Errorf("journal: insert trade %d: %w", i, err)
		}
	}

	for i, p := range res.EquityCurve {
		rec := EquityRecord{RunID: run.RunID, Seq: i, Timestamp: p.Timestamp, Equity: p.Equity}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO backtest_equity (run_id, seq, ts_ms, equity)
			VALUES (:run_id, :seq, :ts_ms, :equity)`, rec); err != nil {
			return "", fmt.Errorf("journal: insert equity %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return run.RunID, nil
}

// SaveMonteCarlo stores the summary statistics of res. The per-trial arrays
// are not kept.
func (j *SQLite) SaveMonteCarlo(ctx context.Context, sourceRunID string, source montecarlo.Source, res *montecarlo.Result) (string, error) {
	if res == nil {
		return "", fmt.Errorf("journal: nil monte carlo result")
	}
	now := j.now()
	run := MonteCarloRun{
		RunID:          j.ids.NewAt(now),
		CreatedMs:      now.UnixMilli(),
		SourceRunID:    sourceRunID,
		Source:         string(source),
		NumSimulations: res.NumSimulations,
		BlockSize:      res.BlockSize,
		Seed:           res.Seed,
		InitialCapital: res.InitialCapital,
		EquityP5:       res.EquityP5,
		EquityP50:      res.EquityP50,
		EquityP95:      res.EquityP95,
		EquityMean:     res.EquityMean,
		EquityStd:      res.EquityStd,
		DrawdownP5:     res.DrawdownP5,
		DrawdownP50:    res.DrawdownP50,
		DrawdownP95:    res.DrawdownP95,
		ProbRuin:       res.ProbRuin,
		ProbProfit:     res.ProbProfit,
	}
	if _, err := j.db.NamedExecContext(ctx, `
		INSERT INTO montecarlo_runs
		(run_id, created_ms, source_run_id, source, num_simulations, block_size, seed, initial_capital,
		 equity_p5, equity_p50, equity_p95, equity_mean, equity_std,
		 drawdown_p5, drawdown_p50, drawdown_p95, prob_ruin, prob_profit)
		VALUES
		(:run_id, :created_ms, :source_run_id, :source, :num_simulations, :block_size, :seed, :initial_capital,
		 :equity_p5, :equity_p50, :equity_p95, :equity_mean, :equity_std,
		 :drawdown_p5, :drawdown_p50, :drawdown_p95, :prob_ruin, :prob_profit)`, run); err != nil {
		return "", fmt.Errorf("journal: insert monte carlo: %w", err)
	}
	return run.RunID, nil
}

// SaveWalkForward stores res and its completed folds.
func (j *SQLite) SaveWalkForward(ctx context.Context, symbol string, res *walkforward.Result) (string, error) {
	if res == nil {
		return "", fmt.Errorf("journal: nil walk-forward result")
	}
	failed, err := json.Marshal(res.FailedFolds)
	if err != nil {
		return "", err
	}

	now := j.now()
	run := WalkForwardRun{
		RunID:          j.ids.NewAt(now),
		CreatedMs:      now.UnixMilli(),
		StrategyID:     res.StrategyID,
		Symbol:         symbol,
		Metric:         string(res.Metric),
		TrainDays:      res.TrainDays,
		TestDays:       res.TestDays,
		NumFolds:       res.NumFolds,
		FailedFolds:    string(failed),
		TotalReturn:    res.TotalReturn,
		WinRate:        res.WinRate,
		TotalTrades:    res.TotalTrades,
		MaxDrawdown:    res.MaxDrawdown,
		MaxDrawdownPct: res.MaxDrawdownPct,
		ProfitFactor:   formatRatio(res.ProfitFactor),
	}

	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO walkforward_runs
		(run_id, created_ms, strategy_id, symbol, metric, train_days, test_days, num_folds, failed_folds,
		 total_return, win_rate, total_trades, max_drawdown, max_drawdown_pct, profit_factor)
		VALUES
		(:run_id, :created_ms, :strategy_id, :symbol, :metric, :train_days, :test_days, :num_folds, :failed_folds,
		 :total_return, :win_rate, :total_trades, :max_drawdown, :max_drawdown_pct, :profit_factor)`, run); err != nil {
		return "", fmt.Errorf("journal: insert walk-forward: %w", err)
	}

	for _, f := range res.Folds {
		params, err := marshalParams(f.Params)
		if err != nil {
			return "", err
		}
		rec := FoldRecord{
			RunID:       run.RunID,
			FoldIndex:   f.Index,
			TrainStart:  f.TrainStart.UnixMilli(),
			TrainEnd:    f.TrainEnd.UnixMilli(),
			TestStart:   f.TestStart.UnixMilli(),
			TestEnd:     f.TestEnd.UnixMilli(),
			Params:      params,
			TotalReturn: f.TotalReturn,
			WinRate:     f.WinRate,
			TotalTrades: f.TotalTrades,
			MaxDrawdown: f.MaxDrawdown,
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO walkforward_folds
			(run_id, fold_index, train_start_ms, train_end_ms, test_start_ms, test_end_ms,
			 params, total_return, win_rate, total_trades, max_drawdown)
			VALUES
			(:run_id, :fold_index, :train_start_ms, :train_end_ms, :test_start_ms, :test_end_ms,
			 :params, :total_return, :win_rate, :total_trades, :max_drawdown)`, rec); err != nil {
			return "", fmt.Errorf("journal: insert fold %d: %w", f.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return run.RunID, nil
}

func marshalParams(p strategies.Params) (string, error) {
	if p == nil {
		p = strategies.Params{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("journal: params: %w", err)
	}
	return string(b), nil
}

func formatRatio(r walkforward.Ratio) string {
	b, _ := r.MarshalJSON()
	var s string
	if json.Unmarshal(b, &s) == nil {
		return s
	}
	return string(b)
}

func notFound(err error, runID string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %q", ErrNotFound, runID)
	}
	return err
}
