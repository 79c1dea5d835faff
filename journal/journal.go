// Package journal stores backtest, Monte Carlo and walk-forward runs in
// SQLite and renders them for Org-mode notes and CSV.
package journal

import (
	"time"

	"github.com/rustyeddy/polypaper/backtest"
	"github.com/shopspring/decimal"
)

// BacktestRun mirrors the backtests table.
type BacktestRun struct {
	RunID          string          `db:"run_id" json:"run_id"`
	CreatedMs      int64           `db:"created_ms" json:"created_ms"`
	StrategyID     string          `db:"strategy_id" json:"strategy_id"`
	Symbol         string          `db:"symbol" json:"symbol"`
	Params         string          `db:"params" json:"params"`
	StartDate      string          `db:"start_date" json:"start_date"`
	EndDate        string          `db:"end_date" json:"end_date"`
	InitialCapital decimal.Decimal `db:"initial_capital" json:"initial_capital"`
	FinalCapital   decimal.Decimal `db:"final_capital" json:"final_capital"`
	TotalReturn    decimal.Decimal `db:"total_return" json:"total_return"`
	TotalReturnPct decimal.Decimal `db:"total_return_pct" json:"total_return_pct"`
	WinRate        float64         `db:"win_rate" json:"win_rate"`
	TotalTrades    int             `db:"total_trades" json:"total_trades"`
	WinningTrades  int             `db:"winning_trades" json:"winning_trades"`
	LosingTrades   int             `db:"losing_trades" json:"losing_trades"`
	MaxDrawdown    decimal.Decimal `db:"max_drawdown" json:"max_drawdown"`
	MaxDrawdownPct decimal.Decimal `db:"max_drawdown_pct" json:"max_drawdown_pct"`
	SharpeRatio    *float64        `db:"sharpe_ratio" json:"sharpe_ratio"`
}

func (r BacktestRun) Created() time.Time {
	return time.UnixMilli(r.CreatedMs).UTC()
}

// TradeRecord is one fill of a stored backtest.
type TradeRecord struct {
	RunID     string          `db:"run_id" json:"run_id"`
	Seq       int             `db:"seq" json:"seq"`
	Timestamp int64           `db:"ts_ms" json:"timestamp"`
	Symbol    string          `db:"symbol" json:"symbol"`
	Side      backtest.Side   `db:"side" json:"side"`
	Quantity  decimal.Decimal `db:"quantity" json:"quantity"`
	Price     decimal.Decimal `db:"price" json:"price"`
	PnL       decimal.Decimal `db:"pnl" json:"pnl"`
	Fees      decimal.Decimal `db:"fees" json:"fees"`
	Slippage  decimal.Decimal `db:"slippage" json:"slippage"`
}

func (t TradeRecord) Time() time.Time {
	return time.UnixMilli(t.Timestamp).UTC()
}

// EquityRecord is one equity curve sample of a stored backtest.
type EquityRecord struct {
	RunID     string          `db:"run_id" json:"run_id"`
	Seq       int             `db:"seq" json:"seq"`
	Timestamp int64           `db:"ts_ms" json:"timestamp"`
	Equity    decimal.Decimal `db:"equity" json:"equity"`
}

// MonteCarloRun mirrors the montecarlo_runs table. SourceRunID is the
// backtest the returns came from, if any.
type MonteCarloRun struct {
	RunID          string  `db:"run_id" json:"run_id"`
	CreatedMs      int64   `db:"created_ms" json:"created_ms"`
	SourceRunID    string  `db:"source_run_id" json:"source_run_id"`
	Source         string  `db:"source" json:"source"`
	NumSimulations int     `db:"num_simulations" json:"num_simulations"`
	BlockSize      int     `db:"block_size" json:"block_size"`
	Seed           int64   `db:"seed" json:"seed"`
	InitialCapital float64 `db:"initial_capital" json:"initial_capital"`
	EquityP5       float64 `db:"equity_p5" json:"equity_p5"`
	EquityP50      float64 `db:"equity_p50" json:"equity_p50"`
	EquityP95      float64 `db:"equity_p95" json:"equity_p95"`
	EquityMean     float64 `db:"equity_mean" json:"equity_mean"`
	EquityStd      float64 `db:"equity_std" json:"equity_std"`
	DrawdownP5     float64 `db:"drawdown_p5" json:"drawdown_p5"`
	DrawdownP50    float64 `db:"drawdown_p50" json:"drawdown_p50"`
	DrawdownP95    float64 `db:"drawdown_p95" json:"drawdown_p95"`
	ProbRuin       float64 `db:"prob_ruin" json:"prob_ruin"`
	ProbProfit     float64 `db:"prob_profit" json:"prob_profit"`
}

// WalkForwardRun mirrors the walkforward_runs table. ProfitFactor is text so
// an infinite factor survives ("Inf").
type WalkForwardRun struct {
	RunID          string          `db:"run_id" json:"run_id"`
	CreatedMs      int64           `db:"created_ms" json:"created_ms"`
	StrategyID     string          `db:"strategy_id" json:"strategy_id"`
	Symbol         string          `db:"symbol" json:"symbol"`
	Metric         string          `db:"metric" json:"metric"`
	TrainDays      int             `db:"train_days" json:"train_days"`
	TestDays       int             `db:"test_days" json:"test_days"`
	NumFolds       int             `db:"num_folds" json:"num_folds"`
	FailedFolds    string          `db:"failed_folds" json:"failed_folds"`
	TotalReturn    decimal.Decimal `db:"total_return" json:"total_return"`
	WinRate        float64         `db:"win_rate" json:"win_rate"`
	TotalTrades    int             `db:"total_trades" json:"total_trades"`
	MaxDrawdown    decimal.Decimal `db:"max_drawdown" json:"max_drawdown"`
	MaxDrawdownPct decimal.Decimal `db:"max_drawdown_pct" json:"max_drawdown_pct"`
	ProfitFactor   string          `db:"profit_factor" json:"profit_factor"`
}

// FoldRecord is one completed fold of a stored walk-forward run.
type FoldRecord struct {
	RunID       string          `db:"run_id" json:"run_id"`
	FoldIndex   int             `db:"fold_index" json:"fold"`
	TrainStart  int64           `db:"train_start_ms" json:"train_start"`
	TrainEnd    int64           `db:"train_end_ms" json:"train_end"`
	TestStart   int64           `db:"test_start_ms" json:"test_start"`
	TestEnd     int64           `db:"test_end_ms" json:"test_end"`
	Params      string          `db:"params" json:"params"`
	TotalReturn decimal.Decimal `db:"total_return" json:"total_return"`
	WinRate     float64         `db:"win_rate" json:"win_rate"`
	TotalTrades int             `db:"total_trades" json:"total_trades"`
	MaxDrawdown decimal.Decimal `db:"max_drawdown" json:"max_drawdown"`
}
