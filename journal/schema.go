package journal

// Decimal amounts are stored as TEXT so they read back exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS backtests (
	run_id TEXT PRIMARY KEY,
	created_ms INTEGER NOT NULL,
	strategy_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	params TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	initial_capital TEXT NOT NULL,
	final_capital TEXT NOT NULL,
	total_return TEXT NOT NULL,
	total_return_pct TEXT NOT NULL,
	win_rate REAL NOT NULL,
	total_trades INTEGER NOT NULL,
	winning_trades INTEGER NOT NULL,
	losing_trades INTEGER NOT NULL,
	max_drawdown TEXT NOT NULL,
	max_drawdown_pct TEXT NOT NULL,
	sharpe_ratio REAL
);

CREATE TABLE IF NOT EXISTS backtest_trades (
	run_id TEXT NOT NULL REFERENCES backtests(run_id),
	seq INTEGER NOT NULL,
	ts_ms INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity TEXT NOT NULL,
	price TEXT NOT NULL,
	pnl TEXT NOT NULL,
	fees TEXT NOT NULL,
	slippage TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS backtest_equity (
	run_id TEXT NOT NULL REFERENCES backtests(run_id),
	seq INTEGER NOT NULL,
	ts_ms INTEGER NOT NULL,
	equity TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS montecarlo_runs (
	run_id TEXT PRIMARY KEY,
	created_ms INTEGER NOT NULL,
	source_run_id TEXT NOT NULL,
	source TEXT NOT NULL,
	num_simulations INTEGER NOT NULL,
	block_size INTEGER NOT NULL,
	seed INTEGER NOT NULL,
	initial_capital REAL NOT NULL,
	equity_p5 REAL NOT NULL,
	equity_p50 REAL NOT NULL,
	equity_p95 REAL NOT NULL,
	equity_mean REAL NOT NULL,
	equity_std REAL NOT NULL,
	drawdown_p5 REAL NOT NULL,
	drawdown_p50 REAL NOT NULL,
	drawdown_p95 REAL NOT NULL,
	prob_ruin REAL NOT NULL,
	prob_profit REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS walkforward_runs (
	run_id TEXT PRIMARY KEY,
	created_ms INTEGER NOT NULL,
	strategy_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	metric TEXT NOT NULL,
	train_days INTEGER NOT NULL,
	test_days INTEGER NOT NULL,
	num_folds INTEGER NOT NULL,
	failed_folds TEXT NOT NULL,
	total_return TEXT NOT NULL,
	win_rate REAL NOT NULL,
	total_trades INTEGER NOT NULL,
	max_drawdown TEXT NOT NULL,
	max_drawdown_pct TEXT NOT NULL,
	profit_factor TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS walkforward_folds (
	run_id TEXT NOT NULL REFERENCES walkforward_runs(run_id),
	fold_index INTEGER NOT NULL,
	train_start_ms INTEGER NOT NULL,
	train_end_ms INTEGER NOT NULL,
	test_start_ms INTEGER NOT NULL,
	test_end_ms INTEGER NOT NULL,
	params TEXT NOT NULL,
	total_return TEXT NOT NULL,
	win_rate REAL NOT NULL,
	total_trades INTEGER NOT NULL,
	max_drawdown TEXT NOT NULL,
	PRIMARY KEY (run_id, fold_index)
);

CREATE INDEX IF NOT EXISTS idx_backtests_created ON backtests(created_ms);
CREATE INDEX IF NOT EXISTS idx_backtests_strategy ON backtests(strategy_id);
`
