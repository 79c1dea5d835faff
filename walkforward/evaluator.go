package walkforward

import (
	"context"
	"time"

	"github.com/rustyeddy/polypaper/backtest"
	"github.com/rustyeddy/polypaper/feed"
	"github.com/rustyeddy/polypaper/strategies"
)

// Evaluator runs one backtest of params over [start, end).
type Evaluator interface {
	Evaluate(ctx context.Context, params strategies.Params, start, end time.Time) (*backtest.Result, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, params strategies.Params, start, end time.Time) (*backtest.Result, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, params strategies.Params, start, end time.Time) (*backtest.Result, error) {
	return f(ctx, params, start, end)
}

// BarEvaluator builds a fresh strategy per call and replays it over the bars
// a feed returns for the window.
type BarEvaluator struct {
	strategyID string
	registry   *strategies.Registry
	source     feed.Source
	symbol     string
	cfg        backtest.Config
}

// NewBarEvaluator returns an evaluator for strategyID. A nil registry means
// strategies.Default().
func NewBarEvaluator(strategyID string, registry *strategies.Registry, source feed.Source, symbol string, cfg backtest.Config) *BarEvaluator {
	if registry == nil {
		registry = strategies.Default()
	}
	return &BarEvaluator{
		strategyID: strategyID,
		registry:   registry,
		source:     source,
		symbol:     symbol,
		cfg:        cfg,
	}
}

func (e *BarEvaluator) StrategyID() string {
	return e.strategyID
}

func (e *BarEvaluator) Evaluate(ctx context.Context, params strategies.Params, start, end time.Time) (*backtest.Result, error) {
	strat, err := e.registry.New(e.strategyID, params)
	if err != nil {
		return nil, err
	}
	bars, err := e.source.LoadBars(ctx, e.symbol, start, end)
	if err != nil {
		return nil, err
	}
	return backtest.Run(strat, bars, e.cfg)
}
