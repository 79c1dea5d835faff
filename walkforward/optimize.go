package walkforward

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/rustyeddy/polypaper/backtest"
	"github.com/rustyeddy/polypaper/strategies"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Candidate is one grid point and its train-window score.
type Candidate struct {
	Params strategies.Params
	Score  float64
	OK     bool
	Err    error
}

// Optimize evaluates every grid combination merged over base on [start, end)
// and returns the best params with their score. Candidates run on up to
// workers goroutines but are compared in grid order, and a later candidate
// must score strictly higher to win. Failed or unscored candidates are
// skipped. When nothing scores, base and -Inf are returned.
func Optimize(ctx context.Context, eval Evaluator, base strategies.Params, ranges []ParamRange,
	start, end time.Time, metric Metric, workers int, log *zap.Logger) (strategies.Params, float64) {
	if log == nil {
		log = zap.NewNop()
	}

	cands := evaluateGrid(ctx, eval, base, ranges, start, end, metric, workers)

	best, bestScore := base.Clone(), math.Inf(-1)
	found := false
	for _, c := range cands {
		if c.Err != nil {
			log.Warn("candidate failed",
				zap.String("params", c.Params.Key()),
				zap.Time("train_start", start),
				zap.Error(c.Err))
			continue
		}
		if !c.OK {
			log.Warn("candidate has no score",
				zap.String("params", c.Params.Key()),
				zap.String("metric", string(metric)))
			continue
		}
		if !found || c.Score > bestScore {
			best, bestScore, found = c.Params, c.Score, true
		}
	}
	return best, bestScore
}

func evaluateGrid(ctx context.Context, eval Evaluator, base strategies.Params, ranges []ParamRange,
	start, end time.Time, metric Metric, workers int) []Candidate {
	grid := Grid(ranges)
	cands := make([]Candidate, len(grid))
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, combo := range grid {
		params := base.Merge(combo)
		g.Go(func() error {
			c := Candidate{Params: params}
			if res, err := evaluate(ctx, eval, params, start, end); err != nil {
				c.Err = err
			} else {
				c.Score, c.OK = metric.Score(res)
			}
			cands[i] = c
			return nil
		})
	}
	// Workers record failures on their candidate and always return nil.
	_ = g.Wait()
	return cands
}

// evaluate runs eval once. A nil result or a panic in the evaluator is
// returned as an error.
func evaluate(ctx context.Context, eval Evaluator, params strategies.Params, start, end time.Time) (res *backtest.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("walkforward: evaluator panicked: %v", p)
		}
	}()
	res, err = eval.Evaluate(ctx, params, start, end)
	if err == nil && res == nil {
		err = errNilResult
	}
	return res, err
}
