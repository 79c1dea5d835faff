// Package walkforward validates a strategy by re-optimizing its parameters
// on a rolling train window and scoring them on the following test window.
package walkforward

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rustyeddy/polypaper/strategies"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errNilResult = errors.New("walkforward: evaluator returned no result")

type Options struct {
	TrainDays int
	TestDays  int
	Metric    Metric
	// Workers bounds concurrent grid evaluations. <= 0 means GOMAXPROCS.
	Workers int
	Logger  *zap.Logger
	// OnFold is called after each fold in fold order. err is non-nil for a
	// fold whose test evaluation failed.
	OnFold func(f FoldResult, err error)
}

func DefaultOptions() Options {
	return Options{TrainDays: 90, TestDays: 30, Metric: TotalReturn}
}

func (o Options) validate() error {
	if o.TrainDays <= 0 {
		return fmt.Errorf("walkforward: train days must be positive, got %d", o.TrainDays)
	}
	if o.TestDays <= 0 {
		return fmt.Errorf("walkforward: test days must be positive, got %d", o.TestDays)
	}
	if _, err := ParseMetric(string(o.Metric)); err != nil {
		return err
	}
	return nil
}

// FoldResult is the out-of-sample outcome of one fold.
type FoldResult struct {
	Fold
	Params         strategies.Params `json:"params"`
	Optimized      bool              `json:"optimized"`
	TrainScore     Ratio             `json:"train_score"`
	TotalReturn    decimal.Decimal   `json:"total_return"`
	TotalReturnPct decimal.Decimal   `json:"total_return_pct"`
	WinRate        float64           `json:"win_rate"`
	TotalTrades    int               `json:"total_trades"`
	WinningTrades  int               `json:"winning_trades"`
	MaxDrawdown    decimal.Decimal   `json:"max_drawdown"`
	MaxDrawdownPct decimal.Decimal   `json:"max_drawdown_pct"`
	SharpeRatio    *float64          `json:"sharpe_ratio"`
}

type Result struct {
	StrategyID       string              `json:"strategy_id,omitempty"`
	Metric           Metric              `json:"metric"`
	TrainDays        int                 `json:"train_days"`
	TestDays         int                 `json:"test_days"`
	NumFolds         int                 `json:"num_folds"`
	FailedFolds      []int               `json:"failed_folds"`
	TotalReturn      decimal.Decimal     `json:"total_return"`
	WinRate          float64             `json:"win_rate"`
	TotalTrades      int                 `json:"total_trades"`
	WinningTrades    int                 `json:"winning_trades"`
	MaxDrawdown      decimal.Decimal     `json:"max_drawdown"`
	MaxDrawdownPct   decimal.Decimal     `json:"max_drawdown_pct"`
	ProfitFactor     Ratio               `json:"profit_factor"`
	Folds            []FoldResult        `json:"folds"`
	ParameterHistory []strategies.Params `json:"parameter_history"`
}

// Run walks the folds of [start, end) in order. Folds whose test evaluation
// fails are logged and left out of the aggregates; their chosen parameters
// still appear in ParameterHistory. Only invalid options are errors.
func Run(ctx context.Context, eval Evaluator, base strategies.Params, ranges []ParamRange,
	start, end time.Time, opts Options) (*Result, error) {
	if eval == nil {
		return nil, fmt.Errorf("walkforward: Evaluator is required")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, fmt.Errorf("walkforward: end %s is not after start %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	if err := validateRanges(ranges); err != nil {
		return nil, err
	}
	metric, _ := ParseMetric(string(opts.Metric))

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if base == nil {
		base = strategies.Params{}
	}

	r := &Result{
		Metric:           metric,
		TrainDays:        opts.TrainDays,
		TestDays:         opts.TestDays,
		FailedFolds:      []int{},
		Folds:            []FoldResult{},
		ParameterHistory: []strategies.Params{},
	}
	if s, ok := eval.(interface{ StrategyID() string }); ok {
		r.StrategyID = s.StrategyID()
	}

	for _, f := range Folds(start, end, opts.TrainDays, opts.TestDays) {
		fr := FoldResult{Fold: f, Params: base.Clone(), TrainScore: Ratio(math.NaN())}
		if len(ranges) > 0 {
			params, score := Optimize(ctx, eval, base, ranges, f.TrainStart, f.TrainEnd, metric, opts.Workers, log)
			fr.Params, fr.TrainScore, fr.Optimized = params, Ratio(score), true
		}
		r.ParameterHistory = append(r.ParameterHistory, fr.Params)

		res, err := evaluate(ctx, eval, fr.Params, f.TestStart, f.TestEnd)
		if err != nil {
			log.Warn("fold failed",
				zap.Int("fold", f.Index),
				zap.Time("test_start", f.TestStart),
				zap.Error(err))
			r.FailedFolds = append(r.FailedFolds, f.Index)
			if opts.OnFold != nil {
				opts.OnFold(fr, err)
			}
			continue
		}

		fr.TotalReturn = res.TotalReturn
		fr.TotalReturnPct = res.TotalReturnPct
		fr.WinRate = res.WinRate
		fr.TotalTrades = res.TotalTrades
		fr.WinningTrades = res.WinningTrades
		fr.MaxDrawdown = res.MaxDrawdown
		fr.MaxDrawdownPct = res.MaxDrawdownPct
		fr.SharpeRatio = res.SharpeRatio
		r.Folds = append(r.Folds, fr)

		log.Debug("fold complete",
			zap.Int("fold", f.Index),
			zap.String("params", fr.Params.Key()),
			zap.String("total_return", fr.TotalReturn.StringFixed(2)))
		if opts.OnFold != nil {
			opts.OnFold(fr, nil)
		}
	}

	r.aggregate()
	return r, nil
}

func (r *Result) aggregate() {
	r.NumFolds = len(r.Folds)
	var gains, losses float64
	for _, f := range r.Folds {
		r.TotalReturn = r.TotalReturn.Add(f.TotalReturn)
		r.TotalTrades += f.TotalTrades
		r.WinningTrades += f.WinningTrades
		if f.MaxDrawdown.GreaterThan(r.MaxDrawdown) {
			r.MaxDrawdown = f.MaxDrawdown
		}
		if f.MaxDrawdownPct.GreaterThan(r.MaxDrawdownPct) {
			r.MaxDrawdownPct = f.MaxDrawdownPct
		}
		ret := f.TotalReturn.InexactFloat64()
		if ret > 0 {
			gains += ret
		} else if ret < 0 {
			losses += ret
		}
	}
	if r.TotalTrades > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades) * 100
	}
	r.ProfitFactor = ProfitFactor(gains, losses)
}

// ProfitFactor returns gains / |losses|, +Inf for gains without losses and 0
// when there are neither.
func ProfitFactor(gains, losses float64) Ratio {
	losses = math.Abs(losses)
	switch {
	case losses > 0:
		return Ratio(gains / losses)
	case gains > 0:
		return Ratio(math.Inf(1))
	default:
		return 0
	}
}

// Ratio is a float64 that survives JSON when infinite or NaN. Those encode as
// the strings "Inf", "-Inf" and "NaN".
type Ratio float64

func (r Ratio) Float64() float64 { return float64(r) }

func (r Ratio) String() string {
	f := float64(r)
	switch {
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return json.Marshal(r.String())
	}
	return json.Marshal(f)
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "Inf", "+Inf":
			*r = Ratio(math.Inf(1))
		case "-Inf":
			*r = Ratio(math.Inf(-1))
		case "NaN":
			*r = Ratio(math.NaN())
		default:
			return fmt.Errorf("walkforward: bad ratio %q", s)
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}
