// Package montecarlo estimates how much of a backtest's result is luck by
// block-bootstrapping its return series and replaying the synthetic paths.
package montecarlo

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	NumSimulations int
	BlockSize      int
	RuinThreshold  float64 // fraction of initial capital
	Seed           int64   // 0 draws a random seed
	Workers        int     // <= 0 uses GOMAXPROCS
	Logger         *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		NumSimulations: 1000,
		BlockSize:      5,
		RuinThreshold:  0.5,
	}
}

// Result is the distribution summary. Equity fields are in capital units,
// drawdown fields in percent.
type Result struct {
	NumSimulations int       `json:"num_simulations"`
	BlockSize      int       `json:"block_size"`
	Seed           int64     `json:"seed"`
	InitialCapital float64   `json:"initial_capital"`
	EquityP5       float64   `json:"equity_p5"`
	EquityP50      float64   `json:"equity_p50"`
	EquityP95      float64   `json:"equity_p95"`
	EquityMean     float64   `json:"equity_mean"`
	EquityStd      float64   `json:"equity_std"`
	DrawdownP5     float64   `json:"drawdown_p5"`
	DrawdownP50    float64   `json:"drawdown_p50"`
	DrawdownP95    float64   `json:"drawdown_p95"`
	ProbRuin       float64   `json:"prob_ruin"`
	ProbProfit     float64   `json:"prob_profit"`
	FinalEquities  []float64 `json:"final_equities"`
	MaxDrawdowns   []float64 `json:"max_drawdowns"`
}

func degenerate(initial float64, blockSize int, seed int64) *Result {
	return &Result{
		BlockSize:      blockSize,
		Seed:           seed,
		InitialCapital: initial,
		EquityP5:       initial,
		EquityP50:      initial,
		EquityP95:      initial,
		EquityMean:     initial,
		FinalEquities:  []float64{},
		MaxDrawdowns:   []float64{},
	}
}

// BlockBootstrap builds one synthetic path the length of returns from
// contiguous blocks starting at uniform random offsets. When returns is
// shorter than blockSize it resamples single points.
func BlockBootstrap(returns []float64, blockSize int, rng *rand.Rand) []float64 {
	n := len(returns)
	if n == 0 {
		return nil
	}
	if blockSize < 1 || n < blockSize {
		blockSize = 1
	}

	out := make([]float64, 0, n+blockSize)
	for len(out) < n {
		start := rng.IntN(n - blockSize + 1)
		out = append(out, returns[start:start+blockSize]...)
	}
	return out[:n]
}

// EquityPath compounds returns from initial and returns the final equity and
// the maximum fractional drawdown along the way.
func EquityPath(returns []float64, initial float64) (final, maxDrawdown float64) {
	equity := initial
	peak := initial
	for _, r := range returns {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}
	return equity, maxDrawdown
}

// Run resamples returns opts.NumSimulations times. Trial i draws from its own
// generator seeded by (Seed, i), so results do not depend on Workers. A
// panic inside a trial is re-raised on the calling goroutine.
func Run(returns []float64, initialCapital float64, opts Options) *Result {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	seed := opts.Seed
	if seed == 0 {
		seed = randomSeed()
	}

	blockSize := opts.BlockSize
	if blockSize < 1 || len(returns) < blockSize {
		blockSize = 1
	}

	if len(returns) == 0 || opts.NumSimulations <= 0 {
		log.Warn("monte carlo skipped: no returns to resample",
			zap.Int("returns", len(returns)),
			zap.Int("num_simulations", opts.NumSimulations))
		return degenerate(initialCapital, opts.BlockSize, seed)
	}

	n := opts.NumSimulations
	finals := make([]float64, n)
	drawdowns := make([]float64, n)

	err := parallel(n, opts.Workers, func(i int) {
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(i)))
		path := BlockBootstrap(returns, blockSize, rng)
		final, dd := EquityPath(path, initialCapital)
		finals[i] = final
		drawdowns[i] = dd * 100
	})
	if err != nil {
		log.Error("monte carlo trial failed", zap.Error(err))
		panic(err)
	}

	r := &Result{
		NumSimulations: n,
		BlockSize:      blockSize,
		Seed:           seed,
		InitialCapital: initialCapital,
		FinalEquities:  finals,
		MaxDrawdowns:   drawdowns,
	}

	sortedEq := sortedCopy(finals)
	sortedDD := sortedCopy(drawdowns)
	r.EquityP5 = Percentile(sortedEq, 5)
	r.EquityP50 = Percentile(sortedEq, 50)
	r.EquityP95 = Percentile(sortedEq, 95)
	r.DrawdownP5 = Percentile(sortedDD, 5)
	r.DrawdownP50 = Percentile(sortedDD, 50)
	r.DrawdownP95 = Percentile(sortedDD, 95)
	r.EquityMean, r.EquityStd = meanStd(finals)

	ruin := initialCapital * opts.RuinThreshold
	var ruined, profitable int
	for _, f := range finals {
		if f < ruin {
			ruined++
		}
		if f > initialCapital {
			profitable++
		}
	}
	r.ProbRuin = float64(ruined) / float64(n)
	r.ProbProfit = float64(profitable) / float64(n)

	log.Debug("monte carlo complete",
		zap.Int("num_simulations", n),
		zap.Int("block_size", blockSize),
		zap.Int("workers", workers),
		zap.Float64("equity_p50", r.EquityP50))
	return r
}

// RunFromEquityCurve converts an equity curve into period returns, skipping
// steps whose previous equity is not positive, and runs from curve[0].
func RunFromEquityCurve(curve []float64, opts Options) *Result {
	if len(curve) < 2 {
		return Run(nil, 0, opts)
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1] <= 0 {
			continue
		}
		returns = append(returns, (curve[i]-curve[i-1])/curve[i-1])
	}
	return Run(returns, curve[0], opts)
}

// Percentile returns the p-th percentile (0..100) of sorted values using
// linear interpolation between closest ranks.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		return sorted[0]
	}
	if hi >= n {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// parallel calls fn for every i in [0, n) on up to workers goroutines, each
// taking a contiguous chunk. A panic in fn is returned as an error.
func parallel(n, workers int, fn func(i int)) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	if n <= 0 {
		return nil
	}
	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("montecarlo: trial panicked: %v", p)
				}
			}()
			for i := lo; i < hi; i++ {
				fn(i)
			}
			return nil
		})
	}
	return g.Wait()
}

func sortedCopy(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}

// meanStd returns the mean and population standard deviation.
func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	v := 0.0
	for _, x := range xs {
		v += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(v / float64(len(xs)))
}

func randomSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 1
	}
	s := int64(binary.LittleEndian.Uint64(b[:]) >> 1)
	if s == 0 {
		s = 1
	}
	return s
}
