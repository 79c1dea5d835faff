package backtest

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/polypaper/market"
	"github.com/rustyeddy/polypaper/strategies"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = int64(24 * time.Hour / time.Millisecond)

func risingBars(n int) []market.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	bars := make([]market.Bar, n)
	for i := range bars {
		c := decimal.NewFromFloat(100 * math.Pow(1.01, float64(i)))
		bars[i] = market.Bar{Symbol: "BTC-USD", Timestamp: start + int64(i)*day, Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

// sellOnly emits SELL on every bar.
type sellOnly struct{}

func (sellOnly) Metadata() strategies.Metadata { return strategies.Metadata{ID: "sell-only"} }
func (sellOnly) OnData(b market.Bar, _ []strategies.Position) *strategies.Signal {
	return &strategies.Signal{Symbol: b.Symbol, Type: strategies.Sell}
}

// scripted emits signals by bar index and records close notifications.
type scripted struct {
	signals map[int]strategies.SignalType
	i       int
	closes  []decimal.Decimal
}

func (s *scripted) Metadata() strategies.Metadata { return strategies.Metadata{ID: "scripted"} }
func (s *scripted) OnData(b market.Bar, _ []strategies.Position) *strategies.Signal {
	defer func() { s.i++ }()
	typ, ok := s.signals[s.i]
	if !ok {
		return nil
	}
	return &strategies.Signal{Symbol: b.Symbol, Type: typ}
}
func (s *scripted) OnPositionClose(pnl decimal.Decimal, _ int64) {
	s.closes = append(s.closes, pnl)
}

func TestRunNoBars(t *testing.T) {
	t.Parallel()

	_, err := Run(strategies.Noop{}, nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNoBars)

	_, err = Run(nil, risingBars(3), DefaultConfig())
	assert.Error(t, err)

	bad := DefaultConfig()
	bad.InitialCapital = decimal.Zero
	_, err = Run(strategies.Noop{}, risingBars(3), bad)
	assert.Error(t, err)
}

func TestRunSellOnlyIsNoop(t *testing.T) {
	t.Parallel()

	r, err := Run(sellOnly{}, risingBars(20), DefaultConfig())
	require.NoError(t, err)

	assert.Empty(t, r.Trades)
	assert.Equal(t, 0, r.TotalTrades)
	assert.True(t, r.FinalCapital.Equal(r.InitialCapital))
	assert.Equal(t, 0.0, r.WinRate)
	assert.Nil(t, r.SharpeRatio)
	assert.True(t, r.MaxDrawdown.IsZero())
	assert.Len(t, r.EquityCurve, 20)
}

func TestRunBuyAndHoldRisingPrices(t *testing.T) {
	t.Parallel()

	bars := risingBars(100)
	cfg := DefaultConfig()
	cfg.PositionCap = cfg.InitialCapital

	strat, err := strategies.NewBuyAndHold(strategies.Params{"exitAfterBars": 99})
	require.NoError(t, err)

	r, err := Run(strat, bars, cfg)
	require.NoError(t, err)

	require.Len(t, r.Trades, 2)
	assert.Equal(t, bars[0].Timestamp, r.Trades[0].Timestamp)
	assert.Equal(t, bars[99].Timestamp, r.Trades[1].Timestamp)
	assert.Equal(t, 1, r.TotalTrades)
	assert.Equal(t, 1, r.WinningTrades)
	assert.Equal(t, 0, r.LosingTrades)
	assert.Equal(t, 100.0, r.WinRate)

	p0 := bars[0].Close.InexactFloat64()
	p99 := bars[99].Close.InexactFloat64()
	qty := 10000 / (p0 * 1.0005 * 1.001)
	want := qty * p99 * 0.9995 * 0.999
	assert.InEpsilon(t, want, r.FinalCapital.InexactFloat64(), 1e-9)
	assert.InEpsilon(t, 10000*math.Pow(1.01, 99), r.FinalCapital.InexactFloat64(), 0.01)

	assert.Equal(t, "2024-01-01", r.StartDate)
	assert.Equal(t, "2024-04-09", r.EndDate)
	assert.Equal(t, "buy-and-hold", r.StrategyID)
	require.NotNil(t, r.SharpeRatio)
	assert.Greater(t, *r.SharpeRatio, 0.0)

	rets := r.TradeReturns()
	require.Len(t, rets, 1)
	assert.InEpsilon(t, r.FinalCapital.InexactFloat64()/10000-1, rets[0], 1e-6)
	assert.Len(t, r.EquityValues(), 100)
}

func TestRunSortsBarsAndNotifiesCloses(t *testing.T) {
	t.Parallel()

	bars := risingBars(6)
	shuffled := []market.Bar{bars[3], bars[0], bars[5], bars[1], bars[4], bars[2]}

	strat := &scripted{signals: map[int]strategies.SignalType{
		0: strategies.Buy,
		2: strategies.CloseLong,
		3: strategies.Hold,
		4: strategies.Buy,
		5: strategies.CloseShort,
	}}
	r, err := Run(strat, shuffled, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, bars[3].Timestamp, shuffled[0].Timestamp, "caller slice untouched")
	require.Len(t, r.Trades, 3)
	assert.Equal(t, bars[0].Timestamp, r.Trades[0].Timestamp)
	assert.Equal(t, bars[2].Timestamp, r.Trades[1].Timestamp)
	assert.Equal(t, bars[4].Timestamp, r.Trades[2].Timestamp)

	require.Len(t, strat.closes, 1)
	assert.True(t, strat.closes[0].Equal(r.Trades[1].PnL))
	assert.Equal(t, 1, r.TotalTrades)

	for i := 1; i < len(r.EquityCurve); i++ {
		assert.Greater(t, r.EquityCurve[i].Timestamp, r.EquityCurve[i-1].Timestamp)
	}
}

func TestRunLosingExitCounts(t *testing.T) {
	t.Parallel()

	bars := risingBars(2)
	bars[1].Close = bars[0].Close
	strat := &scripted{signals: map[int]strategies.SignalType{0: strategies.Buy, 1: strategies.Sell}}

	r, err := Run(strat, bars, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, r.LosingTrades)
	assert.Equal(t, 0.0, r.WinRate)
	assert.True(t, r.Trades[1].PnL.IsNegative())
	assert.True(t, r.MaxDrawdown.IsPositive())
}

func TestNoopHasNoSharpe(t *testing.T) {
	t.Parallel()

	r, err := Run(strategies.Noop{}, risingBars(30), DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, r.SharpeRatio)
	assert.Equal(t, 0.0, r.WinRate)
}

func TestFormatReport(t *testing.T) {
	t.Parallel()

	strat, err := strategies.NewBuyAndHold(strategies.Params{"exitAfterBars": 9})
	require.NoError(t, err)
	r, err := Run(strat, risingBars(10), DefaultConfig())
	require.NoError(t, err)

	out := FormatReport(r)
	assert.Contains(t, out, "Backtest Report: buy-and-hold")
	assert.Contains(t, out, "Period:        2024-01-01 to 2024-01-10")
	assert.Contains(t, out, "Win Rate:      100.0%")
	assert.Contains(t, out, "Sharpe Ratio:")

	flat, err := Run(strategies.Noop{}, risingBars(10), DefaultConfig())
	require.NoError(t, err)
	out = FormatReport(flat)
	assert.False(t, strings.Contains(out, "Sharpe Ratio:"))
	assert.Contains(t, out, "Capital:       10000.00 -> 10000.00")
}
