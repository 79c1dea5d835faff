package strategies

import (
	"testing"
	"time"

	"github.com/rustyeddy/polypaper/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hourMs = int64(time.Hour / time.Millisecond)

func mkBar(i int, close float64) market.Bar {
	c := decimal.NewFromFloat(close)
	return market.Bar{
		Symbol:    "BTC-USD",
		Timestamp: int64(i) * hourMs,
		Open:      c,
		High:      c,
		Low:       c,
		Close:     c,
	}
}

func long(entry float64) []Position {
	return []Position{{
		Symbol:        "BTC-USD",
		Side:          "LONG",
		Quantity:      decimal.NewFromFloat(0.2),
		AvgEntryPrice: decimal.NewFromFloat(entry),
	}}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	RegisterBuiltins(r)

	assert.Equal(t, []string{
		"buy-and-hold", "ema-cross", "late-entry-v1", "mean-reversion-v1", "noop", "trend-following-v1",
	}, r.IDs())

	s, err := r.New("  Late-Entry-V1 ", nil)
	require.NoError(t, err)
	assert.Equal(t, "late-entry-v1", s.Metadata().ID)

	_, err = r.New("does-not-exist", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	assert.Contains(t, err.Error(), "does-not-exist")

	metas := r.List()
	require.Len(t, metas, 6)
	for _, m := range metas {
		assert.NotEmpty(t, m.Name, m.ID)
		assert.NotEmpty(t, m.Version, m.ID)
	}

	assert.Same(t, Default(), Default())
}

func TestRegistryFactoryError(t *testing.T) {
	t.Parallel()

	_, err := Default().New("ema-cross", Params{"fastPeriod": 30, "slowPeriod": 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be less than")
}

func TestParams(t *testing.T) {
	t.Parallel()

	p := Params{
		"f":   1.5,
		"i":   7,
		"s":   " 2.25 ",
		"b":   "true",
		"bad": "x",
		"d":   decimal.NewFromInt(3),
	}

	assert.Equal(t, 1.5, p.Float("f", 0))
	assert.Equal(t, 7.0, p.Float("i", 0))
	assert.Equal(t, 2.25, p.Float("s", 0))
	assert.Equal(t, 9.0, p.Float("bad", 9))
	assert.Equal(t, 9.0, p.Float("missing", 9))
	assert.Equal(t, 1, p.Int("f", 0))
	assert.Equal(t, 4, p.Int("missing", 4))
	assert.True(t, p.Decimal("d", decimal.Zero).Equal(decimal.NewFromInt(3)))
	assert.True(t, p.Decimal("s", decimal.Zero).Equal(decimal.RequireFromString("2.25")))
	assert.True(t, p.Bool("b", false))
	assert.Equal(t, "x", p.String("bad", ""))
	assert.Equal(t, "7", p.String("i", ""))

	merged := Params{"a": 1, "b": 2}.Merge(Params{"b": 3})
	assert.Equal(t, Params{"a": 1, "b": 3}, merged)
	assert.Equal(t, "a=1,b=3", merged.Key())
}

func TestStateCircuitBreaker(t *testing.T) {
	t.Parallel()

	var s State
	loss := decimal.NewFromInt(-1)
	ts := int64(1_000_000)

	s.RecordClose(loss, ts, 3, 24*time.Hour)
	s.RecordClose(decimal.NewFromInt(1), ts, 3, 24*time.Hour)
	assert.Equal(t, 0, s.ConsecutiveLosses)

	for i := 0; i < 3; i++ {
		s.RecordClose(loss, ts, 3, 24*time.Hour)
	}
	assert.Equal(t, 3, s.ConsecutiveLosses)
	assert.Equal(t, ts, s.LastLossAt)
	assert.Equal(t, ts+24*hourMs, s.CooldownUntil)

	assert.False(t, s.Allow(ts+hourMs, 3))
	assert.True(t, s.Allow(ts+25*hourMs, 3))
	assert.Equal(t, 0, s.ConsecutiveLosses)
}

func TestNoop(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Noop{}.OnData(mkBar(0, 100), nil))
	assert.Equal(t, "noop", Noop{}.Metadata().ID)
}

func TestBuyAndHold(t *testing.T) {
	t.Parallel()

	s, err := NewBuyAndHold(Params{"exitAfterBars": 2})
	require.NoError(t, err)

	sig := s.OnData(mkBar(0, 100), nil)
	require.NotNil(t, sig)
	assert.Equal(t, Buy, sig.Type)
	assert.Nil(t, sig.Quantity)

	assert.Nil(t, s.OnData(mkBar(1, 101), long(100)))
	sig = s.OnData(mkBar(2, 102), long(100))
	require.NotNil(t, sig)
	assert.Equal(t, CloseLong, sig.Type)

	// no re-entry once flat
	assert.Nil(t, s.OnData(mkBar(3, 103), nil))
}

func TestLateEntry(t *testing.T) {
	t.Parallel()

	strat, err := NewLateEntry(nil)
	require.NoError(t, err)

	var first = -1
	for i := 0; i < 10; i++ {
		c := 100.0
		if i%2 == 1 {
			c = 104
		}
		if sig := strat.OnData(mkBar(i, c), nil); sig != nil && first < 0 {
			first = i
			assert.Equal(t, Buy, sig.Type)
			require.NotNil(t, sig.Quantity)
			assert.True(t, sig.Quantity.Equal(decimal.NewFromInt(20).Div(decimal.NewFromInt(104))))
		}
	}
	assert.Equal(t, 9, first)

	tp := strat.OnData(mkBar(10, 106), long(100))
	require.NotNil(t, tp)
	assert.Equal(t, CloseLong, tp.Type)
	assert.Contains(t, tp.Reason, "take profit")

	sl := strat.OnData(mkBar(11, 96), long(100))
	require.NotNil(t, sl)
	assert.Contains(t, sl.Reason, "stop loss")

	assert.Nil(t, strat.OnData(mkBar(12, 101), long(100)))
}

func TestLateEntryCooldownUsesBarTime(t *testing.T) {
	t.Parallel()

	strat, err := NewLateEntry(Params{"maxConsecutiveLosses": 1, "cooldownHours": 5})
	require.NoError(t, err)
	le := strat.(*LateEntry)
	le.OnPositionClose(decimal.NewFromInt(-1), 0)

	for i := 0; i < 5; i++ {
		c := 100.0
		if i%2 == 1 {
			c = 104
		}
		assert.Nil(t, strat.OnData(mkBar(i, c), long(100)), "bar %d is inside the cooldown", i)
	}
	assert.NotNil(t, strat.OnData(mkBar(5, 106), long(100)))
}

func TestTrendFollowing(t *testing.T) {
	t.Parallel()

	strat, err := NewTrendFollowing(Params{})
	require.NoError(t, err)

	bar := func(i int) market.Bar {
		c := decimal.NewFromFloat(100 + float64(i)*0.5)
		return market.Bar{
			Symbol:    "BTC-USD",
			Timestamp: int64(i) * hourMs,
			Open:      c,
			High:      c.Add(decimal.NewFromFloat(0.1)),
			Low:       c.Sub(decimal.NewFromFloat(0.1)),
			Close:     c,
		}
	}

	var buyAt = -1
	for i := 0; i < 30; i++ {
		if sig := strat.OnData(bar(i), nil); sig != nil {
			buyAt = i
			assert.Equal(t, Buy, sig.Type)
			assert.Contains(t, sig.Reason, "breakout")
		}
	}
	assert.Equal(t, 29, buyAt)

	entry := 100 + 29*0.5
	drop := decimal.NewFromFloat(entry * 0.9)
	sig := strat.OnData(market.Bar{
		Symbol:    "BTC-USD",
		Timestamp: 30 * hourMs,
		Open:      drop,
		High:      drop.Add(decimal.NewFromFloat(0.1)),
		Low:       drop.Sub(decimal.NewFromFloat(0.1)),
		Close:     drop,
	}, long(entry))
	require.NotNil(t, sig)
	assert.Equal(t, CloseLong, sig.Type)
	assert.Contains(t, sig.Reason, "trailing stop")
}

func TestMeanReversion(t *testing.T) {
	t.Parallel()

	strat, err := NewMeanReversion(Params{})
	require.NoError(t, err)

	for i := 0; i < 19; i++ {
		c := 95.0
		if i%2 == 1 {
			c = 105
		}
		assert.Nil(t, strat.OnData(mkBar(i, c), nil))
	}

	sig := strat.OnData(mkBar(19, 90), nil)
	require.NotNil(t, sig)
	assert.Equal(t, Buy, sig.Type)

	tp := strat.OnData(mkBar(20, 92), long(90))
	require.NotNil(t, tp)
	assert.Contains(t, tp.Reason, "take profit")
}

func TestMeanReversionSkipsSqueeze(t *testing.T) {
	t.Parallel()

	strat, err := NewMeanReversion(Params{"bbPeriod": 5})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		assert.Nil(t, strat.OnData(mkBar(i, 100), nil))
	}
}

func TestEMACross(t *testing.T) {
	t.Parallel()

	strat, err := NewEMACross(Params{"fastPeriod": 2, "slowPeriod": 4})
	require.NoError(t, err)

	var pos []Position
	var bought, closed bool
	closes := []float64{10, 9, 8, 7, 6, 5, 6, 7, 8, 9, 10, 11, 12, 11, 10, 9, 8, 7, 6}
	for i, c := range closes {
		sig := strat.OnData(mkBar(i, c), pos)
		if sig == nil {
			continue
		}
		switch sig.Type {
		case Buy:
			assert.False(t, bought)
			assert.Greater(t, i, 5)
			bought = true
			pos = long(c)
		case CloseLong:
			assert.True(t, bought)
			closed = true
			pos = nil
		}
	}
	assert.True(t, bought)
	assert.True(t, closed)
}
