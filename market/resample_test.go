package market

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ohlc(sym string, ts time.Time, o, h, l, c, v int64) Bar {
	return Bar{
		Symbol: sym, Timestamp: ts.UnixMilli(),
		Open: decimal.NewFromInt(o), High: decimal.NewFromInt(h),
		Low: decimal.NewFromInt(l), Close: decimal.NewFromInt(c),
		Volume: decimal.NewFromInt(v),
	}
}

func TestResampleHourly(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []Bar{
		ohlc("BTC", t0, 10, 12, 9, 11, 1),
		ohlc("ETH", t0, 5, 5, 5, 5, 7),
		ohlc("BTC", t0.Add(20*time.Minute), 11, 15, 10, 14, 2),
		ohlc("BTC", t0.Add(40*time.Minute), 14, 14, 8, 9, 3),
		ohlc("BTC", t0.Add(70*time.Minute), 9, 10, 9, 10, 4),
	}

	got := Resample(bars, time.Hour)
	require.Len(t, got, 3)

	btc := got[0]
	assert.Equal(t, t0.UnixMilli(), btc.Timestamp)
	assert.True(t, btc.Open.Equal(decimal.NewFromInt(10)))
	assert.True(t, btc.High.Equal(decimal.NewFromInt(15)))
	assert.True(t, btc.Low.Equal(decimal.NewFromInt(8)))
	assert.True(t, btc.Close.Equal(decimal.NewFromInt(9)))
	assert.True(t, btc.Volume.Equal(decimal.NewFromInt(6)))

	assert.Equal(t, "ETH", got[1].Symbol)
	assert.Equal(t, t0.Add(time.Hour).UnixMilli(), got[2].Timestamp)

	assert.Equal(t, bars, Resample(bars, 0))
}

func TestFindGaps(t *testing.T) {
	t.Parallel()

	// 2024-01-05 is a Friday.
	fri := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	var bars []Bar
	for _, h := range []int{0, 1, 3, 3, 4, 30, 31} {
		bars = append(bars, ohlc("BTC", fri.Add(time.Duration(h)*time.Hour), 1, 1, 1, 1, 0))
	}

	gaps, stats := FindGaps(bars, time.Hour)
	require.Len(t, gaps, 2)
	assert.Equal(t, Gap{Start: fri.Add(2 * time.Hour), Missing: 1, Kind: "suspicious"}, gaps[0])
	assert.Equal(t, Gap{Start: fri.Add(5 * time.Hour), Missing: 25, Kind: "weekend"}, gaps[1])

	assert.Equal(t, 32, stats.Expected)
	assert.Equal(t, 6, stats.Present)
	assert.Equal(t, 26, stats.Missing)
	assert.Equal(t, 1, stats.WeekendGaps)
	assert.Equal(t, 1, stats.SuspiciousGaps)
	assert.Equal(t, 25, stats.LongestGap)

	var buf bytes.Buffer
	PrintGapStats(&buf, stats)
	assert.Contains(t, buf.String(), "Gaps:          2 (1 weekend, 1 suspicious)")
}

func TestClassifyGap(t *testing.T) {
	t.Parallel()

	tue := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "minor", classifyGap(tue, 5*time.Minute))
	assert.Equal(t, "suspicious", classifyGap(tue, 30*time.Minute))
	assert.Equal(t, "suspicious", classifyGap(tue, 48*time.Hour))
	assert.Equal(t, "weekend", classifyGap(tue.AddDate(0, 0, 4), 48*time.Hour))
}
