package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func bar(ts int64, c float64) Bar {
	d := decimal.NewFromFloat(c)
	return Bar{Symbol: "BTC", Timestamp: ts, Open: d, High: d, Low: d, Close: d}
}

func TestSortBarsStable(t *testing.T) {
	t.Parallel()

	bars := []Bar{bar(3, 1), bar(1, 2), bar(3, 3), bar(2, 4)}
	SortBars(bars)

	var ts []int64
	for _, b := range bars {
		ts = append(ts, b.Timestamp)
	}
	assert.Equal(t, []int64{1, 2, 3, 3}, ts)
	assert.True(t, bars[2].Close.Equal(decimal.NewFromInt(1)))
	assert.True(t, bars[3].Close.Equal(decimal.NewFromInt(3)))
}

func TestBarsBetween(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day := int64(24 * time.Hour / time.Millisecond)
	var bars []Bar
	for i := int64(0); i < 5; i++ {
		bars = append(bars, bar(start.UnixMilli()+i*day, float64(i)))
	}

	got := BarsBetween(bars, start.AddDate(0, 0, 1), start.AddDate(0, 0, 3))
	assert.Len(t, got, 2)
	assert.Equal(t, start.AddDate(0, 0, 1), got[0].Time())

	assert.Len(t, BarsBetween(bars, time.Time{}, time.Time{}), 5)
}
