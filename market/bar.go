package market

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV observation for a symbol. Timestamp is milliseconds
// since the Unix epoch.
type Bar struct {
	Symbol    string          `json:"symbol"`
	Timestamp int64           `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// Time returns the bar timestamp in UTC.
func (b Bar) Time() time.Time {
	return time.UnixMilli(b.Timestamp).UTC()
}

// SortBars orders bars ascending by timestamp. Bars sharing a timestamp keep
// their relative order.
func SortBars(bars []Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp < bars[j].Timestamp
	})
}

// BarsBetween returns the bars with start <= timestamp < end. A zero start or
// end leaves that side unbounded.
func BarsBetween(bars []Bar, start, end time.Time) []Bar {
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if inRange(b.Timestamp, start, end) {
			out = append(out, b)
		}
	}
	return out
}

func inRange(ts int64, from, to time.Time) bool {
	if !from.IsZero() && ts < from.UnixMilli() {
		return false
	}
	if !to.IsZero() && ts >= to.UnixMilli() {
		return false
	}
	return true
}
