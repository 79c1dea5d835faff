// Package feed loads historical bars for the engine from memory, CSV files
// or a SQL candles table.
package feed

import (
	"context"
	"time"

	"github.com/rustyeddy/polypaper/market"
)

// Source loads the bars of symbol with start <= timestamp < end, sorted by
// timestamp. Zero times leave that side unbounded and an empty symbol
// matches every symbol.
type Source interface {
	LoadBars(ctx context.Context, symbol string, start, end time.Time) ([]market.Bar, error)
}

// MemorySource serves bars held in memory.
type MemorySource struct {
	bars []market.Bar
}

func NewMemorySource(bars []market.Bar) *MemorySource {
	sorted := make([]market.Bar, len(bars))
	copy(sorted, bars)
	market.SortBars(sorted)
	return &MemorySource{bars: sorted}
}

func (m *MemorySource) LoadBars(ctx context.Context, symbol string, start, end time.Time) ([]market.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in := market.BarsBetween(m.bars, start, end)
	if symbol == "" {
		return in, nil
	}
	out := in[:0]
	for _, b := range in {
		if b.Symbol == symbol {
			out = append(out, b)
		}
	}
	return out, nil
}

// Len returns the number of bars held.
func (m *MemorySource) Len() int {
	return len(m.bars)
}

// Bounds returns the first and last bar times. ok is false when empty.
func (m *MemorySource) Bounds() (first, last time.Time, ok bool) {
	if len(m.bars) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return m.bars[0].Time(), m.bars[len(m.bars)-1].Time(), true
}

// Bars returns a copy of every bar held.
func (m *MemorySource) Bars() []market.Bar {
	out := make([]market.Bar, len(m.bars))
	copy(out, m.bars)
	return out
}

// Resampled wraps src so every load is aggregated into interval bars.
func Resampled(src Source, interval time.Duration) Source {
	if interval <= 0 {
		return src
	}
	return &resampled{src: src, interval: interval}
}

type resampled struct {
	src      Source
	interval time.Duration
}

func (r *resampled) LoadBars(ctx context.Context, symbol string, start, end time.Time) ([]market.Bar, error) {
	bars, err := r.src.LoadBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	return market.Resample(bars, r.interval), nil
}
