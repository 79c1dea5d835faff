package feed

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/polypaper/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testBars(symbol string, n int) []market.Bar {
	bars := make([]market.Bar, n)
	for i := range bars {
		p := decimal.NewFromInt(int64(100 + i))
		bars[i] = market.Bar{
			Symbol:    symbol,
			Timestamp: t0.Add(time.Duration(i) * time.Hour).UnixMilli(),
			Open:      p,
			High:      p.Add(decimal.NewFromInt(1)),
			Low:       p.Sub(decimal.NewFromInt(1)),
			Close:     p,
			Volume:    decimal.NewFromInt(10),
		}
	}
	return bars
}

func TestMemorySourceFilters(t *testing.T) {
	t.Parallel()

	bars := append(testBars("BTC", 5), testBars("ETH", 5)...)
	src := NewMemorySource(bars)
	assert.Equal(t, 10, src.Len())

	got, err := src.LoadBars(context.Background(), "ETH", t0.Add(time.Hour), t0.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, b := range got {
		assert.Equal(t, "ETH", b.Symbol)
	}

	all, err := src.LoadBars(context.Background(), "", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 10)

	first, last, ok := src.Bounds()
	require.True(t, ok)
	assert.Equal(t, t0, first)
	assert.Equal(t, t0.Add(4*time.Hour), last)

	cp := src.Bars()
	require.Len(t, cp, 10)
	cp[0].Symbol = "XRP"
	assert.Equal(t, "BTC", src.Bars()[0].Symbol)
}

func TestResampled(t *testing.T) {
	t.Parallel()

	src := Resampled(NewMemorySource(testBars("BTC", 10)), 4*time.Hour)
	got, err := src.LoadBars(context.Background(), "BTC", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Open.Equal(decimal.NewFromInt(100)))
	assert.True(t, got[0].Close.Equal(decimal.NewFromInt(103)))
	assert.True(t, got[0].High.Equal(decimal.NewFromInt(104)))
	assert.True(t, got[0].Volume.Equal(decimal.NewFromInt(40)))
	assert.True(t, got[2].Volume.Equal(decimal.NewFromInt(20)))

	mem := NewMemorySource(nil)
	assert.Same(t, mem, Resampled(mem, 0))
}

func TestMemorySourceCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemorySource(nil).LoadBars(ctx, "", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"timestamp,symbol,open,high,low,close,volume",
		"1704067200000,BTC,100,101,99,100.5,12",
		"2024-01-01T01:00:00Z,,100.5,102,100,101",
		"",
	}, "\n")

	bars, err := ReadCSV(strings.NewReader(in), "ETH")
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, "BTC", bars[0].Symbol)
	assert.Equal(t, t0.UnixMilli(), bars[0].Timestamp)
	assert.True(t, bars[0].Close.Equal(decimal.RequireFromString("100.5")))
	assert.True(t, bars[0].Volume.Equal(decimal.NewFromInt(12)))

	assert.Equal(t, "ETH", bars[1].Symbol)
	assert.Equal(t, t0.Add(time.Hour).UnixMilli(), bars[1].Timestamp)
	assert.True(t, bars[1].Volume.IsZero())
}

func TestReadCSVErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short row", "1,BTC,1,2,3", "need timestamp"},
		{"bad timestamp", "yesterday,BTC,1,2,3,4", "bad timestamp"},
		{"bad price", "1,BTC,1,x,3,4", "bad high"},
		{"bad volume", "1,BTC,1,2,3,4,lots", "bad volume"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "csv line 1")
		})
	}
}

func TestCSVRoundTripXZ(t *testing.T) {
	t.Parallel()

	bars := testBars("BTC", 4)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, bars))

	path := filepath.Join(t.TempDir(), "btc.csv.xz")
	f, err := os.Create(path)
	require.NoError(t, err)
	xw, err := xz.NewWriter(f)
	require.NoError(t, err)
	_, err = xw.Write(buf.Bytes())
	require.NoError(t, err)
	require.NoError(t, xw.Close())
	require.NoError(t, f.Close())

	src, err := OpenCSV(path, "")
	require.NoError(t, err)
	got, err := src.LoadBars(context.Background(), "BTC", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.True(t, got[3].Close.Equal(bars[3].Close))
	assert.Equal(t, bars[3].Timestamp, got[3].Timestamp)
}

func TestOpenCSVMissing(t *testing.T) {
	t.Parallel()

	_, err := OpenCSV(filepath.Join(t.TempDir(), "nope.csv"), "")
	assert.Error(t, err)
}

func TestSQLSourceSQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src, err := OpenSQL("sqlite3", filepath.Join(t.TempDir(), "bars.db"), "")
	require.NoError(t, err)
	defer src.Close()

	require.NoError(t, src.EnsureSchema(ctx))
	require.NoError(t, src.InsertBars(ctx, append(testBars("BTC", 6), testBars("ETH", 2)...)))

	got, err := src.LoadBars(ctx, "BTC", t0.Add(2*time.Hour), time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, t0.Add(2*time.Hour).UnixMilli(), got[0].Timestamp)
	assert.True(t, got[0].Close.Equal(decimal.NewFromInt(102)))
	assert.True(t, got[0].High.Equal(decimal.NewFromInt(103)))

	all, err := src.LoadBars(ctx, "", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 8)
}

func TestSQLSourceRejects(t *testing.T) {
	t.Parallel()

	_, err := OpenSQL("mysql", "whatever", "")
	assert.ErrorContains(t, err, "unsupported sql driver")

	_, err = OpenSQL("sqlite3", filepath.Join(t.TempDir(), "x.db"), "candles; DROP")
	assert.ErrorContains(t, err, "invalid table name")
}
