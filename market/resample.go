package market

import (
	"fmt"
	"io"
	"time"
)

// Resample aggregates bars into interval-wide buckets aligned to the Unix
// epoch. Each symbol is bucketed on its own. Open is the first bar's open,
// Close the last bar's close, and Volume the sum. Input must be sorted.
func Resample(bars []Bar, interval time.Duration) []Bar {
	step := interval.Milliseconds()
	if step <= 0 || len(bars) == 0 {
		return bars
	}

	var out []Bar
	open := map[string]int{} // symbol -> index in out of the bucket being built
	for _, b := range bars {
		bucket := (b.Timestamp / step) * step
		i, ok := open[b.Symbol]
		if ok && out[i].Timestamp == bucket {
			agg := &out[i]
			if b.High.GreaterThan(agg.High) {
				agg.High = b.High
			}
			if b.Low.LessThan(agg.Low) {
				agg.Low = b.Low
			}
			agg.Close = b.Close
			agg.Volume = agg.Volume.Add(b.Volume)
			continue
		}
		b.Timestamp = bucket
		out = append(out, b)
		open[b.Symbol] = len(out) - 1
	}
	return out
}

// Gap is a run of missing intervals between two bars.
type Gap struct {
	Start   time.Time `json:"start"`
	Missing int       `json:"missing"`
	Kind    string    `json:"kind"` // minor, weekend or suspicious
}

type GapStats struct {
	Expected       int    `json:"expected"`
	Present        int    `json:"present"`
	Missing        int    `json:"missing"`
	GapCount       int    `json:"gap_count"`
	WeekendGaps    int    `json:"weekend_gaps"`
	SuspiciousGaps int    `json:"suspicious_gaps"`
	LongestGap     int    `json:"longest_gap"`
	LongestGapKind string `json:"longest_gap_kind,omitempty"`
}

// FindGaps reports holes in a sorted single-symbol series sampled every
// interval. Duplicate timestamps are ignored.
func FindGaps(bars []Bar, interval time.Duration) ([]Gap, GapStats) {
	var stats GapStats
	step := interval.Milliseconds()
	if step <= 0 || len(bars) == 0 {
		return nil, stats
	}

	first := (bars[0].Timestamp / step) * step
	last := (bars[len(bars)-1].Timestamp / step) * step
	stats.Expected = int((last-first)/step) + 1

	var gaps []Gap
	prev := first - step
	for _, b := range bars {
		slot := (b.Timestamp / step) * step
		if slot <= prev {
			continue
		}
		stats.Present++
		if missing := int((slot-prev)/step) - 1; missing > 0 {
			start := time.UnixMilli(prev + step).UTC()
			gaps = append(gaps, Gap{Start: start, Missing: missing, Kind: classifyGap(start, time.Duration(missing)*interval)})
		}
		prev = slot
	}

	stats.Missing = stats.Expected - stats.Present
	for _, g := range gaps {
		stats.GapCount++
		if g.Missing > stats.LongestGap {
			stats.LongestGap = g.Missing
			stats.LongestGapKind = g.Kind
		}
		switch g.Kind {
		case "weekend":
			stats.WeekendGaps++
		case "suspicious":
			stats.SuspiciousGaps++
		}
	}
	return gaps, stats
}

// Gaps of a day or more starting Friday through Sunday (UTC) are market
// closures; other day-long or 10 minute+ holes are suspicious.
func classifyGap(start time.Time, span time.Duration) string {
	if span >= 24*time.Hour {
		switch start.Weekday() {
		case time.Friday, time.Saturday, time.Sunday:
			return "weekend"
		}
		return "suspicious"
	}
	if span >= 10*time.Minute {
		return "suspicious"
	}
	return "minor"
}

// PrintGapStats writes a one-block summary of s.
func PrintGapStats(w io.Writer, s GapStats) {
	pct := 0.0
	if s.Expected > 0 {
		pct = float64(s.Present) / float64(s.Expected) * 100
	}
	fmt.Fprintf(w, "Bars:          %d of %d expected (%.2f%%)\n", s.Present, s.Expected, pct)
	fmt.Fprintf(w, "Gaps:          %d (%d weekend, %d suspicious)\n", s.GapCount, s.WeekendGaps, s.SuspiciousGaps)
	if s.LongestGap > 0 {
		fmt.Fprintf(w, "Longest gap:   %d intervals (%s)\n", s.LongestGap, s.LongestGapKind)
	}
}
