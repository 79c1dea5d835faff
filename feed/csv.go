package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/polypaper/market"
	"github.com/shopspring/decimal"
	"github.com/ulikunitz/xz"
)

// ReadCSV parses bar rows:
//
//	timestamp,symbol,open,high,low,close[,volume]
//
// timestamp is epoch milliseconds or RFC3339. A header row whose first column
// is "timestamp" or "time" is skipped, as are empty rows. Rows without a
// symbol take defaultSymbol.
func ReadCSV(r io.Reader, defaultSymbol string) ([]market.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var bars []market.Bar
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return bars, nil
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if line == 1 {
			h := strings.ToLower(strings.TrimSpace(row[0]))
			if h == "timestamp" || h == "time" {
				continue
			}
		}

		b, err := parseBarRow(row, defaultSymbol)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		bars = append(bars, b)
	}
}

func parseBarRow(row []string, defaultSymbol string) (market.Bar, error) {
	if len(row) < 6 {
		return market.Bar{}, fmt.Errorf("bad row (need timestamp,symbol,open,high,low,close): %v", row)
	}

	ts, err := parseTimestamp(row[0])
	if err != nil {
		return market.Bar{}, err
	}

	b := market.Bar{Symbol: strings.TrimSpace(row[1]), Timestamp: ts}
	if b.Symbol == "" {
		b.Symbol = defaultSymbol
	}

	fields := []*decimal.Decimal{&b.Open, &b.High, &b.Low, &b.Close}
	names := []string{"open", "high", "low", "close"}
	for i, dst := range fields {
		v, err := decimal.NewFromString(strings.TrimSpace(row[2+i]))
		if err != nil {
			return market.Bar{}, fmt.Errorf("bad %s %q: %w", names[i], row[2+i], err)
		}
		*dst = v
	}

	if len(row) > 6 && strings.TrimSpace(row[6]) != "" {
		v, err := decimal.NewFromString(strings.TrimSpace(row[6]))
		if err != nil {
			return market.Bar{}, fmt.Errorf("bad volume %q: %w", row[6], err)
		}
		b.Volume = v
	}
	return b, nil
}

func parseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t.UnixMilli(), nil
}

// OpenCSV loads a bar CSV file into a MemorySource. Files ending in .xz are
// decompressed.
func OpenCSV(path, defaultSymbol string) (*MemorySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".xz") {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("xz %s: %w", path, err)
		}
		r = xr
	}

	bars, err := ReadCSV(r, defaultSymbol)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return NewMemorySource(bars), nil
}

// WriteCSV writes bars in the format ReadCSV accepts.
func WriteCSV(w io.Writer, bars []market.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "symbol", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		if err := cw.Write([]string{
			strconv.FormatInt(b.Timestamp, 10),
			b.Symbol,
			b.Open.String(),
			b.High.String(),
			b.Low.String(),
			b.Close.String(),
			b.Volume.String(),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
