package strategies

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Params are strategy parameters keyed by name. Values usually come from
// JSON or YAML so numbers may arrive as float64, int or numeric strings.
type Params map[string]any

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a copy of p overlaid with over.
func (p Params) Merge(over Params) Params {
	out := p.Clone()
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Float returns the named value as float64 or def when missing or not numeric.
func (p Params) Float(name string, def float64) float64 {
	v, ok := p[name]
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case decimal.Decimal:
		return x.InexactFloat64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return def
		}
		return f
	}
	return def
}

// Int returns the named value truncated to int.
func (p Params) Int(name string, def int) int {
	if _, ok := p[name]; !ok {
		return def
	}
	return int(p.Float(name, float64(def)))
}

// Decimal returns the named value as a decimal.
func (p Params) Decimal(name string, def decimal.Decimal) decimal.Decimal {
	v, ok := p[name]
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case decimal.Decimal:
		return x
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return def
		}
		return d
	}
	return decimal.NewFromFloat(p.Float(name, def.InexactFloat64()))
}

// Bool returns the named value as bool.
func (p Params) Bool(name string, def bool) bool {
	switch x := p[name].(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return def
		}
		return b
	}
	return def
}

// String returns the named value formatted as a string.
func (p Params) String(name string, def string) string {
	v, ok := p[name]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Key renders p deterministically, sorted by name. It is used for logging
// and as a stable identity for a parameter set.
func (p Params) Key() string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, k := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s=%v", k, p[k])
	}
	return sb.String()
}
